// Copyright © 2025 jackelyj <dreamerlyj@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
//

package codec

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/innovationmech/serbench/pkg/record"
)

// Field numbers of the serbench.v1.User message.
const (
	pbFieldID      protoreflect.FieldNumber = 1
	pbFieldName    protoreflect.FieldNumber = 2
	pbFieldEmail   protoreflect.FieldNumber = 3
	pbFieldAge     protoreflect.FieldNumber = 4
	pbFieldActive  protoreflect.FieldNumber = 5
	pbFieldRoles   protoreflect.FieldNumber = 6
	pbFieldBalance protoreflect.FieldNumber = 7
)

// UserFileDescriptor returns the proto3 file descriptor of the record schema:
//
//	message User {
//	  string id = 1;
//	  string name = 2;
//	  string email = 3;
//	  int32 age = 4;
//	  bool active = 5;
//	  repeated string roles = 6;
//	  double balance = 7;
//	}
func UserFileDescriptor() *descriptorpb.FileDescriptorProto {
	field := func(name string, number protoreflect.FieldNumber, typ descriptorpb.FieldDescriptorProto_Type, label descriptorpb.FieldDescriptorProto_Label) *descriptorpb.FieldDescriptorProto {
		return &descriptorpb.FieldDescriptorProto{
			Name:     proto.String(name),
			JsonName: proto.String(name),
			Number:   proto.Int32(int32(number)),
			Type:     typ.Enum(),
			Label:    label.Enum(),
		}
	}
	optional := descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
	repeated := descriptorpb.FieldDescriptorProto_LABEL_REPEATED

	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("serbench/v1/user.proto"),
		Package: proto.String("serbench.v1"),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{{
			Name: proto.String("User"),
			Field: []*descriptorpb.FieldDescriptorProto{
				field("id", pbFieldID, descriptorpb.FieldDescriptorProto_TYPE_STRING, optional),
				field("name", pbFieldName, descriptorpb.FieldDescriptorProto_TYPE_STRING, optional),
				field("email", pbFieldEmail, descriptorpb.FieldDescriptorProto_TYPE_STRING, optional),
				field("age", pbFieldAge, descriptorpb.FieldDescriptorProto_TYPE_INT32, optional),
				field("active", pbFieldActive, descriptorpb.FieldDescriptorProto_TYPE_BOOL, optional),
				field("roles", pbFieldRoles, descriptorpb.FieldDescriptorProto_TYPE_STRING, repeated),
				field("balance", pbFieldBalance, descriptorpb.FieldDescriptorProto_TYPE_DOUBLE, optional),
			},
		}},
	}
}

// Protobuf encodes records as serbench.v1.User using dynamic messages built
// from UserFileDescriptor. The descriptors are immutable after construction.
type Protobuf struct {
	message   protoreflect.MessageDescriptor
	id        protoreflect.FieldDescriptor
	name      protoreflect.FieldDescriptor
	email     protoreflect.FieldDescriptor
	age       protoreflect.FieldDescriptor
	active    protoreflect.FieldDescriptor
	roles     protoreflect.FieldDescriptor
	balance   protoreflect.FieldDescriptor
	marshal   proto.MarshalOptions
	unmarshal proto.UnmarshalOptions
}

// NewProtobuf resolves the record schema and creates a Protobuf codec.
func NewProtobuf() (*Protobuf, error) {
	file, err := protodesc.NewFile(UserFileDescriptor(), new(protoregistry.Files))
	if err != nil {
		return nil, NewCodecError(FormatProtobuf, OpEncode, "failed to build file descriptor", err)
	}

	message := file.Messages().ByName("User")
	if message == nil {
		return nil, NewCodecError(FormatProtobuf, OpEncode, "message 'User' not found in file descriptor", nil)
	}

	fields := message.Fields()
	p := &Protobuf{
		message:   message,
		id:        fields.ByNumber(pbFieldID),
		name:      fields.ByNumber(pbFieldName),
		email:     fields.ByNumber(pbFieldEmail),
		age:       fields.ByNumber(pbFieldAge),
		active:    fields.ByNumber(pbFieldActive),
		roles:     fields.ByNumber(pbFieldRoles),
		balance:   fields.ByNumber(pbFieldBalance),
		marshal:   proto.MarshalOptions{Deterministic: true},
		unmarshal: proto.UnmarshalOptions{DiscardUnknown: false},
	}
	for _, fd := range []protoreflect.FieldDescriptor{p.id, p.name, p.email, p.age, p.active, p.roles, p.balance} {
		if fd == nil {
			return nil, NewCodecError(FormatProtobuf, OpEncode, fmt.Sprintf("incomplete descriptor for %s", message.FullName()), nil)
		}
	}
	return p, nil
}

// Descriptor returns the message descriptor the codec encodes.
func (p *Protobuf) Descriptor() protoreflect.MessageDescriptor {
	return p.message
}

// Format implements Codec.
func (p *Protobuf) Format() Format {
	return FormatProtobuf
}

// Encode implements Codec.
func (p *Protobuf) Encode(r *record.Record) ([]byte, error) {
	if r == nil {
		return nil, NewCodecError(FormatProtobuf, OpEncode, "record cannot be nil", nil)
	}

	msg := dynamicpb.NewMessage(p.message)
	msg.Set(p.id, protoreflect.ValueOfString(r.ID))
	msg.Set(p.name, protoreflect.ValueOfString(r.Name))
	msg.Set(p.email, protoreflect.ValueOfString(r.Email))
	msg.Set(p.age, protoreflect.ValueOfInt32(r.Age))
	msg.Set(p.active, protoreflect.ValueOfBool(r.Active))
	if len(r.Roles) > 0 {
		roles := msg.Mutable(p.roles).List()
		for _, role := range r.Roles {
			roles.Append(protoreflect.ValueOfString(role))
		}
	}
	msg.Set(p.balance, protoreflect.ValueOfFloat64(r.Balance))

	data, err := p.marshal.Marshal(msg)
	if err != nil {
		return nil, NewCodecError(FormatProtobuf, OpEncode, "failed to marshal protobuf message", err)
	}
	return data, nil
}

// Decode implements Codec.
func (p *Protobuf) Decode(data []byte) (*record.Record, error) {
	msg := dynamicpb.NewMessage(p.message)
	if err := p.unmarshal.Unmarshal(data, msg); err != nil {
		return nil, NewCodecError(FormatProtobuf, OpDecode, "failed to unmarshal protobuf message", err)
	}

	r := &record.Record{
		ID:      msg.Get(p.id).String(),
		Name:    msg.Get(p.name).String(),
		Email:   msg.Get(p.email).String(),
		Age:     int32(msg.Get(p.age).Int()),
		Active:  msg.Get(p.active).Bool(),
		Balance: msg.Get(p.balance).Float(),
	}
	if roles := msg.Get(p.roles).List(); roles.Len() > 0 {
		r.Roles = make([]string, roles.Len())
		for i := 0; i < roles.Len(); i++ {
			r.Roles[i] = roles.Get(i).String()
		}
	}
	return r, nil
}
