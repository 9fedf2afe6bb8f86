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

	"github.com/linkedin/goavro/v2"

	"github.com/innovationmech/serbench/pkg/record"
)

// UserAvroSchema is the Avro schema of the record.
const UserAvroSchema = `{
  "type": "record",
  "name": "User",
  "namespace": "serbench.v1",
  "fields": [
    {"name": "id", "type": "string"},
    {"name": "name", "type": "string"},
    {"name": "email", "type": "string"},
    {"name": "age", "type": "int"},
    {"name": "active", "type": "boolean"},
    {"name": "roles", "type": {"type": "array", "items": "string"}},
    {"name": "balance", "type": "double"}
  ]
}`

// Avro encodes records with the Avro binary encoding. goavro codecs are safe
// for concurrent use.
type Avro struct {
	codec *goavro.Codec
}

// NewAvro compiles UserAvroSchema and creates an Avro codec.
func NewAvro() (*Avro, error) {
	c, err := goavro.NewCodec(UserAvroSchema)
	if err != nil {
		return nil, NewCodecError(FormatAvro, OpEncode, "failed to compile schema", err)
	}
	return &Avro{codec: c}, nil
}

// Schema returns the canonical form of the compiled schema.
func (a *Avro) Schema() string {
	return a.codec.CanonicalSchema()
}

// Format implements Codec.
func (a *Avro) Format() Format {
	return FormatAvro
}

// Encode implements Codec.
func (a *Avro) Encode(r *record.Record) ([]byte, error) {
	if r == nil {
		return nil, NewCodecError(FormatAvro, OpEncode, "record cannot be nil", nil)
	}

	roles := make([]interface{}, len(r.Roles))
	for i, role := range r.Roles {
		roles[i] = role
	}
	native := map[string]interface{}{
		"id":      r.ID,
		"name":    r.Name,
		"email":   r.Email,
		"age":     r.Age,
		"active":  r.Active,
		"roles":   roles,
		"balance": r.Balance,
	}

	data, err := a.codec.BinaryFromNative(nil, native)
	if err != nil {
		return nil, NewCodecError(FormatAvro, OpEncode, "failed to encode avro datum", err)
	}
	return data, nil
}

// Decode implements Codec.
func (a *Avro) Decode(data []byte) (*record.Record, error) {
	if len(data) == 0 {
		return nil, NewCodecError(FormatAvro, OpDecode, "data cannot be empty", nil)
	}

	native, rest, err := a.codec.NativeFromBinary(data)
	if err != nil {
		return nil, NewCodecError(FormatAvro, OpDecode, "failed to decode avro datum", err)
	}
	if len(rest) != 0 {
		return nil, NewCodecError(FormatAvro, OpDecode, fmt.Sprintf("%d trailing bytes after datum", len(rest)), nil)
	}

	fields, ok := native.(map[string]interface{})
	if !ok {
		return nil, NewCodecError(FormatAvro, OpDecode, fmt.Sprintf("unexpected datum type %T", native), nil)
	}

	r := &record.Record{}
	if r.ID, ok = fields["id"].(string); !ok {
		return nil, avroFieldError("id", fields["id"])
	}
	if r.Name, ok = fields["name"].(string); !ok {
		return nil, avroFieldError("name", fields["name"])
	}
	if r.Email, ok = fields["email"].(string); !ok {
		return nil, avroFieldError("email", fields["email"])
	}
	if r.Age, ok = fields["age"].(int32); !ok {
		return nil, avroFieldError("age", fields["age"])
	}
	if r.Active, ok = fields["active"].(bool); !ok {
		return nil, avroFieldError("active", fields["active"])
	}
	if r.Balance, ok = fields["balance"].(float64); !ok {
		return nil, avroFieldError("balance", fields["balance"])
	}

	items, ok := fields["roles"].([]interface{})
	if !ok {
		return nil, avroFieldError("roles", fields["roles"])
	}
	if len(items) > 0 {
		r.Roles = make([]string, len(items))
		for i, item := range items {
			if r.Roles[i], ok = item.(string); !ok {
				return nil, avroFieldError("roles", item)
			}
		}
	}
	return r, nil
}

func avroFieldError(field string, value interface{}) *CodecError {
	return NewCodecError(FormatAvro, OpDecode, fmt.Sprintf("field '%s' has unexpected type %T", field, value), nil)
}
