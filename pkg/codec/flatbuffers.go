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

	flatbuffers "github.com/google/flatbuffers/go"

	"github.com/innovationmech/serbench/pkg/codec/internal/userfb"
	"github.com/innovationmech/serbench/pkg/record"
)

// minFlatBufferSize is the root offset plus the smallest possible vtable.
const minFlatBufferSize = 8

// FlatBuffers encodes records as userfb.User tables.
type FlatBuffers struct {
	initialSize int
}

// NewFlatBuffers creates a FlatBuffers codec.
func NewFlatBuffers() *FlatBuffers {
	return &FlatBuffers{initialSize: 256}
}

// Format implements Codec.
func (f *FlatBuffers) Format() Format {
	return FormatFlatBuffers
}

// Encode implements Codec. Every call owns its builder, so the codec is safe
// for concurrent use.
func (f *FlatBuffers) Encode(r *record.Record) ([]byte, error) {
	if r == nil {
		return nil, NewCodecError(FormatFlatBuffers, OpEncode, "record cannot be nil", nil)
	}

	builder := flatbuffers.NewBuilder(f.initialSize)

	id := builder.CreateString(r.ID)
	name := builder.CreateString(r.Name)
	email := builder.CreateString(r.Email)

	roleOffsets := make([]flatbuffers.UOffsetT, len(r.Roles))
	for i, role := range r.Roles {
		roleOffsets[i] = builder.CreateString(role)
	}
	userfb.UserStartRolesVector(builder, len(roleOffsets))
	for i := len(roleOffsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(roleOffsets[i])
	}
	roles := builder.EndVector(len(roleOffsets))

	userfb.UserStart(builder)
	userfb.UserAddId(builder, id)
	userfb.UserAddName(builder, name)
	userfb.UserAddEmail(builder, email)
	userfb.UserAddAge(builder, r.Age)
	userfb.UserAddActive(builder, r.Active)
	userfb.UserAddRoles(builder, roles)
	userfb.UserAddBalance(builder, r.Balance)
	userfb.FinishUserBuffer(builder, userfb.UserEnd(builder))

	return builder.FinishedBytes(), nil
}

// Decode implements Codec. FlatBuffers accessors do not bounds-check, so a
// malformed buffer surfaces as a recovered panic turned into a CodecError.
func (f *FlatBuffers) Decode(data []byte) (r *record.Record, err error) {
	if len(data) < minFlatBufferSize {
		return nil, NewCodecError(FormatFlatBuffers, OpDecode, fmt.Sprintf("buffer too short: %d bytes", len(data)), nil)
	}

	defer func() {
		if p := recover(); p != nil {
			r = nil
			err = NewCodecError(FormatFlatBuffers, OpDecode, "malformed buffer", fmt.Errorf("%v", p))
		}
	}()

	user := userfb.GetRootAsUser(data, 0)

	var roles []string
	if n := user.RolesLength(); n > 0 {
		roles = make([]string, n)
		for i := 0; i < n; i++ {
			roles[i] = string(user.Roles(i))
		}
	}

	return &record.Record{
		ID:      string(user.Id()),
		Name:    string(user.Name()),
		Email:   string(user.Email()),
		Age:     user.Age(),
		Active:  user.Active(),
		Roles:   roles,
		Balance: user.Balance(),
	}, nil
}
