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
	"github.com/fxamacker/cbor/v2"

	"github.com/innovationmech/serbench/pkg/record"
)

// CBOR encodes records with integer map keys using core deterministic
// encoding. Encoding and decoding modes are immutable and safe for
// concurrent use.
type CBOR struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewCBOR creates a CBOR codec.
func NewCBOR() (*CBOR, error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, NewCodecError(FormatCBOR, OpEncode, "failed to create encoding mode", err)
	}
	dec, err := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		return nil, NewCodecError(FormatCBOR, OpDecode, "failed to create decoding mode", err)
	}
	return &CBOR{enc: enc, dec: dec}, nil
}

// Format implements Codec.
func (c *CBOR) Format() Format {
	return FormatCBOR
}

// Encode implements Codec.
func (c *CBOR) Encode(r *record.Record) ([]byte, error) {
	if r == nil {
		return nil, NewCodecError(FormatCBOR, OpEncode, "record cannot be nil", nil)
	}
	data, err := c.enc.Marshal(r)
	if err != nil {
		return nil, NewCodecError(FormatCBOR, OpEncode, "failed to marshal CBOR", err)
	}
	return data, nil
}

// Decode implements Codec.
func (c *CBOR) Decode(data []byte) (*record.Record, error) {
	if len(data) == 0 {
		return nil, NewCodecError(FormatCBOR, OpDecode, "data cannot be empty", nil)
	}
	var r record.Record
	if err := c.dec.Unmarshal(data, &r); err != nil {
		return nil, NewCodecError(FormatCBOR, OpDecode, "failed to unmarshal CBOR", err)
	}
	return &r, nil
}
