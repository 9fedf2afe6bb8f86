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

	"github.com/innovationmech/serbench/pkg/record"
)

// VerifyRoundTrip checks that decode(encode(r)) reproduces every record in
// records. The first failure is returned as a *CodecError tagged with the
// record index; a mismatch wraps ErrRoundTripMismatch.
func VerifyRoundTrip(c Codec, records []*record.Record) error {
	if c == nil {
		return NewCodecError("", OpVerify, "codec cannot be nil", nil)
	}
	for i, r := range records {
		data, err := c.Encode(r)
		if err != nil {
			return Tag(err, c.Format(), OpEncode, i)
		}
		decoded, err := c.Decode(data)
		if err != nil {
			return Tag(err, c.Format(), OpDecode, i)
		}
		if decoded == nil {
			return &CodecError{
				Format:  c.Format(),
				Op:      OpVerify,
				Index:   i,
				Message: "decoder returned nil record",
				Cause:   ErrRoundTripMismatch,
			}
		}
		if !record.Equal(r, decoded) {
			return &CodecError{
				Format:  c.Format(),
				Op:      OpVerify,
				Index:   i,
				Message: fmt.Sprintf("decoded record %q differs from original", decoded.ID),
				Cause:   ErrRoundTripMismatch,
			}
		}
	}
	return nil
}
