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
	"encoding/json"

	"github.com/innovationmech/serbench/pkg/record"
)

// JSON encodes records with encoding/json.
type JSON struct{}

// NewJSON creates a JSON codec.
func NewJSON() *JSON {
	return &JSON{}
}

// Format implements Codec.
func (j *JSON) Format() Format {
	return FormatJSON
}

// Encode implements Codec.
func (j *JSON) Encode(r *record.Record) ([]byte, error) {
	if r == nil {
		return nil, NewCodecError(FormatJSON, OpEncode, "record cannot be nil", nil)
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, NewCodecError(FormatJSON, OpEncode, "failed to marshal JSON", err)
	}
	return data, nil
}

// Decode implements Codec.
func (j *JSON) Decode(data []byte) (*record.Record, error) {
	if len(data) == 0 {
		return nil, NewCodecError(FormatJSON, OpDecode, "data cannot be empty", nil)
	}
	var r record.Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, NewCodecError(FormatJSON, OpDecode, "failed to unmarshal JSON", err)
	}
	return &r, nil
}
