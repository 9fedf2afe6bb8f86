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
	"github.com/golang/snappy"

	"github.com/innovationmech/serbench/pkg/record"
)

// Snappy decorates another codec with Snappy block compression so the
// compressed size and the cost of compression are measured together.
type Snappy struct {
	format Format
	inner  Codec
}

// NewSnappy wraps inner and reports results under format.
func NewSnappy(format Format, inner Codec) *Snappy {
	return &Snappy{format: format, inner: inner}
}

// Format implements Codec.
func (s *Snappy) Format() Format {
	return s.format
}

// Encode implements Codec.
func (s *Snappy) Encode(r *record.Record) ([]byte, error) {
	raw, err := s.inner.Encode(r)
	if err != nil {
		return nil, NewCodecError(s.format, OpEncode, "inner codec failed", err)
	}
	return snappy.Encode(nil, raw), nil
}

// Decode implements Codec.
func (s *Snappy) Decode(data []byte) (*record.Record, error) {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, NewCodecError(s.format, OpDecode, "failed to decompress snappy block", err)
	}
	r, err := s.inner.Decode(raw)
	if err != nil {
		return nil, NewCodecError(s.format, OpDecode, "inner codec failed", err)
	}
	return r, nil
}
