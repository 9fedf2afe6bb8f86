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
	"encoding/xml"

	"github.com/innovationmech/serbench/pkg/record"
)

// xmlRecord gives the record a stable root element name.
type xmlRecord struct {
	XMLName xml.Name `xml:"user"`
	record.Record
}

// XML encodes records with encoding/xml.
type XML struct{}

// NewXML creates an XML codec.
func NewXML() *XML {
	return &XML{}
}

// Format implements Codec.
func (x *XML) Format() Format {
	return FormatXML
}

// Encode implements Codec.
func (x *XML) Encode(r *record.Record) ([]byte, error) {
	if r == nil {
		return nil, NewCodecError(FormatXML, OpEncode, "record cannot be nil", nil)
	}
	data, err := xml.Marshal(&xmlRecord{Record: *r})
	if err != nil {
		return nil, NewCodecError(FormatXML, OpEncode, "failed to marshal XML", err)
	}
	return data, nil
}

// Decode implements Codec.
func (x *XML) Decode(data []byte) (*record.Record, error) {
	if len(data) == 0 {
		return nil, NewCodecError(FormatXML, OpDecode, "data cannot be empty", nil)
	}
	var wire xmlRecord
	if err := xml.Unmarshal(data, &wire); err != nil {
		return nil, NewCodecError(FormatXML, OpDecode, "failed to unmarshal XML", err)
	}
	r := wire.Record
	return &r, nil
}
