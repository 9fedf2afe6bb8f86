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

// Package codec defines the capability every data-encoding format exposes to
// the benchmark harness, the ordered format registry, and the adapters for
// the builtin formats.
package codec

import (
	"errors"
	"fmt"

	"github.com/innovationmech/serbench/pkg/record"
)

// Format identifies a data-encoding format.
type Format string

const (
	// FormatJSON is textual JSON.
	FormatJSON Format = "json"

	// FormatXML is textual XML.
	FormatXML Format = "xml"

	// FormatProtobuf is Protocol Buffers binary wire format.
	FormatProtobuf Format = "protobuf"

	// FormatFlatBuffers is the FlatBuffers columnar binary format.
	FormatFlatBuffers Format = "flatbuffers"

	// FormatAvro is Apache Avro binary encoding.
	FormatAvro Format = "avro"

	// FormatCBOR is RFC 8949 Concise Binary Object Representation.
	FormatCBOR Format = "cbor"

	// FormatJSONSnappy is JSON compressed with Snappy block encoding.
	FormatJSONSnappy Format = "json+snappy"
)

// String returns the string representation of the format.
func (f Format) String() string {
	return string(f)
}

// ContentType returns the MIME content type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatXML:
		return "application/xml"
	case FormatProtobuf:
		return "application/x-protobuf"
	case FormatFlatBuffers:
		return "application/x-flatbuffers"
	case FormatAvro:
		return "application/avro"
	case FormatCBOR:
		return "application/cbor"
	case FormatJSONSnappy:
		return "application/x-snappy"
	default:
		return "application/octet-stream"
	}
}

// Codec is the uniform encode/decode contract the harness measures.
// Implementations must be safe for concurrent use on different records and
// must return a *CodecError when they fail.
type Codec interface {
	// Format returns the format label used in results.
	Format() Format

	// Encode converts a record to its byte representation.
	Encode(r *record.Record) ([]byte, error)

	// Decode converts bytes produced by Encode back to a record.
	Decode(data []byte) (*record.Record, error)
}

// Op names the codec operation that failed.
type Op string

const (
	OpEncode Op = "encode"
	OpDecode Op = "decode"
	OpVerify Op = "verify"
)

// NoIndex marks a CodecError that is not yet attributed to a record.
const NoIndex = -1

// ErrRoundTripMismatch reports that decode(encode(r)) did not reproduce r.
var ErrRoundTripMismatch = errors.New("round-trip mismatch")

// CodecError describes an encode or decode failure for a specific codec and record.
type CodecError struct {
	Format  Format `json:"format"`
	Op      Op     `json:"op"`
	Index   int    `json:"index"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

// NewCodecError creates a codec error that is not yet tied to a record.
func NewCodecError(format Format, op Op, message string, cause error) *CodecError {
	return &CodecError{Format: format, Op: op, Index: NoIndex, Message: message, Cause: cause}
}

// Error implements the error interface.
func (e *CodecError) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	} else if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Index >= 0 {
		return fmt.Sprintf("codec %s: %s record %d: %s", e.Format, e.Op, e.Index, msg)
	}
	return fmt.Sprintf("codec %s: %s: %s", e.Format, e.Op, msg)
}

// Unwrap returns the underlying cause.
func (e *CodecError) Unwrap() error {
	return e.Cause
}

// Tag attributes err to a record index. A *CodecError raised by the adapter is
// copied with the index filled in; any other error is wrapped.
func Tag(err error, format Format, op Op, index int) *CodecError {
	if err == nil {
		return nil
	}
	var ce *CodecError
	if errors.As(err, &ce) {
		tagged := *ce
		tagged.Index = index
		if tagged.Format == "" {
			tagged.Format = format
		}
		if tagged.Op == "" {
			tagged.Op = op
		}
		return &tagged
	}
	return &CodecError{Format: format, Op: op, Index: index, Cause: err}
}
