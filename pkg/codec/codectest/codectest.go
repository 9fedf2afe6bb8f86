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

// Package codectest provides codecs with controlled behavior for testing the
// measurement engine.
package codectest

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/innovationmech/serbench/pkg/codec"
	"github.com/innovationmech/serbench/pkg/record"
)

// ErrInjected is the cause carried by every injected failure.
var ErrInjected = errors.New("injected failure")

// Failing is a codec whose Encode always fails.
type Failing struct {
	Name codec.Format
}

func (f *Failing) Format() codec.Format { return f.Name }

func (f *Failing) Encode(*record.Record) ([]byte, error) {
	return nil, codec.NewCodecError(f.Name, codec.OpEncode, "always fails", ErrInjected)
}

func (f *Failing) Decode([]byte) (*record.Record, error) {
	return nil, codec.NewCodecError(f.Name, codec.OpDecode, "always fails", ErrInjected)
}

// FailOn wraps a codec and fails Encode for the record with the given ID.
type FailOn struct {
	codec.Codec
	ID string
}

func (f *FailOn) Encode(r *record.Record) ([]byte, error) {
	if r != nil && r.ID == f.ID {
		return nil, codec.NewCodecError(f.Format(), codec.OpEncode, "record rejected", ErrInjected)
	}
	return f.Codec.Encode(r)
}

// FailDecode wraps a codec and fails every Decode.
type FailDecode struct {
	codec.Codec
}

func (f *FailDecode) Decode([]byte) (*record.Record, error) {
	return nil, codec.NewCodecError(f.Format(), codec.OpDecode, "decode rejected", ErrInjected)
}

// Lossy wraps a codec and drops the roles on decode, breaking the round trip.
type Lossy struct {
	codec.Codec
}

func (l *Lossy) Decode(data []byte) (*record.Record, error) {
	r, err := l.Codec.Decode(data)
	if err != nil {
		return nil, err
	}
	r.Roles = nil
	return r, nil
}

// NilDecode wraps a codec whose Decode returns neither a record nor an error.
type NilDecode struct {
	codec.Codec
}

func (n *NilDecode) Decode([]byte) (*record.Record, error) {
	return nil, nil
}

// Counting wraps a codec and counts calls. Safe for concurrent use.
type Counting struct {
	codec.Codec
	encodes atomic.Int64
	decodes atomic.Int64
}

func (c *Counting) Encode(r *record.Record) ([]byte, error) {
	c.encodes.Add(1)
	return c.Codec.Encode(r)
}

func (c *Counting) Decode(data []byte) (*record.Record, error) {
	c.decodes.Add(1)
	return c.Codec.Decode(data)
}

// Encodes returns the number of Encode calls.
func (c *Counting) Encodes() int64 { return c.encodes.Load() }

// Decodes returns the number of Decode calls.
func (c *Counting) Decodes() int64 { return c.decodes.Load() }

// Spin wraps a codec and burns CPU for Work on every Encode before
// delegating, so encode cost is dominated by on-CPU time.
type Spin struct {
	codec.Codec
	Work time.Duration
}

func (s *Spin) Encode(r *record.Record) ([]byte, error) {
	Burn(s.Work)
	return s.Codec.Encode(r)
}

var sink atomic.Uint64

// Burn keeps the calling goroutine busy for d of wall time without blocking.
func Burn(d time.Duration) {
	deadline := time.Now().Add(d)
	var x uint64 = 1
	for time.Now().Before(deadline) {
		for i := 0; i < 64; i++ {
			x = x*6364136223846793005 + 1442695040888963407
		}
	}
	sink.Add(x)
}
