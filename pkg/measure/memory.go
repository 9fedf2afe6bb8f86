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

package measure

import (
	"runtime"
	"runtime/debug"

	"github.com/innovationmech/serbench/pkg/codec"
	"github.com/innovationmech/serbench/pkg/record"
)

// MemoryStats is an estimate of the heap retained by the encoded form of a
// dataset. Other goroutines allocating concurrently skew it; treat Delta as
// approximate.
type MemoryStats struct {
	Before       uint64 `json:"before" yaml:"before"`
	After        uint64 `json:"after" yaml:"after"`
	Delta        uint64 `json:"delta" yaml:"delta"`
	EncodedBytes int64  `json:"encoded_bytes" yaml:"encoded_bytes"`
}

// SampleMemory encodes every record into a retained buffer list and reports
// how much the live heap grew. Garbage collection is requested before each
// reading as a hint only; the delta clamps at zero.
func SampleMemory(c codec.Codec, records []*record.Record) (MemoryStats, error) {
	var ms runtime.MemStats

	runtime.GC()
	debug.FreeOSMemory()
	runtime.ReadMemStats(&ms)
	before := ms.HeapAlloc

	buffers := make([][]byte, 0, len(records))
	var encoded int64
	for i, r := range records {
		data, err := c.Encode(r)
		if err != nil {
			return MemoryStats{}, codec.Tag(err, c.Format(), codec.OpEncode, i)
		}
		buffers = append(buffers, data)
		encoded += int64(len(data))
	}

	runtime.GC()
	runtime.ReadMemStats(&ms)
	after := ms.HeapAlloc
	runtime.KeepAlive(buffers)

	stats := MemoryStats{Before: before, After: after, EncodedBytes: encoded}
	if after > before {
		stats.Delta = after - before
	}
	return stats, nil
}
