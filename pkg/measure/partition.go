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
	"errors"
	"fmt"
)

// ErrInvalidWorkers is returned when a partition or aggregation is requested
// for fewer than one worker.
var ErrInvalidWorkers = errors.New("worker count must be at least 1")

// Span is the half-open record range [Start, End) assigned to one worker.
type Span struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Len returns the number of records in the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// String returns the span as [start,end).
func (s Span) String() string {
	return fmt.Sprintf("[%d,%d)", s.Start, s.End)
}

// Partition splits size records into exactly k contiguous, disjoint spans
// covering [0, size) in order. Each span holds ceil(size/k) records except
// the last non-empty one, which absorbs the remainder. When the ceiling
// exhausts the records early the trailing spans are empty, so k workers are
// always dispatched.
func Partition(size, k int) ([]Span, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkers, k)
	}
	if size < 0 {
		return nil, fmt.Errorf("dataset size must not be negative: got %d", size)
	}

	chunk := (size + k - 1) / k
	spans := make([]Span, k)
	for i := range spans {
		start := min(i*chunk, size)
		end := min(start+chunk, size)
		spans[i] = Span{Start: start, End: end}
	}
	return spans, nil
}
