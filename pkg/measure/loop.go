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

// Package measure implements the timing primitives of the benchmark: the
// single-threaded timing loop, bulk encode, throughput, memory-delta sampling
// and the concurrent CPU aggregator.
package measure

import (
	"fmt"
	"time"

	"github.com/innovationmech/serbench/pkg/clock"
	"github.com/innovationmech/serbench/pkg/codec"
	"github.com/innovationmech/serbench/pkg/record"
)

// Policy selects which records the timing loop visits and how often.
type Policy struct {
	// Repetitions is the number of passes over the selected records.
	Repetitions int `json:"repetitions" yaml:"repetitions"`

	// SampleSize limits each pass to the first SampleSize records; 0 means
	// every record.
	SampleSize int `json:"sample_size" yaml:"sample_size"`
}

// OncePerRecord visits every record exactly once.
func OncePerRecord() Policy {
	return Policy{Repetitions: 1}
}

// Repeat visits the first sample records n times.
func Repeat(n, sample int) Policy {
	return Policy{Repetitions: n, SampleSize: sample}
}

func (p Policy) validate() error {
	if p.Repetitions < 1 {
		return fmt.Errorf("policy repetitions must be at least 1: got %d", p.Repetitions)
	}
	if p.SampleSize < 0 {
		return fmt.Errorf("policy sample size must not be negative: got %d", p.SampleSize)
	}
	return nil
}

// LoopStats holds the running totals of one timing loop.
type LoopStats struct {
	Ops          int          `json:"ops" yaml:"ops"`
	EncodedBytes int64        `json:"encoded_bytes" yaml:"encoded_bytes"`
	Serialize    clock.Sample `json:"serialize" yaml:"serialize"`
	Deserialize  clock.Sample `json:"deserialize" yaml:"deserialize"`
}

func (s LoopStats) avg(d time.Duration) time.Duration {
	if s.Ops == 0 {
		return 0
	}
	return d / time.Duration(s.Ops)
}

// AvgSerialize returns the mean wall time of one encode.
func (s LoopStats) AvgSerialize() time.Duration { return s.avg(s.Serialize.Wall) }

// AvgSerializeCPU returns the mean CPU time of one encode.
func (s LoopStats) AvgSerializeCPU() time.Duration { return s.avg(s.Serialize.CPU) }

// AvgDeserialize returns the mean wall time of one decode.
func (s LoopStats) AvgDeserialize() time.Duration { return s.avg(s.Deserialize.Wall) }

// AvgDeserializeCPU returns the mean CPU time of one decode.
func (s LoopStats) AvgDeserializeCPU() time.Duration { return s.avg(s.Deserialize.CPU) }

// AvgEncodedSize returns the mean encoded size in bytes.
func (s LoopStats) AvgEncodedSize() float64 {
	if s.Ops == 0 {
		return 0
	}
	return float64(s.EncodedBytes) / float64(s.Ops)
}

// SerializeUtilization returns the CPU utilization of the encode calls.
func (s LoopStats) SerializeUtilization() float64 { return s.Serialize.Utilization() }

// DeserializeUtilization returns the CPU utilization of the decode calls.
func (s LoopStats) DeserializeUtilization() float64 { return s.Deserialize.Utilization() }

// Loop runs codec operations on the calling goroutine, pinned to its OS
// thread for the duration of each call.
type Loop struct {
	Stopwatch clock.Stopwatch
}

// NewLoop creates a loop reading cpu. A nil cpu disables CPU readings.
func NewLoop(cpu clock.CPUClock) Loop {
	return Loop{Stopwatch: clock.NewStopwatch(cpu)}
}

// Run times encode and decode of every record selected by p. The first
// codec failure aborts the loop and is returned as a *codec.CodecError
// tagged with the record index.
func (l Loop) Run(c codec.Codec, records []*record.Record, p Policy) (LoopStats, error) {
	if err := p.validate(); err != nil {
		return LoopStats{}, err
	}
	if p.SampleSize > 0 {
		records = record.Sample(records, p.SampleSize)
	}

	release := clock.PinThread()
	defer release()

	sw := l.Stopwatch
	var stats LoopStats
	for rep := 0; rep < p.Repetitions; rep++ {
		for i, r := range records {
			m := sw.Start()
			data, err := c.Encode(r)
			stats.Serialize = stats.Serialize.Add(sw.Elapsed(m))
			if err != nil {
				return LoopStats{}, codec.Tag(err, c.Format(), codec.OpEncode, i)
			}

			m = sw.Start()
			_, err = c.Decode(data)
			stats.Deserialize = stats.Deserialize.Add(sw.Elapsed(m))
			if err != nil {
				return LoopStats{}, codec.Tag(err, c.Format(), codec.OpDecode, i)
			}

			stats.EncodedBytes += int64(len(data))
			stats.Ops++
		}
	}
	return stats, nil
}

// Warmup encodes and decodes records rounds times, discarding every
// measurement.
func (l Loop) Warmup(c codec.Codec, records []*record.Record, rounds int) error {
	for round := 0; round < rounds; round++ {
		for i, r := range records {
			data, err := c.Encode(r)
			if err != nil {
				return codec.Tag(err, c.Format(), codec.OpEncode, i)
			}
			if _, err := c.Decode(data); err != nil {
				return codec.Tag(err, c.Format(), codec.OpDecode, i)
			}
		}
	}
	return nil
}

// EncodeAll times one pass encoding every record as a single batch on one
// thread.
func (l Loop) EncodeAll(c codec.Codec, records []*record.Record) (clock.Sample, error) {
	release := clock.PinThread()
	defer release()

	m := l.Stopwatch.Start()
	if err := encodeSpan(c, records, 0); err != nil {
		return clock.Sample{}, err
	}
	return l.Stopwatch.Elapsed(m), nil
}

// ThroughputStats is the outcome of a throughput measurement.
type ThroughputStats struct {
	Iterations int          `json:"iterations" yaml:"iterations"`
	SampleSize int          `json:"sample_size" yaml:"sample_size"`
	Ops        int64        `json:"ops" yaml:"ops"`
	Elapsed    clock.Sample `json:"elapsed" yaml:"elapsed"`
}

// OpsPerSecond returns Ops divided by the elapsed wall seconds, or 0 when no
// wall time elapsed.
func (s ThroughputStats) OpsPerSecond() float64 {
	if s.Elapsed.Wall <= 0 {
		return 0
	}
	return float64(s.Ops) / s.Elapsed.Wall.Seconds()
}

// Utilization returns the CPU utilization of the throughput batch.
func (s ThroughputStats) Utilization() float64 {
	return s.Elapsed.Utilization()
}

// Throughput encodes sample iterations times as one timed batch.
func (l Loop) Throughput(c codec.Codec, sample []*record.Record, iterations int) (ThroughputStats, error) {
	if iterations < 1 {
		return ThroughputStats{}, fmt.Errorf("throughput iterations must be at least 1: got %d", iterations)
	}

	release := clock.PinThread()
	defer release()

	m := l.Stopwatch.Start()
	for it := 0; it < iterations; it++ {
		if err := encodeSpan(c, sample, 0); err != nil {
			return ThroughputStats{}, err
		}
	}
	elapsed := l.Stopwatch.Elapsed(m)

	return ThroughputStats{
		Iterations: iterations,
		SampleSize: len(sample),
		Ops:        int64(iterations) * int64(len(sample)),
		Elapsed:    elapsed,
	}, nil
}

// encodeSpan encodes records and discards the output. offset is added to the
// index of a failing record.
func encodeSpan(c codec.Codec, records []*record.Record, offset int) error {
	for i, r := range records {
		if _, err := c.Encode(r); err != nil {
			return codec.Tag(err, c.Format(), codec.OpEncode, offset+i)
		}
	}
	return nil
}
