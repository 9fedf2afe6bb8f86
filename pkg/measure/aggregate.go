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
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/innovationmech/serbench/pkg/clock"
	"github.com/innovationmech/serbench/pkg/codec"
	"github.com/innovationmech/serbench/pkg/record"
)

// Mode selects how the aggregator obtains batch wall time and aggregate CPU
// time.
type Mode string

const (
	// ModeCombined records both clocks in a single dispatch of the workers.
	ModeCombined Mode = "combined"

	// ModeTwoPass measures batch wall time in one dispatch and per-worker
	// CPU time in a second dispatch over the same partitions.
	ModeTwoPass Mode = "two-pass"
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	return string(m)
}

// ParseMode parses a mode name. The empty string selects ModeCombined.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeCombined:
		return ModeCombined, nil
	case ModeTwoPass, "two_pass", "twopass":
		return ModeTwoPass, nil
	default:
		return "", fmt.Errorf("unknown aggregation mode %q", s)
	}
}

// WorkerSample is the time one worker spent encoding its partition. Wall is
// zero for the CPU pass of ModeTwoPass.
type WorkerSample struct {
	Worker    int           `json:"worker" yaml:"worker"`
	Partition Span          `json:"partition" yaml:"partition"`
	Wall      time.Duration `json:"wall" yaml:"wall"`
	CPU       time.Duration `json:"cpu" yaml:"cpu"`
}

// ConcurrentStats is the outcome of one concurrent CPU aggregation.
type ConcurrentStats struct {
	Workers      int            `json:"workers" yaml:"workers"`
	Mode         Mode           `json:"mode" yaml:"mode"`
	BatchWall    time.Duration  `json:"batch_wall" yaml:"batch_wall"`
	AggregateCPU time.Duration  `json:"aggregate_cpu" yaml:"aggregate_cpu"`
	PerWorker    []WorkerSample `json:"per_worker" yaml:"per_worker"`
}

// Utilization returns 100 × AggregateCPU / BatchWall. It exceeds 100 when
// workers overlap and is not clamped.
func (s ConcurrentStats) Utilization() float64 {
	return clock.Utilization(s.AggregateCPU, s.BatchWall)
}

// WorkerError reports the first worker that failed during a concurrent
// pass.
type WorkerError struct {
	Worker    int
	Partition Span
	Err       error
}

// Error implements the error interface.
func (e *WorkerError) Error() string {
	return fmt.Sprintf("worker %d on partition %s: %v", e.Worker, e.Partition, e.Err)
}

// Unwrap returns the codec error raised by the worker.
func (e *WorkerError) Unwrap() error {
	return e.Err
}

// Aggregator runs encode over a partitioned dataset on Workers goroutines,
// each pinned to its own OS thread.
type Aggregator struct {
	Workers int
	Clock   clock.CPUClock
	Mode    Mode
}

func (a Aggregator) stopwatch() clock.Stopwatch {
	return clock.NewStopwatch(a.Clock)
}

// Measure returns the batch wall time, the sum of per-worker CPU time and
// the per-worker samples for encoding records with c.
func (a Aggregator) Measure(c codec.Codec, records []*record.Record) (ConcurrentStats, error) {
	mode := a.Mode
	if mode == "" {
		mode = ModeCombined
	}

	stats := ConcurrentStats{Workers: a.Workers, Mode: mode}
	switch mode {
	case ModeCombined:
		wall, samples, err := a.dispatch(c, records)
		if err != nil {
			return ConcurrentStats{}, err
		}
		stats.BatchWall = wall
		stats.PerWorker = samples
	case ModeTwoPass:
		wall, err := a.MeasureWall(c, records)
		if err != nil {
			return ConcurrentStats{}, err
		}
		samples, _, err := a.MeasureCPU(c, records)
		if err != nil {
			return ConcurrentStats{}, err
		}
		stats.BatchWall = wall
		stats.PerWorker = samples
	default:
		return ConcurrentStats{}, fmt.Errorf("unknown aggregation mode %q", mode)
	}

	stats.AggregateCPU = sumCPU(stats.PerWorker)
	return stats, nil
}

// MeasureWall dispatches every worker and returns the wall time from the
// first dispatch until the last worker is joined.
func (a Aggregator) MeasureWall(c codec.Codec, records []*record.Record) (time.Duration, error) {
	spans, err := Partition(len(records), a.Workers)
	if err != nil {
		return 0, err
	}

	sw := a.stopwatch()

	var g errgroup.Group
	t0 := sw.StartWall()
	for w, span := range spans {
		g.Go(func() error {
			return runWorker(c, records, w, span)
		})
	}
	err = g.Wait()
	wall := sw.ElapsedWall(t0)
	if err != nil {
		return 0, err
	}
	return wall, nil
}

// MeasureCPU dispatches every worker and returns each worker's own CPU time
// and their sum.
func (a Aggregator) MeasureCPU(c codec.Codec, records []*record.Record) ([]WorkerSample, time.Duration, error) {
	spans, err := Partition(len(records), a.Workers)
	if err != nil {
		return nil, 0, err
	}

	sw := a.stopwatch()
	samples := make([]WorkerSample, len(spans))

	var g errgroup.Group
	for w, span := range spans {
		g.Go(func() error {
			release := clock.PinThread()
			defer release()

			c0 := sw.StartCPU()
			if err := runWorker(c, records, w, span); err != nil {
				return err
			}
			samples[w] = WorkerSample{Worker: w, Partition: span, CPU: sw.ElapsedCPU(c0)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return samples, sumCPU(samples), nil
}

// dispatch runs a single pass recording the batch wall time and each
// worker's wall and CPU time.
func (a Aggregator) dispatch(c codec.Codec, records []*record.Record) (time.Duration, []WorkerSample, error) {
	spans, err := Partition(len(records), a.Workers)
	if err != nil {
		return 0, nil, err
	}

	sw := a.stopwatch()
	samples := make([]WorkerSample, len(spans))

	var g errgroup.Group
	t0 := sw.StartWall()
	for w, span := range spans {
		g.Go(func() error {
			release := clock.PinThread()
			defer release()

			m := sw.Start()
			if err := runWorker(c, records, w, span); err != nil {
				return err
			}
			s := sw.Elapsed(m)
			samples[w] = WorkerSample{Worker: w, Partition: span, Wall: s.Wall, CPU: s.CPU}
			return nil
		})
	}
	err = g.Wait()
	wall := sw.ElapsedWall(t0)
	if err != nil {
		return 0, nil, err
	}
	return wall, samples, nil
}

func runWorker(c codec.Codec, records []*record.Record, w int, span Span) error {
	if err := encodeSpan(c, records[span.Start:span.End], span.Start); err != nil {
		return &WorkerError{Worker: w, Partition: span, Err: err}
	}
	return nil
}

func sumCPU(samples []WorkerSample) time.Duration {
	var total time.Duration
	for _, s := range samples {
		total += s.CPU
	}
	return total
}
