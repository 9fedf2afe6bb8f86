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
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innovationmech/serbench/pkg/clock"
	"github.com/innovationmech/serbench/pkg/codec"
	"github.com/innovationmech/serbench/pkg/codec/codectest"
	"github.com/innovationmech/serbench/pkg/record"
)

// tickClock advances by one millisecond on every reading.
type tickClock struct {
	now atomic.Int64
}

func (c *tickClock) Now() time.Duration {
	return time.Duration(c.now.Add(int64(time.Millisecond)))
}

func (c *tickClock) Supported() bool { return true }

func TestPartitionCoversDatasetExactlyOnce(t *testing.T) {
	for size := 0; size <= 40; size++ {
		for k := 1; k <= 9; k++ {
			spans, err := Partition(size, k)
			require.NoError(t, err)
			require.Len(t, spans, k, "size=%d k=%d", size, k)

			chunk := (size + k - 1) / k
			next, total := 0, 0
			for i, s := range spans {
				assert.Equal(t, next, s.Start, "size=%d k=%d span=%d", size, k, i)
				assert.GreaterOrEqual(t, s.Len(), 0)
				assert.LessOrEqual(t, s.Len(), chunk)
				next = s.End
				total += s.Len()
			}
			assert.Equal(t, size, next)
			assert.Equal(t, size, total)
		}
	}
}

func TestPartition(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		k       int
		want    []Span
		wantErr error
	}{
		{name: "even", size: 8, k: 4, want: []Span{{0, 2}, {2, 4}, {4, 6}, {6, 8}}},
		{name: "last absorbs remainder", size: 10, k: 4, want: []Span{{0, 3}, {3, 6}, {6, 9}, {9, 10}}},
		{name: "ceiling exhausts early", size: 5, k: 4, want: []Span{{0, 2}, {2, 4}, {4, 5}, {5, 5}}},
		{name: "more workers than records", size: 2, k: 4, want: []Span{{0, 1}, {1, 2}, {2, 2}, {2, 2}}},
		{name: "single worker", size: 5, k: 1, want: []Span{{0, 5}}},
		{name: "empty dataset", size: 0, k: 2, want: []Span{{0, 0}, {0, 0}}},
		{name: "zero workers", size: 5, k: 0, wantErr: ErrInvalidWorkers},
		{name: "negative workers", size: 5, k: -1, wantErr: ErrInvalidWorkers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spans, err := Partition(tt.size, tt.k)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, spans)
		})
	}

	_, err := Partition(-1, 2)
	require.Error(t, err)
}

func TestLoopRun(t *testing.T) {
	data := record.Generate(12, 42)

	tests := []struct {
		name    string
		policy  Policy
		wantOps int
	}{
		{name: "once per record", policy: OncePerRecord(), wantOps: 12},
		{name: "repeat sample", policy: Repeat(3, 5), wantOps: 15},
		{name: "sample larger than dataset", policy: Repeat(2, 50), wantOps: 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counting := &codectest.Counting{Codec: codec.NewJSON()}
			stats, err := NewLoop(&tickClock{}).Run(counting, data, tt.policy)
			require.NoError(t, err)

			assert.Equal(t, tt.wantOps, stats.Ops)
			assert.Equal(t, int64(tt.wantOps), counting.Encodes())
			assert.Equal(t, int64(tt.wantOps), counting.Decodes())

			// Each timed call spans exactly one tick.
			assert.Equal(t, time.Duration(tt.wantOps)*time.Millisecond, stats.Serialize.CPU)
			assert.Equal(t, time.Millisecond, stats.AvgSerializeCPU())
			assert.Equal(t, time.Millisecond, stats.AvgDeserializeCPU())
			assert.Positive(t, stats.AvgEncodedSize())
			assert.GreaterOrEqual(t, stats.AvgSerialize(), time.Duration(0))
			assert.GreaterOrEqual(t, stats.AvgDeserialize(), time.Duration(0))
		})
	}
}

func TestLoopRunEncodedBytes(t *testing.T) {
	data := record.Generate(4, 1)
	c := codec.NewJSON()

	var want int64
	for _, r := range data {
		b, err := c.Encode(r)
		require.NoError(t, err)
		want += int64(len(b))
	}

	stats, err := NewLoop(nil).Run(c, data, OncePerRecord())
	require.NoError(t, err)
	assert.Equal(t, want, stats.EncodedBytes)
	assert.InDelta(t, float64(want)/4, stats.AvgEncodedSize(), 1e-9)
}

func TestLoopRunDisabledClock(t *testing.T) {
	stats, err := NewLoop(clock.Disabled()).Run(codec.NewJSON(), record.Generate(10, 3), OncePerRecord())
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), stats.Serialize.CPU)
	assert.Equal(t, float64(0), stats.SerializeUtilization())
	assert.Equal(t, float64(0), stats.DeserializeUtilization())
}

func TestLoopRunFailures(t *testing.T) {
	data := record.Generate(6, 9)

	tests := []struct {
		name      string
		codec     codec.Codec
		policy    Policy
		wantOp    codec.Op
		wantIndex int
	}{
		{
			name:      "encode failure",
			codec:     &codectest.FailOn{Codec: codec.NewJSON(), ID: data[4].ID},
			policy:    OncePerRecord(),
			wantOp:    codec.OpEncode,
			wantIndex: 4,
		},
		{
			name:      "decode failure",
			codec:     &codectest.FailDecode{Codec: codec.NewJSON()},
			policy:    OncePerRecord(),
			wantOp:    codec.OpDecode,
			wantIndex: 0,
		},
		{
			name:      "always failing",
			codec:     &codectest.Failing{Name: "broken"},
			policy:    Repeat(2, 3),
			wantOp:    codec.OpEncode,
			wantIndex: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats, err := NewLoop(nil).Run(tt.codec, data, tt.policy)
			require.Error(t, err)
			assert.Equal(t, LoopStats{}, stats)

			var ce *codec.CodecError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.wantOp, ce.Op)
			assert.Equal(t, tt.wantIndex, ce.Index)
			assert.Equal(t, tt.codec.Format(), ce.Format)
			assert.ErrorIs(t, err, codectest.ErrInjected)
		})
	}
}

func TestLoopRunInvalidPolicy(t *testing.T) {
	data := record.Generate(2, 1)
	_, err := NewLoop(nil).Run(codec.NewJSON(), data, Policy{})
	require.Error(t, err)
	_, err = NewLoop(nil).Run(codec.NewJSON(), data, Policy{Repetitions: 1, SampleSize: -1})
	require.Error(t, err)
}

func TestLoopStatsZeroOps(t *testing.T) {
	var stats LoopStats
	assert.Equal(t, time.Duration(0), stats.AvgSerialize())
	assert.Equal(t, float64(0), stats.AvgEncodedSize())
}

func TestWarmup(t *testing.T) {
	counting := &codectest.Counting{Codec: codec.NewJSON()}
	require.NoError(t, NewLoop(nil).Warmup(counting, record.Generate(5, 1), 4))
	assert.Equal(t, int64(20), counting.Encodes())
	assert.Equal(t, int64(20), counting.Decodes())

	err := NewLoop(nil).Warmup(&codectest.Failing{Name: "broken"}, record.Generate(5, 1), 4)
	assert.ErrorIs(t, err, codectest.ErrInjected)
}

func TestEncodeAll(t *testing.T) {
	data := record.Generate(10, 5)
	counting := &codectest.Counting{Codec: codec.NewJSON()}

	s, err := NewLoop(&tickClock{}).EncodeAll(counting, data)
	require.NoError(t, err)
	assert.Equal(t, int64(10), counting.Encodes())
	assert.Equal(t, time.Millisecond, s.CPU)

	_, err = NewLoop(nil).EncodeAll(&codectest.FailOn{Codec: codec.NewJSON(), ID: data[7].ID}, data)
	var ce *codec.CodecError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 7, ce.Index)
}

func TestThroughput(t *testing.T) {
	data := record.Generate(20, 5)
	counting := &codectest.Counting{Codec: codec.NewJSON()}

	stats, err := NewLoop(nil).Throughput(counting, data[:10], 7)
	require.NoError(t, err)
	assert.Equal(t, 7, stats.Iterations)
	assert.Equal(t, 10, stats.SampleSize)
	assert.Equal(t, int64(70), stats.Ops)
	assert.Equal(t, int64(70), counting.Encodes())
	assert.Positive(t, stats.OpsPerSecond())
	assert.Equal(t, float64(0), stats.Utilization())

	_, err = NewLoop(nil).Throughput(counting, data, 0)
	require.Error(t, err)
}

func TestThroughputOpsPerSecond(t *testing.T) {
	tests := []struct {
		name  string
		stats ThroughputStats
		want  float64
	}{
		{name: "zero wall", stats: ThroughputStats{Ops: 100}, want: 0},
		{name: "one second", stats: ThroughputStats{Ops: 100, Elapsed: clock.Sample{Wall: time.Second}}, want: 100},
		{name: "half second", stats: ThroughputStats{Ops: 100, Elapsed: clock.Sample{Wall: 500 * time.Millisecond}}, want: 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.stats.OpsPerSecond(), 1e-9)
		})
	}
}

func TestSampleMemory(t *testing.T) {
	data := record.Generate(500, 2)
	c := codec.NewJSON()

	var want int64
	for _, r := range data {
		b, err := c.Encode(r)
		require.NoError(t, err)
		want += int64(len(b))
	}

	stats, err := SampleMemory(c, data)
	require.NoError(t, err)
	assert.Equal(t, want, stats.EncodedBytes)
	if stats.After > stats.Before {
		assert.Equal(t, stats.After-stats.Before, stats.Delta)
	} else {
		assert.Equal(t, uint64(0), stats.Delta)
	}

	_, err = SampleMemory(&codectest.FailOn{Codec: c, ID: data[3].ID}, data)
	var ce *codec.CodecError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 3, ce.Index)
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "", want: ModeCombined},
		{in: "combined", want: ModeCombined},
		{in: " Two-Pass ", want: ModeTwoPass},
		{in: "two_pass", want: ModeTwoPass},
		{in: "parallel", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAggregatorStructure(t *testing.T) {
	data := record.Generate(10, 42)

	tests := []struct {
		name        string
		workers     int
		mode        Mode
		wantEncodes int64
	}{
		{name: "combined one worker", workers: 1, mode: ModeCombined, wantEncodes: 10},
		{name: "combined four workers", workers: 4, mode: ModeCombined, wantEncodes: 10},
		{name: "default mode", workers: 3, mode: "", wantEncodes: 10},
		{name: "two-pass runs the partitions twice", workers: 4, mode: ModeTwoPass, wantEncodes: 20},
		{name: "more workers than records", workers: 16, mode: ModeCombined, wantEncodes: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counting := &codectest.Counting{Codec: codec.NewJSON()}
			agg := Aggregator{Workers: tt.workers, Clock: &tickClock{}, Mode: tt.mode}

			stats, err := agg.Measure(counting, data)
			require.NoError(t, err)

			assert.Equal(t, tt.workers, stats.Workers)
			assert.Equal(t, tt.wantEncodes, counting.Encodes())
			require.Len(t, stats.PerWorker, tt.workers)

			var sum time.Duration
			covered := 0
			for w, s := range stats.PerWorker {
				assert.Equal(t, w, s.Worker)
				assert.Positive(t, s.CPU)
				sum += s.CPU
				covered += s.Partition.Len()
			}
			assert.Equal(t, sum, stats.AggregateCPU)
			assert.Equal(t, len(data), covered)
			assert.Positive(t, stats.BatchWall)
		})
	}
}

func TestAggregatorDisabledClock(t *testing.T) {
	stats, err := Aggregator{Workers: 4, Clock: clock.Disabled()}.Measure(codec.NewJSON(), record.Generate(40, 1))
	require.NoError(t, err)
	assert.Equal(t, ModeCombined, stats.Mode)
	assert.Equal(t, time.Duration(0), stats.AggregateCPU)
	assert.Equal(t, float64(0), stats.Utilization())
}

func TestAggregatorWorkerFailure(t *testing.T) {
	data := record.Generate(20, 7)

	for _, mode := range []Mode{ModeCombined, ModeTwoPass} {
		t.Run(mode.String(), func(t *testing.T) {
			counting := &codectest.Counting{Codec: &codectest.FailOn{Codec: codec.NewJSON(), ID: data[13].ID}}
			_, err := Aggregator{Workers: 4, Mode: mode}.Measure(counting, data)
			require.Error(t, err)

			var we *WorkerError
			require.True(t, errors.As(err, &we))
			assert.Equal(t, 2, we.Worker)
			assert.Equal(t, Span{Start: 10, End: 15}, we.Partition)

			var ce *codec.CodecError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, 13, ce.Index)
			assert.ErrorIs(t, err, codectest.ErrInjected)

			// Sibling workers still ran their partitions to completion.
			assert.GreaterOrEqual(t, counting.Encodes(), int64(19))
		})
	}
}

func TestAggregatorInvalid(t *testing.T) {
	data := record.Generate(5, 1)

	_, err := Aggregator{Workers: 0}.Measure(codec.NewJSON(), data)
	assert.ErrorIs(t, err, ErrInvalidWorkers)

	_, err = Aggregator{Workers: 2, Mode: "bogus"}.Measure(codec.NewJSON(), data)
	require.Error(t, err)
}

func TestWorkerErrorMessage(t *testing.T) {
	err := &WorkerError{Worker: 1, Partition: Span{Start: 3, End: 6}, Err: fmt.Errorf("boom")}
	assert.Equal(t, "worker 1 on partition [3,6): boom", err.Error())
}

func realClock(t *testing.T) clock.CPUClock {
	t.Helper()
	if testing.Short() {
		t.Skip("timing test")
	}
	c, err := clock.NewThreadCPUClock()
	if err != nil {
		t.Skipf("per-thread CPU clock unavailable: %v", err)
	}
	return c
}

func TestAggregateCPUNotBelowSingleThread(t *testing.T) {
	cpu := realClock(t)
	data := record.Generate(100, 42)
	spin := &codectest.Spin{Codec: codec.NewJSON(), Work: 200 * time.Microsecond}

	single, err := NewLoop(cpu).EncodeAll(spin, data)
	require.NoError(t, err)

	for _, workers := range []int{1, 2, 4} {
		stats, err := Aggregator{Workers: workers, Clock: cpu}.Measure(spin, data)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, float64(stats.AggregateCPU), 0.8*float64(single.CPU), "workers=%d", workers)
	}
}

func TestAggregatorSingleWorkerMatchesSingleThread(t *testing.T) {
	cpu := realClock(t)
	data := record.Generate(5, 42)
	spin := &codectest.Spin{Codec: codec.NewJSON(), Work: 2 * time.Millisecond}

	single, err := NewLoop(cpu).EncodeAll(spin, data)
	require.NoError(t, err)

	stats, err := Aggregator{Workers: 1, Clock: cpu}.Measure(spin, data)
	require.NoError(t, err)

	ratio := float64(stats.BatchWall) / float64(single.Wall)
	assert.Greater(t, ratio, 0.5)
	assert.Less(t, ratio, 2.0)
}

func TestAggregatorOverlapsWorkers(t *testing.T) {
	cpu := realClock(t)
	if runtime.NumCPU() < 4 || runtime.GOMAXPROCS(0) < 4 {
		t.Skip("needs at least 4 CPUs")
	}

	data := record.Generate(100, 42)
	spin := &codectest.Spin{Codec: codec.NewJSON(), Work: time.Millisecond}

	stats, err := Aggregator{Workers: 4, Clock: cpu}.Measure(spin, data)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, stats.AggregateCPU, 80*time.Millisecond)
	assert.Greater(t, stats.Utilization(), 150.0)
	require.Len(t, stats.PerWorker, 4)
	for _, s := range stats.PerWorker {
		assert.Equal(t, 25, s.Partition.Len())
	}
}

func TestAggregatorBatchWallCoversWorkers(t *testing.T) {
	data := record.Generate(8, 42)
	spin := &codectest.Spin{Codec: codec.NewJSON(), Work: 500 * time.Microsecond}
	agg := Aggregator{Workers: 2, Clock: clock.Disabled()}

	wall, err := agg.MeasureWall(spin, data)
	require.NoError(t, err)
	// Each worker encodes four records of at least 500µs each.
	assert.GreaterOrEqual(t, wall, 2*time.Millisecond)

	stats, err := agg.Measure(spin, data)
	require.NoError(t, err)
	for _, s := range stats.PerWorker {
		assert.GreaterOrEqual(t, stats.BatchWall, s.Wall, "worker %d", s.Worker)
	}
}
