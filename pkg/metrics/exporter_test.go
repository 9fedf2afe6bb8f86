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

package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innovationmech/serbench/pkg/benchmark"
	"github.com/innovationmech/serbench/pkg/codec"
	"github.com/innovationmech/serbench/pkg/measure"
)

func sampleReport() *benchmark.Report {
	return &benchmark.Report{
		RunID:             "run-1",
		Duration:          3 * time.Second,
		CPUClockSupported: true,
		Settings:          benchmark.DefaultSettings(),
		Results: []benchmark.BenchmarkResult{
			{
				Format:         codec.FormatJSON,
				AvgSerialize:   2 * time.Microsecond,
				AvgEncodedSize: 120,
				MemoryDelta:    4096,
				MemoryRelative: 2,
				MultiThread: benchmark.MultiThreadResult{
					Workers:      4,
					Mode:         measure.ModeCombined,
					BatchWall:    25 * time.Millisecond,
					AggregateCPU: 100 * time.Millisecond,
					Utilization:  400,
				},
				Throughput: 50000,
			},
			{
				Format:         codec.FormatProtobuf,
				AvgSerialize:   time.Microsecond,
				AvgEncodedSize: 60,
				MemoryDelta:    2048,
				MemoryRelative: 1,
				Throughput:     90000,
			},
		},
		Failures: []benchmark.Failure{
			{Format: "broken", Phase: benchmark.PhaseVerify, Message: "injected"},
		},
	}
}

func TestExporterRecord(t *testing.T) {
	e, err := NewExporter("")
	require.NoError(t, err)

	e.Record(sampleReport())

	assert.Equal(t, 400.0, testutil.ToFloat64(e.results["multi_thread_utilization_percent"].WithLabelValues("json")))
	assert.Equal(t, 0.1, testutil.ToFloat64(e.results["multi_thread_aggregate_cpu_seconds"].WithLabelValues("json")))
	assert.Equal(t, 90000.0, testutil.ToFloat64(e.results["throughput_ops_per_second"].WithLabelValues("protobuf")))
	assert.Equal(t, 2048.0, testutil.ToFloat64(e.results["memory_delta_bytes"].WithLabelValues("protobuf")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.failures.WithLabelValues("broken", "verify")))
	assert.Equal(t, 3.0, testutil.ToFloat64(e.duration))

	assert.Equal(t, 2, testutil.CollectAndCount(e.results["encoded_size_bytes"]))
	assert.Equal(t, 1, testutil.CollectAndCount(e.info))
}

func TestExporterRecordReplacesPreviousRun(t *testing.T) {
	e, err := NewExporter("bench")
	require.NoError(t, err)

	e.Record(sampleReport())
	next := sampleReport()
	next.RunID = "run-2"
	next.Results = next.Results[:1]
	next.Failures = nil
	e.Record(next)

	assert.Equal(t, 1, testutil.CollectAndCount(e.results["encoded_size_bytes"]))
	assert.Equal(t, 0, testutil.CollectAndCount(e.failures))

	families, err := e.Registry().Gather()
	require.NoError(t, err)

	var info *dto.MetricFamily
	for _, mf := range families {
		if mf.GetName() == "bench_run_info" {
			info = mf
		}
	}
	require.NotNil(t, info)
	require.Len(t, info.GetMetric(), 1)

	labels := map[string]string{}
	for _, lp := range info.GetMetric()[0].GetLabel() {
		labels[lp.GetName()] = lp.GetValue()
	}
	assert.Equal(t, "run-2", labels["run_id"])
	assert.Equal(t, "combined", labels["mode"])
	assert.Equal(t, "true", labels["cpu_clock_supported"])
}

func TestExporterRecordNil(t *testing.T) {
	e, err := NewExporter("")
	require.NoError(t, err)
	e.Record(nil)
	assert.Equal(t, 0, testutil.CollectAndCount(e.info))
}

func TestWriteTextfile(t *testing.T) {
	e, err := NewExporter("")
	require.NoError(t, err)
	e.Record(sampleReport())

	path := filepath.Join(t.TempDir(), "serbench.prom")
	require.NoError(t, e.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "# TYPE serbench_throughput_ops_per_second gauge")
	assert.Contains(t, text, `serbench_throughput_ops_per_second{format="json"} 50000`)
	assert.Contains(t, text, `serbench_codec_failures{format="broken",phase="verify"} 1`)

	require.Error(t, e.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom")))
}
