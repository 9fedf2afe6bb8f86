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

// Package metrics exports benchmark reports as Prometheus metrics, either
// through a registry or as a node-exporter textfile.
package metrics

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/innovationmech/serbench/pkg/benchmark"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "serbench"

// resultGauge extracts one per-codec value from a result.
type resultGauge struct {
	name  string
	help  string
	value func(r *benchmark.BenchmarkResult) float64
}

func seconds(d time.Duration) float64 { return d.Seconds() }

var resultGauges = []resultGauge{
	{"serialize_seconds", "Mean wall time of one encode.", func(r *benchmark.BenchmarkResult) float64 { return seconds(r.AvgSerialize) }},
	{"deserialize_seconds", "Mean wall time of one decode.", func(r *benchmark.BenchmarkResult) float64 { return seconds(r.AvgDeserialize) }},
	{"serialize_cpu_seconds", "Mean CPU time of one encode.", func(r *benchmark.BenchmarkResult) float64 { return seconds(r.AvgSerializeCPU) }},
	{"deserialize_cpu_seconds", "Mean CPU time of one decode.", func(r *benchmark.BenchmarkResult) float64 { return seconds(r.AvgDeserializeCPU) }},
	{"serialize_utilization_percent", "CPU utilization of encode calls.", func(r *benchmark.BenchmarkResult) float64 { return r.SerializeUtilization }},
	{"deserialize_utilization_percent", "CPU utilization of decode calls.", func(r *benchmark.BenchmarkResult) float64 { return r.DeserializeUtilization }},
	{"encoded_size_bytes", "Mean encoded size of one record.", func(r *benchmark.BenchmarkResult) float64 { return r.AvgEncodedSize }},
	{"memory_delta_bytes", "Estimated heap retained by the encoded dataset.", func(r *benchmark.BenchmarkResult) float64 { return float64(r.MemoryDelta) }},
	{"memory_relative", "Memory delta relative to the smallest non-zero delta.", func(r *benchmark.BenchmarkResult) float64 { return r.MemoryRelative }},
	{"single_thread_wall_seconds", "Wall time of one single-threaded bulk encode.", func(r *benchmark.BenchmarkResult) float64 { return seconds(r.SingleThread.Wall) }},
	{"single_thread_cpu_seconds", "CPU time of one single-threaded bulk encode.", func(r *benchmark.BenchmarkResult) float64 { return seconds(r.SingleThread.CPU) }},
	{"single_thread_utilization_percent", "CPU utilization of the single-threaded bulk encode.", func(r *benchmark.BenchmarkResult) float64 { return r.SingleThread.Utilization }},
	{"multi_thread_batch_wall_seconds", "Wall time of the concurrent encode batch.", func(r *benchmark.BenchmarkResult) float64 { return seconds(r.MultiThread.BatchWall) }},
	{"multi_thread_aggregate_cpu_seconds", "Summed CPU time of all concurrent workers.", func(r *benchmark.BenchmarkResult) float64 { return seconds(r.MultiThread.AggregateCPU) }},
	{"multi_thread_utilization_percent", "Aggregate CPU time over batch wall time.", func(r *benchmark.BenchmarkResult) float64 { return r.MultiThread.Utilization }},
	{"throughput_ops_per_second", "Encode operations per second of wall time.", func(r *benchmark.BenchmarkResult) float64 { return r.Throughput }},
	{"throughput_utilization_percent", "CPU utilization of the throughput batch.", func(r *benchmark.BenchmarkResult) float64 { return r.ThroughputUtilization }},
}

// Exporter holds the gauges of the most recently recorded report.
type Exporter struct {
	namespace string
	registry  *prometheus.Registry
	results   map[string]*prometheus.GaugeVec
	failures  *prometheus.GaugeVec
	info      *prometheus.GaugeVec
	duration  prometheus.Gauge
	mu        sync.Mutex
}

// NewExporter creates an exporter with its own registry. An empty namespace
// uses DefaultNamespace.
func NewExporter(namespace string) (*Exporter, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	e := &Exporter{
		namespace: namespace,
		registry:  prometheus.NewRegistry(),
		results:   make(map[string]*prometheus.GaugeVec, len(resultGauges)),
	}

	for _, g := range resultGauges {
		vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      g.name,
			Help:      g.help,
		}, []string{"format"})
		if err := e.registry.Register(vec); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", g.name, err)
		}
		e.results[g.name] = vec
	}

	e.failures = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "codec_failures",
		Help:      "Codecs excluded from the results, by the phase they failed in.",
	}, []string{"format", "phase"})
	e.info = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "run_info",
		Help:      "Constant 1 labelled with the identity of the recorded run.",
	}, []string{"run_id", "mode", "cpu_clock_supported"})
	e.duration = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Wall time of the whole run.",
	})

	for _, c := range []prometheus.Collector{e.failures, e.info, e.duration} {
		if err := e.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}
	return e, nil
}

// Registry returns the registry holding the exported metrics.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Record replaces the exported values with those of rep.
func (e *Exporter) Record(rep *benchmark.Report) {
	if rep == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, vec := range e.results {
		vec.Reset()
	}
	e.failures.Reset()
	e.info.Reset()

	for i := range rep.Results {
		r := &rep.Results[i]
		for _, g := range resultGauges {
			e.results[g.name].WithLabelValues(r.Format.String()).Set(g.value(r))
		}
	}
	for _, f := range rep.Failures {
		e.failures.WithLabelValues(f.Format.String(), f.Phase.String()).Set(1)
	}
	e.info.WithLabelValues(rep.RunID, rep.Settings.Mode().String(), strconv.FormatBool(rep.CPUClockSupported)).Set(1)
	e.duration.Set(rep.Duration.Seconds())
}

// WriteTextfile writes the metrics in the text exposition format to path,
// replacing it atomically.
func (e *Exporter) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, e.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
