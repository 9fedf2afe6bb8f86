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

package benchmark

import (
	"os"
	"runtime"
	"time"

	"github.com/innovationmech/serbench/pkg/codec"
	"github.com/innovationmech/serbench/pkg/measure"
)

// BenchmarkResult summarizes one codec. Durations are per operation unless
// noted; utilizations are percentages.
type BenchmarkResult struct {
	Format      codec.Format `json:"format" yaml:"format"`
	ContentType string       `json:"content_type" yaml:"content_type"`

	AvgSerialize           time.Duration `json:"avg_serialize" yaml:"avg_serialize"`
	AvgDeserialize         time.Duration `json:"avg_deserialize" yaml:"avg_deserialize"`
	AvgSerializeCPU        time.Duration `json:"avg_serialize_cpu" yaml:"avg_serialize_cpu"`
	AvgDeserializeCPU      time.Duration `json:"avg_deserialize_cpu" yaml:"avg_deserialize_cpu"`
	SerializeUtilization   float64       `json:"serialize_utilization" yaml:"serialize_utilization"`
	DeserializeUtilization float64       `json:"deserialize_utilization" yaml:"deserialize_utilization"`
	AvgEncodedSize         float64       `json:"avg_encoded_size" yaml:"avg_encoded_size"`

	// MemoryDelta is an estimate of the heap retained by the encoded
	// dataset, in bytes.
	MemoryDelta uint64 `json:"memory_delta" yaml:"memory_delta"`

	// MemoryRelative is MemoryDelta divided by the smallest non-zero delta
	// among the reported codecs; 0 when unknown.
	MemoryRelative float64 `json:"memory_relative" yaml:"memory_relative"`

	SingleThread SingleThreadResult `json:"single_thread" yaml:"single_thread"`
	MultiThread  MultiThreadResult  `json:"multi_thread" yaml:"multi_thread"`

	// Throughput is encode operations per second of wall time.
	Throughput            float64 `json:"throughput" yaml:"throughput"`
	ThroughputUtilization float64 `json:"throughput_utilization" yaml:"throughput_utilization"`
}

// SingleThreadResult is one bulk encode of the dataset on one thread.
type SingleThreadResult struct {
	Wall        time.Duration `json:"wall" yaml:"wall"`
	CPU         time.Duration `json:"cpu" yaml:"cpu"`
	Utilization float64       `json:"utilization" yaml:"utilization"`
}

// MultiThreadResult is the concurrent encode of the dataset.
type MultiThreadResult struct {
	Workers      int                    `json:"workers" yaml:"workers"`
	Mode         measure.Mode           `json:"mode" yaml:"mode"`
	BatchWall    time.Duration          `json:"batch_wall" yaml:"batch_wall"`
	AggregateCPU time.Duration          `json:"aggregate_cpu" yaml:"aggregate_cpu"`
	Utilization  float64                `json:"utilization" yaml:"utilization"`
	PerWorker    []measure.WorkerSample `json:"per_worker,omitempty" yaml:"per_worker,omitempty"`
}

// Failure records why a codec was excluded from the results.
type Failure struct {
	Format  codec.Format `json:"format" yaml:"format"`
	Phase   Phase        `json:"phase" yaml:"phase"`
	Message string       `json:"error" yaml:"error"`
	Err     error        `json:"-" yaml:"-"`
}

// Host describes the machine a run executed on.
type Host struct {
	Hostname  string `json:"hostname" yaml:"hostname"`
	OS        string `json:"os" yaml:"os"`
	Arch      string `json:"arch" yaml:"arch"`
	CPUs      int    `json:"cpus" yaml:"cpus"`
	GoVersion string `json:"go_version" yaml:"go_version"`
}

// CurrentHost returns the description of the running host.
func CurrentHost() Host {
	hostname, _ := os.Hostname()
	return Host{
		Hostname:  hostname,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		CPUs:      runtime.NumCPU(),
		GoVersion: runtime.Version(),
	}
}

// Report is the outcome of one run. Results keep codec registration order
// and contain only codecs that completed every phase.
type Report struct {
	RunID             string            `json:"run_id" yaml:"run_id"`
	GeneratedAt       time.Time         `json:"generated_at" yaml:"generated_at"`
	Duration          time.Duration     `json:"duration" yaml:"duration"`
	Host              Host              `json:"host" yaml:"host"`
	CPUClockSupported bool              `json:"cpu_clock_supported" yaml:"cpu_clock_supported"`
	Settings          Settings          `json:"settings" yaml:"settings"`
	Results           []BenchmarkResult `json:"results" yaml:"results"`
	Failures          []Failure         `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// Result returns the result for format.
func (r *Report) Result(format codec.Format) (BenchmarkResult, bool) {
	for _, res := range r.Results {
		if res.Format == format {
			return res, true
		}
	}
	return BenchmarkResult{}, false
}

// Failure returns the failure recorded for format.
func (r *Report) Failure(format codec.Format) (Failure, bool) {
	for _, f := range r.Failures {
		if f.Format == format {
			return f, true
		}
	}
	return Failure{}, false
}

// relativeMemory sets MemoryRelative on every result against the smallest
// non-zero MemoryDelta.
func relativeMemory(results []*BenchmarkResult) {
	var smallest uint64
	for _, r := range results {
		if r.MemoryDelta > 0 && (smallest == 0 || r.MemoryDelta < smallest) {
			smallest = r.MemoryDelta
		}
	}
	for _, r := range results {
		if smallest == 0 || r.MemoryDelta == 0 {
			r.MemoryRelative = 0
			continue
		}
		r.MemoryRelative = float64(r.MemoryDelta) / float64(smallest)
	}
}
