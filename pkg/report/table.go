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

package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/innovationmech/serbench/pkg/benchmark"
)

func micros(d time.Duration) float64 {
	return float64(d) / float64(time.Microsecond)
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// ToCSV renders one row per result followed by one row per failure.
func ToCSV(rep *benchmark.Report) string {
	var b strings.Builder
	b.WriteString("format,avg_serialize_us,avg_deserialize_us,avg_serialize_cpu_us,avg_deserialize_cpu_us,serialize_utilization,deserialize_utilization,avg_encoded_bytes,memory_delta_bytes,memory_relative,single_thread_wall_ms,single_thread_cpu_ms,single_thread_utilization,workers,mode,batch_wall_ms,aggregate_cpu_ms,multi_thread_utilization,throughput_ops_per_sec,throughput_utilization,error\n")
	for _, r := range rep.Results {
		b.WriteString(fmt.Sprintf(
			"%s,%.3f,%.3f,%.3f,%.3f,%.2f,%.2f,%.2f,%d,%.2f,%.3f,%.3f,%.2f,%d,%s,%.3f,%.3f,%.2f,%.2f,%.2f,\n",
			sanitizeForCSV(r.Format.String()),
			micros(r.AvgSerialize),
			micros(r.AvgDeserialize),
			micros(r.AvgSerializeCPU),
			micros(r.AvgDeserializeCPU),
			r.SerializeUtilization,
			r.DeserializeUtilization,
			r.AvgEncodedSize,
			r.MemoryDelta,
			r.MemoryRelative,
			millis(r.SingleThread.Wall),
			millis(r.SingleThread.CPU),
			r.SingleThread.Utilization,
			r.MultiThread.Workers,
			r.MultiThread.Mode,
			millis(r.MultiThread.BatchWall),
			millis(r.MultiThread.AggregateCPU),
			r.MultiThread.Utilization,
			r.Throughput,
			r.ThroughputUtilization,
		))
	}
	for _, f := range rep.Failures {
		b.WriteString(fmt.Sprintf("%s%s%s: %s\n",
			sanitizeForCSV(f.Format.String()),
			strings.Repeat(",", 20),
			f.Phase,
			sanitizeForCSV(f.Message),
		))
	}
	return b.String()
}

// ToMarkdown renders the results as a Markdown table, followed by a list of
// excluded codecs.
func ToMarkdown(rep *benchmark.Report) string {
	var b strings.Builder
	b.WriteString("| Format | Serialize (µs) | Deserialize (µs) | Size (B) | Memory (B) | Memory (rel) | Single CPU % | Multi CPU % | Throughput (ops/s) |\n")
	b.WriteString("| --- | --- | --- | --- | --- | --- | --- | --- | --- |\n")

	for _, r := range rep.Results {
		b.WriteString(fmt.Sprintf(
			"| %s | %.3f | %.3f | %.1f | %d | %.2fx | %.1f | %.1f | %.0f |\n",
			escapeMarkdown(r.Format.String()),
			micros(r.AvgSerialize),
			micros(r.AvgDeserialize),
			r.AvgEncodedSize,
			r.MemoryDelta,
			r.MemoryRelative,
			r.SingleThread.Utilization,
			r.MultiThread.Utilization,
			r.Throughput,
		))
	}

	if len(rep.Failures) > 0 {
		b.WriteString("\n**Excluded codecs**\n\n")
		for _, f := range rep.Failures {
			b.WriteString(fmt.Sprintf("- %s (%s): %s\n",
				escapeMarkdown(f.Format.String()), f.Phase, escapeMarkdown(f.Message)))
		}
	}
	return b.String()
}

func sanitizeForCSV(input string) string {
	input = strings.ReplaceAll(input, "\n", " ")
	input = strings.ReplaceAll(input, ",", " ")
	return input
}

func escapeMarkdown(input string) string {
	replacer := strings.NewReplacer("|", "\\|", "\n", " ", "`", "'", "*", "\\*", "_", "\\_")
	return replacer.Replace(input)
}
