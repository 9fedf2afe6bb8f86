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
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/innovationmech/serbench/pkg/benchmark"
)

type palette struct {
	primary *color.Color
	success *color.Color
	warning *color.Color
	errorC  *color.Color
	info    *color.Color
}

func newPalette(noColor bool) palette {
	p := palette{
		primary: color.New(color.FgCyan, color.Bold),
		success: color.New(color.FgGreen, color.Bold),
		warning: color.New(color.FgYellow, color.Bold),
		errorC:  color.New(color.FgRed, color.Bold),
		info:    color.New(color.FgBlue),
	}
	if noColor {
		for _, c := range []*color.Color{p.primary, p.success, p.warning, p.errorC, p.info} {
			c.DisableColor()
		}
	}
	return p
}

// textWriter accumulates the first write error so sections can be written
// without checking every call.
type textWriter struct {
	w   io.Writer
	p   palette
	err error
}

func (t *textWriter) printf(format string, args ...interface{}) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, format, args...)
}

func (t *textWriter) heading(title string) {
	t.printf("\n%s\n", t.p.primary.Sprint(title))
}

func (t *textWriter) table(header string, rows func(tw *tabwriter.Writer)) {
	if t.err != nil {
		return
	}
	tw := tabwriter.NewWriter(t.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	rows(tw)
	t.err = tw.Flush()
}

func renderText(w io.Writer, rep *benchmark.Report, opts Options) error {
	t := &textWriter{w: w, p: newPalette(opts.NoColor)}

	t.printf("%s %s\n", t.p.primary.Sprint("Serialization benchmark"), t.p.info.Sprint(rep.RunID))
	t.printf("Host:     %s (%s/%s, %d CPUs, %s)\n",
		rep.Host.Hostname, rep.Host.OS, rep.Host.Arch, rep.Host.CPUs, rep.Host.GoVersion)
	t.printf("Dataset:  %d records, %d workers, %s aggregation\n",
		rep.Settings.DatasetSize, rep.Settings.WorkerCount, rep.Settings.Mode())
	if rep.CPUClockSupported {
		t.printf("CPU time: %s\n", t.p.success.Sprint("per-thread"))
	} else {
		t.printf("CPU time: %s\n", t.p.warning.Sprint("unavailable, CPU figures are zero"))
	}
	t.printf("Duration: %s\n", rep.Duration.Round(time.Millisecond))

	t.heading("Serialization Performance")
	t.table("FORMAT\tSERIALIZE\tDESERIALIZE\tSER CPU\tDESER CPU\tSER %\tDESER %\tSIZE (B)", func(tw *tabwriter.Writer) {
		for _, r := range rep.Results {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.1f\t%.1f\t%.1f\n",
				r.Format, r.AvgSerialize, r.AvgDeserialize, r.AvgSerializeCPU, r.AvgDeserializeCPU,
				r.SerializeUtilization, r.DeserializeUtilization, r.AvgEncodedSize)
		}
	})

	t.heading("Memory")
	t.table("FORMAT\tDELTA (B)\tRELATIVE", func(tw *tabwriter.Writer) {
		for _, r := range rep.Results {
			fmt.Fprintf(tw, "%s\t%d\t%.2fx\n", r.Format, r.MemoryDelta, r.MemoryRelative)
		}
	})

	t.heading("Single-Thread CPU")
	t.table("FORMAT\tWALL\tCPU\tUTILIZATION %", func(tw *tabwriter.Writer) {
		for _, r := range rep.Results {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\n",
				r.Format, r.SingleThread.Wall, r.SingleThread.CPU, r.SingleThread.Utilization)
		}
	})

	t.heading("Multi-Thread CPU")
	t.table("FORMAT\tWORKERS\tMODE\tBATCH WALL\tAGGREGATE CPU\tUTILIZATION %", func(tw *tabwriter.Writer) {
		for _, r := range rep.Results {
			m := r.MultiThread
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%.1f\n",
				r.Format, m.Workers, m.Mode, m.BatchWall, m.AggregateCPU, m.Utilization)
			if opts.PerWorker {
				for _, s := range m.PerWorker {
					fmt.Fprintf(tw, "  worker %d\t%s\t\t%s\t%s\t\n", s.Worker, s.Partition, s.Wall, s.CPU)
				}
			}
		}
	})

	t.heading("Throughput")
	t.table("FORMAT\tOPS/SEC\tUTILIZATION %", func(tw *tabwriter.Writer) {
		for _, r := range rep.Results {
			fmt.Fprintf(tw, "%s\t%.0f\t%.1f\n", r.Format, r.Throughput, r.ThroughputUtilization)
		}
	})

	if len(rep.Failures) > 0 {
		t.printf("\n%s\n", t.p.errorC.Sprint("Excluded codecs"))
		for _, f := range rep.Failures {
			t.printf("  %s %s during %s: %s\n", t.p.errorC.Sprint("✗"), f.Format, f.Phase, f.Message)
		}
	}

	return t.err
}
