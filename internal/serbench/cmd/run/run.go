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

package run

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	appconfig "github.com/innovationmech/serbench/internal/serbench/config"
	"github.com/innovationmech/serbench/pkg/benchmark"
	"github.com/innovationmech/serbench/pkg/codec"
	cfg "github.com/innovationmech/serbench/pkg/config"
	"github.com/innovationmech/serbench/pkg/logger"
	"github.com/innovationmech/serbench/pkg/metrics"
	"github.com/innovationmech/serbench/pkg/report"
	"github.com/innovationmech/serbench/pkg/tracing"
)

// flagKeys maps each run flag to the configuration key it overrides.
var flagKeys = map[string]string{
	"dataset-size":          "benchmark.dataset_size",
	"seed":                  "benchmark.seed",
	"warmup":                "benchmark.warmup_iterations",
	"throughput-iterations": "benchmark.throughput_iterations",
	"workers":               "benchmark.worker_count",
	"mode":                  "benchmark.aggregation_mode",
	"formats":               "benchmark.formats",
	"output-format":         "output.format",
	"output":                "output.path",
	"no-color":              "output.no_color",
	"metrics-file":          "metrics.textfile",
	"trace":                 "tracing.enabled",
	"log-level":             "logging.level",
}

type runOptions struct {
	ConfigDir string
	Env       string
	PerWorker bool
}

// NewRunCommand creates the `serbench run` command.
func NewRunCommand() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the serialization benchmark",
		Long: `Generate a dataset, verify every selected codec round-trips it, and measure
encode/decode time, memory, single-thread CPU, multi-thread CPU and throughput.

Settings are read from serbench.yaml, serbench.<env>.yaml, serbench.override.yaml
and SERBENCH_* environment variables; flags override all of them.

Examples:
  # Run every default format and print a text report
  serbench run

  # Compare two formats on 8 workers and write JSON
  serbench run --formats json,protobuf --workers 8 --output-format json --output results.json`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := changedOverrides(cmd)
			if err != nil {
				return err
			}
			return runBenchmark(cmd.Context(), cmd, opts, overrides)
		},
	}

	d := appconfig.Default()
	flags := cmd.Flags()
	flags.StringVar(&opts.ConfigDir, "config-dir", ".", "Directory containing serbench configuration files")
	flags.StringVar(&opts.Env, "env", "", "Environment name selecting serbench.<env>.yaml")
	flags.Int("dataset-size", d.Benchmark.DatasetSize, "Number of records to generate")
	flags.Int64("seed", d.Benchmark.Seed, "Seed of the dataset generator")
	flags.Int("warmup", d.Benchmark.WarmupIterations, "Warmup rounds per codec")
	flags.Int("throughput-iterations", d.Benchmark.ThroughputIterations, "Iterations of the throughput phase")
	flags.Int("workers", d.Benchmark.WorkerCount, "Concurrent workers of the multi-thread phase")
	flags.String("mode", d.Benchmark.AggregationMode, "Multi-thread aggregation mode (combined|two-pass)")
	flags.StringSlice("formats", d.Benchmark.Formats, "Formats to benchmark, in order")
	flags.String("output-format", d.Output.Format, "Report format (text|json|yaml|csv|markdown)")
	flags.String("output", "", "Write the report to this file instead of stdout")
	flags.Bool("no-color", false, "Disable colored text output")
	flags.String("metrics-file", "", "Write Prometheus metrics in textfile format to this path")
	flags.Bool("trace", false, "Enable OpenTelemetry tracing of the run")
	flags.String("log-level", d.Logging.Level, "Log level (debug|info|warn|error)")
	flags.BoolVar(&opts.PerWorker, "per-worker", false, "Show per-worker samples in the text report")

	return cmd
}

// changedOverrides returns the configuration overrides of explicitly set
// flags.
func changedOverrides(cmd *cobra.Command) (map[string]interface{}, error) {
	flags := cmd.Flags()
	overrides := make(map[string]interface{})
	for name, key := range flagKeys {
		if !flags.Changed(name) {
			continue
		}

		var (
			value interface{}
			err   error
		)
		switch name {
		case "dataset-size", "warmup", "throughput-iterations", "workers":
			value, err = flags.GetInt(name)
		case "seed":
			value, err = flags.GetInt64(name)
		case "formats":
			value, err = flags.GetStringSlice(name)
		case "no-color", "trace":
			value, err = flags.GetBool(name)
		default:
			value, err = flags.GetString(name)
		}
		if err != nil {
			return nil, fmt.Errorf("read --%s: %w", name, err)
		}
		overrides[key] = value
	}

	if flags.Changed("metrics-file") {
		overrides["metrics.enabled"] = true
	}
	return overrides, nil
}

func runBenchmark(ctx context.Context, cmd *cobra.Command, opts runOptions, overrides map[string]interface{}) error {
	if ctx == nil {
		ctx = context.Background()
	}

	options := cfg.DefaultOptions()
	options.WorkDir = opts.ConfigDir
	options.EnvironmentName = opts.Env

	conf, files, err := appconfig.Load(options, overrides)
	if err != nil {
		return err
	}

	if err := setupLogger(conf.Logging); err != nil {
		return err
	}
	log := logger.GetLogger()
	log.Debug("Configuration loaded", zap.Strings("files", files))

	tracer, shutdown, err := tracing.Setup(ctx, &conf.Tracing)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			log.Warn("Tracing shutdown failed", zap.Error(err))
		}
	}()

	registry, err := codec.NewDefaultRegistry()
	if err != nil {
		return err
	}
	codecs, err := registry.Select(conf.Benchmark.Formats)
	if err != nil {
		return &benchmark.ConfigurationError{Field: "formats", Message: err.Error(), Cause: err}
	}

	orchestrator, err := benchmark.New(conf.Benchmark, codecs,
		benchmark.WithLogger(log),
		benchmark.WithTracer(tracer),
	)
	if err != nil {
		return err
	}

	rep, err := orchestrator.Run(ctx)
	if err != nil {
		return err
	}

	if err := writeReport(cmd.OutOrStdout(), rep, conf.Output, opts); err != nil {
		return err
	}

	if conf.Metrics.Enabled {
		if err := exportMetrics(rep, conf.Metrics); err != nil {
			return err
		}
	}

	log.Info("Benchmark completed",
		zap.String("run_id", rep.RunID),
		zap.Int("results", len(rep.Results)),
		zap.Int("failures", len(rep.Failures)),
		zap.Duration("duration", rep.Duration))
	return nil
}

func setupLogger(c appconfig.LoggingConfig) error {
	if c.Format != "" {
		if err := logger.SetFormat(c.Format); err != nil {
			return err
		}
	}
	logger.InitLogger()
	return logger.SetLevel(c.Level)
}

func writeReport(stdout io.Writer, rep *benchmark.Report, out appconfig.OutputConfig, opts runOptions) error {
	format, err := report.ParseFormat(out.Format)
	if err != nil {
		return err
	}
	ropts := report.Options{NoColor: out.NoColor, PerWorker: opts.PerWorker}

	if out.Path == "" {
		return report.Render(stdout, rep, format, ropts)
	}

	f, err := os.Create(out.Path)
	if err != nil {
		return fmt.Errorf("create report file %s: %w", out.Path, err)
	}
	ropts.NoColor = true
	if err := report.Render(f, rep, format, ropts); err != nil {
		f.Close()
		return fmt.Errorf("write report file %s: %w", out.Path, err)
	}
	return f.Close()
}

func exportMetrics(rep *benchmark.Report, c appconfig.MetricsConfig) error {
	exporter, err := metrics.NewExporter(c.Namespace)
	if err != nil {
		return err
	}
	exporter.Record(rep)

	if c.Textfile == "" {
		return nil
	}
	if err := exporter.WriteTextfile(c.Textfile); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", c.Textfile, err)
	}
	return nil
}
