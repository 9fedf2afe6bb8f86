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

// Package config loads the serbench application configuration.
package config

import (
	"fmt"

	"go.uber.org/zap/zapcore"

	"github.com/innovationmech/serbench/pkg/benchmark"
	cfg "github.com/innovationmech/serbench/pkg/config"
	"github.com/innovationmech/serbench/pkg/report"
	"github.com/innovationmech/serbench/pkg/tracing"
)

// Config is the complete configuration of a serbench run.
type Config struct {
	Benchmark benchmark.Settings `mapstructure:"benchmark" yaml:"benchmark" json:"benchmark"`
	Logging   LoggingConfig      `mapstructure:"logging" yaml:"logging" json:"logging"`
	Output    OutputConfig       `mapstructure:"output" yaml:"output" json:"output"`
	Metrics   MetricsConfig      `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
	Tracing   tracing.Config     `mapstructure:"tracing" yaml:"tracing" json:"tracing"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"` // console, json
}

// OutputConfig configures where and how the report is written.
type OutputConfig struct {
	Format  string `mapstructure:"format" yaml:"format" json:"format"`
	Path    string `mapstructure:"path" yaml:"path" json:"path"` // empty writes to stdout
	NoColor bool   `mapstructure:"no_color" yaml:"no_color" json:"no_color"`
}

// MetricsConfig configures the Prometheus export of the report.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Namespace string `mapstructure:"namespace" yaml:"namespace" json:"namespace"`
	Textfile  string `mapstructure:"textfile" yaml:"textfile" json:"textfile"`
}

// Default returns the configuration used when no file, environment variable
// or flag sets a value.
func Default() *Config {
	return &Config{
		Benchmark: benchmark.DefaultSettings(),
		Logging:   LoggingConfig{Level: "info", Format: "console"},
		Output:    OutputConfig{Format: string(report.FormatText)},
		Metrics:   MetricsConfig{Namespace: "serbench"},
		Tracing:   *tracing.DefaultConfig(),
	}
}

// setDefaults registers every key so environment variables can override
// keys that no file mentions.
func setDefaults(m *cfg.Manager) {
	d := Default()

	b := d.Benchmark
	m.SetDefault("benchmark.dataset_size", b.DatasetSize)
	m.SetDefault("benchmark.seed", b.Seed)
	m.SetDefault("benchmark.warmup_iterations", b.WarmupIterations)
	m.SetDefault("benchmark.warmup_sample", b.WarmupSample)
	m.SetDefault("benchmark.verify_sample", b.VerifySample)
	m.SetDefault("benchmark.loop_repetitions", b.LoopRepetitions)
	m.SetDefault("benchmark.loop_sample", b.LoopSample)
	m.SetDefault("benchmark.throughput_iterations", b.ThroughputIterations)
	m.SetDefault("benchmark.throughput_sample", b.ThroughputSample)
	m.SetDefault("benchmark.worker_count", b.WorkerCount)
	m.SetDefault("benchmark.aggregation_mode", b.AggregationMode)
	m.SetDefault("benchmark.formats", b.Formats)

	m.SetDefault("logging.level", d.Logging.Level)
	m.SetDefault("logging.format", d.Logging.Format)

	m.SetDefault("output.format", d.Output.Format)
	m.SetDefault("output.path", d.Output.Path)
	m.SetDefault("output.no_color", d.Output.NoColor)

	m.SetDefault("metrics.enabled", d.Metrics.Enabled)
	m.SetDefault("metrics.namespace", d.Metrics.Namespace)
	m.SetDefault("metrics.textfile", d.Metrics.Textfile)

	t := d.Tracing
	m.SetDefault("tracing.enabled", t.Enabled)
	m.SetDefault("tracing.service_name", t.ServiceName)
	m.SetDefault("tracing.sampling.type", t.Sampling.Type)
	m.SetDefault("tracing.sampling.rate", t.Sampling.Rate)
	m.SetDefault("tracing.exporter.type", t.Exporter.Type)
	m.SetDefault("tracing.exporter.endpoint", t.Exporter.Endpoint)
	m.SetDefault("tracing.exporter.protocol", t.Exporter.Protocol)
	m.SetDefault("tracing.exporter.insecure", t.Exporter.Insecure)
	m.SetDefault("tracing.exporter.timeout", t.Exporter.Timeout)
	m.SetDefault("tracing.exporter.output", t.Exporter.Output)
}

// Load reads the configuration layers described by opts. Overrides are
// applied above every other layer, keyed by dotted path.
func Load(opts cfg.Options, overrides map[string]interface{}) (*Config, []string, error) {
	m := cfg.NewManager(opts)
	setDefaults(m)

	if err := m.Load(); err != nil {
		return nil, nil, err
	}
	for key, value := range overrides {
		m.Set(key, value)
	}

	c := &Config{}
	if err := m.Unmarshal(c); err != nil {
		return nil, nil, fmt.Errorf("decode configuration: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	return c, m.LoadedFiles(), nil
}

// Validate checks every section and returns a *benchmark.ConfigurationError
// naming the first invalid field.
func (c *Config) Validate() error {
	if err := c.Benchmark.Validate(); err != nil {
		return err
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return &benchmark.ConfigurationError{Field: "logging.level", Message: err.Error(), Cause: err}
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return &benchmark.ConfigurationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("unsupported log format %q", c.Logging.Format),
		}
	}

	if _, err := report.ParseFormat(c.Output.Format); err != nil {
		return &benchmark.ConfigurationError{Field: "output.format", Message: err.Error(), Cause: err}
	}

	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return &benchmark.ConfigurationError{Field: "metrics.namespace", Message: "field is required when metrics are enabled"}
	}

	if err := c.Tracing.Validate(); err != nil {
		return &benchmark.ConfigurationError{Field: "tracing", Message: err.Error(), Cause: err}
	}
	return nil
}
