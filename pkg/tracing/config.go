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

package tracing

import (
	"fmt"
	"strings"
	"time"
)

// Config represents the tracing configuration of a benchmark run.
type Config struct {
	Enabled     bool   `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	ServiceName string `yaml:"service_name" json:"service_name" mapstructure:"service_name"`

	// Sampling configuration
	Sampling SamplingConfig `yaml:"sampling" json:"sampling" mapstructure:"sampling"`

	// Exporter configuration
	Exporter ExporterConfig `yaml:"exporter" json:"exporter" mapstructure:"exporter"`

	// Resource attributes added to every span
	ResourceAttributes map[string]string `yaml:"resource_attributes" json:"resource_attributes,omitempty" mapstructure:"resource_attributes"`
}

// SamplingConfig represents sampling strategy configuration
type SamplingConfig struct {
	Type string  `yaml:"type" json:"type" mapstructure:"type"` // always_on, always_off, traceidratio
	Rate float64 `yaml:"rate" json:"rate" mapstructure:"rate"` // 0.0-1.0 for traceidratio
}

// ExporterConfig represents the exporter configuration
type ExporterConfig struct {
	Type     string            `yaml:"type" json:"type" mapstructure:"type"` // console, otlp
	Endpoint string            `yaml:"endpoint" json:"endpoint" mapstructure:"endpoint"`
	Protocol string            `yaml:"protocol" json:"protocol" mapstructure:"protocol"` // http, grpc; inferred from the endpoint when empty
	Insecure bool              `yaml:"insecure" json:"insecure" mapstructure:"insecure"`
	Headers  map[string]string `yaml:"headers" json:"headers,omitempty" mapstructure:"headers"`
	Timeout  string            `yaml:"timeout" json:"timeout" mapstructure:"timeout"`

	// Output is the file the console exporter writes to; empty means stderr.
	Output string `yaml:"output" json:"output" mapstructure:"output"`
}

// DefaultConfig returns tracing disabled with a console exporter.
func DefaultConfig() *Config {
	return &Config{
		Enabled:     false,
		ServiceName: "serbench",
		Sampling: SamplingConfig{
			Type: "always_on",
			Rate: 1.0,
		},
		Exporter: ExporterConfig{
			Type:    "console",
			Timeout: "10s",
		},
	}
}

// Validate validates the tracing configuration
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required when tracing is enabled")
	}

	if err := c.Sampling.Validate(); err != nil {
		return fmt.Errorf("sampling configuration invalid: %w", err)
	}

	if err := c.Exporter.Validate(); err != nil {
		return fmt.Errorf("exporter configuration invalid: %w", err)
	}

	return nil
}

// Validate validates the sampling configuration
func (s *SamplingConfig) Validate() error {
	switch s.Type {
	case "", "always_on", "always_off":
	case "traceidratio":
		if s.Rate < 0.0 || s.Rate > 1.0 {
			return fmt.Errorf("sampling rate must be between 0.0 and 1.0, got %f", s.Rate)
		}
	default:
		return fmt.Errorf("unsupported sampling type: %s", s.Type)
	}
	return nil
}

// Validate validates the exporter configuration
func (e *ExporterConfig) Validate() error {
	switch e.Type {
	case "", "console":
	case "otlp":
		if e.Endpoint == "" {
			return fmt.Errorf("endpoint is required for otlp exporter")
		}
	default:
		return fmt.Errorf("unsupported exporter type: %s", e.Type)
	}

	switch strings.ToLower(e.Protocol) {
	case "", "http", "grpc":
	default:
		return fmt.Errorf("unsupported otlp protocol: %s", e.Protocol)
	}

	if e.Timeout != "" {
		if _, err := time.ParseDuration(e.Timeout); err != nil {
			return fmt.Errorf("invalid timeout format: %w", err)
		}
	}
	return nil
}

// GetTimeout returns the exporter timeout, 10s when unset or invalid.
func (e *ExporterConfig) GetTimeout() time.Duration {
	if e.Timeout == "" {
		return 10 * time.Second
	}
	d, err := time.ParseDuration(e.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// UseHTTP reports whether the otlp exporter speaks OTLP/HTTP rather than
// OTLP/gRPC.
func (e *ExporterConfig) UseHTTP() bool {
	switch strings.ToLower(e.Protocol) {
	case "http":
		return true
	case "grpc":
		return false
	}
	return strings.HasPrefix(e.Endpoint, "http://") ||
		strings.HasPrefix(e.Endpoint, "https://") ||
		strings.HasSuffix(e.Endpoint, "/v1/traces")
}
