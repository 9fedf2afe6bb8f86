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

// Package tracing sets up OpenTelemetry tracing for benchmark runs. Every
// orchestrator phase becomes a span, with a child span per codec.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// InstrumentationName is the tracer name used for benchmark spans.
const InstrumentationName = "github.com/innovationmech/serbench"

// ShutdownFunc flushes pending spans and releases exporter resources.
type ShutdownFunc func(ctx context.Context) error

// Setup builds a tracer from config. When tracing is disabled it returns a
// no-op tracer and a shutdown that does nothing.
func Setup(ctx context.Context, config *Config) (oteltrace.Tracer, ShutdownFunc, error) {
	if config == nil || !config.Enabled {
		return noop.NewTracerProvider().Tracer(InstrumentationName), func(context.Context) error { return nil }, nil
	}

	if err := config.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid tracing config: %w", err)
	}

	res, err := newResource(config)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, closer, err := NewSpanExporter(ctx, config.Exporter)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	var processor trace.SpanProcessor
	if config.Exporter.Type == "otlp" {
		processor = trace.NewBatchSpanProcessor(exporter,
			trace.WithMaxExportBatchSize(512),
			trace.WithMaxQueueSize(2048),
		)
	} else {
		// A run is short; export console spans as they end.
		processor = trace.NewSimpleSpanProcessor(exporter)
	}

	provider := trace.NewTracerProvider(
		trace.WithResource(res),
		trace.WithSpanProcessor(processor),
		trace.WithSampler(newSampler(config.Sampling)),
	)

	return provider.Tracer(InstrumentationName), shutdown(provider, closer), nil
}

func shutdown(provider *trace.TracerProvider, closer io.Closer) ShutdownFunc {
	return func(ctx context.Context) error {
		return errors.Join(provider.Shutdown(ctx), closer.Close())
	}
}

func newResource(config *Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(config.ServiceName),
	}
	for key, value := range config.ResourceAttributes {
		attrs = append(attrs, attribute.String(key, value))
	}

	// Schemaless so the merge never conflicts with the SDK default schema URL.
	return resource.Merge(resource.Default(), resource.NewSchemaless(attrs...))
}

func newSampler(config SamplingConfig) trace.Sampler {
	switch config.Type {
	case "always_off":
		return trace.NeverSample()
	case "traceidratio":
		return trace.TraceIDRatioBased(config.Rate)
	default:
		return trace.AlwaysSample()
	}
}
