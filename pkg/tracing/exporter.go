package tracing

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/trace"
)

// NewSpanExporter creates a span exporter based on the configuration. The
// returned closer releases resources the exporter does not own, such as the
// console output file; it is never nil.
func NewSpanExporter(ctx context.Context, config ExporterConfig) (trace.SpanExporter, io.Closer, error) {
	switch config.Type {
	case "", "console":
		return newConsoleExporter(config)
	case "otlp":
		exporter, err := newOTLPExporter(ctx, config)
		return exporter, nopCloser{}, err
	default:
		return nil, nopCloser{}, fmt.Errorf("unsupported exporter type: %s", config.Type)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newConsoleExporter writes pretty-printed spans to config.Output, or stderr
// so they never mix with the report on stdout.
func newConsoleExporter(config ExporterConfig) (trace.SpanExporter, io.Closer, error) {
	var (
		w      io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if config.Output != "" {
		f, err := os.Create(config.Output)
		if err != nil {
			return nil, nopCloser{}, fmt.Errorf("failed to open trace output: %w", err)
		}
		w, closer = f, f
	}

	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(w),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		closer.Close()
		return nil, nopCloser{}, fmt.Errorf("failed to create console exporter: %w", err)
	}
	return exporter, closer, nil
}

func newOTLPExporter(ctx context.Context, config ExporterConfig) (trace.SpanExporter, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("otlp exporter requires endpoint")
	}
	if config.UseHTTP() {
		return newOTLPHTTPExporter(ctx, config)
	}
	return newOTLPGRPCExporter(ctx, config)
}

func newOTLPHTTPExporter(ctx context.Context, config ExporterConfig) (trace.SpanExporter, error) {
	options := []otlptracehttp.Option{
		otlptracehttp.WithTimeout(config.GetTimeout()),
	}
	if hasScheme(config.Endpoint) {
		options = append(options, otlptracehttp.WithEndpointURL(config.Endpoint))
	} else {
		options = append(options, otlptracehttp.WithEndpoint(config.Endpoint))
	}
	if config.Insecure {
		options = append(options, otlptracehttp.WithInsecure())
	}
	if len(config.Headers) > 0 {
		options = append(options, otlptracehttp.WithHeaders(config.Headers))
	}

	exporter, err := otlptracehttp.New(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create otlp http exporter: %w", err)
	}
	return exporter, nil
}

func newOTLPGRPCExporter(ctx context.Context, config ExporterConfig) (trace.SpanExporter, error) {
	options := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(config.Endpoint),
		otlptracegrpc.WithTimeout(config.GetTimeout()),
	}
	if config.Insecure {
		options = append(options, otlptracegrpc.WithInsecure())
	}
	if len(config.Headers) > 0 {
		options = append(options, otlptracegrpc.WithHeaders(config.Headers))
	}

	exporter, err := otlptracegrpc.New(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create otlp grpc exporter: %w", err)
	}
	return exporter, nil
}

func hasScheme(endpoint string) bool {
	return len(endpoint) > 7 && (endpoint[:7] == "http://" || (len(endpoint) > 8 && endpoint[:8] == "https://"))
}
