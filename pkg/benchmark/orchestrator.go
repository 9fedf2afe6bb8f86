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

// Package benchmark sequences the measured phases of a run over a set of
// codecs and assembles the per-codec results.
package benchmark

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/innovationmech/serbench/pkg/clock"
	"github.com/innovationmech/serbench/pkg/codec"
	"github.com/innovationmech/serbench/pkg/measure"
	"github.com/innovationmech/serbench/pkg/record"
)

// unsupportedClockOnce limits the degraded-metrics warning to one per process.
var unsupportedClockOnce sync.Once

// PhaseObserver is notified as the orchestrator enters each phase.
type PhaseObserver func(Phase)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTracer sets the tracer used for phase and codec spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithCPUClock overrides the per-thread CPU clock.
func WithCPUClock(cpu clock.CPUClock) Option {
	return func(o *Orchestrator) {
		if cpu != nil {
			o.cpu = cpu
			o.cpuErr = nil
			if !cpu.Supported() {
				o.cpuErr = &clock.UnsupportedClockError{Reason: "configured CPU clock reports unsupported"}
			}
		}
	}
}

// WithGenerator overrides the dataset generator.
func WithGenerator(g record.Generator) Option {
	return func(o *Orchestrator) {
		if g != nil {
			o.generator = g
		}
	}
}

// WithPhaseObserver registers a callback invoked on every phase transition.
func WithPhaseObserver(fn PhaseObserver) Option {
	return func(o *Orchestrator) {
		o.observer = fn
	}
}

// Orchestrator runs the benchmark state machine. It is single use: Run may be
// called once per instance.
type Orchestrator struct {
	settings  Settings
	codecs    []codec.Codec
	logger    *zap.Logger
	tracer    trace.Tracer
	cpu       clock.CPUClock
	cpuErr    error
	generator record.Generator
	observer  PhaseObserver

	once sync.Once
}

// isNilCodec reports whether c is nil or holds a nil pointer, map, slice,
// func or channel.
func isNilCodec(c codec.Codec) bool {
	if c == nil {
		return true
	}
	v := reflect.ValueOf(c)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}

// New validates settings and codecs and returns an orchestrator. Invalid
// parameters are reported as *ConfigurationError.
func New(settings Settings, codecs []codec.Codec, opts ...Option) (*Orchestrator, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if len(codecs) == 0 {
		return nil, &ConfigurationError{Field: "codecs", Message: "at least one codec is required"}
	}

	seen := make(map[codec.Format]bool, len(codecs))
	for i, c := range codecs {
		if isNilCodec(c) {
			return nil, &ConfigurationError{Field: fmt.Sprintf("codecs[%d]", i), Message: "codec cannot be nil"}
		}
		if c.Format() == "" {
			return nil, &ConfigurationError{Field: fmt.Sprintf("codecs[%d]", i), Message: "codec format cannot be empty"}
		}
		if seen[c.Format()] {
			return nil, &ConfigurationError{Field: fmt.Sprintf("codecs[%d]", i), Message: fmt.Sprintf("duplicate codec format '%s'", c.Format())}
		}
		seen[c.Format()] = true
	}

	o := &Orchestrator{
		settings:  settings,
		codecs:    append([]codec.Codec(nil), codecs...),
		logger:    zap.NewNop(),
		tracer:    noop.NewTracerProvider().Tracer("serbench"),
		generator: record.Generate,
	}
	o.cpu, o.cpuErr = clock.NewThreadCPUClock()
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// codecRun carries one codec through the phases.
type codecRun struct {
	codec  codec.Codec
	result BenchmarkResult
	failed bool
}

// run holds the state of one pass through the state machine.
type run struct {
	o       *Orchestrator
	data    []*record.Record
	loop    measure.Loop
	codecs  []*codecRun
	report  *Report
	started time.Time
}

// Run executes every phase once and returns the report. Codec failures
// exclude the codec and are listed in Report.Failures; they are not returned
// as errors. ctx carries trace context only; a run is not cancellable.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	ran := false
	o.once.Do(func() { ran = true })
	if !ran {
		return nil, fmt.Errorf("orchestrator already ran")
	}

	if !o.cpu.Supported() {
		unsupportedClockOnce.Do(func() {
			o.logger.Warn("CPU time measurement unavailable, utilization metrics will be reported as 0",
				zap.Error(o.cpuErr))
		})
	}

	r := &run{
		o:       o,
		loop:    measure.NewLoop(o.cpu),
		started: time.Now(),
		report: &Report{
			RunID:             uuid.NewString(),
			GeneratedAt:       time.Now().UTC(),
			Host:              CurrentHost(),
			CPUClockSupported: o.cpu.Supported(),
			Settings:          o.settings,
			Results:           []BenchmarkResult{},
		},
	}
	for _, c := range o.codecs {
		r.codecs = append(r.codecs, &codecRun{
			codec:  c,
			result: BenchmarkResult{Format: c.Format(), ContentType: c.Format().ContentType()},
		})
	}

	ctx, span := o.tracer.Start(ctx, "serbench.run", trace.WithAttributes(
		attribute.String("run.id", r.report.RunID),
		attribute.Int("dataset.size", o.settings.DatasetSize),
		attribute.Int("codecs", len(o.codecs)),
	))
	defer span.End()

	o.logger.Info("Starting benchmark run",
		zap.String("run_id", r.report.RunID),
		zap.Int("dataset_size", o.settings.DatasetSize),
		zap.Int("codecs", len(o.codecs)),
		zap.Int("workers", o.settings.WorkerCount),
		zap.String("mode", o.settings.Mode().String()))

	if err := r.init(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	r.eachCodec(ctx, PhaseVerify, r.verify)
	r.eachCodec(ctx, PhaseWarmup, r.warmup)
	r.eachCodec(ctx, PhasePerCodecTiming, r.timing)
	r.memoryComparison(ctx)
	r.eachCodec(ctx, PhaseSingleThreadCPU, r.singleThread)
	r.eachCodec(ctx, PhaseMultiThreadCPU, r.multiThread)
	r.eachCodec(ctx, PhaseThroughput, r.throughput)

	return r.done(), nil
}

func (r *run) enter(ctx context.Context, phase Phase) (context.Context, trace.Span) {
	if r.o.observer != nil {
		r.o.observer(phase)
	}
	r.o.logger.Debug("Entering phase", zap.String("phase", phase.String()))
	return r.o.tracer.Start(ctx, "serbench."+phase.String(),
		trace.WithAttributes(attribute.String("phase", phase.String())))
}

func (r *run) init(ctx context.Context) error {
	_, span := r.enter(ctx, PhaseInit)
	defer span.End()

	s := r.o.settings
	r.data = r.o.generator(s.DatasetSize, s.Seed)
	if len(r.data) != s.DatasetSize {
		return &ConfigurationError{
			Field:   "dataset_size",
			Message: fmt.Sprintf("generator returned %d records, want %d", len(r.data), s.DatasetSize),
		}
	}
	for i, rec := range r.data {
		if rec == nil {
			return &ConfigurationError{Field: "dataset_size", Message: fmt.Sprintf("generator returned nil record at %d", i)}
		}
	}
	return nil
}

// eachCodec runs fn for every codec still in the run, in registration
// order. A failing codec is excluded from the later phases.
func (r *run) eachCodec(ctx context.Context, phase Phase, fn func(*codecRun) error) {
	ctx, span := r.enter(ctx, phase)
	defer span.End()

	for _, cr := range r.codecs {
		if cr.failed {
			continue
		}

		_, cspan := r.o.tracer.Start(ctx, "serbench."+phase.String()+"."+cr.codec.Format().String(),
			trace.WithAttributes(attribute.String("codec.format", cr.codec.Format().String())))
		start := time.Now()
		err := fn(cr)
		if err != nil {
			cspan.RecordError(err)
			cspan.SetStatus(codes.Error, err.Error())
			r.fail(cr, phase, err)
		}
		cspan.End()

		r.o.logger.Debug("Codec phase finished",
			zap.String("phase", phase.String()),
			zap.String("format", cr.codec.Format().String()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Bool("ok", err == nil))
	}
}

func (r *run) fail(cr *codecRun, phase Phase, err error) {
	cr.failed = true
	r.report.Failures = append(r.report.Failures, Failure{
		Format:  cr.codec.Format(),
		Phase:   phase,
		Message: err.Error(),
		Err:     err,
	})
	r.o.logger.Warn("Codec excluded from results",
		zap.String("format", cr.codec.Format().String()),
		zap.String("phase", phase.String()),
		zap.Error(err))
}

func (r *run) verify(cr *codecRun) error {
	return codec.VerifyRoundTrip(cr.codec, record.Sample(r.data, r.o.settings.VerifySample))
}

func (r *run) warmup(cr *codecRun) error {
	s := r.o.settings
	return r.loop.Warmup(cr.codec, record.Sample(r.data, s.WarmupSample), s.WarmupIterations)
}

func (r *run) timing(cr *codecRun) error {
	stats, err := r.loop.Run(cr.codec, r.data, r.o.settings.Policy())
	if err != nil {
		return err
	}
	mem, err := measure.SampleMemory(cr.codec, r.data)
	if err != nil {
		return err
	}

	res := &cr.result
	res.AvgSerialize = stats.AvgSerialize()
	res.AvgDeserialize = stats.AvgDeserialize()
	res.AvgSerializeCPU = stats.AvgSerializeCPU()
	res.AvgDeserializeCPU = stats.AvgDeserializeCPU()
	res.SerializeUtilization = stats.SerializeUtilization()
	res.DeserializeUtilization = stats.DeserializeUtilization()
	res.AvgEncodedSize = stats.AvgEncodedSize()
	res.MemoryDelta = mem.Delta
	return nil
}

func (r *run) memoryComparison(ctx context.Context) {
	_, span := r.enter(ctx, PhaseMemoryComparison)
	defer span.End()

	var results []*BenchmarkResult
	for _, cr := range r.codecs {
		if !cr.failed {
			results = append(results, &cr.result)
		}
	}
	relativeMemory(results)
}

func (r *run) singleThread(cr *codecRun) error {
	s, err := r.loop.EncodeAll(cr.codec, r.data)
	if err != nil {
		return err
	}
	cr.result.SingleThread = SingleThreadResult{Wall: s.Wall, CPU: s.CPU, Utilization: s.Utilization()}
	return nil
}

func (r *run) multiThread(cr *codecRun) error {
	agg := measure.Aggregator{
		Workers: r.o.settings.WorkerCount,
		Clock:   r.o.cpu,
		Mode:    r.o.settings.Mode(),
	}
	stats, err := agg.Measure(cr.codec, r.data)
	if err != nil {
		return err
	}
	cr.result.MultiThread = MultiThreadResult{
		Workers:      stats.Workers,
		Mode:         stats.Mode,
		BatchWall:    stats.BatchWall,
		AggregateCPU: stats.AggregateCPU,
		Utilization:  stats.Utilization(),
		PerWorker:    stats.PerWorker,
	}
	return nil
}

func (r *run) throughput(cr *codecRun) error {
	s := r.o.settings
	stats, err := r.loop.Throughput(cr.codec, record.Sample(r.data, s.ThroughputSample), s.ThroughputIterations)
	if err != nil {
		return err
	}
	cr.result.Throughput = stats.OpsPerSecond()
	cr.result.ThroughputUtilization = stats.Utilization()
	return nil
}

func (r *run) done() *Report {
	if r.o.observer != nil {
		r.o.observer(PhaseDone)
	}
	for _, cr := range r.codecs {
		if !cr.failed {
			r.report.Results = append(r.report.Results, cr.result)
		}
	}
	r.report.Duration = time.Since(r.started)

	r.o.logger.Info("Benchmark run finished",
		zap.String("run_id", r.report.RunID),
		zap.Int("results", len(r.report.Results)),
		zap.Int("failures", len(r.report.Failures)),
		zap.Duration("duration", r.report.Duration))
	return r.report
}
