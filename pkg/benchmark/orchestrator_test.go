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
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/innovationmech/serbench/pkg/clock"
	"github.com/innovationmech/serbench/pkg/codec"
	"github.com/innovationmech/serbench/pkg/codec/codectest"
	"github.com/innovationmech/serbench/pkg/measure"
	"github.com/innovationmech/serbench/pkg/record"
)

func testSettings() Settings {
	s := DefaultSettings()
	s.DatasetSize = 40
	s.WarmupIterations = 2
	s.WarmupSample = 5
	s.VerifySample = 5
	s.ThroughputIterations = 3
	s.ThroughputSample = 10
	s.WorkerCount = 2
	s.Formats = nil
	return s
}

func mustCBOR(t *testing.T) codec.Codec {
	t.Helper()
	c, err := codec.NewCBOR()
	require.NoError(t, err)
	return c
}

func formats(results []BenchmarkResult) []codec.Format {
	out := make([]codec.Format, len(results))
	for i, r := range results {
		out[i] = r.Format
	}
	return out
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(s *Settings)
		wantField string
	}{
		{name: "defaults", mutate: func(s *Settings) {}},
		{name: "zero workers", mutate: func(s *Settings) { s.WorkerCount = 0 }, wantField: "worker_count"},
		{name: "negative workers", mutate: func(s *Settings) { s.WorkerCount = -3 }, wantField: "worker_count"},
		{name: "empty dataset", mutate: func(s *Settings) { s.DatasetSize = 0 }, wantField: "dataset_size"},
		{name: "no warmup", mutate: func(s *Settings) { s.WarmupIterations = 0 }, wantField: "warmup_iterations"},
		{name: "no throughput iterations", mutate: func(s *Settings) { s.ThroughputIterations = 0 }, wantField: "throughput_iterations"},
		{name: "negative loop sample", mutate: func(s *Settings) { s.LoopSample = -1 }, wantField: "loop_sample"},
		{name: "unknown mode", mutate: func(s *Settings) { s.AggregationMode = "parallel" }, wantField: "aggregation_mode"},
		{name: "empty mode", mutate: func(s *Settings) { s.AggregationMode = "" }},
		{name: "blank format", mutate: func(s *Settings) { s.Formats = []string{"json", ""} }, wantField: "formats[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}

			var ce *ConfigurationError
			require.True(t, errors.As(err, &ce), "want *ConfigurationError, got %T", err)
			assert.Equal(t, tt.wantField, ce.Field)
			assert.Contains(t, ce.Error(), tt.wantField)
		})
	}
}

func TestSettingsPolicyAndMode(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, measure.OncePerRecord(), s.Policy())
	assert.Equal(t, measure.ModeCombined, s.Mode())

	s.LoopRepetitions = 5
	s.LoopSample = 20
	s.AggregationMode = "two-pass"
	assert.Equal(t, measure.Repeat(5, 20), s.Policy())
	assert.Equal(t, measure.ModeTwoPass, s.Mode())
}

func TestNewRejectsInvalidCodecs(t *testing.T) {
	tests := []struct {
		name      string
		codecs    []codec.Codec
		wantField string
	}{
		{name: "no codecs", codecs: nil, wantField: "codecs"},
		{name: "nil codec", codecs: []codec.Codec{codec.NewJSON(), nil}, wantField: "codecs[1]"},
		{name: "typed nil codec", codecs: []codec.Codec{codec.NewJSON(), (*codec.XML)(nil)}, wantField: "codecs[1]"},
		{name: "empty format", codecs: []codec.Codec{&codectest.Failing{}}, wantField: "codecs[0]"},
		{name: "duplicate format", codecs: []codec.Codec{codec.NewJSON(), codec.NewJSON()}, wantField: "codecs[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := New(testSettings(), tt.codecs)
			require.Nil(t, o)

			var ce *ConfigurationError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.wantField, ce.Field)
		})
	}
}

func TestNewRejectsInvalidSettings(t *testing.T) {
	s := testSettings()
	s.WorkerCount = 0

	_, err := New(s, []codec.Codec{codec.NewJSON()})
	var ce *ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "worker_count", ce.Field)
}

func TestRunExcludesFailingCodecs(t *testing.T) {
	data := record.Generate(40, 42)

	codecs := []codec.Codec{
		codec.NewJSON(),
		&codectest.Failing{Name: "always-fails"},
		&codectest.Lossy{Codec: codec.NewXML()},
		&codectest.FailOn{Codec: mustCBOR(t), ID: data[30].ID},
		codec.NewFlatBuffers(),
	}

	o, err := New(testSettings(), codecs, WithCPUClock(clock.Disabled()))
	require.NoError(t, err)

	rep, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []codec.Format{codec.FormatJSON, codec.FormatFlatBuffers}, formats(rep.Results))

	require.Len(t, rep.Failures, 3)
	f, ok := rep.Failure("always-fails")
	require.True(t, ok)
	assert.Equal(t, PhaseVerify, f.Phase)
	assert.ErrorIs(t, f.Err, codectest.ErrInjected)

	f, ok = rep.Failure(codec.FormatXML)
	require.True(t, ok)
	assert.Equal(t, PhaseVerify, f.Phase)
	assert.ErrorIs(t, f.Err, codec.ErrRoundTripMismatch)

	// Record 30 is outside the verify and warmup samples.
	f, ok = rep.Failure(codec.FormatCBOR)
	require.True(t, ok)
	assert.Equal(t, PhasePerCodecTiming, f.Phase)
	var ce *codec.CodecError
	require.True(t, errors.As(f.Err, &ce))
	assert.Equal(t, 30, ce.Index)
	assert.Equal(t, codec.FormatCBOR, ce.Format)
}

func TestRunExcludesNilDecoder(t *testing.T) {
	codecs := []codec.Codec{
		&codectest.NilDecode{Codec: codec.NewXML()},
		codec.NewJSON(),
	}

	o, err := New(testSettings(), codecs, WithCPUClock(clock.Disabled()))
	require.NoError(t, err)

	rep, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []codec.Format{codec.FormatJSON}, formats(rep.Results))
	require.Len(t, rep.Failures, 1)

	f, ok := rep.Failure(codec.FormatXML)
	require.True(t, ok)
	assert.Equal(t, PhaseVerify, f.Phase)
	assert.ErrorIs(t, f.Err, codec.ErrRoundTripMismatch)
	assert.Contains(t, f.Message, "nil record")
}

func TestDefaultSettingsSelectDefaultFormats(t *testing.T) {
	want := make([]string, 0, len(codec.DefaultFormats()))
	for _, f := range codec.DefaultFormats() {
		want = append(want, string(f))
	}
	assert.Equal(t, want, DefaultSettings().Formats)
}

func TestRunResults(t *testing.T) {
	o, err := New(testSettings(), []codec.Codec{codec.NewJSON(), mustCBOR(t)})
	require.NoError(t, err)

	rep, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.Results, 2)
	assert.Empty(t, rep.Failures)
	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, testSettings(), rep.Settings)
	assert.Positive(t, rep.Host.CPUs)

	var smallestRelative float64
	for _, res := range rep.Results {
		assert.GreaterOrEqual(t, res.AvgSerialize, time.Duration(0))
		assert.GreaterOrEqual(t, res.AvgDeserialize, time.Duration(0))
		assert.Positive(t, res.AvgEncodedSize)
		assert.Positive(t, res.Throughput)
		assert.GreaterOrEqual(t, res.SerializeUtilization, 0.0)
		assert.GreaterOrEqual(t, res.MultiThread.Utilization, 0.0)
		assert.Equal(t, 2, res.MultiThread.Workers)
		assert.Equal(t, measure.ModeCombined, res.MultiThread.Mode)
		assert.Len(t, res.MultiThread.PerWorker, 2)
		if res.MemoryRelative > 0 && (smallestRelative == 0 || res.MemoryRelative < smallestRelative) {
			smallestRelative = res.MemoryRelative
		}
		if !rep.CPUClockSupported {
			assert.Equal(t, 0.0, res.SerializeUtilization)
			assert.Equal(t, 0.0, res.MultiThread.Utilization)
		}
	}
	if smallestRelative > 0 {
		assert.InDelta(t, 1.0, smallestRelative, 1e-9)
	}

	_, ok := rep.Result(codec.FormatCBOR)
	assert.True(t, ok)
	_, ok = rep.Result(codec.FormatXML)
	assert.False(t, ok)
}

func TestRunPhaseOrder(t *testing.T) {
	var phases []Phase
	o, err := New(testSettings(), []codec.Codec{codec.NewJSON()},
		WithPhaseObserver(func(p Phase) { phases = append(phases, p) }))
	require.NoError(t, err)

	_, err = o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Phases(), phases)
}

func TestRunTwoPassMode(t *testing.T) {
	s := testSettings()
	s.AggregationMode = "two-pass"
	counting := &codectest.Counting{Codec: codec.NewJSON()}

	o, err := New(s, []codec.Codec{counting})
	require.NoError(t, err)

	rep, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.Results, 1)
	assert.Equal(t, measure.ModeTwoPass, rep.Results[0].MultiThread.Mode)

	// verify 5 + warmup 2x5 + loop 40 + memory 40 + single 40 + two-pass 80 + throughput 3x10
	assert.Equal(t, int64(5+10+40+40+40+80+30), counting.Encodes())
}

func TestRunOnlyOnce(t *testing.T) {
	o, err := New(testSettings(), []codec.Codec{codec.NewJSON()})
	require.NoError(t, err)

	_, err = o.Run(context.Background())
	require.NoError(t, err)
	_, err = o.Run(context.Background())
	require.Error(t, err)
}

func TestRunGeneratorMismatch(t *testing.T) {
	short := func(size int, seed int64) []*record.Record {
		return record.Generate(size/2, seed)
	}
	o, err := New(testSettings(), []codec.Codec{codec.NewJSON()}, WithGenerator(short))
	require.NoError(t, err)

	_, err = o.Run(context.Background())
	var ce *ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "dataset_size", ce.Field)
}

func TestRunWarnsOnceWithoutCPUClock(t *testing.T) {
	unsupportedClockOnce = sync.Once{}
	defer func() { unsupportedClockOnce = sync.Once{} }()

	core, logs := observer.New(zapcore.WarnLevel)
	logger := zap.New(core)

	for i := 0; i < 2; i++ {
		o, err := New(testSettings(), []codec.Codec{codec.NewJSON()},
			WithLogger(logger), WithCPUClock(clock.Disabled()))
		require.NoError(t, err)

		rep, err := o.Run(context.Background())
		require.NoError(t, err)
		assert.False(t, rep.CPUClockSupported)
		for _, res := range rep.Results {
			assert.Equal(t, 0.0, res.SerializeUtilization)
			assert.Equal(t, 0.0, res.DeserializeUtilization)
			assert.Equal(t, 0.0, res.SingleThread.Utilization)
			assert.Equal(t, 0.0, res.MultiThread.Utilization)
			assert.Equal(t, 0.0, res.ThroughputUtilization)
		}
	}

	assert.Equal(t, 1, logs.FilterMessageSnippet("CPU time measurement unavailable").Len())
}

func TestRunSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer provider.Shutdown(context.Background())

	o, err := New(testSettings(),
		[]codec.Codec{codec.NewJSON(), &codectest.Failing{Name: "broken"}},
		WithTracer(provider.Tracer("test")))
	require.NoError(t, err)

	_, err = o.Run(context.Background())
	require.NoError(t, err)

	byName := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range recorder.Ended() {
		byName[s.Name()] = s
	}

	for _, p := range Phases()[:len(Phases())-1] {
		assert.Contains(t, byName, "serbench."+p.String())
	}
	assert.Contains(t, byName, "serbench.run")
	assert.Contains(t, byName, "serbench.throughput.json")
	assert.NotContains(t, byName, "serbench.warmup.broken")

	failed := byName["serbench.verify.broken"]
	require.NotNil(t, failed)
	assert.Equal(t, codes.Error, failed.Status().Code)
	assert.Equal(t, byName["serbench.verify"].SpanContext().SpanID(), failed.Parent().SpanID())
}

func TestReportJSON(t *testing.T) {
	o, err := New(testSettings(), []codec.Codec{codec.NewJSON(), &codectest.Failing{Name: "broken"}})
	require.NoError(t, err)
	rep, err := o.Run(context.Background())
	require.NoError(t, err)

	data, err := json.Marshal(rep)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	failures := decoded["failures"].([]interface{})
	require.Len(t, failures, 1)
	assert.Equal(t, "verify", failures[0].(map[string]interface{})["phase"])
}

func TestPhaseText(t *testing.T) {
	for _, p := range Phases() {
		text, err := p.MarshalText()
		require.NoError(t, err)

		var back Phase
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, p, back)
	}
	assert.Equal(t, "phase(42)", Phase(42).String())

	var p Phase
	assert.Error(t, p.UnmarshalText([]byte("cooldown")))
}

func TestRelativeMemory(t *testing.T) {
	results := []*BenchmarkResult{
		{MemoryDelta: 4000},
		{MemoryDelta: 0},
		{MemoryDelta: 1000},
		{MemoryDelta: 2500},
	}
	relativeMemory(results)
	assert.Equal(t, 4.0, results[0].MemoryRelative)
	assert.Equal(t, 0.0, results[1].MemoryRelative)
	assert.Equal(t, 1.0, results[2].MemoryRelative)
	assert.Equal(t, 2.5, results[3].MemoryRelative)

	none := []*BenchmarkResult{{}, {}}
	relativeMemory(none)
	assert.Equal(t, 0.0, none[0].MemoryRelative)
}
