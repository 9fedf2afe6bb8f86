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

package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInitLogger(t *testing.T) {
	ResetLogger()
	defer ResetLogger()

	InitLogger()

	if Logger == nil {
		t.Fatal("InitLogger() failed: Logger is nil after initialization")
	}

	if Logger.Core() == nil {
		t.Error("InitLogger() failed: Logger core is nil")
	}
}

func TestInitLoggerMultipleCalls(t *testing.T) {
	ResetLogger()
	defer ResetLogger()

	InitLogger()
	firstLogger := Logger

	InitLogger()
	secondLogger := Logger

	if firstLogger == nil || secondLogger == nil {
		t.Error("InitLogger() failed: Logger is nil after multiple calls")
	}

	// Multiple calls should return the same logger instance
	if firstLogger != secondLogger {
		t.Error("InitLogger() should return the same logger instance on multiple calls")
	}
}

func TestGetLoggerInitializes(t *testing.T) {
	ResetLogger()
	defer ResetLogger()

	if Logger != nil {
		t.Error("Logger should be nil after reset")
	}

	l := GetLogger()
	require.NotNil(t, l)
	assert.Same(t, l, GetLogger())

	l.Info("test message")
}

func TestSetLevel(t *testing.T) {
	ResetLogger()
	defer ResetLogger()

	tests := []struct {
		name    string
		level   string
		want    string
		wantErr bool
	}{
		{name: "debug", level: "debug", want: "debug"},
		{name: "upper case", level: "WARN", want: "warn"},
		{name: "padded", level: " error ", want: "error"},
		{name: "invalid", level: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SetLevel(tt.level)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, GetLevel())
		})
	}
}

func TestSetLevelAppliesToInitializedLogger(t *testing.T) {
	ResetLogger()
	defer ResetLogger()

	l := GetLogger()
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, SetLevel("debug"))
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, SetLevel("error"))
	assert.False(t, l.Core().Enabled(zapcore.WarnLevel))
}

func TestSetFormat(t *testing.T) {
	ResetLogger()
	defer ResetLogger()

	require.NoError(t, SetFormat("json"))
	require.Error(t, SetFormat("logfmt"))

	InitLogger()
	require.NotNil(t, Logger)
	Logger.Info("json entry")
}

func BenchmarkInitLogger(b *testing.B) {
	defer ResetLogger()

	for i := 0; i < b.N; i++ {
		ResetLogger()
		InitLogger()
	}
}
