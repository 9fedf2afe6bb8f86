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
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is the global logger for the application.
	Logger *zap.Logger
	// mu protects Logger, level and format from concurrent access
	mu sync.RWMutex
	// initialized tracks whether logger has been initialized
	initialized bool
	// level is shared by every logger built by InitLogger so it can be
	// changed after initialization
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	// format selects the encoder used by the next InitLogger
	format = "console"
)

// InitLogger initializes the global logger safely to prevent race conditions.
// Entries go to stderr so they never interleave with report output.
func InitLogger() {
	mu.Lock()
	defer mu.Unlock()

	// Only initialize if not already done
	if !initialized || Logger == nil {
		var err error
		Logger, err = buildConfig(format).Build()
		if err != nil {
			panic(err)
		}
		initialized = true
	}
}

func buildConfig(f string) zap.Config {
	var cfg zap.Config
	if f == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.Development = false
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = level
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg
}

// GetLogger returns the global logger, initializing it if necessary.
func GetLogger() *zap.Logger {
	mu.RLock()
	if initialized && Logger != nil {
		defer mu.RUnlock()
		return Logger
	}
	mu.RUnlock()

	// Initialize logger if not done yet
	InitLogger()

	mu.RLock()
	defer mu.RUnlock()
	return Logger
}

// SetLevel changes the minimum enabled level of the global logger. It takes
// effect immediately, including for a logger that is already initialized.
func SetLevel(l string) error {
	var parsed zapcore.Level
	if err := parsed.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(l)))); err != nil {
		return fmt.Errorf("invalid log level %q: %w", l, err)
	}
	level.SetLevel(parsed)
	return nil
}

// GetLevel returns the current minimum enabled level.
func GetLevel() string {
	return level.Level().String()
}

// SetFormat selects the encoder, "json" or "console", for the next
// initialization. It has no effect on an already initialized logger.
func SetFormat(f string) error {
	f = strings.ToLower(strings.TrimSpace(f))
	if f != "json" && f != "console" {
		return fmt.Errorf("invalid log format %q: must be json or console", f)
	}

	mu.Lock()
	defer mu.Unlock()
	format = f
	return nil
}

// ResetLogger resets the logger for testing purposes.
// This should only be used in tests.
func ResetLogger() {
	mu.Lock()
	defer mu.Unlock()

	if Logger != nil {
		Logger.Sync() // Flush any pending log entries
	}
	Logger = nil
	initialized = false
	format = "console"
	level.SetLevel(zapcore.InfoLevel)
}
