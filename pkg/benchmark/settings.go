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
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/innovationmech/serbench/pkg/codec"
	"github.com/innovationmech/serbench/pkg/measure"
)

// Settings are the harness parameters of one run.
type Settings struct {
	// DatasetSize is the number of records generated at Init.
	DatasetSize int `mapstructure:"dataset_size" yaml:"dataset_size" json:"dataset_size" validate:"min=1"`

	// Seed makes the dataset reproducible across runs.
	Seed int64 `mapstructure:"seed" yaml:"seed" json:"seed"`

	// WarmupIterations is the number of rounds over WarmupSample records.
	WarmupIterations int `mapstructure:"warmup_iterations" yaml:"warmup_iterations" json:"warmup_iterations" validate:"min=1"`
	WarmupSample     int `mapstructure:"warmup_sample" yaml:"warmup_sample" json:"warmup_sample" validate:"min=1"`

	// VerifySample is the number of records round-tripped before timing.
	VerifySample int `mapstructure:"verify_sample" yaml:"verify_sample" json:"verify_sample" validate:"min=1"`

	// LoopRepetitions of 1 times every record once; more repeat the first
	// LoopSample records (0 meaning all of them).
	LoopRepetitions int `mapstructure:"loop_repetitions" yaml:"loop_repetitions" json:"loop_repetitions" validate:"min=1"`
	LoopSample      int `mapstructure:"loop_sample" yaml:"loop_sample" json:"loop_sample" validate:"min=0"`

	ThroughputIterations int `mapstructure:"throughput_iterations" yaml:"throughput_iterations" json:"throughput_iterations" validate:"min=1"`
	ThroughputSample     int `mapstructure:"throughput_sample" yaml:"throughput_sample" json:"throughput_sample" validate:"min=1"`

	// WorkerCount is the number of concurrent workers of the multi-thread phase.
	WorkerCount int `mapstructure:"worker_count" yaml:"worker_count" json:"worker_count" validate:"min=1"`

	AggregationMode string `mapstructure:"aggregation_mode" yaml:"aggregation_mode" json:"aggregation_mode" validate:"omitempty,oneof=combined two-pass"`

	// Formats selects registered codecs by name; empty selects all.
	Formats []string `mapstructure:"formats" yaml:"formats" json:"formats" validate:"dive,required"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		DatasetSize:          1000,
		Seed:                 42,
		WarmupIterations:     100,
		WarmupSample:         10,
		VerifySample:         10,
		LoopRepetitions:      1,
		LoopSample:           0,
		ThroughputIterations: 1000,
		ThroughputSample:     100,
		WorkerCount:          4,
		AggregationMode:      string(measure.ModeCombined),
		Formats:              defaultFormatNames(),
	}
}

func defaultFormatNames() []string {
	formats := codec.DefaultFormats()
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = f.String()
	}
	return names
}

// Mode returns the parsed aggregation mode.
func (s Settings) Mode() measure.Mode {
	m, err := measure.ParseMode(s.AggregationMode)
	if err != nil {
		return measure.ModeCombined
	}
	return m
}

// Policy returns the timing loop policy.
func (s Settings) Policy() measure.Policy {
	if s.LoopRepetitions <= 1 && s.LoopSample == 0 {
		return measure.OncePerRecord()
	}
	return measure.Repeat(s.LoopRepetitions, s.LoopSample)
}

var settingsValidator = newSettingsValidator()

func newSettingsValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks the settings and returns a *ConfigurationError naming the
// first invalid field.
func (s Settings) Validate() error {
	err := settingsValidator.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ConfigurationError{
			Field:   fe.Field(),
			Message: formatValidatorMessage(fe),
			Cause:   err,
		}
	}
	return &ConfigurationError{Message: "invalid settings", Cause: err}
}

func formatValidatorMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "field is required"
	case "min":
		return fmt.Sprintf("value must be at least %s, got %v", e.Param(), e.Value())
	case "oneof":
		return fmt.Sprintf("value must be one of: %s, got %q", e.Param(), e.Value())
	default:
		return fmt.Sprintf("validation failed on '%s' tag", e.Tag())
	}
}
