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

// Package clock provides the wall and CPU clock pair used to time codec
// operations.
//
// CPU time is attributed per OS thread. Go schedules goroutines across
// threads, so a CPUClock reading is only meaningful for a goroutine that has
// been pinned with PinThread for the whole measured span.
package clock

import (
	"fmt"
	"runtime"
	"time"
)

// CPUClock reports the CPU time consumed by the calling OS thread.
type CPUClock interface {
	// Now returns the CPU time consumed so far by the calling thread.
	Now() time.Duration

	// Supported reports whether Now returns real readings.
	Supported() bool
}

// UnsupportedClockError reports that per-thread CPU time cannot be measured
// on this host. It is not fatal; CPU readings degrade to zero.
type UnsupportedClockError struct {
	Reason string
	Cause  error
}

// Error implements the error interface.
func (e *UnsupportedClockError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("per-thread CPU clock unsupported: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("per-thread CPU clock unsupported: %s", e.Reason)
}

// Unwrap returns the underlying cause.
func (e *UnsupportedClockError) Unwrap() error {
	return e.Cause
}

type disabledClock struct{}

func (disabledClock) Now() time.Duration { return 0 }

func (disabledClock) Supported() bool { return false }

// Disabled returns a CPU clock that always reads zero.
func Disabled() CPUClock {
	return disabledClock{}
}

// PinThread locks the calling goroutine to its current OS thread and returns
// the function that releases it.
func PinThread() (release func()) {
	runtime.LockOSThread()
	return runtime.UnlockOSThread
}

// Mark is a pair of clock readings taken at the start of an operation.
type Mark struct {
	wall time.Time
	cpu  time.Duration
}

// Sample is the wall and CPU time spent between a Mark and a later reading.
type Sample struct {
	Wall time.Duration `json:"wall" yaml:"wall"`
	CPU  time.Duration `json:"cpu" yaml:"cpu"`
}

// Add returns the sum of two samples.
func (s Sample) Add(o Sample) Sample {
	return Sample{Wall: s.Wall + o.Wall, CPU: s.CPU + o.CPU}
}

// Utilization returns Utilization(s.CPU, s.Wall).
func (s Sample) Utilization() float64 {
	return Utilization(s.CPU, s.Wall)
}

// Stopwatch reads the wall clock and a CPU clock together. The zero value
// uses a disabled CPU clock.
type Stopwatch struct {
	cpu CPUClock
}

// NewStopwatch creates a stopwatch reading cpu. A nil cpu is treated as
// Disabled.
func NewStopwatch(cpu CPUClock) Stopwatch {
	if cpu == nil {
		cpu = disabledClock{}
	}
	return Stopwatch{cpu: cpu}
}

// CPU returns the CPU clock the stopwatch reads.
func (s Stopwatch) CPU() CPUClock {
	if s.cpu == nil {
		return disabledClock{}
	}
	return s.cpu
}

// Start reads both clocks.
func (s Stopwatch) Start() Mark {
	return Mark{wall: time.Now(), cpu: s.StartCPU()}
}

// Elapsed returns the time spent on both clocks since m.
func (s Stopwatch) Elapsed(m Mark) Sample {
	cpu := s.ElapsedCPU(m.cpu)
	return Sample{Wall: time.Since(m.wall), CPU: cpu}
}

// StartWall reads the wall clock.
func (s Stopwatch) StartWall() time.Time {
	return time.Now()
}

// ElapsedWall returns the wall time spent since t0.
func (s Stopwatch) ElapsedWall(t0 time.Time) time.Duration {
	return time.Since(t0)
}

// StartCPU reads the CPU clock.
func (s Stopwatch) StartCPU() time.Duration {
	if s.cpu == nil {
		return 0
	}
	return s.cpu.Now()
}

// ElapsedCPU returns the CPU time spent by the calling thread since c0.
// Readings never go backwards on a pinned thread; a negative delta means
// the goroutine migrated and is reported as zero.
func (s Stopwatch) ElapsedCPU(c0 time.Duration) time.Duration {
	d := s.StartCPU() - c0
	if d < 0 {
		return 0
	}
	return d
}

// Utilization returns 100 × cpu / wall. It is 0 when wall or cpu is not
// positive and is never clamped above, so concurrent workers can report
// more than 100.
func Utilization(cpu, wall time.Duration) float64 {
	if wall <= 0 || cpu <= 0 {
		return 0
	}
	return 100 * float64(cpu) / float64(wall)
}
