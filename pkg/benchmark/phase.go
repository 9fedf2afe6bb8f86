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

import "fmt"

// Phase is a state of the orchestrator. Phases run once each, in
// declaration order.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseVerify
	PhaseWarmup
	PhasePerCodecTiming
	PhaseMemoryComparison
	PhaseSingleThreadCPU
	PhaseMultiThreadCPU
	PhaseThroughput
	PhaseDone
)

var phaseNames = [...]string{
	PhaseInit:             "init",
	PhaseVerify:           "verify",
	PhaseWarmup:           "warmup",
	PhasePerCodecTiming:   "per-codec-timing",
	PhaseMemoryComparison: "memory-comparison",
	PhaseSingleThreadCPU:  "single-thread-cpu",
	PhaseMultiThreadCPU:   "multi-thread-cpu",
	PhaseThroughput:       "throughput",
	PhaseDone:             "done",
}

// Phases returns every phase in execution order.
func Phases() []Phase {
	phases := make([]Phase, 0, len(phaseNames))
	for p := PhaseInit; p <= PhaseDone; p++ {
		phases = append(phases, p)
	}
	return phases
}

// String returns the phase name.
func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(text []byte) error {
	for i, name := range phaseNames {
		if name == string(text) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}
