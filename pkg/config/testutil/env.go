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

// Package testutil provides configuration fixtures for tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

// Fixture is a temporary configuration directory scoped to one test.
type Fixture struct {
	T   *testing.T
	Dir string
}

// NewFixture creates a fixture rooted at t.TempDir.
func NewFixture(t *testing.T) *Fixture {
	t.Helper()
	return &Fixture{T: t, Dir: t.TempDir()}
}

// WriteFile writes content to a path relative to the fixture directory,
// creating parent directories.
func (f *Fixture) WriteFile(rel, content string) string {
	f.T.Helper()
	p := filepath.Join(f.Dir, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		f.T.Fatalf("mkdirs for %s: %v", p, err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		f.T.Fatalf("write %s: %v", p, err)
	}
	return p
}

// WriteYAML marshals v as YAML and writes it to rel.
func (f *Fixture) WriteYAML(rel string, v interface{}) string {
	f.T.Helper()
	data, err := yaml.Marshal(v)
	if err != nil {
		f.T.Fatalf("yaml marshal %s: %v", rel, err)
	}
	return f.WriteFile(rel, string(data))
}

// Setenv sets environment variables for the duration of the test.
func (f *Fixture) Setenv(kv map[string]string) {
	f.T.Helper()
	for k, v := range kv {
		f.T.Setenv(k, v)
	}
}
