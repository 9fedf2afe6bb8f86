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

// Package record defines the fixed entity every codec encodes and the
// deterministic dataset generator that feeds a benchmark run.
package record

import (
	"fmt"
	"math/rand"
	"slices"
)

// Record is the test entity shared read-only by every codec and worker.
// Records are never mutated after generation.
type Record struct {
	ID      string   `json:"id" xml:"id" cbor:"1,keyasint" yaml:"id"`
	Name    string   `json:"name" xml:"name" cbor:"2,keyasint" yaml:"name"`
	Email   string   `json:"email" xml:"email" cbor:"3,keyasint" yaml:"email"`
	Age     int32    `json:"age" xml:"age" cbor:"4,keyasint" yaml:"age"`
	Active  bool     `json:"active" xml:"active" cbor:"5,keyasint" yaml:"active"`
	Roles   []string `json:"roles" xml:"roles>role" cbor:"6,keyasint" yaml:"roles"`
	Balance float64  `json:"balance" xml:"balance" cbor:"7,keyasint" yaml:"balance"`
}

// Generator produces an ordered dataset of the given size. Implementations
// must return identical datasets for identical seeds.
type Generator func(size int, seed int64) []*Record

// DefaultRoles is the role list assigned to every generated record.
var DefaultRoles = []string{"user", "admin", "moderator"}

// Generate is the default Generator.
func Generate(size int, seed int64) []*Record {
	if size <= 0 {
		return []*Record{}
	}

	r := rand.New(rand.NewSource(seed))
	data := make([]*Record, size)
	for i := 0; i < size; i++ {
		data[i] = &Record{
			ID:      fmt.Sprintf("user_%d", i),
			Name:    fmt.Sprintf("User Name %d", i),
			Email:   fmt.Sprintf("user%d@example.com", i),
			Age:     int32(20 + r.Intn(50)),
			Active:  r.Float32() < 0.5,
			Roles:   slices.Clone(DefaultRoles),
			Balance: 1000.0 + r.Float64()*9000.0,
		}
	}
	return data
}

// Equal reports whether two records match in every field. A nil role list
// equals an empty one.
func Equal(a, b *Record) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID &&
		a.Name == b.Name &&
		a.Email == b.Email &&
		a.Age == b.Age &&
		a.Active == b.Active &&
		a.Balance == b.Balance &&
		slices.Equal(a.Roles, b.Roles)
}

// Sample returns the first n records, or all of them when n is out of range.
func Sample(records []*Record, n int) []*Record {
	if n <= 0 || n >= len(records) {
		return records
	}
	return records[:n]
}
