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

package codec

import (
	"fmt"
	"strings"
	"sync"
)

// Registry holds codecs in registration order. Results are reported in the
// same order, so the order is part of the contract.
type Registry struct {
	codecs map[Format]Codec
	order  []Format
	mutex  sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		codecs: make(map[Format]Codec),
		order:  make([]Format, 0),
	}
}

// Register adds a codec. Registering the same format twice is an error.
func (r *Registry) Register(c Codec) error {
	if c == nil {
		return &RegistrationError{Message: "codec cannot be nil"}
	}

	format := c.Format()
	if format == "" {
		return &RegistrationError{Message: "format cannot be empty"}
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.codecs[format]; exists {
		return &RegistrationError{
			Format:  format,
			Message: fmt.Sprintf("codec for format '%s' already registered", format),
		}
	}

	r.codecs[format] = c
	r.order = append(r.order, format)
	return nil
}

// Get returns the codec registered for format.
func (r *Registry) Get(format Format) (Codec, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	c, exists := r.codecs[format]
	if !exists {
		return nil, &RegistrationError{
			Format:  format,
			Message: fmt.Sprintf("no codec registered for format '%s'", format),
		}
	}
	return c, nil
}

// Formats returns the registered formats in registration order.
func (r *Registry) Formats() []Format {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	formats := make([]Format, len(r.order))
	copy(formats, r.order)
	return formats
}

// Codecs returns every registered codec in registration order.
func (r *Registry) Codecs() []Codec {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	codecs := make([]Codec, 0, len(r.order))
	for _, f := range r.order {
		codecs = append(codecs, r.codecs[f])
	}
	return codecs
}

// Select returns the codecs named in names, in the order given. An empty
// selection returns every codec in registration order.
func (r *Registry) Select(names []string) ([]Codec, error) {
	if len(names) == 0 {
		return r.Codecs(), nil
	}

	seen := make(map[Format]bool, len(names))
	selected := make([]Codec, 0, len(names))
	for _, name := range names {
		format := Format(strings.ToLower(strings.TrimSpace(name)))
		if format == "" || seen[format] {
			continue
		}
		c, err := r.Get(format)
		if err != nil {
			return nil, err
		}
		seen[format] = true
		selected = append(selected, c)
	}
	return selected, nil
}

// NewDefaultRegistry registers the builtin codecs: the four reference formats
// first, then Avro, CBOR and Snappy-compressed JSON.
func NewDefaultRegistry() (*Registry, error) {
	protobuf, err := NewProtobuf()
	if err != nil {
		return nil, err
	}
	avro, err := NewAvro()
	if err != nil {
		return nil, err
	}
	cbor, err := NewCBOR()
	if err != nil {
		return nil, err
	}

	registry := NewRegistry()
	for _, c := range []Codec{
		NewJSON(),
		NewXML(),
		protobuf,
		NewFlatBuffers(),
		avro,
		cbor,
		NewSnappy(FormatJSONSnappy, NewJSON()),
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// DefaultFormats is the selection benchmarked when none is configured.
func DefaultFormats() []Format {
	return []Format{FormatJSON, FormatXML, FormatProtobuf, FormatFlatBuffers, FormatAvro, FormatCBOR}
}

// RegistrationError reports a failed registration or lookup.
type RegistrationError struct {
	Format  Format `json:"format,omitempty"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

// Error implements the error interface.
func (e *RegistrationError) Error() string {
	if e.Format != "" {
		return fmt.Sprintf("registration error for format '%s': %s", e.Format, e.Message)
	}
	return fmt.Sprintf("registration error: %s", e.Message)
}

// Unwrap returns the underlying cause of the registration error.
func (e *RegistrationError) Unwrap() error {
	return e.Cause
}
