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

package codec_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innovationmech/serbench/pkg/codec"
	"github.com/innovationmech/serbench/pkg/codec/codectest"
)

func TestRegistryRegister(t *testing.T) {
	tests := []struct {
		name    string
		codecs  []codec.Codec
		wantErr string
	}{
		{
			name:   "distinct formats",
			codecs: []codec.Codec{codec.NewJSON(), codec.NewXML()},
		},
		{
			name:    "nil codec",
			codecs:  []codec.Codec{nil},
			wantErr: "codec cannot be nil",
		},
		{
			name:    "empty format",
			codecs:  []codec.Codec{&codectest.Failing{}},
			wantErr: "format cannot be empty",
		},
		{
			name:    "duplicate format",
			codecs:  []codec.Codec{codec.NewJSON(), codec.NewJSON()},
			wantErr: "already registered",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := codec.NewRegistry()
			var err error
			for _, c := range tt.codecs {
				if err = registry.Register(c); err != nil {
					break
				}
			}
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			var regErr *codec.RegistrationError
			assert.True(t, errors.As(err, &regErr))
		})
	}
}

func TestRegistryOrder(t *testing.T) {
	registry, err := codec.NewDefaultRegistry()
	require.NoError(t, err)

	assert.Equal(t, []codec.Format{
		codec.FormatJSON,
		codec.FormatXML,
		codec.FormatProtobuf,
		codec.FormatFlatBuffers,
		codec.FormatAvro,
		codec.FormatCBOR,
		codec.FormatJSONSnappy,
	}, registry.Formats())

	for i, c := range registry.Codecs() {
		assert.Equal(t, registry.Formats()[i], c.Format())
	}
}

func TestRegistryGet(t *testing.T) {
	registry, err := codec.NewDefaultRegistry()
	require.NoError(t, err)

	c, err := registry.Get(codec.FormatCBOR)
	require.NoError(t, err)
	assert.Equal(t, codec.FormatCBOR, c.Format())

	_, err = registry.Get("yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no codec registered for format 'yaml'")
}

func TestRegistrySelect(t *testing.T) {
	registry, err := codec.NewDefaultRegistry()
	require.NoError(t, err)

	tests := []struct {
		name    string
		names   []string
		want    []codec.Format
		wantErr bool
	}{
		{
			name:  "empty selects all",
			names: nil,
			want:  registry.Formats(),
		},
		{
			name:  "keeps requested order",
			names: []string{"cbor", "json", "protobuf"},
			want:  []codec.Format{codec.FormatCBOR, codec.FormatJSON, codec.FormatProtobuf},
		},
		{
			name:  "normalizes and deduplicates",
			names: []string{" JSON ", "json", "", "Avro"},
			want:  []codec.Format{codec.FormatJSON, codec.FormatAvro},
		},
		{
			name:    "unknown format",
			names:   []string{"json", "thrift"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			selected, err := registry.Select(tt.names)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			got := make([]codec.Format, len(selected))
			for i, c := range selected {
				got[i] = c.Format()
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultFormatsAreRegistered(t *testing.T) {
	registry, err := codec.NewDefaultRegistry()
	require.NoError(t, err)

	for _, f := range codec.DefaultFormats() {
		_, err := registry.Get(f)
		assert.NoError(t, err, f.String())
	}
}
