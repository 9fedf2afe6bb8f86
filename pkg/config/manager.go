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

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Layer represents a configuration layer in the hierarchy.
//
// Precedence (low → high): Defaults < Base < EnvironmentFile < OverrideFile < EnvironmentVariables < Explicit
type Layer int

const (
	// DefaultsLayer holds hard-coded default values set via SetDefault.
	DefaultsLayer Layer = iota
	// BaseLayer is the base configuration file (serbench.yaml).
	BaseLayer
	// EnvironmentFileLayer is the environment-specific file (e.g., serbench.ci.yaml).
	EnvironmentFileLayer
	// OverrideFileLayer is a local override file (serbench.override.yaml).
	OverrideFileLayer
	// EnvironmentVariablesLayer represents SERBENCH_* environment variables.
	EnvironmentVariablesLayer
	// ExplicitLayer holds values set with Set, typically command-line flags.
	ExplicitLayer
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case DefaultsLayer:
		return "defaults"
	case BaseLayer:
		return "base"
	case EnvironmentFileLayer:
		return "environment-file"
	case OverrideFileLayer:
		return "override-file"
	case EnvironmentVariablesLayer:
		return "environment-variables"
	case ExplicitLayer:
		return "explicit"
	default:
		return "unknown"
	}
}

// Options configures the Manager.
type Options struct {
	// WorkDir is the directory configuration files are resolved against.
	WorkDir string

	// ConfigBaseName is the configuration file name without extension (default: "serbench").
	ConfigBaseName string

	// ConfigType is the configuration file type (yaml|yml|json). Default: "yaml".
	ConfigType string

	// EnvironmentName selects the environment file suffix, e.g., "ci" → serbench.ci.yaml.
	EnvironmentName string

	// OverrideFilename is the optional override file name. Default: "serbench.override.yaml".
	OverrideFilename string

	// EnvPrefix is the prefix for environment variables (e.g., "SERBENCH").
	EnvPrefix string

	// EnableAutomaticEnv enables automatic env var binding with dot→underscore mapping.
	EnableAutomaticEnv bool
}

// DefaultOptions returns the options used by the serbench command.
func DefaultOptions() Options {
	return Options{
		WorkDir:            ".",
		ConfigBaseName:     "serbench",
		ConfigType:         "yaml",
		EnvironmentName:    "",
		OverrideFilename:   "serbench.override.yaml",
		EnvPrefix:          "SERBENCH",
		EnableAutomaticEnv: true,
	}
}

// Manager provides hierarchical configuration loading, merging and access.
type Manager struct {
	mu      sync.RWMutex
	v       *viper.Viper
	options Options
	loaded  []string
}

// NewManager creates a new Manager with the given options.
func NewManager(options Options) *Manager {
	v := viper.New()
	if options.ConfigType == "" {
		options.ConfigType = "yaml"
	}
	if options.ConfigBaseName == "" {
		options.ConfigBaseName = "serbench"
	}
	if options.WorkDir == "" {
		options.WorkDir = "."
	}

	if options.EnableAutomaticEnv {
		if options.EnvPrefix != "" {
			v.SetEnvPrefix(options.EnvPrefix)
		}
		v.AutomaticEnv()
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	}

	return &Manager{v: v, options: options}
}

// Options returns the options the manager was created with, after defaults
// were applied.
func (m *Manager) Options() Options {
	return m.options
}

// SetDefault sets a default value for the given key.
func (m *Manager) SetDefault(key string, value interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.v.SetDefault(key, value)
}

// Set assigns a value in the explicit layer, above environment variables.
func (m *Manager) Set(key string, value interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.v.Set(key, value)
}

// Load merges the file layers in precedence order. Missing files are
// ignored; environment variables apply automatically on read.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loaded = m.loaded[:0]
	for _, layer := range []Layer{BaseLayer, EnvironmentFileLayer, OverrideFileLayer} {
		if layer == EnvironmentFileLayer && m.options.EnvironmentName == "" {
			continue
		}
		path := m.filePathFor(layer)
		ok, err := m.mergeFileIfExists(path)
		if err != nil {
			return fmt.Errorf("load %s config: %w", layer, err)
		}
		if ok {
			m.loaded = append(m.loaded, path)
		}
	}
	return nil
}

// LoadedFiles returns the configuration files merged by the last Load, in
// merge order.
func (m *Manager) LoadedFiles() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.loaded...)
}

// Unmarshal binds all merged settings into the given struct pointer.
func (m *Manager) Unmarshal(target interface{}) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if target == nil {
		return errors.New("target must not be nil")
	}
	return m.v.Unmarshal(target)
}

// Get returns a value by key from merged configuration.
func (m *Manager) Get(key string) interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.Get(key)
}

// AllSettings returns a copy of all merged settings as a map.
func (m *Manager) AllSettings() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.AllSettings()
}

// MergeConfigMap merges settings with file precedence. Later file merges and
// environment variables can still override these values.
func (m *Manager) MergeConfigMap(settings map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.v.MergeConfigMap(settings)
}

// filePathFor returns the file path for a given layer.
func (m *Manager) filePathFor(layer Layer) string {
	dir := m.options.WorkDir
	base := m.options.ConfigBaseName
	switch layer {
	case BaseLayer:
		return filepath.Join(dir, fmt.Sprintf("%s.%s", base, m.normalizedConfigExt()))
	case EnvironmentFileLayer:
		env := m.options.EnvironmentName
		return filepath.Join(dir, fmt.Sprintf("%s.%s.%s", base, strings.ToLower(env), m.normalizedConfigExt()))
	case OverrideFileLayer:
		name := m.options.OverrideFilename
		if name == "" {
			name = fmt.Sprintf("%s.override.%s", base, m.normalizedConfigExt())
		}
		return filepath.Join(dir, name)
	default:
		return ""
	}
}

func (m *Manager) normalizedConfigExt() string {
	t := strings.ToLower(m.options.ConfigType)
	switch t {
	case "yml":
		return "yaml"
	case "yaml", "json":
		return t
	default:
		return "yaml"
	}
}

// mergeFileIfExists merges a configuration file if it exists and reports
// whether it did.
func (m *Manager) mergeFileIfExists(path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}

	// Parse into a temporary viper so a malformed file leaves settings untouched.
	tmp := viper.New()
	tmp.SetConfigType(m.normalizedConfigExt())
	if err := tmp.ReadConfig(bytes.NewReader(content)); err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, m.v.MergeConfigMap(tmp.AllSettings())
}
