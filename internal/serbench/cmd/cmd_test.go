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

package cmd

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innovationmech/serbench/internal/serbench/cmd/version"
)

func TestNewRootSerbenchCommand(t *testing.T) {
	execute := func(cmd *cobra.Command, args ...string) (string, error) {
		stdout := new(bytes.Buffer)
		cmd.SetOut(stdout)
		cmd.SetErr(new(bytes.Buffer))
		cmd.SetArgs(args)
		err := cmd.Execute()
		return stdout.String(), err
	}

	t.Run("root command properties", func(t *testing.T) {
		cmd := NewRootSerbenchCommand()
		assert.Equal(t, "serbench", cmd.Use)
		assert.Equal(t, version.Version, cmd.Version)
		assert.False(t, cmd.HasParent())
	})

	t.Run("subcommands", func(t *testing.T) {
		cmd := NewRootSerbenchCommand()
		names := make([]string, 0, len(cmd.Commands()))
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
			assert.Equal(t, cmd, sub.Parent())
		}
		assert.ElementsMatch(t, []string{"run", "formats", "version"}, names)
	})

	t.Run("version subcommand", func(t *testing.T) {
		out, err := execute(NewRootSerbenchCommand(), "version")
		require.NoError(t, err)
		assert.Equal(t, "serbench version "+version.Version+"\n", out)
	})

	t.Run("version flag", func(t *testing.T) {
		out, err := execute(NewRootSerbenchCommand(), "--version")
		require.NoError(t, err)
		assert.Contains(t, out, version.Version)
	})

	t.Run("help", func(t *testing.T) {
		out, err := execute(NewRootSerbenchCommand(), "--help")
		require.NoError(t, err)
		assert.Contains(t, out, "run")
		assert.Contains(t, out, "formats")
	})

	t.Run("unknown subcommand", func(t *testing.T) {
		_, err := execute(NewRootSerbenchCommand(), "invalid-cmd")
		assert.Error(t, err)
	})
}
