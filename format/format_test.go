/*
Copyright © 2025 Benny Powers

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package format_test

import (
	"testing"

	"bennypowers.dev/cem/format"
	"bennypowers.dev/cem/internal/config"
	"bennypowers.dev/cem/internal/platform"
	"github.com/stretchr/testify/require"
)

func TestSupported(t *testing.T) {
	require.True(t, format.Supported("package.json"))
	require.True(t, format.Supported("values.yaml"))
	require.True(t, format.Supported("values.yml"))
	require.False(t, format.Supported("README.md"))
}

func TestFormat_UnsupportedExtensionPassesThrough(t *testing.T) {
	fsys := platform.NewMapFileSystem(nil)
	raw := []byte("# hello\n")
	out := format.Format(fsys, "/repo", "NOTES.md", raw, nil)
	require.Equal(t, raw, out)
}

func TestFormat_JSONReindentsInProcess(t *testing.T) {
	fsys := platform.NewMapFileSystem(nil)
	raw := []byte(`{"b":1,"a":2}`)
	out := format.Format(fsys, "/repo", "package.json", raw, nil)
	require.Equal(t, "{\n  \"b\": 1,\n  \"a\": 2\n}\n", string(out))
}

func TestFormat_YAMLReindentsInProcess(t *testing.T) {
	fsys := platform.NewMapFileSystem(nil)
	raw := []byte("a: 1\nb: 2\n")
	out := format.Format(fsys, "/repo", "values.yaml", raw, nil)
	require.Contains(t, string(out), "a: 1")
	require.Contains(t, string(out), "b: 2")
}

func TestFormat_FallsBackToExternalOnMalformedJSON(t *testing.T) {
	fsys := platform.NewMapFileSystem(nil)
	raw := []byte(`not valid json`)
	cfg := &config.FormatterConfig{Binary: "cat"}
	out := format.Format(fsys, "/repo", "package.json", raw, cfg)
	require.Equal(t, raw, out)
}

func TestFormat_ExternalFormatterFailureKeepsRawContent(t *testing.T) {
	fsys := platform.NewMapFileSystem(nil)
	raw := []byte(`not valid json`)
	cfg := &config.FormatterConfig{Binary: "genie-formatter-binary-that-does-not-exist"}
	out := format.Format(fsys, "/repo", "package.json", raw, cfg)
	require.Equal(t, raw, out)
}

func TestFormat_WithConventionConfigKeepsUnformattableContent(t *testing.T) {
	fsys := platform.NewMapFileSystem(nil)
	require.NoError(t, fsys.WriteFile("/repo/.oxfmtrc.json", []byte(`{}`), 0o644))
	raw := []byte(`not valid json`)
	cfg := &config.FormatterConfig{Binary: "cat"}
	out := format.Format(fsys, "/repo", "package.json", raw, cfg)
	require.Equal(t, raw, out)
}
