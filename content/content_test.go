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
package content_test

import (
	"testing"

	"bennypowers.dev/cem/content"
	"bennypowers.dev/cem/internal/platform"
	"bennypowers.dev/cem/loader"
	"github.com/stretchr/testify/require"
)

func TestBuild_TsconfigGetsCommentPrologue(t *testing.T) {
	fsys := platform.NewMapFileSystem(nil)
	require.NoError(t, fsys.WriteFile("/repo/tsconfig.json.genie.yaml", []byte(`
stringify:
  template: '{"compilerOptions": {}}'
`), 0o644))

	expected, err := content.Build(fsys, "/repo/tsconfig.json.genie.yaml", loader.Options{Cwd: "/repo", RepoRoot: "/repo"}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "/repo/tsconfig.json", expected.TargetPath)
	require.Contains(t, string(expected.Bytes), "// Generated file - DO NOT EDIT")
	require.Contains(t, string(expected.Bytes), "tsconfig.json.genie.yaml")
}

func TestBuild_PlainJSONGetsNoPrologue(t *testing.T) {
	fsys := platform.NewMapFileSystem(nil)
	require.NoError(t, fsys.WriteFile("/repo/config.json.genie.yaml", []byte(`
stringify:
  template: '{"a": 1}'
`), 0o644))

	expected, err := content.Build(fsys, "/repo/config.json.genie.yaml", loader.Options{Cwd: "/repo", RepoRoot: "/repo"}, nil, nil)
	require.NoError(t, err)
	require.NotContains(t, string(expected.Bytes), "Generated file")
}

func TestBuild_YAMLGetsHashPrologue(t *testing.T) {
	fsys := platform.NewMapFileSystem(nil)
	require.NoError(t, fsys.WriteFile("/repo/values.yaml.genie.yaml", []byte(`
stringify:
  template: "a: 1"
`), 0o644))

	expected, err := content.Build(fsys, "/repo/values.yaml.genie.yaml", loader.Options{Cwd: "/repo", RepoRoot: "/repo"}, nil, nil)
	require.NoError(t, err)
	require.True(t, len(expected.Bytes) > 0)
	require.Contains(t, string(expected.Bytes), "# Generated file - DO NOT EDIT")
}

func TestBuild_PackageJSONEnrichesExistingGenieMarker(t *testing.T) {
	fsys := platform.NewMapFileSystem(nil)
	require.NoError(t, fsys.WriteFile("/repo/packages/widget/package.json.genie.yaml", []byte(`
stringify:
  template: '{"name": "widget", "$genie": "placeholder"}'
`), 0o644))

	expected, err := content.Build(fsys, "/repo/packages/widget/package.json.genie.yaml", loader.Options{Cwd: "/repo", RepoRoot: "/repo"}, nil, nil)
	require.NoError(t, err)
	require.Contains(t, string(expected.Bytes), "DO NOT EDIT - changes will be overwritten")
	require.Contains(t, string(expected.Bytes), "package.json.genie.yaml")
}

func TestBuild_PackageJSONWithoutMarkerIsUntouched(t *testing.T) {
	fsys := platform.NewMapFileSystem(nil)
	require.NoError(t, fsys.WriteFile("/repo/packages/widget/package.json.genie.yaml", []byte(`
stringify:
  template: '{"name": "widget"}'
`), 0o644))

	expected, err := content.Build(fsys, "/repo/packages/widget/package.json.genie.yaml", loader.Options{Cwd: "/repo", RepoRoot: "/repo"}, nil, nil)
	require.NoError(t, err)
	require.NotContains(t, string(expected.Bytes), "$genie")
}

func TestBuild_UsesPreloadedGeneratorWithoutReloading(t *testing.T) {
	fsys := platform.NewMapFileSystem(nil)
	require.NoError(t, fsys.WriteFile("/repo/config.json.genie.yaml", []byte(`
stringify:
  template: '{"a": 1}'
`), 0o644))

	opts := loader.Options{Cwd: "/repo", RepoRoot: "/repo"}
	lg, err := loader.Load(fsys, "/repo/config.json.genie.yaml", opts)
	require.NoError(t, err)

	require.NoError(t, fsys.Remove("/repo/config.json.genie.yaml"))

	expected, err := content.Build(fsys, "/repo/config.json.genie.yaml", opts, nil, lg)
	require.NoError(t, err)
	require.Contains(t, string(expected.Bytes), `"a": 1`)
}
