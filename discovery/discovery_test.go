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
package discovery_test

import (
	"testing"

	"bennypowers.dev/cem/discovery"
	"bennypowers.dev/cem/internal/platform"
	"github.com/stretchr/testify/require"
)

func TestDiscoverSources_FindsGeneratorsAndSkipsVendorDirs(t *testing.T) {
	fsys := platform.NewMapFileSystem(nil)
	require.NoError(t, fsys.WriteFile("/repo/packages/a/package.json.genie.yaml", []byte("x"), 0o644))
	require.NoError(t, fsys.WriteFile("/repo/packages/a/package.json", []byte("{}"), 0o644))
	require.NoError(t, fsys.WriteFile("/repo/packages/b/tsconfig.json.genie.yaml", []byte("x"), 0o644))
	require.NoError(t, fsys.WriteFile("/repo/node_modules/dep/package.json.genie.yaml", []byte("x"), 0o644))

	sources, err := discovery.DiscoverSources(fsys, "/repo")
	require.NoError(t, err)
	require.Equal(t, []string{
		"/repo/packages/a/package.json.genie.yaml",
		"/repo/packages/b/tsconfig.json.genie.yaml",
	}, sources)
}

func TestDiscoverSources_NoMatches(t *testing.T) {
	fsys := platform.NewMapFileSystem(nil)
	require.NoError(t, fsys.WriteFile("/repo/README.md", []byte("x"), 0o644))

	sources, err := discovery.DiscoverSources(fsys, "/repo")
	require.NoError(t, err)
	require.Empty(t, sources)
}

func TestCheckDuplicateTargets_NoDuplicates(t *testing.T) {
	err := discovery.CheckDuplicateTargets([]string{
		"/repo/a/package.json.genie.yaml",
		"/repo/b/package.json.genie.yaml",
	})
	require.NoError(t, err)
}

func TestCheckDuplicateTargets_ReportsCollisions(t *testing.T) {
	err := discovery.CheckDuplicateTargets([]string{
		"/repo/a/package.json.genie.yaml",
		"/repo/a/package.json.genie.yaml",
		"/repo/b/package.json.genie.yaml",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "/repo/a/package.json (2x)")
}
