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
package orchestrator_test

import (
	"testing"

	"bennypowers.dev/cem/genie"
	"bennypowers.dev/cem/internal/platform"
	"bennypowers.dev/cem/orchestrator"
	"github.com/stretchr/testify/require"
)

func TestCheckAll_PassesWhenTargetIsUpToDate(t *testing.T) {
	fsys := platform.NewMapFileSystem(nil)
	require.NoError(t, fsys.WriteFile("/repo/config.json.genie.yaml", []byte(`
stringify:
  template: '{"a": 1}'
`), 0o644))
	_, err := orchestrator.GenerateAll(fsys, orchestrator.Options{Cwd: "/repo"})
	require.NoError(t, err)

	summary, err := orchestrator.CheckAll(fsys, orchestrator.Options{Cwd: "/repo"}, false)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Unchanged)
	require.Equal(t, 0, summary.Failed)
}

func TestCheckAll_FailsWhenTargetIsMissing(t *testing.T) {
	fsys := platform.NewMapFileSystem(nil)
	require.NoError(t, fsys.WriteFile("/repo/config.json.genie.yaml", []byte(`
stringify:
  template: '{"a": 1}'
`), 0o644))

	summary, err := orchestrator.CheckAll(fsys, orchestrator.Options{Cwd: "/repo"}, false)
	require.Error(t, err)
	require.Equal(t, 1, summary.Failed)
	require.Contains(t, summary.Files[0].Message, "Run 'genie' to generate it")
}

func TestCheckAll_FailsWhenTargetIsStale(t *testing.T) {
	fsys := platform.NewMapFileSystem(nil)
	require.NoError(t, fsys.WriteFile("/repo/config.json.genie.yaml", []byte(`
stringify:
  template: '{"a": 1}'
`), 0o644))
	require.NoError(t, fsys.WriteFile("/repo/config.json", []byte("stale"), 0o644))

	summary, err := orchestrator.CheckAll(fsys, orchestrator.Options{Cwd: "/repo"}, false)
	require.Error(t, err)
	require.Equal(t, 1, summary.Failed)
	require.Contains(t, summary.Files[0].Message, "out of date")
}

func TestCheckAll_FatalImportErrorCancelsSiblingChecks(t *testing.T) {
	fsys := platform.NewMapFileSystem(nil)
	require.NoError(t, fsys.WriteFile("/repo/bad.genie.yaml", []byte("no stringify block here"), 0o644))
	require.NoError(t, fsys.WriteFile("/repo/slow.genie.yaml", []byte(`
stringify:
  template: '{"b": 1}'
`), 0o644))
	require.NoError(t, fsys.WriteFile("/repo/slow", []byte(`{"b": 1}`), 0o644))

	summary, err := orchestrator.CheckAll(fsys, orchestrator.Options{Cwd: "/repo"}, false)
	require.Error(t, err)
	var failedErr *genie.GenerationFailedError
	require.ErrorAs(t, err, &failedErr)
	require.Contains(t, failedErr.Message, "Fatal check error in")
	require.GreaterOrEqual(t, summary.Failed, 1)
}

func TestCheckAll_RunsValidationAfterAllChecksPass(t *testing.T) {
	fsys := platform.NewMapFileSystem(nil)
	require.NoError(t, fsys.WriteFile("/repo/core/package.json", []byte(`{
		"name": "core",
		"peerDependencies": {"react": "^18"}
	}`), 0o644))
	require.NoError(t, fsys.WriteFile("/repo/widgets/package.json", []byte(`{
		"name": "widgets",
		"dependencies": {"core": "workspace:*"}
	}`), 0o644))
	require.NoError(t, fsys.WriteFile("/repo/config.json.genie.yaml", []byte(`
stringify:
  template: '{"a": 1}'
`), 0o644))
	_, err := orchestrator.GenerateAll(fsys, orchestrator.Options{Cwd: "/repo"})
	require.NoError(t, err)

	_, err = orchestrator.CheckAll(fsys, orchestrator.Options{Cwd: "/repo"}, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "validation failed")
}

func TestCheckAll_RequirePackageJsonValidateFailsUnhookedTarget(t *testing.T) {
	fsys := platform.NewMapFileSystem(nil)
	require.NoError(t, fsys.WriteFile("/repo/package.json.genie.yaml", []byte(`
stringify:
  template: '{"name": "widget"}'
`), 0o644))
	_, err := orchestrator.GenerateAll(fsys, orchestrator.Options{Cwd: "/repo"})
	require.NoError(t, err)

	_, err = orchestrator.CheckAll(fsys, orchestrator.Options{Cwd: "/repo"}, true)
	require.Error(t, err)
	require.Contains(t, err.Error(), "validation failed")
}
