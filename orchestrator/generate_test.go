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
	"sync"
	"testing"

	"bennypowers.dev/cem/genie"
	"bennypowers.dev/cem/internal/platform"
	"bennypowers.dev/cem/orchestrator"
	"github.com/stretchr/testify/require"
)

// recordingBus captures every event for assertions, guarded by a mutex since
// GenerateAll/CheckAll fan work out across goroutines.
type recordingBus struct {
	mu         sync.Mutex
	discovered []string
	started    []string
	completed  []string
	summary    genie.RunSummary
	errors     []string
}

func (b *recordingBus) FilesDiscovered(sources []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.discovered = append(b.discovered, sources...)
}
func (b *recordingBus) FileStarted(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.started = append(b.started, path)
}
func (b *recordingBus) FileCompleted(path string, status genie.Status, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.completed = append(b.completed, path)
}
func (b *recordingBus) Complete(summary genie.RunSummary) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.summary = summary
}
func (b *recordingBus) Error(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errors = append(b.errors, message)
}

func TestGenerateAll_CreatesNewTarget(t *testing.T) {
	fsys := platform.NewMapFileSystem(nil)
	require.NoError(t, fsys.WriteFile("/repo/package.json.genie.yaml", []byte(`
stringify:
  template: '{"name": "widget"}'
`), 0o644))

	bus := &recordingBus{}
	summary, err := orchestrator.GenerateAll(fsys, orchestrator.Options{Cwd: "/repo", Bus: bus})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Created)

	data, err := fsys.ReadFile("/repo/package.json")
	require.NoError(t, err)
	require.Contains(t, string(data), "widget")

	require.Equal(t, []string{"/repo/package.json.genie.yaml"}, bus.discovered)
	require.Len(t, bus.completed, 1)
}

func TestGenerateAll_UnchangedWhenContentMatches(t *testing.T) {
	fsys := platform.NewMapFileSystem(nil)
	require.NoError(t, fsys.WriteFile("/repo/config.json.genie.yaml", []byte(`
stringify:
  template: '{"a": 1}'
`), 0o644))

	_, err := orchestrator.GenerateAll(fsys, orchestrator.Options{Cwd: "/repo"})
	require.NoError(t, err)

	summary, err := orchestrator.GenerateAll(fsys, orchestrator.Options{Cwd: "/repo"})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Unchanged)
	require.Equal(t, 0, summary.Created)
}

func TestGenerateAll_DryRunDoesNotWrite(t *testing.T) {
	fsys := platform.NewMapFileSystem(nil)
	require.NoError(t, fsys.WriteFile("/repo/config.json.genie.yaml", []byte(`
stringify:
  template: '{"a": 1}'
`), 0o644))

	summary, err := orchestrator.GenerateAll(fsys, orchestrator.Options{Cwd: "/repo", DryRun: true})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Created)
	require.False(t, fsys.Exists("/repo/config.json"))
}

func TestGenerateAll_GeneratesEveryDiscoveredSourceConcurrently(t *testing.T) {
	fsys := platform.NewMapFileSystem(nil)
	for _, pkg := range []string{"a", "b", "c"} {
		require.NoError(t, fsys.WriteFile("/repo/packages/"+pkg+"/package.json.genie.yaml", []byte(`
stringify:
  template: '{"name": "`+pkg+`"}'
`), 0o644))
	}

	summary, err := orchestrator.GenerateAll(fsys, orchestrator.Options{Cwd: "/repo"})
	require.NoError(t, err)
	require.Equal(t, 3, summary.Created)
	require.Len(t, summary.Files, 3)
}

func TestGenerateAll_ReadOnlyChmodsUnchangedTarget(t *testing.T) {
	fsys := platform.NewMapFileSystem(nil)
	require.NoError(t, fsys.WriteFile("/repo/config.json.genie.yaml", []byte(`
stringify:
  template: '{"a": 1}'
`), 0o644))

	_, err := orchestrator.GenerateAll(fsys, orchestrator.Options{Cwd: "/repo"})
	require.NoError(t, err)

	summary, err := orchestrator.GenerateAll(fsys, orchestrator.Options{Cwd: "/repo", ReadOnly: true})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Unchanged)

	info, err := fsys.Stat("/repo/config.json")
	require.NoError(t, err)
	require.Equal(t, 0o444, int(info.Mode().Perm()))
}

func TestGenerateAll_ReportsFailureSummary(t *testing.T) {
	fsys := platform.NewMapFileSystem(nil)
	require.NoError(t, fsys.WriteFile("/repo/bad.genie.yaml", []byte("no stringify here"), 0o644))

	summary, err := orchestrator.GenerateAll(fsys, orchestrator.Options{Cwd: "/repo"})
	require.Error(t, err)
	require.Equal(t, 1, summary.Failed)
	var failedErr *genie.GenerationFailedError
	require.ErrorAs(t, err, &failedErr)
}
