/*
Copyright © 2025 Benny Powers <web@bennypowers.com>

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
package cmd

import (
	"path/filepath"
	"time"

	"bennypowers.dev/cem/discovery"
	"bennypowers.dev/cem/internal/logging"
	"bennypowers.dev/cem/internal/platform"
	"bennypowers.dev/cem/orchestrator"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// watchDebounce coalesces a burst of filesystem events (an editor's
// save-then-touch sequence, a formatter rewriting its own output) into a
// single regeneration pass.
const watchDebounce = 200 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate targets whenever a .genie.yaml source changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		fsys := platform.NewOSFileSystem()

		watcher, err := platform.NewFSNotifyFileWatcher()
		if err != nil {
			return err
		}
		defer watcher.Close()

		if err := addWatchedDirs(fsys, watcher, cfg.ProjectDir); err != nil {
			return err
		}

		runOnce := func() {
			_, err := orchestrator.GenerateAll(fsys, orchestrator.Options{
				Cwd:               cfg.ProjectDir,
				FormatterConfig:   &cfg.Formatter,
				WorkspaceProvider: cfg.WorkspaceProvider,
				Bus:               newPtermBus(),
			})
			if err != nil {
				logging.Error("%s", err.Error())
			}
		}

		pterm.Info.Println("Watching for .genie.yaml changes. Press Ctrl-C to stop.")
		runOnce()

		var debounce *time.Timer
		for {
			select {
			case event, ok := <-watcher.Events():
				if !ok {
					return nil
				}
				if !isRelevantWatchEvent(event) {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(watchDebounce, runOnce)
			case err, ok := <-watcher.Errors():
				if !ok {
					return nil
				}
				logging.Warning("watch error: %s", err.Error())
			}
		}
	},
}

func isRelevantWatchEvent(event platform.FileWatchEvent) bool {
	return event.Op&(platform.Create|platform.Write|platform.Remove|platform.Rename) != 0
}

// addWatchedDirs registers cwd and every directory that already holds a
// discovered source. Other directories under cwd are not watched.
func addWatchedDirs(fsys platform.FileSystem, watcher *platform.FSNotifyFileWatcher, cwd string) error {
	sources, err := discovery.DiscoverSources(fsys, cwd)
	if err != nil {
		return err
	}
	seen := map[string]bool{cwd: true}
	_ = watcher.Add(cwd)
	for _, source := range sources {
		dir := filepath.Dir(source)
		if seen[dir] {
			continue
		}
		seen[dir] = true
		_ = watcher.Add(dir)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
