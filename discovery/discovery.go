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

// Package discovery implements C2: enumerating generator sources under a
// working directory and preflight-checking for duplicate targets, adapted
// from the teacher's workspace/discovery.go skip-set idiom.
package discovery

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"bennypowers.dev/cem/genie"
	"bennypowers.dev/cem/internal/platform"
	"bennypowers.dev/cem/workspace"
)

// DiscoverSources recursively enumerates cwd, returning every regular file
// ending in genie.GeneratorSourceSuffix. Directories named in
// workspace.SkipDirs are skipped. Result order is not part of the
// contract, but is returned sorted for deterministic test output.
func DiscoverSources(fsys platform.FileSystem, cwd string) ([]string, error) {
	var sources []string

	var walk func(dir string) error
	walk = func(dir string) error {
		entries, err := fsys.ReadDir(dir)
		if err != nil {
			return &genie.PlatformError{Op: "read directory " + dir, Cause: err}
		}
		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())
			if entry.IsDir() {
				if workspace.SkipDirs[entry.Name()] {
					continue
				}
				if err := walk(path); err != nil {
					return err
				}
				continue
			}
			if strings.HasSuffix(entry.Name(), genie.GeneratorSourceSuffix) {
				sources = append(sources, path)
			}
		}
		return nil
	}

	if err := walk(cwd); err != nil {
		return nil, err
	}
	sort.Strings(sources)
	return sources, nil
}

// CheckDuplicateTargets implements the invariant-1 preflight: it is an
// error for two sources to map to the same TargetPath. The returned error
// lists each duplicated target with its occurrence count, per spec.md §4.2.
func CheckDuplicateTargets(sources []string) error {
	counts := map[string]int{}
	for _, src := range sources {
		counts[genie.TargetPath(src)]++
	}

	var dups []string
	for target, count := range counts {
		if count > 1 {
			dups = append(dups, fmt.Sprintf("%s (%dx)", target, count))
		}
	}
	if len(dups) == 0 {
		return nil
	}
	sort.Strings(dups)
	return fmt.Errorf("duplicate generator targets: %s", strings.Join(dups, ", "))
}
