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

// Package workspace implements C1 (repo-root location) and C3 (workspace
// provider discovery), adapted from the teacher's workspace/discovery.go
// ancestor-walk and manifest-enumeration idioms.
package workspace

import (
	"path/filepath"
	"strings"
	"sync"

	"bennypowers.dev/cem/internal/platform"
)

// rootMarkers are the directory entries that mark a repo root, checked in
// the order spec.md §4.1 names them.
var rootMarkers = []string{"megarepo.json", ".git"}

type rootCacheKey struct {
	cwd      string
	startDir string
}

var (
	rootCacheMu sync.Mutex
	rootCache   = map[rootCacheKey]string{}
)

// FindRepoRoot walks ancestors of startDir looking for the first directory
// containing a megarepo.json or .git entry. Falls back to cwd if none is
// found. Results are memoized per (cwd, startDir) for the process lifetime.
func FindRepoRoot(fsys platform.FileSystem, cwd, startDir string) string {
	key := rootCacheKey{cwd: cwd, startDir: startDir}

	rootCacheMu.Lock()
	if cached, ok := rootCache[key]; ok {
		rootCacheMu.Unlock()
		return cached
	}
	rootCacheMu.Unlock()

	root := cwd
	dir := startDir
	for {
		for _, marker := range rootMarkers {
			if fsys.Exists(filepath.Join(dir, marker)) {
				root = dir
				goto found
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
found:

	rootCacheMu.Lock()
	rootCache[key] = root
	rootCacheMu.Unlock()
	return root
}

// ResetRootCache clears the memoized repo-root results. Exists for tests
// that exercise FindRepoRoot against different fixtures within one process.
func ResetRootCache() {
	rootCacheMu.Lock()
	defer rootCacheMu.Unlock()
	rootCache = map[rootCacheKey]string{}
}

// ComputeLocation derives ctx.location: the target's package-relative path
// under repoRoot, forward-slash normalized, "." for the repo root itself.
func ComputeLocation(sourcePath, repoRoot string) string {
	target := strings.TrimSuffix(sourcePath, ".genie.yaml")
	dir := filepath.Dir(target)

	rel, err := filepath.Rel(repoRoot, dir)
	if err != nil {
		rel = dir
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == "" {
		return "."
	}
	return rel
}
