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
package workspace

import (
	"path/filepath"
	"strings"

	"bennypowers.dev/cem/internal/platform"
	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// PnpmProvider implements Provider by parsing each pnpm-workspace.yaml's
// packages: list into glob patterns and enumerating directories containing
// package.json, per spec.md §4.3.
type PnpmProvider struct{}

type pnpmWorkspaceFile struct {
	Packages []string `yaml:"packages"`
}

func (PnpmProvider) DiscoverPackageManifests(fsys platform.FileSystem, cwd string) ([]string, error) {
	var manifests []string

	err := walkSkippingVendor(fsys, cwd, func(path string, isDir bool) error {
		if isDir || filepath.Base(path) != "pnpm-workspace.yaml" {
			return nil
		}
		data, err := fsys.ReadFile(path)
		if err != nil {
			return nil
		}
		var wf pnpmWorkspaceFile
		if err := yaml.Unmarshal(data, &wf); err != nil {
			return nil
		}

		workspaceDir := filepath.Dir(path)
		found, err := manifestsMatchingPatterns(fsys, workspaceDir, wf.Packages)
		if err != nil {
			return nil
		}
		manifests = append(manifests, found...)
		return nil
	})
	if err != nil && err != errStopWalk {
		return nil, err
	}
	return manifests, nil
}

// manifestsMatchingPatterns enumerates every directory under workspaceDir
// containing a package.json (applying the C2/C3 skip-set), and keeps only
// those whose workspaceDir-relative path matches at least one include
// pattern and no exclude pattern. Patterns prefixed with "!" are excludes.
func manifestsMatchingPatterns(fsys platform.FileSystem, workspaceDir string, patterns []string) ([]string, error) {
	var includes, excludes []string
	for _, p := range patterns {
		if strings.HasPrefix(p, "!") {
			excludes = append(excludes, strings.TrimPrefix(p, "!"))
		} else {
			includes = append(includes, p)
		}
	}

	var manifests []string
	err := walkSkippingVendor(fsys, workspaceDir, func(path string, isDir bool) error {
		if isDir || filepath.Base(path) != "package.json" {
			return nil
		}
		dir := filepath.Dir(path)
		rel, err := filepath.Rel(workspaceDir, dir)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if !matchesAny(rel, includes) {
			return nil
		}
		if matchesAny(rel, excludes) {
			return nil
		}
		manifests = append(manifests, path)
		return nil
	})
	return manifests, err
}

func matchesAny(rel string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
		// A bare directory pattern like "packages/*" should also match
		// its own directory for manifests nested directly inside it,
		// which doublestar.Match already handles; this loop exists so
		// a single rel can satisfy any of several patterns.
	}
	return false
}
