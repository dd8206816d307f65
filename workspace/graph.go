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
	"encoding/json"
	"path/filepath"

	"bennypowers.dev/cem/internal/platform"
)

// PeerMeta mirrors an npm peerDependenciesMeta entry.
type PeerMeta struct {
	Optional bool `json:"optional"`
}

// PackageInfo is the spec's PackageInfo entity: a workspace package's
// manifest, with Path always repo-relative and forward-slash normalized.
type PackageInfo struct {
	Name                 string
	Path                 string
	Dependencies         map[string]string
	DevDependencies      map[string]string
	OptionalDependencies map[string]string
	PeerDependencies     map[string]string
	PeerDependenciesMeta map[string]PeerMeta
	PatchedDependencies  map[string]string
	Private              bool
}

// WorkspaceGraph is the spec's WorkspaceGraph entity.
type WorkspaceGraph struct {
	Packages []PackageInfo
	ByName   map[string]PackageInfo
}

// manifestJSON is the subset of package.json fields the workspace graph
// cares about.
type manifestJSON struct {
	Name                 string                 `json:"name"`
	Private              bool                   `json:"private"`
	Dependencies         map[string]string      `json:"dependencies"`
	DevDependencies      map[string]string      `json:"devDependencies"`
	OptionalDependencies map[string]string      `json:"optionalDependencies"`
	PeerDependencies     map[string]string      `json:"peerDependencies"`
	PeerDependenciesMeta map[string]PeerMeta    `json:"peerDependenciesMeta"`
	PatchedDependencies  map[string]string      `json:"patchedDependencies"`
}

// BuildGraph reads each manifest path (absolute) as JSON and assembles a
// WorkspaceGraph. Manifests without a "name" field are skipped, per
// spec.md §4.12 step 2.
func BuildGraph(fsys platform.FileSystem, repoRoot string, manifestPaths []string) (WorkspaceGraph, error) {
	graph := WorkspaceGraph{ByName: map[string]PackageInfo{}}

	for _, manifestPath := range manifestPaths {
		data, err := fsys.ReadFile(manifestPath)
		if err != nil {
			continue
		}
		var m manifestJSON
		if err := json.Unmarshal(data, &m); err != nil {
			continue
		}
		if m.Name == "" {
			continue
		}

		rel, err := filepath.Rel(repoRoot, filepath.Dir(manifestPath))
		if err != nil {
			rel = filepath.Dir(manifestPath)
		}
		rel = filepath.ToSlash(rel)

		pkg := PackageInfo{
			Name:                 m.Name,
			Path:                 rel,
			Dependencies:         m.Dependencies,
			DevDependencies:      m.DevDependencies,
			OptionalDependencies: m.OptionalDependencies,
			PeerDependencies:     m.PeerDependencies,
			PeerDependenciesMeta: m.PeerDependenciesMeta,
			PatchedDependencies:  m.PatchedDependencies,
			Private:              m.Private,
		}
		graph.Packages = append(graph.Packages, pkg)
		graph.ByName[pkg.Name] = pkg
	}

	return graph, nil
}
