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

	"bennypowers.dev/cem/internal/platform"
)

// ManualProvider implements Provider by returning every package.json found
// under cwd, with no workspace-pattern filtering.
type ManualProvider struct{}

func (ManualProvider) DiscoverPackageManifests(fsys platform.FileSystem, cwd string) ([]string, error) {
	var manifests []string
	err := walkSkippingVendor(fsys, cwd, func(path string, isDir bool) error {
		if !isDir && filepath.Base(path) == "package.json" {
			manifests = append(manifests, path)
		}
		return nil
	})
	if err != nil && err != errStopWalk {
		return nil, err
	}
	return manifests, nil
}
