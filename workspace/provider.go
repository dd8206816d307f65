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
	"fmt"
	"os"
	"path/filepath"

	"bennypowers.dev/cem/internal/platform"
)

// SkipDirs is the directory-name skip-set shared by discovery (C2) and the
// workspace provider (C3), per spec.md §4.2.
var SkipDirs = map[string]bool{
	"node_modules": true,
	".pnpm":        true,
	".pnpm-store":  true,
	".git":         true,
	".direnv":      true,
	".devenv":      true,
	"dist":         true,
	"tmp":          true,
	"result":       true,
	"repos":        true,
}

// Provider discovers workspace package manifests under cwd.
type Provider interface {
	DiscoverPackageManifests(fsys platform.FileSystem, cwd string) ([]string, error)
}

// EnvProviderVar is the override environment variable named in spec.md §6.
const EnvProviderVar = "GENIE_WORKSPACE_PROVIDER"

// SelectProvider implements the precedence order of spec.md §4.3: explicit
// env override, then pnpm-workspace.yaml presence, then manual.
func SelectProvider(fsys platform.FileSystem, cwd string, explicit string) (Provider, error) {
	name := explicit
	if name == "" {
		name = os.Getenv(EnvProviderVar)
	}

	switch name {
	case "pnpm":
		return PnpmProvider{}, nil
	case "bun":
		return nil, fmt.Errorf("workspace provider %q is reserved and not implemented", "bun")
	case "manual":
		return ManualProvider{}, nil
	case "":
		if hasPnpmWorkspace(fsys, cwd) {
			return PnpmProvider{}, nil
		}
		return ManualProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown workspace provider %q", name)
	}
}

func hasPnpmWorkspace(fsys platform.FileSystem, cwd string) bool {
	found := false
	_ = walkSkippingVendor(fsys, cwd, func(path string, isDir bool) error {
		if found {
			return errStopWalk
		}
		if !isDir && filepath.Base(path) == "pnpm-workspace.yaml" {
			found = true
			return errStopWalk
		}
		return nil
	})
	return found
}

var errStopWalk = fmt.Errorf("stop walk")

// walkSkippingVendor recursively enumerates cwd, invoking visit for every
// entry, skipping directories named in SkipDirs, exactly as C2 discovery
// does. visit returning errStopWalk halts enumeration early without being
// treated as a real error.
func walkSkippingVendor(fsys platform.FileSystem, root string, visit func(path string, isDir bool) error) error {
	entries, err := fsys.ReadDir(root)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		path := filepath.Join(root, entry.Name())
		if entry.IsDir() {
			if SkipDirs[entry.Name()] {
				continue
			}
			if err := visit(path, true); err != nil {
				if err == errStopWalk {
					return err
				}
				return err
			}
			if err := walkSkippingVendor(fsys, path, visit); err != nil {
				return err
			}
			continue
		}
		if err := visit(path, false); err != nil {
			return err
		}
	}
	return nil
}
