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

// Package config holds the genie.yaml-backed configuration struct, adapted
// from the teacher's cmd/config.CemConfig: same mapstructure+yaml tag
// convention, same deep-copy Clone idiom.
package config

import "os"

// FormatterConfig configures the formatter adapter (C5).
type FormatterConfig struct {
	// ConfigPath overrides the .oxfmtrc.json/oxfmt.json convention lookup.
	ConfigPath string `mapstructure:"configPath" yaml:"configPath"`
	// Binary is the external formatter executable used as a fallback.
	Binary string `mapstructure:"binary" yaml:"binary"`
}

// GenieConfig is the root configuration for a genie run.
type GenieConfig struct {
	ProjectDir string `mapstructure:"projectDir" yaml:"projectDir"`
	ConfigFile string `mapstructure:"configFile" yaml:"configFile"`

	// WorkspaceProvider selects the C3 provider: "pnpm", "bun", or
	// "manual". Empty means auto-detect. Overridden by
	// GENIE_WORKSPACE_PROVIDER.
	WorkspaceProvider string `mapstructure:"workspaceProvider" yaml:"workspaceProvider"`

	// RequirePackageJsonValidate enables the "missing validate hook"
	// error for package.json targets (C12). Overridden by
	// GENIE_REQUIRE_PACKAGE_JSON_VALIDATE=1.
	RequirePackageJsonValidate bool `mapstructure:"requirePackageJsonValidate" yaml:"requirePackageJsonValidate"`

	Formatter FormatterConfig `mapstructure:"formatter" yaml:"formatter"`

	ReadOnly bool `mapstructure:"readOnly" yaml:"readOnly"`
	DryRun   bool `mapstructure:"dryRun" yaml:"dryRun"`

	// ExcludeDirs is read from configuration but not consulted by
	// discovery or the workspace providers, which skip only the built-in
	// workspace.SkipDirs set.
	ExcludeDirs []string `mapstructure:"excludeDirs" yaml:"excludeDirs"`

	Verbose bool `mapstructure:"verbose" yaml:"verbose"`
}

// Clone returns a deep copy, the way CemConfig.Clone does, so a workspace
// default can be merged into a package-local override without aliasing
// slices.
func (c *GenieConfig) Clone() *GenieConfig {
	if c == nil {
		return nil
	}
	clone := *c
	if c.ExcludeDirs != nil {
		clone.ExcludeDirs = make([]string, len(c.ExcludeDirs))
		copy(clone.ExcludeDirs, c.ExcludeDirs)
	}
	return &clone
}

// ApplyEnvOverrides applies the GENIE_* environment variable overrides
// named in spec.md §6, taking precedence over whatever was loaded from
// genie.yaml.
func (c *GenieConfig) ApplyEnvOverrides() {
	if v := os.Getenv("GENIE_WORKSPACE_PROVIDER"); v != "" {
		c.WorkspaceProvider = v
	}
	if os.Getenv("GENIE_REQUIRE_PACKAGE_JSON_VALIDATE") == "1" {
		c.RequirePackageJsonValidate = true
	}
}

// DefaultFormatterBinary is used when FormatterConfig.Binary is unset.
const DefaultFormatterBinary = "oxfmt"

func (c *GenieConfig) FormatterBinary() string {
	if c.Formatter.Binary != "" {
		return c.Formatter.Binary
	}
	return DefaultFormatterBinary
}
