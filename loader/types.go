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

// Package loader implements C4: loading a generator source file, the Go
// analogue of the TypeScript core's dynamic `import()` of a `.genie.ts`
// module. Generators are expressed as data (`.genie.yaml`) per spec.md §9's
// design note, interpreted by a fixed text/template-based engine.
package loader

import (
	"bennypowers.dev/cem/workspace"
)

// TemplateContext is the Go analogue of the spec's `ctx`: { cwd, location,
// workspace? }, plus Data/Library for cross-generator composition.
type TemplateContext struct {
	Cwd       string
	Location  string
	Workspace *workspace.WorkspaceGraph
	Data      map[string]any
	// Library holds the Data of every generator reachable through this
	// source's `imports:` list, keyed by import path as written in the
	// descriptor, letting a template read `.Library.foo.value`.
	Library map[string]any
}

// ValidateRef names a built-in validator rule a generator descriptor opts
// into, per SPEC_FULL.md's generator expression surface.
type ValidateRef struct {
	Rule string `yaml:"rule" json:"rule"`
}

// stringifyBlock is the required `stringify:` section of a descriptor.
type stringifyBlock struct {
	Template string `yaml:"template" json:"template"`
}

// Descriptor is the parsed shape of a `.genie.yaml` generator source.
type Descriptor struct {
	Imports   []string      `yaml:"imports" json:"imports"`
	Stringify stringifyBlock `yaml:"stringify" json:"stringify"`
	Validate  []ValidateRef `yaml:"validate" json:"validate"`
	Data      map[string]any `yaml:"data" json:"data"`
}

// LoadedGenerator is the spec's LoadedGenerator tuple: { source, output,
// ctx }. The "output" operations (stringify/validate/data) are exposed as
// methods rather than an interface value, since Go generators have no
// runtime-polymorphic export object.
type LoadedGenerator struct {
	Source     string
	Descriptor *Descriptor
	Ctx        TemplateContext

	compiled *compiledTemplate
}

// Data returns the generator's structured composition value, or nil.
func (lg *LoadedGenerator) Data() map[string]any {
	if lg.Descriptor == nil {
		return nil
	}
	return lg.Descriptor.Data
}

// ValidateRules returns the built-in validator rule names this generator's
// `validate:` block opts into.
func (lg *LoadedGenerator) ValidateRules() []string {
	if lg.Descriptor == nil {
		return nil
	}
	rules := make([]string, 0, len(lg.Descriptor.Validate))
	for _, v := range lg.Descriptor.Validate {
		rules = append(rules, v.Rule)
	}
	return rules
}
