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
package loader

import (
	"bytes"
	"fmt"
	"path/filepath"
	"text/template"

	"bennypowers.dev/cem/genie"
	"bennypowers.dev/cem/internal/platform"
	"bennypowers.dev/cem/workspace"
	"gopkg.in/yaml.v3"
)

// compiledTemplate wraps the parsed text/template for a generator's
// stringify block, so Load only ever pays template.Parse's cost once per
// LoadedGenerator rather than once per Render call.
type compiledTemplate struct {
	tmpl *template.Template
}

func compileTemplate(source, body string) (*compiledTemplate, error) {
	tmpl, err := template.New(source).Option("missingkey=error").Parse(body)
	if err != nil {
		return nil, err
	}
	return &compiledTemplate{tmpl: tmpl}, nil
}

// Render executes the compiled stringify template against ctx, producing
// the generator's raw output, the Go equivalent of invoking the exported
// `stringify(ctx)` function in the dynamic-import original.
func (lg *LoadedGenerator) Render() (string, error) {
	if lg.compiled == nil {
		return "", fmt.Errorf("generator %s has no compiled template", lg.Source)
	}
	var buf bytes.Buffer
	if err := lg.compiled.tmpl.Execute(&buf, lg.Ctx); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Options configures a Load call with the context the template and any
// shared-library imports should observe.
type Options struct {
	Cwd       string
	RepoRoot  string
	Graph     *workspace.WorkspaceGraph
	Shared    *SharedState
}

// Load reads and parses a `.genie.yaml` source file, validates its shape,
// compiles its stringify template, and resolves its imports: list into the
// template context's Library, implementing C4's load order from
// spec.md §4.4:
//
//  1. read and parse the YAML document
//  2. validate the parsed shape against the generator-descriptor schema
//  3. compile the stringify template
//  4. recursively load every entry in imports:, routed through opts.Shared
//     so a diamond-shaped import graph evaluates each shared source once
//  5. construct the TemplateContext and LoadedGenerator
//
// Load performs no caching of its own beyond opts.Shared's cascade
// bookkeeping: every call re-reads sourcePath from fsys, the Go analogue of
// the original's cache-busted dynamic import.
func Load(fsys platform.FileSystem, sourcePath string, opts Options) (*LoadedGenerator, error) {
	shared := opts.Shared
	if shared == nil {
		shared = NewSharedState()
	}

	var lg *LoadedGenerator
	err := shared.Run(sourcePath, func() error {
		loaded, err := loadOnce(fsys, sourcePath, opts, shared)
		if err != nil {
			return err
		}
		lg = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	if lg == nil {
		// Another goroutine already ran this source successfully; reload
		// the descriptor fresh rather than sharing a *LoadedGenerator
		// across goroutines, since TemplateContext.Library differs by
		// importer.
		return loadOnce(fsys, sourcePath, opts, shared)
	}
	return lg, nil
}

func loadOnce(fsys platform.FileSystem, sourcePath string, opts Options, shared *SharedState) (*LoadedGenerator, error) {
	raw, err := fsys.ReadFile(sourcePath)
	if err != nil {
		return nil, &genie.ImportError{Source: sourcePath, Cause: &genie.PlatformError{Op: "read " + sourcePath, Cause: err}}
	}

	var shape any
	if err := yaml.Unmarshal(raw, &shape); err != nil {
		return nil, &genie.ImportError{Source: sourcePath, Cause: fmt.Errorf("parse YAML: %w", err)}
	}
	if err := validateShape(shape); err != nil {
		return nil, &genie.ImportError{Source: sourcePath, Cause: err}
	}

	var descriptor Descriptor
	if err := yaml.Unmarshal(raw, &descriptor); err != nil {
		return nil, &genie.ImportError{Source: sourcePath, Cause: fmt.Errorf("decode descriptor: %w", err)}
	}

	compiled, err := compileTemplate(sourcePath, descriptor.Stringify.Template)
	if err != nil {
		return nil, &genie.ImportError{Source: sourcePath, Cause: fmt.Errorf("compile stringify template: %w", err)}
	}

	library := map[string]any{}
	sourceDir := filepath.Dir(sourcePath)
	for _, imp := range descriptor.Imports {
		impPath := imp
		if !filepath.IsAbs(impPath) {
			impPath = filepath.Join(sourceDir, impPath)
		}
		importedOpts := opts
		imported, err := Load(fsys, impPath, importedOpts)
		if err != nil {
			return nil, &genie.ImportError{Source: sourcePath, Cause: err}
		}
		library[imp] = imported.Data()
	}

	location := workspace.ComputeLocation(sourcePath, opts.RepoRoot)
	ctx := TemplateContext{
		Cwd:       opts.Cwd,
		Location:  location,
		Workspace: opts.Graph,
		Data:      descriptor.Data,
		Library:   library,
	}

	return &LoadedGenerator{
		Source:     sourcePath,
		Descriptor: &descriptor,
		Ctx:        ctx,
		compiled:   compiled,
	}, nil
}
