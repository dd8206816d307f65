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

// This file implements C12, the validation runner: building a workspace
// graph, invoking every generator's `validate:` hook and the built-in
// recomposition plugin, and aggregating the resulting issues. It is a
// from-scratch sibling of the teacher's custom-elements-manifest schema
// validator in the same package — unlike the schema validator, C12 has
// nothing to do with JSON Schema or a manifest format version, so it does
// not share code with ValidationPipeline; it reuses the package only as the
// conventional home for "validation" per the teacher's layout.
package validate

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"bennypowers.dev/cem/genie"
	"bennypowers.dev/cem/internal/platform"
	"bennypowers.dev/cem/loader"
	"bennypowers.dev/cem/workspace"
)

// Options configures a Run call.
type Options struct {
	Cwd                        string
	Sources                    []string
	Preloaded                  map[string]*loader.LoadedGenerator
	RequirePackageJsonValidate bool
	WorkspaceProvider          string
}

// Plugin is the out-of-core validator contract named in spec.md §4.12: a
// named hook scoped to either "package-json" or "all" targets.
type Plugin struct {
	Name     string
	Scope    string // "package-json" | "all"
	Validate func(ctx PluginContext) []genie.Issue
}

// PluginContext is the per-file validation context a Plugin or a
// generator's own `validate:` hook observes.
type PluginContext struct {
	Source     string
	TargetPath string
	Graph      *workspace.WorkspaceGraph
}

// Run implements C12's algorithm: resolve the workspace provider, build the
// graph, and validate every source, returning the aggregated issues or a
// ValidationError if any issue has severity "error".
func Run(fsys platform.FileSystem, opts Options, plugins ...Plugin) ([]genie.Issue, error) {
	provider, err := workspace.SelectProvider(fsys, opts.Cwd, opts.WorkspaceProvider)
	if err != nil {
		return nil, &genie.PlatformError{Op: "select workspace provider", Cause: err}
	}

	manifestPaths, err := provider.DiscoverPackageManifests(fsys, opts.Cwd)
	if err != nil {
		return nil, &genie.PlatformError{Op: "discover package manifests", Cause: err}
	}

	repoRoot := workspace.FindRepoRoot(fsys, opts.Cwd, opts.Cwd)
	graph, err := workspace.BuildGraph(fsys, repoRoot, manifestPaths)
	if err != nil {
		return nil, &genie.PlatformError{Op: "build workspace graph", Cause: err}
	}

	var issues []genie.Issue
	for _, source := range opts.Sources {
		issues = append(issues, validateSource(fsys, source, opts, &graph, plugins)...)
	}
	issues = append(issues, RecomposeGraph(&graph)...)

	if hasErrorSeverity(issues) {
		return issues, &genie.ValidationError{Issues: issues}
	}
	return issues, nil
}

func validateSource(fsys platform.FileSystem, source string, opts Options, graph *workspace.WorkspaceGraph, plugins []Plugin) []genie.Issue {
	targetPath := genie.TargetPath(source)
	basename := filepath.Base(targetPath)

	lg := opts.Preloaded[source]
	if lg == nil {
		repoRoot := workspace.FindRepoRoot(fsys, opts.Cwd, opts.Cwd)
		loaded, err := loader.Load(fsys, source, loader.Options{Cwd: opts.Cwd, RepoRoot: repoRoot, Graph: graph})
		if err != nil {
			return []genie.Issue{{
				Severity: genie.SeverityError,
				Package:  basename,
				Message:  genie.SafeString(err),
				Rule:     "validation-import",
			}}
		}
		lg = loaded
	}

	pctx := PluginContext{Source: source, TargetPath: targetPath, Graph: graph}

	var issues []genie.Issue
	hasValidateHook := len(lg.ValidateRules()) > 0

	if hasValidateHook {
		issues = append(issues, runValidatePlugins(lg, pctx, plugins)...)
	} else if basename == "package.json" && opts.RequirePackageJsonValidate {
		issues = append(issues, genie.Issue{
			Severity: genie.SeverityError,
			Package:  packageNameFromExisting(fsys, targetPath),
			Message:  "package.json target has no validate: hook",
			Rule:     "package-json-validate-missing",
		})
	}

	issues = append(issues, runScopedPlugins(pctx, plugins, "all")...)

	return issues
}

// runValidatePlugins invokes the built-in rules a generator's own
// `validate:` block names. Genie ships no named rules of its own beyond the
// illustrative recomposition rule (which Run applies once to the whole
// workspace graph via RecomposeGraph, not by name), so an unrecognized rule name is
// silently ignored rather than treated as an error — it is reserved for
// future out-of-core plugins.
func runValidatePlugins(lg *loader.LoadedGenerator, pctx PluginContext, plugins []Plugin) []genie.Issue {
	var issues []genie.Issue
	for _, rule := range lg.ValidateRules() {
		for _, p := range plugins {
			if p.Name == rule {
				issues = append(issues, safePluginCall(p, pctx)...)
			}
		}
	}
	return issues
}

func runScopedPlugins(pctx PluginContext, plugins []Plugin, scope string) []genie.Issue {
	var issues []genie.Issue
	for _, p := range plugins {
		if p.Scope == scope {
			issues = append(issues, safePluginCall(p, pctx)...)
		}
	}
	return issues
}

// safePluginCall recovers a panicking plugin into a single error issue, per
// spec.md §4.12's plugin contract ("a plugin exception becomes a single
// error issue").
func safePluginCall(p Plugin, pctx PluginContext) (issues []genie.Issue) {
	defer func() {
		if r := recover(); r != nil {
			issues = []genie.Issue{{
				Severity: genie.SeverityError,
				Package:  pctx.TargetPath,
				Message:  fmt.Sprintf("plugin %q panicked: %s", p.Name, genie.SafeString(r)),
				Rule:     "validation-plugin-error",
			}}
		}
	}()
	return p.Validate(pctx)
}

func packageNameFromExisting(fsys platform.FileSystem, targetPath string) string {
	data, err := fsys.ReadFile(targetPath)
	if err != nil {
		return "unknown"
	}
	var doc struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &doc); err != nil || doc.Name == "" {
		return "unknown"
	}
	return doc.Name
}

func hasErrorSeverity(issues []genie.Issue) bool {
	for _, issue := range issues {
		if issue.Severity == genie.SeverityError {
			return true
		}
	}
	return false
}

// FormatReport renders a grouped, multi-line error report for a set of
// issues, per spec.md §4.12 step 4's "formatted multi-line error listing
// issues grouped by package".
func FormatReport(issues []genie.Issue) string {
	byPackage := map[string][]genie.Issue{}
	var packages []string
	for _, issue := range issues {
		if _, ok := byPackage[issue.Package]; !ok {
			packages = append(packages, issue.Package)
		}
		byPackage[issue.Package] = append(byPackage[issue.Package], issue)
	}
	sort.Strings(packages)

	var b strings.Builder
	for _, pkg := range packages {
		fmt.Fprintf(&b, "%s:\n", pkg)
		for _, issue := range byPackage[pkg] {
			fmt.Fprintf(&b, "  [%s] %s (%s)\n", issue.Severity, issue.Message, issue.Rule)
		}
	}
	return b.String()
}
