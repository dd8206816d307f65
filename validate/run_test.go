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
package validate_test

import (
	"testing"

	"bennypowers.dev/cem/genie"
	"bennypowers.dev/cem/internal/platform"
	"bennypowers.dev/cem/loader"
	"bennypowers.dev/cem/validate"
	"github.com/stretchr/testify/require"
)

func TestRun_NoIssuesWhenGraphAndSourcesAreClean(t *testing.T) {
	fsys := platform.NewMapFileSystem(nil)
	require.NoError(t, fsys.WriteFile("/repo/package.json", []byte(`{"name": "root"}`), 0o644))
	require.NoError(t, fsys.WriteFile("/repo/a.genie.yaml", []byte(`
stringify:
  template: '{"a": 1}'
`), 0o644))

	issues, err := validate.Run(fsys, validate.Options{
		Cwd:     "/repo",
		Sources: []string{"/repo/a.genie.yaml"},
	})
	require.NoError(t, err)
	require.Empty(t, issues)
}

func TestRun_SurfacesRecompositionIssuesFromTheGraph(t *testing.T) {
	fsys := platform.NewMapFileSystem(nil)
	require.NoError(t, fsys.WriteFile("/repo/core/package.json", []byte(`{
		"name": "core",
		"peerDependencies": {"react": "^18"}
	}`), 0o644))
	require.NoError(t, fsys.WriteFile("/repo/widgets/package.json", []byte(`{
		"name": "widgets",
		"dependencies": {"core": "workspace:*"}
	}`), 0o644))

	_, err := validate.Run(fsys, validate.Options{Cwd: "/repo"})
	require.Error(t, err)

	var valErr *genie.ValidationError
	require.ErrorAs(t, err, &valErr)
	require.Len(t, valErr.Issues, 1)
	require.Equal(t, "recompose-peer-deps", valErr.Issues[0].Rule)
}

func TestRun_ReusesPreloadedGeneratorWithoutReimportingSource(t *testing.T) {
	fsys := platform.NewMapFileSystem(nil)
	source := "/repo/a.genie.yaml"
	require.NoError(t, fsys.WriteFile(source, []byte(`
stringify:
  template: '{"a": 1}'
`), 0o644))

	lg, err := loader.Load(fsys, source, loader.Options{Cwd: "/repo"})
	require.NoError(t, err)

	require.NoError(t, fsys.Remove(source))

	_, err = validate.Run(fsys, validate.Options{
		Cwd:       "/repo",
		Sources:   []string{source},
		Preloaded: map[string]*loader.LoadedGenerator{source: lg},
	})
	require.NoError(t, err)
}

func TestRun_PackageJsonWithoutValidateHookFailsWhenRequired(t *testing.T) {
	fsys := platform.NewMapFileSystem(nil)
	require.NoError(t, fsys.WriteFile("/repo/package.json.genie.yaml", []byte(`
stringify:
  template: '{"name": "widget"}'
`), 0o644))

	_, err := validate.Run(fsys, validate.Options{
		Cwd:                        "/repo",
		Sources:                    []string{"/repo/package.json.genie.yaml"},
		RequirePackageJsonValidate: true,
	})
	require.Error(t, err)

	var valErr *genie.ValidationError
	require.ErrorAs(t, err, &valErr)
	require.Equal(t, "package-json-validate-missing", valErr.Issues[0].Rule)
}

func TestRun_PackageJsonWithValidateHookSatisfiesRequirement(t *testing.T) {
	fsys := platform.NewMapFileSystem(nil)
	require.NoError(t, fsys.WriteFile("/repo/package.json.genie.yaml", []byte(`
stringify:
  template: '{"name": "widget"}'
validate:
  - rule: package-json-recompose-peers
`), 0o644))

	_, err := validate.Run(fsys, validate.Options{
		Cwd:                        "/repo",
		Sources:                    []string{"/repo/package.json.genie.yaml"},
		RequirePackageJsonValidate: true,
	})
	require.NoError(t, err)
}

func TestRun_InvokesNamedPluginForSourceThatOptsIn(t *testing.T) {
	fsys := platform.NewMapFileSystem(nil)
	require.NoError(t, fsys.WriteFile("/repo/a.genie.yaml", []byte(`
stringify:
  template: '{"a": 1}'
validate:
  - rule: custom-rule
`), 0o644))

	called := false
	plugin := validate.Plugin{
		Name:  "custom-rule",
		Scope: "package-json",
		Validate: func(ctx validate.PluginContext) []genie.Issue {
			called = true
			require.Equal(t, "/repo/a.genie.yaml", ctx.Source)
			return nil
		},
	}

	_, err := validate.Run(fsys, validate.Options{
		Cwd:     "/repo",
		Sources: []string{"/repo/a.genie.yaml"},
	}, plugin)
	require.NoError(t, err)
	require.True(t, called)
}

func TestRun_AllScopedPluginRunsForEverySource(t *testing.T) {
	fsys := platform.NewMapFileSystem(nil)
	require.NoError(t, fsys.WriteFile("/repo/a.genie.yaml", []byte(`
stringify:
  template: '{"a": 1}'
`), 0o644))
	require.NoError(t, fsys.WriteFile("/repo/b.genie.yaml", []byte(`
stringify:
  template: '{"b": 1}'
`), 0o644))

	var seen []string
	plugin := validate.Plugin{
		Name:  "always",
		Scope: "all",
		Validate: func(ctx validate.PluginContext) []genie.Issue {
			seen = append(seen, ctx.Source)
			return nil
		},
	}

	_, err := validate.Run(fsys, validate.Options{
		Cwd:     "/repo",
		Sources: []string{"/repo/a.genie.yaml", "/repo/b.genie.yaml"},
	}, plugin)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"/repo/a.genie.yaml", "/repo/b.genie.yaml"}, seen)
}

func TestRun_PanickingPluginBecomesASingleErrorIssue(t *testing.T) {
	fsys := platform.NewMapFileSystem(nil)
	require.NoError(t, fsys.WriteFile("/repo/a.genie.yaml", []byte(`
stringify:
  template: '{"a": 1}'
validate:
  - rule: explodes
`), 0o644))

	plugin := validate.Plugin{
		Name:  "explodes",
		Scope: "package-json",
		Validate: func(ctx validate.PluginContext) []genie.Issue {
			panic("boom")
		},
	}

	_, err := validate.Run(fsys, validate.Options{
		Cwd:     "/repo",
		Sources: []string{"/repo/a.genie.yaml"},
	}, plugin)
	require.Error(t, err)

	var valErr *genie.ValidationError
	require.ErrorAs(t, err, &valErr)
	require.Equal(t, "validation-plugin-error", valErr.Issues[0].Rule)
}

func TestFormatReport_GroupsIssuesByPackage(t *testing.T) {
	issues := []genie.Issue{
		{Severity: genie.SeverityError, Package: "widgets", Message: "missing peer", Rule: "recompose-peer-deps"},
		{Severity: genie.SeverityWarning, Package: "core", Message: "stale cache", Rule: "cache-stale"},
	}
	report := validate.FormatReport(issues)
	require.Contains(t, report, "core:")
	require.Contains(t, report, "widgets:")
	require.Contains(t, report, "[warning] stale cache (cache-stale)")
	require.Contains(t, report, "[error] missing peer (recompose-peer-deps)")
}
