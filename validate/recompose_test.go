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
	"bennypowers.dev/cem/validate"
	"bennypowers.dev/cem/workspace"
	"github.com/stretchr/testify/require"
)

func graphOf(pkgs ...workspace.PackageInfo) workspace.WorkspaceGraph {
	g := workspace.WorkspaceGraph{ByName: map[string]workspace.PackageInfo{}}
	for _, p := range pkgs {
		g.Packages = append(g.Packages, p)
		g.ByName[p.Name] = p
	}
	return g
}

func TestRecomposeGraph_FlagsMissingPeerDependency(t *testing.T) {
	upstream := workspace.PackageInfo{
		Name:             "core",
		PeerDependencies: map[string]string{"react": "^18"},
	}
	downstream := workspace.PackageInfo{
		Name:         "widgets",
		Dependencies: map[string]string{"core": "workspace:*"},
	}
	g := graphOf(upstream, downstream)

	issues := validate.RecomposeGraph(&g)
	require.Len(t, issues, 1)
	require.Equal(t, genie.SeverityError, issues[0].Severity)
	require.Equal(t, "recompose-peer-deps", issues[0].Rule)
	require.Equal(t, "react", issues[0].Dependency)
}

func TestRecomposeGraph_NoIssueWhenPeerRedeclared(t *testing.T) {
	upstream := workspace.PackageInfo{
		Name:             "core",
		PeerDependencies: map[string]string{"react": "^18"},
	}
	downstream := workspace.PackageInfo{
		Name:             "widgets",
		Dependencies:     map[string]string{"core": "workspace:*"},
		PeerDependencies: map[string]string{"react": "^18"},
	}
	g := graphOf(upstream, downstream)

	require.Empty(t, validate.RecomposeGraph(&g))
}

func TestRecomposeGraph_PrivateDownstreamMaySatisfyPeerViaDependencies(t *testing.T) {
	upstream := workspace.PackageInfo{
		Name:             "core",
		PeerDependencies: map[string]string{"react": "^18"},
	}
	downstream := workspace.PackageInfo{
		Name:         "internal-app",
		Private:      true,
		Dependencies: map[string]string{"core": "workspace:*", "react": "^18"},
	}
	g := graphOf(upstream, downstream)

	require.Empty(t, validate.RecomposeGraph(&g))
}

func TestRecomposeGraph_NonPrivateDownstreamCannotSatisfyPeerViaDependencies(t *testing.T) {
	upstream := workspace.PackageInfo{
		Name:             "core",
		PeerDependencies: map[string]string{"react": "^18"},
	}
	downstream := workspace.PackageInfo{
		Name:         "widgets",
		Private:      false,
		Dependencies: map[string]string{"core": "workspace:*", "react": "^18"},
	}
	g := graphOf(upstream, downstream)

	issues := validate.RecomposeGraph(&g)
	require.Len(t, issues, 1)
	require.Equal(t, "recompose-peer-deps", issues[0].Rule)
}

func TestRecomposeGraph_FlagsMissingOptionalMeta(t *testing.T) {
	upstream := workspace.PackageInfo{
		Name:                 "core",
		PeerDependencies:     map[string]string{"react": "^18"},
		PeerDependenciesMeta: map[string]workspace.PeerMeta{"react": {Optional: true}},
	}
	downstream := workspace.PackageInfo{
		Name:             "widgets",
		Dependencies:     map[string]string{"core": "workspace:*"},
		PeerDependencies: map[string]string{"react": "^18"},
	}
	g := graphOf(upstream, downstream)

	issues := validate.RecomposeGraph(&g)
	require.Len(t, issues, 1)
	require.Equal(t, "recompose-peer-meta", issues[0].Rule)
}

func TestRecomposeGraph_FlagsMissingPatchedDependency(t *testing.T) {
	upstream := workspace.PackageInfo{
		Name:                "core",
		PatchedDependencies: map[string]string{"lodash": "patches/lodash.patch"},
	}
	downstream := workspace.PackageInfo{
		Name:         "widgets",
		Dependencies: map[string]string{"core": "workspace:*"},
	}
	g := graphOf(upstream, downstream)

	issues := validate.RecomposeGraph(&g)
	require.Len(t, issues, 1)
	require.Equal(t, "recompose-patches", issues[0].Rule)
}

func TestRecomposeGraph_IgnoresNonWorkspaceLinkedDependencies(t *testing.T) {
	upstream := workspace.PackageInfo{
		Name:             "core",
		PeerDependencies: map[string]string{"react": "^18"},
	}
	downstream := workspace.PackageInfo{
		Name:         "widgets",
		Dependencies: map[string]string{"core": "^1.0.0"},
	}
	g := graphOf(upstream, downstream)

	require.Empty(t, validate.RecomposeGraph(&g))
}
