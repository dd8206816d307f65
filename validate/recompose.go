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
package validate

import (
	"fmt"
	"strings"

	"bennypowers.dev/cem/genie"
	"bennypowers.dev/cem/workspace"
)

const recompositionRuleName = "package-json-recompose-peers"

// recomposeLinkPrefixes names the workspace-relative dependency spec
// prefixes that designate an in-repo upstream package, per spec.md §4.12.
var recomposeLinkPrefixes = []string{"workspace:", "file:", "link:"}

// RecomposeGraph runs the illustrative built-in validator named in
// spec.md §4.12 over every package in graph: downstream packages that
// depend on a workspace sibling via `workspace:`/`file:`/`link:` must
// re-declare that sibling's peer dependencies, preserve their `optional`
// metadata, and inherit its patched dependency entries. Unlike a
// per-source Plugin, this rule's scope is the whole workspace graph, so it
// runs once per Run call rather than once per generator target.
func RecomposeGraph(graph *workspace.WorkspaceGraph) []genie.Issue {
	var issues []genie.Issue
	for _, downstream := range graph.Packages {
		issues = append(issues, recomposeIssues(graph, downstream)...)
	}
	return issues
}

func recomposeIssues(graph *workspace.WorkspaceGraph, downstream workspace.PackageInfo) []genie.Issue {
	var issues []genie.Issue

	deps := mergeDeps(downstream.Dependencies, downstream.OptionalDependencies)
	for depName, spec := range deps {
		if !hasWorkspaceLinkPrefix(spec) {
			continue
		}
		upstream, ok := graph.ByName[depName]
		if !ok {
			continue
		}
		issues = append(issues, recomposeAgainstUpstream(downstream, upstream)...)
	}

	return issues
}

func hasWorkspaceLinkPrefix(spec string) bool {
	for _, prefix := range recomposeLinkPrefixes {
		if strings.HasPrefix(spec, prefix) {
			return true
		}
	}
	return false
}

func recomposeAgainstUpstream(downstream, upstream workspace.PackageInfo) []genie.Issue {
	var issues []genie.Issue

	for peer := range upstream.PeerDependencies {
		if !downstreamDeclares(downstream, peer) {
			issues = append(issues, genie.Issue{
				Severity:   genie.SeverityError,
				Package:    downstream.Name,
				Dependency: peer,
				Message:    fmt.Sprintf("package %q must re-declare peer dependency %q inherited from %q", downstream.Name, peer, upstream.Name),
				Rule:       "recompose-peer-deps",
			})
			continue
		}

		if meta, ok := upstream.PeerDependenciesMeta[peer]; ok && meta.Optional {
			downMeta, downOK := downstream.PeerDependenciesMeta[peer]
			if !downOK || !downMeta.Optional {
				issues = append(issues, genie.Issue{
					Severity:   genie.SeverityError,
					Package:    downstream.Name,
					Dependency: peer,
					Message:    fmt.Sprintf("package %q must preserve optional metadata for peer dependency %q inherited from %q", downstream.Name, peer, upstream.Name),
					Rule:       "recompose-peer-meta",
				})
			}
		}
	}

	for patched := range upstream.PatchedDependencies {
		if _, ok := downstream.PatchedDependencies[patched]; !ok {
			issues = append(issues, genie.Issue{
				Severity:   genie.SeverityError,
				Package:    downstream.Name,
				Dependency: patched,
				Message:    fmt.Sprintf("package %q must include patchedDependencies entry %q inherited from %q", downstream.Name, patched, upstream.Name),
				Rule:       "recompose-patches",
			})
		}
	}

	return issues
}

// downstreamDeclares reports whether downstream re-declares peer anywhere
// satisfying the recomposition requirement: always via peerDependencies,
// and additionally via dependencies or devDependencies when downstream is
// private, per spec.md §4.12's "For private downstream packages" clause.
func downstreamDeclares(downstream workspace.PackageInfo, peer string) bool {
	if _, ok := downstream.PeerDependencies[peer]; ok {
		return true
	}
	if !downstream.Private {
		return false
	}
	if _, ok := downstream.Dependencies[peer]; ok {
		return true
	}
	if _, ok := downstream.DevDependencies[peer]; ok {
		return true
	}
	return false
}

func mergeDeps(maps ...map[string]string) map[string]string {
	merged := map[string]string{}
	for _, m := range maps {
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged
}
