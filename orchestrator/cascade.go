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
package orchestrator

import (
	"fmt"

	"bennypowers.dev/cem/content"
	"bennypowers.dev/cem/genie"
	"bennypowers.dev/cem/internal/platform"
	"bennypowers.dev/cem/loader"
	"bennypowers.dev/cem/workspace"
)

// reValidateCascade implements C10's sequential re-validation pass,
// triggered once the concurrent generation pass has produced at least one
// cascade error (an uninitialized-binding ReferenceError observed by some
// dependent of a failing shared-library source).
//
// A single loader.SharedState is shared across the whole sequential pass,
// reproducing JS's once-per-process module cache: the first source that
// reaches a broken shared import runs it for real and is classified as the
// root cause (genie.ErrorOriginatesInFile true), while every later source
// that imports the same broken file finds it already statusDone and is
// handed the synthesized ReferenceError instead — a genuine cascade,
// classified dependent.
func reValidateCascade(fsys platform.FileSystem, opts Options, sources []string, original genie.RunSummary) (genie.RunSummary, error) {
	repoRoot := workspace.FindRepoRoot(fsys, opts.Cwd, opts.Cwd)
	shared := loader.NewSharedState()

	var rootCauses, dependents int
	var rebuilt genie.RunSummary

	for i, source := range sources {
		prior := original.Files[i]
		if prior.Status != genie.StatusError {
			rebuilt.Add(prior)
			continue
		}

		loaderOpts := loader.Options{Cwd: opts.Cwd, RepoRoot: repoRoot, Shared: shared}

		_, err := content.Build(fsys, source, loaderOpts, opts.FormatterConfig, nil)
		if err == nil {
			// The earlier concurrent-pass failure was transient (e.g. a
			// write-stage error rather than a load-stage one); keep the
			// original detail rather than inventing a new classification.
			rebuilt.Add(prior)
			continue
		}

		var message string
		if genie.ErrorOriginatesInFile(err, source) {
			rootCauses++
			message = genie.SafeString(err)
		} else {
			dependents++
			message = "Failed due to dependency error"
		}

		rebuilt.Add(genie.FileDetail{
			Path:         source,
			RelativePath: prior.RelativePath,
			Status:       genie.StatusError,
			Message:      message,
		})
		opts.bus().FileCompleted(source, genie.StatusError, message)
	}

	if rootCauses+dependents > 0 {
		summaryMsg := fmt.Sprintf("%d root cause error(s), %d dependent failure(s)", rootCauses, dependents)
		return rebuilt, &genie.GenerationFailedError{
			FailedCount: rebuilt.Failed,
			Message:     summaryMsg,
			Files:       rebuilt.Files,
		}
	}
	return rebuilt, nil
}
