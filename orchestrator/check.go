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
	"bytes"
	"context"
	"fmt"
	"runtime"
	"sync"

	"bennypowers.dev/cem/content"
	"bennypowers.dev/cem/discovery"
	"bennypowers.dev/cem/genie"
	"bennypowers.dev/cem/internal/platform"
	"bennypowers.dev/cem/loader"
	"bennypowers.dev/cem/validate"
	"bennypowers.dev/cem/workspace"
	"golang.org/x/sync/errgroup"
)

// checkConcurrencyLimit mirrors spec.md §4.11: min(max(1, hw_parallelism), 12).
func checkConcurrencyLimit() int {
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		n = 1
	}
	if n > 12 {
		n = 12
	}
	return n
}

type checkOutcome struct {
	source      string
	status      genie.Status
	message     string
	preloaded   *loader.LoadedGenerator
	fatal       bool
	fatalErr    error
}

// CheckAll implements C11: checkOne run over every discovered source with
// bounded concurrency, fail-fast on any fatal-class error (ImportError or
// platform error), and validator reuse of the preloaded generators on
// success, per spec.md §4.11/§4.12.
func CheckAll(fsys platform.FileSystem, opts Options, requirePackageJsonValidate bool) (genie.RunSummary, error) {
	bus := opts.bus()

	sources, err := discovery.DiscoverSources(fsys, opts.Cwd)
	if err != nil {
		bus.Error(err.Error())
		return genie.RunSummary{}, err
	}
	bus.FilesDiscovered(sources)

	if err := discovery.CheckDuplicateTargets(sources); err != nil {
		bus.Error(err.Error())
		return genie.RunSummary{}, err
	}

	repoRoot := workspace.FindRepoRoot(fsys, opts.Cwd, opts.Cwd)
	shared := loader.NewSharedState()

	outcomes := make([]checkOutcome, len(sources))
	var mu sync.Mutex
	var fatalSource string
	var fatalCause error

	eg, ctx := errgroup.WithContext(context.Background())
	eg.SetLimit(checkConcurrencyLimit())

	for i, source := range sources {
		i, source := i, source
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				mu.Lock()
				outcomes[i] = checkOutcome{source: source, status: genie.StatusError, message: "Cancelled due to fatal error in another file"}
				mu.Unlock()
				return nil
			default:
			}

			bus.FileStarted(source)
			outcome := checkOne(fsys, source, opts, repoRoot, shared)

			mu.Lock()
			outcomes[i] = outcome
			if outcome.fatal && fatalSource == "" {
				fatalSource = source
				fatalCause = outcome.fatalErr
			}
			mu.Unlock()

			bus.FileCompleted(source, outcome.status, outcome.message)

			if outcome.fatal {
				return outcome.fatalErr
			}
			return nil
		})
	}

	_ = eg.Wait()

	var summary genie.RunSummary
	interrupted := 0
	for i, oc := range outcomes {
		if oc.source == "" {
			oc = checkOutcome{source: sources[i], status: genie.StatusError, message: "Cancelled due to fatal error in another file"}
		}
		if oc.message == "Cancelled due to fatal error in another file" {
			interrupted++
		}
		summary.Add(genie.FileDetail{
			Path:         oc.source,
			RelativePath: relPath(opts.Cwd, oc.source),
			Status:       oc.status,
			Message:      oc.message,
		})
	}

	bus.Complete(summary)

	if fatalSource != "" {
		rel := relPath(opts.Cwd, fatalSource)
		msg := fmt.Sprintf("Fatal check error in %s; interrupted %d sibling file(s)", rel, interrupted)
		bus.Error(msg)
		return summary, &genie.GenerationFailedError{FailedCount: summary.Failed, Message: msg, Files: summary.Files}
	}

	if summary.Failed > 0 {
		return summary, &genie.GenerationFailedError{FailedCount: summary.Failed, Files: summary.Files}
	}

	preloaded := make(map[string]*loader.LoadedGenerator, len(outcomes))
	for _, oc := range outcomes {
		if oc.preloaded != nil {
			preloaded[oc.source] = oc.preloaded
		}
	}
	if _, err := validate.Run(fsys, validate.Options{
		Cwd:                        opts.Cwd,
		Sources:                    sources,
		Preloaded:                  preloaded,
		RequirePackageJsonValidate: requirePackageJsonValidate,
		WorkspaceProvider:          opts.WorkspaceProvider,
	}); err != nil {
		bus.Error(err.Error())
		return summary, err
	}

	return summary, nil
}

// checkOne implements spec.md §4.11's per-source check algorithm.
func checkOne(fsys platform.FileSystem, source string, opts Options, repoRoot string, shared *loader.SharedState) checkOutcome {
	loaderOpts := loader.Options{Cwd: opts.Cwd, RepoRoot: repoRoot, Shared: shared}

	loaded, err := loader.Load(fsys, source, loaderOpts)
	if err != nil {
		return checkOutcome{
			source:   source,
			status:   genie.StatusError,
			message:  genie.SafeString(err),
			fatal:    true,
			fatalErr: &genie.ImportError{Source: source, Cause: err},
		}
	}

	expected, err := content.Build(fsys, source, loaderOpts, opts.FormatterConfig, loaded)
	if err != nil {
		return checkOutcome{
			source:   source,
			status:   genie.StatusError,
			message:  genie.SafeString(err),
			fatal:    true,
			fatalErr: &genie.PlatformError{Op: "build " + source, Cause: err},
		}
	}

	if !fsys.Exists(expected.TargetPath) {
		return checkOutcome{
			source:  source,
			status:  genie.StatusError,
			message: "File does not exist. Run 'genie' to generate it.",
		}
	}

	current, err := fsys.ReadFile(expected.TargetPath)
	if err != nil {
		return checkOutcome{
			source:   source,
			status:   genie.StatusError,
			message:  genie.SafeString(err),
			fatal:    true,
			fatalErr: &genie.PlatformError{Op: "read " + expected.TargetPath, Cause: err},
		}
	}

	if !bytes.Equal(current, expected.Bytes) {
		return checkOutcome{
			source:  source,
			status:  genie.StatusError,
			message: "File content is out of date. Run 'genie' to regenerate it.",
		}
	}

	return checkOutcome{source: source, status: genie.StatusUnchanged, preloaded: loaded}
}
