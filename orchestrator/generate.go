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

// Package orchestrator implements C9 (generation), C10 (cascade
// re-validation) and C11 (check), the run-level pipelines that fan
// discovered sources out through the loader/content/writer/semaphore
// packages and fan their results back in as a genie.RunSummary, adapted
// from the teacher's generate/session.go concurrent-module-processing
// idiom.
package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"bennypowers.dev/cem/content"
	"bennypowers.dev/cem/discovery"
	"bennypowers.dev/cem/genie"
	"bennypowers.dev/cem/internal/config"
	"bennypowers.dev/cem/internal/logging"
	"bennypowers.dev/cem/internal/platform"
	"bennypowers.dev/cem/loader"
	"bennypowers.dev/cem/workspace"
	"bennypowers.dev/cem/writer"
)

// perFileTimeout bounds module evaluation per spec.md §4.9/§5: a
// non-settling importer must not hang the whole run.
const perFileTimeout = 120 * time.Second

// Options configures a GenerateAll/CheckAll run.
type Options struct {
	Cwd              string
	ReadOnly         bool
	DryRun           bool
	FormatterConfig  *config.FormatterConfig
	WorkspaceProvider string
	Bus              genie.Bus
}

func (o Options) bus() genie.Bus {
	if o.Bus == nil {
		return genie.NoopBus{}
	}
	return o.Bus
}

// GenerateAll implements generateAll: discover sources, preflight-check for
// duplicate targets, then run generateOne concurrently and unbounded across
// every source, per spec.md §4.9 and §5's "Generation: unbounded across
// files" concurrency bound.
func GenerateAll(fsys platform.FileSystem, opts Options) (genie.RunSummary, error) {
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

	type outcome struct {
		source string
		result genie.GeneratedResult
	}
	outcomes := make([]outcome, len(sources))

	var wg sync.WaitGroup
	for i, source := range sources {
		wg.Add(1)
		go func(i int, source string) {
			defer wg.Done()
			bus.FileStarted(source)
			result := generateOneWithTimeout(fsys, source, opts, repoRoot, shared)
			outcomes[i] = outcome{source: source, result: result}
			bus.FileCompleted(source, result.Status, completionMessage(result))
		}(i, source)
	}
	wg.Wait()

	var summary genie.RunSummary
	hasCascade := false
	for _, oc := range outcomes {
		detail := genie.FileDetail{
			Path:         oc.source,
			RelativePath: relPath(opts.Cwd, genie.TargetPath(oc.source)),
			Status:       oc.result.Status,
			Message:      completionMessage(oc.result),
		}
		summary.Add(detail)
		if oc.result.Status == genie.StatusError && genie.IsCascadeError(oc.result.Cause) {
			hasCascade = true
		}
	}

	if hasCascade {
		logging.Debug("cascade error detected in %s; re-validating sequentially", opts.Cwd)
		summary, err = reValidateCascade(fsys, opts, sources, summary)
		if err != nil {
			bus.Error(err.Error())
			bus.Complete(summary)
			return summary, err
		}
	}

	bus.Complete(summary)

	if summary.Failed > 0 {
		failErr := &genie.GenerationFailedError{FailedCount: summary.Failed, Files: summary.Files}
		return summary, failErr
	}
	return summary, nil
}

func generateOneWithTimeout(fsys platform.FileSystem, source string, opts Options, repoRoot string, shared *loader.SharedState) genie.GeneratedResult {
	ctx, cancel := context.WithTimeout(context.Background(), perFileTimeout)
	defer cancel()

	resultCh := make(chan genie.GeneratedResult, 1)
	go func() {
		resultCh <- generateOne(fsys, source, opts, repoRoot, shared)
	}()

	select {
	case result := <-resultCh:
		return result
	case <-ctx.Done():
		return genie.GeneratedResult{
			Status:  genie.StatusError,
			Message: fmt.Sprintf("timed out after %s", perFileTimeout),
			Cause:   &genie.FileError{Source: source, Cause: ctx.Err()},
		}
	}
}

// generateOne implements spec.md §4.9's generateOne algorithm.
func generateOne(fsys platform.FileSystem, source string, opts Options, repoRoot string, shared *loader.SharedState) genie.GeneratedResult {
	loaderOpts := loader.Options{Cwd: opts.Cwd, RepoRoot: repoRoot, Shared: shared}

	expected, err := content.Build(fsys, source, loaderOpts, opts.FormatterConfig, nil)
	if err != nil {
		return genie.GeneratedResult{
			Status:  genie.StatusError,
			Message: genie.SafeString(err),
			Cause:   &genie.FileError{Source: source, Cause: err},
		}
	}

	parentDir := filepath.Dir(expected.TargetPath)
	if !fsys.Exists(parentDir) {
		return genie.GeneratedResult{
			Status:     genie.StatusSkipped,
			SkipReason: "Parent directory missing: " + parentDir,
			Message:    "Parent directory missing: " + parentDir,
		}
	}

	exists := fsys.Exists(expected.TargetPath)
	var currentBytes []byte
	if exists {
		currentBytes, _ = fsys.ReadFile(expected.TargetPath)
	}
	unchanged := exists && bytes.Equal(currentBytes, expected.Bytes)

	if opts.DryRun {
		switch {
		case !exists:
			return genie.GeneratedResult{Status: genie.StatusCreated}
		case unchanged:
			return genie.GeneratedResult{Status: genie.StatusUnchanged}
		default:
			return genie.GeneratedResult{Status: genie.StatusUpdated, DiffSummary: diffSummary(currentBytes, expected.Bytes)}
		}
	}

	if unchanged {
		if opts.ReadOnly {
			_ = fsys.Chmod(expected.TargetPath, 0o444)
		}
		return genie.GeneratedResult{Status: genie.StatusUnchanged}
	}

	var mode *fs.FileMode
	if opts.ReadOnly {
		m := fs.FileMode(0o444)
		mode = &m
	}

	holderID := strconv.Itoa(os.Getpid()) + "-" + source
	writeErr := writer.WithTargetLock(fsys, opts.Cwd, expected.TargetPath, holderID, func() error {
		return writer.AtomicWrite(fsys, expected.TargetPath, expected.Bytes, mode)
	})
	if writeErr != nil {
		return genie.GeneratedResult{
			Status:  genie.StatusError,
			Message: genie.SafeString(writeErr),
			Cause:   &genie.FileError{Source: source, Cause: writeErr},
		}
	}

	if !exists {
		return genie.GeneratedResult{Status: genie.StatusCreated}
	}
	return genie.GeneratedResult{Status: genie.StatusUpdated, DiffSummary: diffSummary(currentBytes, expected.Bytes)}
}

// diffSummary renders the brief "(+N lines)"/"(−N lines)"/"(content
// changed)" string named in spec.md §4.9.
func diffSummary(oldBytes, newBytes []byte) string {
	oldLines := strings.Count(string(oldBytes), "\n")
	newLines := strings.Count(string(newBytes), "\n")
	switch {
	case newLines > oldLines:
		return fmt.Sprintf("(+%d lines)", newLines-oldLines)
	case newLines < oldLines:
		return fmt.Sprintf("(−%d lines)", oldLines-newLines)
	default:
		return "(content changed)"
	}
}

func completionMessage(result genie.GeneratedResult) string {
	if result.Status == genie.StatusError {
		return result.Message
	}
	if result.Status == genie.StatusUpdated {
		return result.DiffSummary
	}
	if result.Status == genie.StatusSkipped {
		return result.SkipReason
	}
	return ""
}

func relPath(cwd, path string) string {
	rel, err := filepath.Rel(cwd, path)
	if err != nil {
		return path
	}
	return rel
}
