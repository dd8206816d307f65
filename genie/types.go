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

// Package genie holds the data model shared across the discovery, loader,
// content, writer, orchestrator and validate packages: the entities named
// in the specification's data model (GeneratorSource, TargetPath,
// GeneratedResult, Issue, RunSummary) live here so none of those packages
// need to import each other just to share a struct.
package genie

import (
	"strings"
)

// GeneratorSourceSuffix is the exact suffix a generator source file carries.
const GeneratorSourceSuffix = ".genie.yaml"

// TargetPath derives a generator source's target from its path by stripping
// GeneratorSourceSuffix. Callers are expected to have already verified the
// suffix is present.
func TargetPath(sourcePath string) string {
	return strings.TrimSuffix(sourcePath, GeneratorSourceSuffix)
}

// Status is the tagged-variant status of a single file's generation or
// check result.
type Status string

const (
	StatusCreated   Status = "created"
	StatusUpdated   Status = "updated"
	StatusUnchanged Status = "unchanged"
	StatusSkipped   Status = "skipped"
	StatusError     Status = "error"
)

// GeneratedResult is the outcome of generating (or checking) a single
// target. Exactly one of the Status-specific fields is meaningful for a
// given Status value, mirroring the spec's tagged-union entity.
type GeneratedResult struct {
	Status       Status
	DiffSummary  string // set when Status == StatusUpdated
	SkipReason   string // set when Status == StatusSkipped
	Message      string // set when Status == StatusError
	Cause        error  // set when Status == StatusError; original error, unwrapped
}

// FileDetail is the per-file entry of a RunSummary.
type FileDetail struct {
	Path         string
	RelativePath string
	Status       Status
	Message      string
}

// RunSummary is the aggregate outcome of a generateAll or checkAll run.
type RunSummary struct {
	Created   int
	Updated   int
	Unchanged int
	Skipped   int
	Failed    int
	Files     []FileDetail
}

// Add records a single file's outcome into the aggregate counts and detail
// list.
func (s *RunSummary) Add(detail FileDetail) {
	s.Files = append(s.Files, detail)
	switch detail.Status {
	case StatusCreated:
		s.Created++
	case StatusUpdated:
		s.Updated++
	case StatusUnchanged:
		s.Unchanged++
	case StatusSkipped:
		s.Skipped++
	case StatusError:
		s.Failed++
	}
}

// Severity is the severity of a validation Issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a structured validation finding, produced by a generator's
// validate hook or a built-in validator plugin.
type Issue struct {
	Severity   Severity
	Package    string
	Dependency string
	Message    string
	Rule       string
}
