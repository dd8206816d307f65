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
package genie

import (
	"fmt"
)

// ImportError is returned when a generator source failed to load. Cause is
// preserved verbatim (never summarized) so the cascade re-validator can
// inspect it.
type ImportError struct {
	Source string
	Cause  error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Source, e.Cause)
}

func (e *ImportError) Unwrap() error { return e.Cause }

// FileError is a per-file generation failure: a timeout, write failure, or
// formatter failure that bubbled up out of generateOne.
type FileError struct {
	Source string
	Cause  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("generate %s: %v", e.Source, e.Cause)
}

func (e *FileError) Unwrap() error { return e.Cause }

// CheckError is a non-fatal per-file finding in check mode: the target is
// missing, or its content does not match what the generator would produce.
type CheckError struct {
	Message string
}

func (e *CheckError) Error() string { return e.Message }

// PlatformError wraps an I/O-level failure surfaced by the runtime
// (directory enumeration, stat, rename, ...).
type PlatformError struct {
	Op    string
	Cause error
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

func (e *PlatformError) Unwrap() error { return e.Cause }

// ValidationError reports that one or more issues of severity "error" were
// found during the validation pass.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d issue(s)", len(e.Issues))
}

// GenerationFailedError is the aggregate error returned by generateAll or
// checkAll when one or more files failed.
type GenerationFailedError struct {
	FailedCount int
	Message     string
	Files       []FileDetail
}

func (e *GenerationFailedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%d file(s) failed", e.FailedCount)
}

// CatalogConflictError is raised by generator-authoring helper utilities
// when caller-supplied composition produces two entries for the same key
// with different values. It originates in generator (user) code and
// propagates as a generator evaluation failure.
type CatalogConflictError struct {
	Key string
	A   string
	B   string
}

func (e *CatalogConflictError) Error() string {
	return fmt.Sprintf("conflicting catalog entries for %q: %q vs %q", e.Key, e.A, e.B)
}

// OverrideConflictError is raised by generator-authoring helper utilities
// when two composed override values disagree for the same target path.
type OverrideConflictError struct {
	Path string
	A    string
	B    string
}

func (e *OverrideConflictError) Error() string {
	return fmt.Sprintf("conflicting overrides for %q: %q vs %q", e.Path, e.A, e.B)
}

// ReferenceError is a reference-kind runtime error. The cascade detector
// looks for this concrete type carrying a message matching the
// uninitialized-binding pattern (see genie.IsCascadeError).
type ReferenceError struct {
	Message string
}

func (e *ReferenceError) Error() string { return e.Message }

// SafeString coerces an arbitrary recovered value to a string without
// panicking, tolerating runtime idiosyncrasies the way a bundled binary's
// String(error) can itself throw for internal error types.
func SafeString(v any) (s string) {
	defer func() {
		if recover() != nil {
			s = "<unprintable error value>"
		}
	}()
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case error:
		return t.Error()
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}
