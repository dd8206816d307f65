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
	"errors"
	"regexp"
	"strings"
)

// cascadePattern matches the uninitialized-binding message pattern named in
// spec.md §4.10: "Cannot access '...' before initialization".
var cascadePattern = regexp.MustCompile(`Cannot access .* before initialization`)

// IsCascadeError reports whether cause is a *ReferenceError whose message
// matches the uninitialized-binding pattern — the Go rendition's stand-in
// for a dependent module observing a shared initializer's failure
// secondhand rather than the initializer's own error.
func IsCascadeError(cause error) bool {
	if cause == nil {
		return false
	}
	var refErr *ReferenceError
	if !errors.As(cause, &refErr) {
		return false
	}
	return cascadePattern.MatchString(refErr.Message)
}

// ErrorOriginatesInFile reports whether cause is the genuine root-cause
// error for sourcePath: it must not itself be a cascade error, and its
// error chain (rendered via Error()) must mention sourcePath.
//
// A real stack trace does not exist for a text/template execution error the
// way it would in a dynamic-import runtime; mentioning sourcePath in the
// rendered error chain is this rendition's equivalent "stack trace string"
// check named in spec.md §4.10.
func ErrorOriginatesInFile(cause error, sourcePath string) bool {
	if cause == nil || IsCascadeError(cause) {
		return false
	}
	return strings.Contains(cause.Error(), sourcePath)
}
