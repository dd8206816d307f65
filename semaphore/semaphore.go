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

// Package semaphore implements C8, the cross-process file-system-backed
// semaphore: a directory of per-holder lock files, each written atomically,
// used by writer.WithTargetLock to serialize concurrent writers of the same
// target. Grounded on the teacher's internal/platform.FileWatcher for the
// release-notification stream.
package semaphore

import (
	"encoding/json"
	"net/url"
	"path/filepath"
	"time"

	"bennypowers.dev/cem/genie"
	"bennypowers.dev/cem/internal/platform"
)

// holderFile is the JSON contents of a single `<holderId>.lock` file.
type holderFile struct {
	Permits   int   `json:"permits"`
	ExpiresAt int64 `json:"expiresAt"`
}

// Semaphore implements the tryAcquire/release/refresh/getCount/
// onPermitsReleased operations of spec.md §4.8, scoped to a single lock
// root directory.
type Semaphore struct {
	fsys platform.FileSystem
	root string
}

// New returns a Semaphore rooted at root (spec.md §6's lock directory
// layout, `<OS temp>/genie-locks/<sha256(cwd)[:16]>`).
func New(fsys platform.FileSystem, root string) *Semaphore {
	return &Semaphore{fsys: fsys, root: root}
}

func (s *Semaphore) keyDir(key string) string {
	return filepath.Join(s.root, url.PathEscape(key))
}

func (s *Semaphore) holderPath(key, holderID string) string {
	return filepath.Join(s.keyDir(key), url.PathEscape(holderID)+".lock")
}

func nowMillis() int64 { return time.Now().UnixMilli() }

// TryAcquire attempts to reserve permits units under key for holderID,
// returning true if the sum of all non-expired holders (including this one,
// replaced) does not exceed limit.
func (s *Semaphore) TryAcquire(key, holderID string, ttl time.Duration, limit, permits int) (bool, error) {
	dir := s.keyDir(key)
	if err := s.fsys.MkdirAll(dir, 0o755); err != nil {
		return false, &genie.PlatformError{Op: "mkdir " + dir, Cause: err}
	}

	entries, err := s.fsys.ReadDir(dir)
	if err != nil {
		return false, &genie.PlatformError{Op: "read " + dir, Cause: err}
	}

	now := nowMillis()
	ownPath := s.holderPath(key, holderID)
	sumOthers := 0

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if path == ownPath {
			// Our own stale file, if any, is superseded below; it never
			// contributes to sumOthers.
			continue
		}
		holder, ok := s.readHolder(path, now)
		if !ok {
			continue
		}
		sumOthers += holder.Permits
	}

	if sumOthers+permits > limit {
		return false, nil
	}

	if err := s.writeHolder(ownPath, holderFile{Permits: permits, ExpiresAt: now + ttl.Milliseconds()}); err != nil {
		return false, err
	}
	return true, nil
}

// Release reduces holderID's permit count by permits (floor zero), removing
// the holder file entirely once it reaches zero. It returns the number of
// permits actually released.
func (s *Semaphore) Release(key, holderID string, permits int) (int, error) {
	path := s.holderPath(key, holderID)
	now := nowMillis()

	holder, ok := s.readHolder(path, now)
	if !ok {
		return 0, nil
	}

	released := permits
	if released > holder.Permits {
		released = holder.Permits
	}
	remaining := holder.Permits - released

	if remaining <= 0 {
		if err := s.fsys.Remove(path); err != nil {
			return 0, &genie.PlatformError{Op: "remove " + path, Cause: err}
		}
		return released, nil
	}

	holder.Permits = remaining
	if err := s.writeHolder(path, holder); err != nil {
		return 0, err
	}
	return released, nil
}

// Refresh extends holderID's TTL and optionally shrinks its permit count to
// min(permits, existing), returning false if the holder's file is absent or
// already expired.
func (s *Semaphore) Refresh(key, holderID string, ttl time.Duration, permits int) (bool, error) {
	path := s.holderPath(key, holderID)
	now := nowMillis()

	holder, ok := s.readHolder(path, now)
	if !ok {
		return false, nil
	}

	if permits < holder.Permits {
		holder.Permits = permits
	}
	holder.ExpiresAt = now + ttl.Milliseconds()

	if err := s.writeHolder(path, holder); err != nil {
		return false, err
	}
	return true, nil
}

// GetCount sums the permits of every non-expired holder under key.
func (s *Semaphore) GetCount(key string) (int, error) {
	dir := s.keyDir(key)
	entries, err := s.fsys.ReadDir(dir)
	if err != nil {
		return 0, nil
	}

	now := nowMillis()
	total := 0
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if holder, ok := s.readHolder(path, now); ok {
			total += holder.Permits
		}
	}
	return total, nil
}

// readHolder reads and decodes a holder file, reporting ok=false if it
// cannot be read or decoded, or has expired; only an expired file is
// deleted.
func (s *Semaphore) readHolder(path string, now int64) (holderFile, bool) {
	data, err := s.fsys.ReadFile(path)
	if err != nil {
		return holderFile{}, false
	}
	var holder holderFile
	if err := json.Unmarshal(data, &holder); err != nil {
		return holderFile{}, false
	}
	if holder.ExpiresAt <= now {
		_ = s.fsys.Remove(path)
		return holderFile{}, false
	}
	return holder, true
}

// holderTmpSuffix mirrors writer.AtomicWrite's tmpSuffix convention, kept
// separate since a holder file's sibling temp file lives under the same
// lock directory a concurrent TryAcquire/GetCount walks with ReadDir.
const holderTmpSuffix = ".genie.tmp"

// writeHolder writes a holder file atomically via temp-then-rename, per
// spec.md §4.8's "Files written atomically" requirement and §9's
// write-then-rename justification: a reader in readHolder (or a ReadDir scan
// in TryAcquire/GetCount) must never observe a partially written holder file
// and silently treat a live holder as absent. The temp file is a sibling of
// path, so the rename is same-directory and atomic on every platform.FileSystem
// implementation.
func (s *Semaphore) writeHolder(path string, holder holderFile) error {
	data, err := json.Marshal(holder)
	if err != nil {
		return err
	}

	tmpPath := path + holderTmpSuffix
	if err := s.fsys.WriteFile(tmpPath, data, 0o644); err != nil {
		return &genie.PlatformError{Op: "write " + tmpPath, Cause: err}
	}
	if err := s.fsys.Rename(tmpPath, path); err != nil {
		_ = s.fsys.Remove(tmpPath)
		return &genie.PlatformError{Op: "rename " + tmpPath + " -> " + path, Cause: err}
	}
	return nil
}
