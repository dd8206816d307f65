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

// Package writer implements C7: an atomic, temp-then-rename file writer and
// the TargetLock wrapper that serializes concurrent writers of the same
// target path across processes via the semaphore package.
package writer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"bennypowers.dev/cem/genie"
	"bennypowers.dev/cem/internal/platform"
	"bennypowers.dev/cem/semaphore"
)

const tmpSuffix = ".genie.tmp"

// AtomicWrite implements spec.md §4.7's atomicWrite: it best-effort chmods
// an existing target to 0o644 so a previous read-only run can be
// overwritten, writes bytes to a sibling temp file, optionally chmods the
// temp file to mode before the rename (so the final inode carries the
// intended permissions), then renames temp → target. The rename is the
// atomicity boundary: an observer can never see partially-written bytes.
func AtomicWrite(fsys platform.FileSystem, targetPath string, bytes []byte, mode *fs.FileMode) (err error) {
	if fsys.Exists(targetPath) {
		_ = fsys.Chmod(targetPath, 0o644)
	}

	tmpPath := targetPath + tmpSuffix
	if err := fsys.WriteFile(tmpPath, bytes, 0o644); err != nil {
		return &genie.PlatformError{Op: "write " + tmpPath, Cause: err}
	}
	defer func() {
		if err != nil {
			_ = fsys.Remove(tmpPath)
		}
	}()

	if mode != nil {
		if err := fsys.Chmod(tmpPath, *mode); err != nil {
			return &genie.PlatformError{Op: "chmod " + tmpPath, Cause: err}
		}
	}

	if err := fsys.Rename(tmpPath, targetPath); err != nil {
		return &genie.PlatformError{Op: "rename " + tmpPath + " -> " + targetPath, Cause: err}
	}
	return nil
}

const (
	// TargetLockTTL is the TTL used by WithTargetLock, per spec.md §4.7.
	TargetLockTTL = 120 * time.Second
	targetLockLimit = 1
)

// LockRoot computes `<OS temp>/genie-locks/<sha256(cwd)[:16]>`, the lock
// directory layout named in spec.md §6.
func LockRoot(cwd string) string {
	sum := sha256.Sum256([]byte(cwd))
	return filepath.Join(os.TempDir(), "genie-locks", hex.EncodeToString(sum[:])[:16])
}

// targetLockKey is the semaphore key for a given absolute target path, per
// spec.md §4.7: `"genie:file:" + realpath(targetPath)`.
func targetLockKey(targetPath string) (string, error) {
	real, err := filepath.Abs(targetPath)
	if err != nil {
		return "", err
	}
	return "genie:file:" + real, nil
}

// WithTargetLock wraps action in acquisition of the per-target semaphore
// described by spec.md §4.7 (limit=1, TTL 120s), releasing it on return
// regardless of action's outcome. While another holder has the lock it
// polls until the lock frees, giving up with an error after TargetLockTTL.
func WithTargetLock(fsys platform.FileSystem, cwd, targetPath, holderID string, action func() error) error {
	key, err := targetLockKey(targetPath)
	if err != nil {
		return &genie.PlatformError{Op: "resolve " + targetPath, Cause: err}
	}

	sem := semaphore.New(fsys, LockRoot(cwd))

	acquired, err := sem.TryAcquire(key, holderID, TargetLockTTL, targetLockLimit, 1)
	deadline := time.Now().Add(TargetLockTTL)
	for err == nil && !acquired && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
		acquired, err = sem.TryAcquire(key, holderID, TargetLockTTL, targetLockLimit, 1)
	}
	if err != nil {
		return err
	}
	if !acquired {
		return &genie.PlatformError{Op: "acquire lock for " + targetPath, Cause: fmt.Errorf("target is locked by another writer")}
	}
	defer func() { _, _ = sem.Release(key, holderID, 1) }()

	return action()
}
