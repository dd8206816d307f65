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
package semaphore

import (
	"bennypowers.dev/cem/internal/platform"
)

// Release is emitted on OnPermitsReleased whenever a holder file under key's
// directory is written or removed.
type Release struct{}

// OnPermitsReleased watches key's directory and returns a channel emitting
// a Release value on every update or removal observed, absorbing watcher
// errors rather than surfacing them, per spec.md §4.8. The returned stop
// function ends the forwarding goroutine, which then closes the channel;
// the watcher itself is left open for the caller to close.
func (s *Semaphore) OnPermitsReleased(watcher platform.FileWatcher, key string) (events <-chan Release, stop func(), err error) {
	dir := s.keyDir(key)
	if err := s.fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, err
	}
	if err := watcher.Add(dir); err != nil {
		return nil, nil, err
	}

	out := make(chan Release, 16)
	done := make(chan struct{})

	go func() {
		defer close(out)
		for {
			select {
			case _, ok := <-watcher.Events():
				if !ok {
					return
				}
				select {
				case out <- Release{}:
				case <-done:
					return
				}
			case _, ok := <-watcher.Errors():
				if !ok {
					return
				}
				// Watcher errors are absorbed, not surfaced: a transient
				// watch failure should never fail generation.
			case <-done:
				return
			}
		}
	}()

	return out, func() { close(done) }, nil
}
