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
package loader

import (
	"fmt"
	"sync"

	"bennypowers.dev/cem/genie"
)

// SharedState models a single run's worth of "module instantiation" for a
// generator reachable through one or more `imports:` edges. JavaScript's
// live-binding semantics mean a shared module is evaluated exactly once per
// process, and every dependent sees either its resolved exports or, if
// evaluation is still in flight on another path, a temporal-dead-zone
// ReferenceError. Go has no analogue for a lazily-evaluated, memoized import
// graph, so SharedState reproduces it explicitly: the goroutine that wins
// the race runs the shared generator for real and records whatever error it
// produces; every other goroutine waiting on the same key is handed a
// synthesized ReferenceError instead of the real cause, matching
// spec.md §4.10's cascade-attribution requirement that only the file which
// actually failed gets the authentic error.
type SharedState struct {
	mu    sync.Mutex
	nodes map[string]*sharedNode
}

type nodeStatus int

const (
	statusUnstarted nodeStatus = iota
	statusRunning
	statusDone
)

type sharedNode struct {
	mu     sync.Mutex
	cond   *sync.Cond
	status nodeStatus
	err    error
}

// NewSharedState allocates an empty, run-scoped cascade tracker. A fresh
// SharedState must be used for every independent generation run, never
// reused across runs, or stale failures would poison unrelated files. The
// cascade re-validator allocates one for its whole sequential pass.
func NewSharedState() *SharedState {
	return &SharedState{nodes: map[string]*sharedNode{}}
}

// Run executes fn for key at most once across the lifetime of s. The first
// caller to reach a given key runs fn and its result (success or failure)
// becomes authoritative. Concurrent or later callers for the same key block
// until the first caller finishes; if it failed, they receive a
// genie.ReferenceError instead of fn's real error, simulating a dependent
// module observing an uninitialized live binding.
func (s *SharedState) Run(key string, fn func() error) error {
	s.mu.Lock()
	node, existed := s.nodes[key]
	if !existed {
		node = &sharedNode{status: statusUnstarted}
		node.cond = sync.NewCond(&node.mu)
		s.nodes[key] = node
	}
	s.mu.Unlock()

	node.mu.Lock()
	switch node.status {
	case statusUnstarted:
		node.status = statusRunning
		node.mu.Unlock()

		err := fn()

		node.mu.Lock()
		node.err = err
		node.status = statusDone
		node.cond.Broadcast()
		node.mu.Unlock()
		return err

	case statusRunning:
		for node.status == statusRunning {
			node.cond.Wait()
		}
		failed := node.err != nil
		node.mu.Unlock()
		if failed {
			return &genie.ReferenceError{
				Message: fmt.Sprintf("Cannot access '%s' before initialization", key),
			}
		}
		return nil

	default: // statusDone
		failed := node.err != nil
		node.mu.Unlock()
		if failed {
			return &genie.ReferenceError{
				Message: fmt.Sprintf("Cannot access '%s' before initialization", key),
			}
		}
		return nil
	}
}

// Outcome reports whether key was ever actually run on this SharedState and,
// if so, the real error it produced (nil on success), distinguishing a key
// whose initializer ran for real from keys that were never run.
func (s *SharedState) Outcome(key string) (ran bool, err error) {
	s.mu.Lock()
	node, ok := s.nodes[key]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	node.mu.Lock()
	defer node.mu.Unlock()
	return node.status == statusDone, node.err
}
