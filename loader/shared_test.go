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
package loader_test

import (
	"errors"
	"sync"
	"testing"

	"bennypowers.dev/cem/genie"
	"bennypowers.dev/cem/loader"
	"github.com/stretchr/testify/require"
)

func TestSharedState_RunsOnceAndMemoizes(t *testing.T) {
	shared := loader.NewSharedState()

	runs := 0
	for i := 0; i < 3; i++ {
		err := shared.Run("key", func() error {
			runs++
			return nil
		})
		require.NoError(t, err)
	}
	require.Equal(t, 1, runs)

	ran, err := shared.Outcome("key")
	require.True(t, ran)
	require.NoError(t, err)
}

func TestSharedState_FailingRunnerGetsRealError(t *testing.T) {
	shared := loader.NewSharedState()
	boom := errors.New("boom")

	err := shared.Run("key", func() error { return boom })
	require.ErrorIs(t, err, boom)
}

func TestSharedState_ConcurrentDependentsGetSynthesizedReferenceError(t *testing.T) {
	shared := loader.NewSharedState()
	boom := errors.New("boom")

	started := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = shared.Run("key", func() error {
			close(started)
			<-release
			return boom
		})
	}()

	<-started
	// A concurrent dependent observes the in-flight run and must wait for
	// it, then get a cascade ReferenceError rather than the real cause.
	depDone := make(chan error, 1)
	go func() {
		depDone <- shared.Run("key", func() error {
			t.Error("dependent goroutine must not re-run the shared initializer")
			return nil
		})
	}()

	close(release)
	wg.Wait()
	err := <-depDone

	require.Error(t, err)
	var refErr *genie.ReferenceError
	require.ErrorAs(t, err, &refErr)
	require.True(t, genie.IsCascadeError(err))
}

func TestSharedState_DoneNodeReplaysCascadeOnFailure(t *testing.T) {
	shared := loader.NewSharedState()
	boom := errors.New("boom")

	_ = shared.Run("key", func() error { return boom })

	// A second, fully sequential call against an already-done failing node
	// also gets the synthesized cascade error, not the original cause.
	err := shared.Run("key", func() error {
		t.Error("must not re-run a completed shared initializer")
		return nil
	})
	require.True(t, genie.IsCascadeError(err))
}
