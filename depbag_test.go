// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package navigation

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDependencyBag_SetGet(t *testing.T) {
	t.Parallel()

	b := newDependencyBag(nil)
	require.NoError(t, b.Set("auth", "token"))

	v, err := b.Get("auth")
	require.NoError(t, err)
	assert.Equal(t, "token", v)
}

func TestDependencyBag_GetMissingErrors(t *testing.T) {
	t.Parallel()

	b := newDependencyBag(nil)
	_, err := b.Get("missing")
	assert.Error(t, err)
}

func TestDependencyBag_SetNilIsNoop(t *testing.T) {
	t.Parallel()

	b := newDependencyBag(nil)
	require.NoError(t, b.Set("k", nil))
	assert.False(t, b.Has("k"))
}

func TestDependencyBag_SetAllRejectsNilMap(t *testing.T) {
	t.Parallel()

	b := newDependencyBag(nil)
	err := b.SetAll(nil)
	assert.Error(t, err)
}

func TestDependencyBag_SetAllMerges(t *testing.T) {
	t.Parallel()

	b := newDependencyBag(nil)
	require.NoError(t, b.SetAll(map[string]any{"a": 1, "b": 2}))
	assert.True(t, b.Has("a"))
	assert.True(t, b.Has("b"))
}

func TestDependencyBag_OverwriteWarnsViaDiagnostics(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var seen []DiagnosticEvent
	b := newDependencyBag(DiagnosticHandlerFunc(func(ev DiagnosticEvent) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, ev)
	}))

	require.NoError(t, b.Set("auth", "token-a"))
	require.NoError(t, b.Set("auth", "token-a")) // same value: silent
	require.NoError(t, b.Set("auth", "token-b")) // different value: warns

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 1)
	assert.Equal(t, DiagDependencyOverwrite, seen[0].Kind)
}

func TestSameValueZero_NaN(t *testing.T) {
	t.Parallel()

	nan := math.NaN()
	assert.True(t, sameValueZero(nan, nan))
	assert.False(t, sameValueZero(nan, 1.0))
}

func TestDependencyBag_RemoveMissingWarnsNotErrors(t *testing.T) {
	t.Parallel()

	var called bool
	b := newDependencyBag(DiagnosticHandlerFunc(func(ev DiagnosticEvent) {
		called = true
		assert.Equal(t, DiagDependencyRemoveMiss, ev.Kind)
	}))
	require.NoError(t, b.Remove("ghost"))
	assert.True(t, called)
}

func TestDependencyBag_ResetIdempotent(t *testing.T) {
	t.Parallel()

	b := newDependencyBag(nil)
	require.NoError(t, b.Set("a", 1))
	require.NoError(t, b.Reset())
	assert.False(t, b.Has("a"))
	require.NoError(t, b.Reset()) // second call on empty store: silent no-op
}

func TestDependencyBag_DisposeBlocksMutation(t *testing.T) {
	t.Parallel()

	b := newDependencyBag(nil)
	require.NoError(t, b.Set("a", 1))
	b.dispose()

	assert.Error(t, b.Set("b", 2))
	assert.Error(t, b.SetAll(map[string]any{"c": 3}))
	assert.Error(t, b.Remove("a"))
	assert.Error(t, b.Reset())

	// read-only ops keep working after disposal
	assert.True(t, b.Has("a"))
	v, err := b.Get("a")
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestDependencyBag_CloneIsIndependent(t *testing.T) {
	t.Parallel()

	b := newDependencyBag(nil)
	require.NoError(t, b.Set("a", 1))

	clone := b.clone(nil)
	require.NoError(t, clone.Set("a", 2))
	v, _ := b.Get("a")
	assert.Equal(t, 1, v, "cloning must not share the underlying map")
}

func TestDependencyBag_GetAllReturnsFreshCopy(t *testing.T) {
	t.Parallel()

	b := newDependencyBag(nil)
	require.NoError(t, b.Set("a", 1))
	snapshot := b.GetAll()
	snapshot["a"] = 2
	v, _ := b.Get("a")
	assert.Equal(t, 1, v)
}
