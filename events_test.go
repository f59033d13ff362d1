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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_SubscribeAndEmit(t *testing.T) {
	t.Parallel()

	b := newEventBus(nil)
	var got EventPayload
	b.Subscribe(EventTransitionSucc, func(p EventPayload) { got = p })

	to := &State{Name: "home"}
	b.Emit(EventTransitionSucc, EventPayload{Type: EventTransitionSucc, ToState: to})
	assert.Same(t, to, got.ToState)
}

func TestEventBus_SubscribeSameFuncTwicePanics(t *testing.T) {
	t.Parallel()

	b := newEventBus(nil)
	fn := func(EventPayload) {}
	b.Subscribe(EventTransitionSucc, fn)

	assert.Panics(t, func() { b.Subscribe(EventTransitionSucc, fn) })
}

func TestEventBus_UnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()

	b := newEventBus(nil)
	var calls int
	sub := b.Subscribe(EventTransitionSucc, func(EventPayload) { calls++ })

	b.Emit(EventTransitionSucc, EventPayload{})
	sub.Unsubscribe()
	b.Emit(EventTransitionSucc, EventPayload{})

	assert.Equal(t, 1, calls)
}

func TestEventBus_UnsubscribeIsIdempotent(t *testing.T) {
	t.Parallel()

	b := newEventBus(nil)
	sub := b.Subscribe(EventTransitionSucc, func(EventPayload) {})
	assert.NotPanics(t, func() {
		sub.Unsubscribe()
		sub.Unsubscribe()
	})
}

func TestEventBus_SnapshotIterationSurvivesMidEmitSubscribe(t *testing.T) {
	t.Parallel()

	b := newEventBus(nil)
	var calls int
	b.Subscribe(EventTransitionSucc, func(EventPayload) {
		calls++
		// subscribing another listener mid-emit must not affect this emit's snapshot
		b.Subscribe(EventTransitionSucc, func(EventPayload) { calls++ })
	})

	b.Emit(EventTransitionSucc, EventPayload{})
	assert.Equal(t, 1, calls)
}

func TestEventBus_PanicInOneListenerDoesNotStopOthers(t *testing.T) {
	t.Parallel()

	b := newEventBus(nil)
	var secondCalled bool
	b.Subscribe(EventTransitionSucc, func(EventPayload) { panic("boom") })
	// second listener must use a distinct function value to get a distinct key
	b.Subscribe(EventTransitionSucc, func(EventPayload) { secondCalled = true })

	assert.NotPanics(t, func() {
		b.Emit(EventTransitionSucc, EventPayload{})
	})
	assert.True(t, secondCalled)
}

func TestEventBus_ReentrantEmitDepthCeiling(t *testing.T) {
	t.Parallel()

	b := newEventBus(nil)
	var depth int
	b.Subscribe(EventTransitionSucc, func(EventPayload) {
		depth++
		if depth <= maxEmitReentrance {
			b.Emit(EventTransitionSucc, EventPayload{})
		}
	})

	assert.Panics(t, func() {
		b.Emit(EventTransitionSucc, EventPayload{})
	})
}

func TestEventBus_HasListeners(t *testing.T) {
	t.Parallel()

	b := newEventBus(nil)
	assert.False(t, b.HasListeners(EventTransitionSucc))
	b.Subscribe(EventTransitionSucc, func(EventPayload) {})
	assert.True(t, b.HasListeners(EventTransitionSucc))
}

func TestEventBus_SubscribeSuccess(t *testing.T) {
	t.Parallel()

	b := newEventBus(nil)
	var got SuccessPayload
	b.SubscribeSuccess(func(p SuccessPayload) { got = p })

	to, from := &State{Name: "a"}, &State{Name: "b"}
	b.Emit(EventTransitionSucc, EventPayload{ToState: to, FromState: from})
	assert.Same(t, to, got.Route)
	assert.Same(t, from, got.PreviousRoute)
}

func TestEventBus_ObserveReplaysCurrent(t *testing.T) {
	t.Parallel()

	b := newEventBus(nil)
	current := &State{Name: "home"}

	var mu sync.Mutex
	var received *State
	done := make(chan struct{})

	b.observe(Observer{
		OnNext: func(s *State) {
			mu.Lock()
			received = s
			mu.Unlock()
			close(done)
		},
	}, ObserveOptions{}, func() *State { return current }, func(f func()) { go f() })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for replay")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Same(t, current, received)
}

func TestEventBus_ObserveNoReplayWhenDisabled(t *testing.T) {
	t.Parallel()

	b := newEventBus(nil)
	current := &State{Name: "home"}
	noReplay := false

	var called bool
	b.observe(Observer{
		OnNext: func(*State) { called = true },
	}, ObserveOptions{Replay: &noReplay}, func() *State { return current }, func(f func()) { go f() })

	time.Sleep(20 * time.Millisecond)
	assert.False(t, called)
}

func TestEventBus_ObserveDeliversErrorAndNext(t *testing.T) {
	t.Parallel()

	b := newEventBus(nil)
	noReplay := false
	var nextState *State
	var gotErr *RouterError

	sub := b.observe(Observer{
		OnNext:  func(s *State) { nextState = s },
		OnError: func(e *RouterError) { gotErr = e },
	}, ObserveOptions{Replay: &noReplay}, func() *State { return nil }, func(f func()) { f() })
	defer sub.Unsubscribe()

	to := &State{Name: "x"}
	b.Emit(EventTransitionSucc, EventPayload{ToState: to})
	assert.Same(t, to, nextState)

	routerErr := NewRouterError(ErrCodeRouteNotFound, "")
	b.Emit(EventTransitionError, EventPayload{Err: routerErr})
	require.NotNil(t, gotErr)
	assert.Equal(t, ErrCodeRouteNotFound, gotErr.Code)
}
