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
	"context"
	"fmt"
	"reflect"
	"sync"
)

// EventType names one of the six events the bus delivers.
type EventType string

const (
	EventRouterStart      EventType = "ROUTER_START"
	EventRouterStop       EventType = "ROUTER_STOP"
	EventTransitionStart  EventType = "TRANSITION_START"
	EventTransitionSucc   EventType = "TRANSITION_SUCCESS"
	EventTransitionError  EventType = "TRANSITION_ERROR"
	EventTransitionCancel EventType = "TRANSITION_CANCEL"
)

// EventPayload is the tagged-union payload delivered to listeners. Only the
// fields relevant to Type are populated.
type EventPayload struct {
	Type        EventType
	ToState     *State
	FromState   *State
	Options     NavigationOptions
	Err         *RouterError
}

// Listener receives an EventPayload for the event it was subscribed to.
type Listener func(EventPayload)

const (
	maxListenersPerEvent  = 10000
	warnListenersPerEvent = 1000
	maxEmitReentrance     = 5
)

// Subscription is a handle returned by EventBus.Subscribe. Unsubscribe is
// idempotent.
type Subscription struct {
	unsub func()
	once  sync.Once
}

// Unsubscribe removes the listener. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		if s.unsub != nil {
			s.unsub()
		}
	})
}

// eventBus is the typed multi-event emitter. Listeners are
// identified by function reference per event; iteration during emit is done
// over a snapshot so subscribe/unsubscribe mid-emission never skips or
// double-delivers to existing listeners.
type eventBus struct {
	mu        sync.Mutex
	listeners map[EventType][]listenerEntry
	depth     map[EventType]int
	diag      DiagnosticHandler
}

type listenerEntry struct {
	fn  Listener
	key uintptr
}

func newEventBus(diag DiagnosticHandler) *eventBus {
	return &eventBus{
		listeners: make(map[EventType][]listenerEntry),
		depth:     make(map[EventType]int),
		diag:      diag,
	}
}

func funcKey(fn Listener) uintptr {
	return reflect.ValueOf(fn).Pointer()
}

// Subscribe registers fn for event. Registering the same function reference
// twice for the same event panics, since idempotent double-subscription
// would silently change delivery counts.
func (b *eventBus) Subscribe(event EventType, fn Listener) *Subscription {
	key := funcKey(fn)
	b.mu.Lock()
	for _, l := range b.listeners[event] {
		if l.key == key {
			b.mu.Unlock()
			panic(fmt.Sprintf("navigation: listener already registered for event %s", event))
		}
	}
	b.listeners[event] = append(b.listeners[event], listenerEntry{fn: fn, key: key})
	n := len(b.listeners[event])
	b.mu.Unlock()

	if n == warnListenersPerEvent {
		emit(b.diag, DiagListenerCountWarn, "event listener count crossed warning threshold",
			map[string]any{"event": string(event), "count": n})
	}
	if n > maxListenersPerEvent {
		panic(fmt.Sprintf("navigation: event %s exceeds hard listener ceiling of %d", event, maxListenersPerEvent))
	}

	return &Subscription{unsub: func() { b.unsubscribe(event, key) }}
}

func (b *eventBus) unsubscribe(event EventType, key uintptr) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entries := b.listeners[event]
	for i, l := range entries {
		if l.key == key {
			b.listeners[event] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

// HasListeners reports whether event has any subscribers, for emit-path
// short-circuiting.
func (b *eventBus) HasListeners(event EventType) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[event]) > 0
}

// Emit delivers payload to a snapshot of event's listeners taken at call
// time. Per-listener panics are recovered, logged via diagnostics, and do
// not stop delivery to the remaining listeners. Reentrant Emit calls for the
// same event are capped at maxEmitReentrance; exceeding the cap panics, and
// that panic is not recovered as a listener failure, so it propagates out of
// the outermost Emit call.
func (b *eventBus) Emit(event EventType, payload EventPayload) {
	b.mu.Lock()
	if b.depth[event] >= maxEmitReentrance {
		b.mu.Unlock()
		panic(emitDepthExceeded(fmt.Sprintf("navigation: event %s exceeded reentrant emit depth of %d", event, maxEmitReentrance)))
	}
	b.depth[event]++
	snapshot := make([]listenerEntry, len(b.listeners[event]))
	copy(snapshot, b.listeners[event])
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.depth[event]--
		b.mu.Unlock()
	}()

	for _, l := range snapshot {
		func() {
			defer func() {
				if r := recover(); r != nil {
					if _, ok := r.(emitDepthExceeded); ok {
						panic(r)
					}
					emit(b.diag, DiagGuardDenial, "event listener panicked",
						map[string]any{"event": string(event), "recovered": fmt.Sprint(r)})
				}
			}()
			l.fn(payload)
		}()
	}
}

// emitDepthExceeded is the panic value Emit raises when the reentrancy cap is
// hit; the per-listener recover re-raises it rather than logging it.
type emitDepthExceeded string

// SuccessPayload is the payload delivered to SubscribeSuccess, the
// TRANSITION_SUCCESS convenience wrapper below.
type SuccessPayload struct {
	Route         *State
	PreviousRoute *State
}

// SubscribeSuccess registers a listener for TRANSITION_SUCCESS delivering
// the simplified {route, previousRoute} shape as a standalone convenience
// on top of the general typed bus.
func (b *eventBus) SubscribeSuccess(fn func(SuccessPayload)) *Subscription {
	return b.Subscribe(EventTransitionSucc, func(p EventPayload) {
		fn(SuccessPayload{Route: p.ToState, PreviousRoute: p.FromState})
	})
}

// Observer is the Observable-shaped adapter's callback interface: OnNext
// receives each successful state, OnError receives denials.
type Observer struct {
	OnNext func(*State)
	OnError func(*RouterError)
}

// ObserveOptions configures the Observable adapter.
type ObserveOptions struct {
	// Signal, when non-nil, unsubscribes the observer once cancelled.
	Signal context.Context
	// Replay, if true (the default), asynchronously delivers the router's
	// current state to a new subscriber before any future transitions.
	Replay *bool
}

// replayEnabled returns the effective replay flag, defaulting to true.
func (o ObserveOptions) replayEnabled() bool {
	return o.Replay == nil || *o.Replay
}

// observe wires an Observer to the bus's TRANSITION_SUCCESS/ERROR events and
// optionally replays current via the given async poster (the caller's
// cooperative scheduler stand-in).
func (b *eventBus) observe(obs Observer, opts ObserveOptions, current func() *State, postAsync func(func())) *Subscription {
	sub := b.Subscribe(EventTransitionSucc, func(p EventPayload) {
		if obs.OnNext != nil {
			obs.OnNext(p.ToState)
		}
	})
	var errSub *Subscription
	if obs.OnError != nil {
		errSub = b.Subscribe(EventTransitionError, func(p EventPayload) {
			obs.OnError(p.Err)
		})
	}

	combined := &Subscription{unsub: func() {
		sub.Unsubscribe()
		if errSub != nil {
			errSub.Unsubscribe()
		}
	}}

	if opts.Signal != nil {
		go func() {
			<-opts.Signal.Done()
			combined.Unsubscribe()
		}()
	}

	if opts.replayEnabled() && obs.OnNext != nil {
		if cur := current(); cur != nil {
			postAsync(func() { obs.OnNext(cur) })
		}
	}

	return combined
}
