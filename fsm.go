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
	"fmt"
	"sync"
)

// LifecycleState is one of the five states the router's lifecycle FSM can
// occupy.
type LifecycleState string

const (
	StateIdle          LifecycleState = "IDLE"
	StateStarting      LifecycleState = "STARTING"
	StateReady         LifecycleState = "READY"
	StateTransitioning LifecycleState = "TRANSITIONING"
	StateDisposed      LifecycleState = "DISPOSED"
)

// LifecycleEvent drives a lifecycle transition.
type LifecycleEvent string

const (
	EventStart    LifecycleEvent = "START"
	EventStarted  LifecycleEvent = "STARTED"
	EventFail     LifecycleEvent = "FAIL"
	EventNavigate LifecycleEvent = "NAVIGATE"
	EventComplete LifecycleEvent = "COMPLETE"
	EventCancel   LifecycleEvent = "CANCEL"
	EventStop     LifecycleEvent = "STOP"
	EventDispose  LifecycleEvent = "DISPOSE"
)

// TransitionInfo describes a single lifecycle state change, delivered to
// onTransition observers after per-transition actions run.
type TransitionInfo struct {
	From  LifecycleState
	To    LifecycleState
	Event LifecycleEvent
}

// transitionTable encodes the permitted (from, event) -> to edges. NAVIGATE
// from TRANSITIONING is a self-loop (supersession): the FSM stays
// TRANSITIONING.
var transitionTable = map[LifecycleState]map[LifecycleEvent]LifecycleState{
	StateIdle: {
		EventStart:   StateStarting,
		EventDispose: StateDisposed,
	},
	StateStarting: {
		EventStarted: StateReady,
		EventFail:    StateIdle,
		EventDispose: StateDisposed,
	},
	StateReady: {
		EventNavigate: StateTransitioning,
		EventStop:     StateIdle,
		EventFail:     StateReady,
		EventDispose:  StateDisposed,
	},
	StateTransitioning: {
		EventComplete: StateReady,
		EventCancel:   StateReady,
		EventFail:     StateReady,
		EventNavigate: StateTransitioning,
		EventStop:     StateIdle,
		EventDispose:  StateDisposed,
	},
}

// lifecycleAction runs synchronously for a specific (from, event) pair
// before observers are notified. An action's panic is not recovered: it
// propagates to the caller of Fire and halts further observers, leaving the
// state change itself in place.
type lifecycleAction func(info TransitionInfo)

// lifecycleFSM is the tiny synchronous state machine gating which router
// operations are legal. State is updated before any observer
// runs, so a reentrant observer that triggers another event sees the
// post-state.
type lifecycleFSM struct {
	mu        sync.Mutex
	state     LifecycleState
	actions   map[[2]string]lifecycleAction
	observers []onTransitionFunc // nil slots are vacated slots, reused on Subscribe
}

type onTransitionFunc func(TransitionInfo)

func newLifecycleFSM() *lifecycleFSM {
	return &lifecycleFSM{state: StateIdle, actions: make(map[[2]string]lifecycleAction)}
}

// State returns the current lifecycle state.
func (f *lifecycleFSM) State() LifecycleState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// RegisterAction registers an action run before observers whenever (from,
// event) fires. A second registration for the same pair replaces the first.
func (f *lifecycleFSM) RegisterAction(from LifecycleState, event LifecycleEvent, action lifecycleAction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions[[2]string{string(from), string(event)}] = action
}

// OnTransition subscribes an observer invoked after every successful Fire.
// Returns an index usable with Unsubscribe; slots vacated by Unsubscribe are
// reused by later subscriptions instead of shifting the slice.
func (f *lifecycleFSM) OnTransition(obs onTransitionFunc) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, slot := range f.observers {
		if slot == nil {
			f.observers[i] = obs
			return i
		}
	}
	f.observers = append(f.observers, obs)
	return len(f.observers) - 1
}

// Unsubscribe vacates the observer slot at index, which may later be reused.
func (f *lifecycleFSM) Unsubscribe(index int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if index >= 0 && index < len(f.observers) {
		f.observers[index] = nil
	}
}

// Fire attempts (f.state, event) -> next. Returns the resulting
// TransitionInfo, or an error if the edge isn't in the transition table.
// The state is committed before the registered action and observers run.
func (f *lifecycleFSM) Fire(event LifecycleEvent) (TransitionInfo, error) {
	f.mu.Lock()
	from := f.state
	edges, ok := transitionTable[from]
	if !ok {
		f.mu.Unlock()
		return TransitionInfo{}, fmt.Errorf("navigation: no transitions defined from state %s", from)
	}
	to, ok := edges[event]
	if !ok {
		f.mu.Unlock()
		return TransitionInfo{}, fmt.Errorf("navigation: event %s is not legal from state %s", event, from)
	}
	f.state = to
	action := f.actions[[2]string{string(from), string(event)}]
	observers := make([]onTransitionFunc, len(f.observers))
	copy(observers, f.observers)
	f.mu.Unlock()

	info := TransitionInfo{From: from, To: to, Event: event}
	if action != nil {
		action(info)
	}
	for _, obs := range observers {
		if obs != nil {
			obs(info)
		}
	}
	return info, nil
}

// CanFire reports whether event is legal from the current state without
// actually firing it.
func (f *lifecycleFSM) CanFire(event LifecycleEvent) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	edges, ok := transitionTable[f.state]
	if !ok {
		return false
	}
	_, ok = edges[event]
	return ok
}
