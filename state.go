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
	"maps"

	"github.com/google/uuid"
)

// Params maps a route parameter name to its decoded value. Values are one of
// string, number (float64/int), bool, or nil — the set a path codec can
// reasonably decode from a URL segment or query string.
type Params map[string]any

// Clone returns a shallow copy of p. A nil receiver clones to an empty map.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	maps.Copy(out, p)
	return out
}

// Equal reports whether p and other contain the same keys and values. Used
// by the transition engine's same-state short-circuit.
func (p Params) Equal(other Params) bool {
	if len(p) != len(other) {
		return false
	}
	for k, v := range p {
		ov, ok := other[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

// Meta carries the provenance of a State: the navigation id that produced
// it, a globally unique correlation id (for tying a navigation to an
// upstream request or trace across process boundaries), the params as
// originally supplied (before defaultParams merge), the navigation options
// snapshot, and an optional
// opaque source tag.
type Meta struct {
	ID            uint64
	CorrelationID string
	Params        Params
	Options       NavigationOptions
	Source        string
}

// newCorrelationID mints the CorrelationID stamped onto a Meta at the start
// of a transition attempt.
func newCorrelationID() string {
	return uuid.NewString()
}

// State is the authoritative description of "where the router is". States
// are immutable once built: Freeze is called before a state is ever handed
// to a caller or emitted on the event bus, and every field that is itself a
// reference type (Params, Meta.Params, Meta.Options.Custom) is deep-copied
// at that point so later mutation by a caller cannot reach back into the
// router's own bookkeeping.
type State struct {
	Name   string
	Params Params
	Path   string
	Meta   *Meta

	frozen bool
}

// Frozen reports whether s has been through Freeze, a testable analog of
// Object.isFrozen(s) without relying on language-level immutability Go
// doesn't have.
func (s *State) Frozen() bool {
	return s != nil && s.frozen
}

// Freeze returns an immutable copy of s: its own Params, Meta, Meta.Params
// and Meta.Options are all deep-copied so the returned State shares no
// mutable memory with s or with the router's internals. Freeze is
// idempotent — freezing an already-frozen state clones it again rather than
// mutating the receiver, since States are value-like once frozen.
func (s *State) Freeze() *State {
	if s == nil {
		return nil
	}
	out := &State{
		Name:   s.Name,
		Params: s.Params.Clone(),
		Path:   s.Path,
		frozen: true,
	}
	if s.Meta != nil {
		out.Meta = &Meta{
			ID:            s.Meta.ID,
			CorrelationID: s.Meta.CorrelationID,
			Params:        s.Meta.Params.Clone(),
			Options:       s.Meta.Options.clone(),
			Source:        s.Meta.Source,
		}
	}
	return out
}

// SameRoute reports whether s and other target the same route name with
// deep-equal params, independent of path string formatting.
func (s *State) SameRoute(other *State) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.Name == other.Name && s.Params.Equal(other.Params)
}

// Clone returns a deep copy of s, frozen or not matching the receiver.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := *s
	c.Params = s.Params.Clone()
	if s.Meta != nil {
		m := *s.Meta
		m.Params = s.Meta.Params.Clone()
		m.Options = s.Meta.Options.clone()
		c.Meta = &m
	}
	return &c
}
