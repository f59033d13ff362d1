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
	"reflect"
	"sync"
)

// GuardResult is what a Guard reports back to the transition engine. Guards
// cannot redirect, an explicit design choice to eliminate cycles: returning
// Allow=false with AttemptedRedirect set records the
// attempt on the resulting CANNOT_ACTIVATE/CANNOT_DEACTIVATE error, but the
// transition is still denied, never redirected.
type GuardResult struct {
	Allow             bool
	AttemptedRedirect *State
}

// Guard is the materialized, callable predicate consulted before
// activating/deactivating a route.
type Guard func(ctx context.Context, to, from *State) (GuardResult, error)

// GuardFactory produces a Guard once per route, given a handle to the
// router and its dependency accessor.
type GuardFactory func(r *Router, deps *DependenciesFacet) Guard

// AllowGuard is a trivial GuardFactory that always allows, the Go analog of
// a boolean-true shorthand for canActivate/canDeactivate.
func AllowGuard() GuardFactory {
	return func(*Router, *DependenciesFacet) Guard {
		return func(context.Context, *State, *State) (GuardResult, error) {
			return GuardResult{Allow: true}, nil
		}
	}
}

// DenyGuard is the boolean-false shorthand.
func DenyGuard() GuardFactory {
	return func(*Router, *DependenciesFacet) Guard {
		return func(context.Context, *State, *State) (GuardResult, error) {
			return GuardResult{Allow: false}, nil
		}
	}
}

// clearGuardFactory is never invoked; it exists only for its function
// pointer identity, recognized by isClearGuard.
func clearGuardFactory(*Router, *DependenciesFacet) Guard { return nil }

// ClearGuard is the sentinel GuardFactory that RoutesAPI.Update recognizes
// as an explicit request to remove name's definition-sourced guard. A plain
// nil CanActivate/CanDeactivate field means "leave the existing guard
// alone"; passing ClearGuard() is the only way to say "remove it" instead.
func ClearGuard() GuardFactory {
	return clearGuardFactory
}

// isClearGuard reports whether f is the ClearGuard sentinel, by function
// pointer identity (the same technique the event bus and plugin registry
// use to key registrations by function reference).
func isClearGuard(f GuardFactory) bool {
	return f != nil && reflect.ValueOf(f).Pointer() == reflect.ValueOf(GuardFactory(clearGuardFactory)).Pointer()
}

type guardSlot struct {
	definition         GuardFactory
	definitionResolved Guard
	definitionDone     bool

	external         []GuardFactory
	externalResolved []Guard // parallel to external, populated lazily

	mu sync.Mutex
}

func newGuardSlot() *guardSlot {
	return &guardSlot{}
}

// materializeDefinition runs the definition-sourced factory at most once per
// slot, caching the resulting Guard: a factory runs once per route to yield
// a callable guard.
func (s *guardSlot) materializeDefinition(r *Router, deps *DependenciesFacet) Guard {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.definitionDone {
		return s.definitionResolved
	}
	s.definitionResolved = s.definition(r, deps)
	s.definitionDone = true
	return s.definitionResolved
}

// materializeExternal runs external factory index i at most once.
func (s *guardSlot) materializeExternal(i int, r *Router, deps *DependenciesFacet) Guard {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.externalResolved) <= i {
		s.externalResolved = append(s.externalResolved, nil)
	}
	if s.externalResolved[i] == nil {
		s.externalResolved[i] = s.external[i](r, deps)
	}
	return s.externalResolved[i]
}

// guardRegistry holds per-route canActivate/canDeactivate factories from
// both sources: definition-sourced (route def or
// routesApi.update) and external (lifecycle API addActivateGuard /
// addDeactivateGuard). Within a route, external guards run before
// definition-sourced ones — the explicit, documented resolution for an
// otherwise-unspecified ordering.
type guardRegistry struct {
	mu         sync.RWMutex
	activate   map[string]*guardSlot
	deactivate map[string]*guardSlot
}

func newGuardRegistry() *guardRegistry {
	return &guardRegistry{activate: make(map[string]*guardSlot), deactivate: make(map[string]*guardSlot)}
}

func (g *guardRegistry) slot(m map[string]*guardSlot, name string) *guardSlot {
	if s, ok := m[name]; ok {
		return s
	}
	s := newGuardSlot()
	m[name] = s
	return s
}

// setDefinitionActivate sets (or, if factory is nil, clears) the
// definition-sourced canActivate factory for name.
func (g *guardRegistry) setDefinitionActivate(name string, factory GuardFactory) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.slot(g.activate, name)
	s.mu.Lock()
	s.definition = factory
	s.definitionDone = false
	s.definitionResolved = nil
	s.mu.Unlock()
}

func (g *guardRegistry) setDefinitionDeactivate(name string, factory GuardFactory) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.slot(g.deactivate, name)
	s.mu.Lock()
	s.definition = factory
	s.definitionDone = false
	s.definitionResolved = nil
	s.mu.Unlock()
}

// addExternalActivate appends an external canActivate factory for name.
func (g *guardRegistry) addExternalActivate(name string, factory GuardFactory) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.slot(g.activate, name)
	s.external = append(s.external, factory)
}

func (g *guardRegistry) addExternalDeactivate(name string, factory GuardFactory) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.slot(g.deactivate, name)
	s.external = append(s.external, factory)
}

// clearDefinitionSourced drops every definition-sourced guard across both
// maps, preserving external guards (survives an empty replace()).
func (g *guardRegistry) clearDefinitionSourced() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, s := range g.activate {
		s.mu.Lock()
		s.definition = nil
		s.definitionDone = false
		s.definitionResolved = nil
		s.mu.Unlock()
	}
	for _, s := range g.deactivate {
		s.mu.Lock()
		s.definition = nil
		s.definitionDone = false
		s.definitionResolved = nil
		s.mu.Unlock()
	}
}

// clone returns a value-copy of g: every GuardFactory reference is shared,
// but the maps and slices are independent, and the materialized-guard cache
// is not carried over (a clone gets its own router handle, so any factory
// touching the router must re-materialize against it).
func (g *guardRegistry) clone() *guardRegistry {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := newGuardRegistry()
	for name, s := range g.activate {
		ns := newGuardSlot()
		ns.definition = s.definition
		ns.external = append([]GuardFactory(nil), s.external...)
		out.activate[name] = ns
	}
	for name, s := range g.deactivate {
		ns := newGuardSlot()
		ns.definition = s.definition
		ns.external = append([]GuardFactory(nil), s.external...)
		out.deactivate[name] = ns
	}
	return out
}

// clearRoute drops both definition-sourced and external guards for name
// (used by Remove and by Add's rollback; Clear uses clearAll).
func (g *guardRegistry) clearRoute(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.activate, name)
	delete(g.deactivate, name)
}

// clearAll drops every guard, both sources, for every route.
func (g *guardRegistry) clearAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.activate = make(map[string]*guardSlot)
	g.deactivate = make(map[string]*guardSlot)
}

// resolve materializes and runs, in order (external, then
// definition-sourced), every guard registered for name against (to, from).
// The first denial short-circuits; an empty guard list allows.
func (g *guardRegistry) resolve(m map[string]*guardSlot, name string, r *Router, deps *DependenciesFacet, ctx context.Context, to, from *State) (GuardResult, error) {
	g.mu.RLock()
	s, ok := m[name]
	g.mu.RUnlock()
	if !ok {
		return GuardResult{Allow: true}, nil
	}

	for i := range s.external {
		guard := s.materializeExternal(i, r, deps)
		result, err := guard(ctx, to, from)
		if err != nil {
			return GuardResult{}, err
		}
		if !result.Allow {
			return result, nil
		}
	}
	if s.definition != nil {
		guard := s.materializeDefinition(r, deps)
		result, err := guard(ctx, to, from)
		if err != nil {
			return GuardResult{}, err
		}
		if !result.Allow {
			return result, nil
		}
	}
	return GuardResult{Allow: true}, nil
}

func (g *guardRegistry) resolveActivate(name string, r *Router, deps *DependenciesFacet, ctx context.Context, to, from *State) (GuardResult, error) {
	g.mu.RLock()
	m := g.activate
	g.mu.RUnlock()
	return g.resolve(m, name, r, deps, ctx, to, from)
}

func (g *guardRegistry) resolveDeactivate(name string, r *Router, deps *DependenciesFacet, ctx context.Context, to, from *State) (GuardResult, error) {
	g.mu.RLock()
	m := g.deactivate
	g.mu.RUnlock()
	return g.resolve(m, name, r, deps, ctx, to, from)
}
