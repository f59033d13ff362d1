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

// DependenciesFacet is the narrow view of the dependency bag handed to
// guard/middleware/plugin factories and returned by Router.Dependencies.
type DependenciesFacet struct {
	bag *dependencyBag
}

func (d *DependenciesFacet) Set(key string, value any) error       { return d.bag.Set(key, value) }
func (d *DependenciesFacet) SetAll(values map[string]any) error    { return d.bag.SetAll(values) }
func (d *DependenciesFacet) Get(key string) (any, error)           { return d.bag.Get(key) }
func (d *DependenciesFacet) GetAll() map[string]any                { return d.bag.GetAll() }
func (d *DependenciesFacet) Has(key string) bool                   { return d.bag.Has(key) }
func (d *DependenciesFacet) Remove(key string) error                { return d.bag.Remove(key) }
func (d *DependenciesFacet) Reset() error                          { return d.bag.Reset() }

// setOf converts a name slice to a lookup set.
func setOf(names []string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}

// RoutesAPI manages the route tree and its side tables as a single atomic
// unit: every mutation that touches more than one
// substructure (tree, config store, guard registry) either fully applies or
// is rolled back.
type RoutesAPI struct {
	r *Router
}

// Add registers one or more route (sub)trees atomically.
func (a *RoutesAPI) Add(defs ...RouteDef) error {
	r := a.r
	if err := r.requireLive("routes.add"); err != nil {
		return err
	}
	flat, err := r.tree.planAdd(defs)
	if err != nil {
		return err
	}
	r.tree.commitAdd(flat)
	for _, d := range flat {
		r.config.set(d.Name, d)
		if d.CanActivate != nil {
			r.guards.setDefinitionActivate(d.Name, d.CanActivate)
		}
		if d.CanDeactivate != nil {
			r.guards.setDefinitionDeactivate(d.Name, d.CanDeactivate)
		}
	}
	if err := r.config.recomputeResolvedForwardMap(setOf(r.tree.names())); err != nil {
		for _, d := range flat {
			r.tree.remove([]string{d.Name})
			r.config.clear(d.Name)
			r.guards.clearRoute(d.Name)
		}
		return typeError("routes.add", "%v", err)
	}
	for _, d := range flat {
		if d.CanActivate != nil && !d.ForwardTo.isZero() {
			emit(r.diag, DiagForwardGuardBypass, "route has both forwardTo and canActivate; the guard is bypassed on forwarded navigations", map[string]any{"route": d.Name})
		}
	}
	return nil
}

// Remove deletes name and its entire dot-notation subtree.
func (a *RoutesAPI) Remove(name string) error {
	r := a.r
	if err := r.requireLive("routes.remove"); err != nil {
		return err
	}
	names := r.tree.subtreeNames(name)
	if len(names) == 0 {
		return NewRouterError(ErrCodeRouteNotFound, "").WithSegment(name)
	}
	removed := setOf(names)
	r.tree.remove(names)
	for _, n := range names {
		r.config.clear(n)
		r.guards.clearRoute(n)
	}
	r.config.invalidateTargets(removed)
	_ = r.config.recomputeResolvedForwardMap(setOf(r.tree.names()))
	return nil
}

// Update patches name's side properties (guards, param codecs,
// defaultParams, forwardTo) in place; its Path and position in the tree are
// unchanged. A nil CanActivate/CanDeactivate leaves the existing
// definition-sourced guard untouched; pass ClearGuard() to remove it.
func (a *RoutesAPI) Update(name string, def RouteDef) error {
	r := a.r
	if err := r.requireLive("routes.update"); err != nil {
		return err
	}
	existing, ok := r.tree.get(name)
	if !ok {
		return NewRouterError(ErrCodeRouteNotFound, "").WithSegment(name)
	}
	def.Name = name
	if def.Path == "" {
		def.Path = existing.Path
	}
	staged := r.config.cloneStore()
	staged.set(name, def)
	if err := staged.recomputeResolvedForwardMap(setOf(r.tree.names())); err != nil {
		return err
	}
	r.config.set(name, def)
	switch {
	case isClearGuard(def.CanActivate):
		r.guards.setDefinitionActivate(name, nil)
	case def.CanActivate != nil:
		r.guards.setDefinitionActivate(name, def.CanActivate)
	}
	switch {
	case isClearGuard(def.CanDeactivate):
		r.guards.setDefinitionDeactivate(name, nil)
	case def.CanDeactivate != nil:
		r.guards.setDefinitionDeactivate(name, def.CanDeactivate)
	}
	return r.config.recomputeResolvedForwardMap(setOf(r.tree.names()))
}

// Replace atomically swaps the entire route tree for defs. External guards
// (registered via the Lifecycle facet) survive; definition-sourced guards do
// not, since they came from the definitions being replaced.
func (a *RoutesAPI) Replace(defs []RouteDef) error {
	r := a.r
	if err := r.requireLive("routes.replace"); err != nil {
		return err
	}
	if r.fsm.State() == StateTransitioning {
		emit(r.diag, DiagReplaceWhileInFlight, "routes.replace ignored: a transition is in flight", nil)
		return nil
	}
	staging := newRouteTree()
	flat, err := staging.planAdd(defs)
	if err != nil {
		return err
	}
	stagedConfig := newConfigStore()
	stagedNames := make(map[string]bool, len(flat))
	for _, d := range flat {
		stagedConfig.set(d.Name, d)
		stagedNames[d.Name] = true
	}
	if err := stagedConfig.recomputeResolvedForwardMap(stagedNames); err != nil {
		return err
	}
	r.tree.replace(flat)
	r.config.clearAll()
	r.guards.clearDefinitionSourced()
	for _, d := range flat {
		r.config.set(d.Name, d)
		if d.CanActivate != nil {
			r.guards.setDefinitionActivate(d.Name, d.CanActivate)
		}
		if d.CanDeactivate != nil {
			r.guards.setDefinitionDeactivate(d.Name, d.CanDeactivate)
		}
	}
	return r.config.recomputeResolvedForwardMap(setOf(r.tree.names()))
}

// Clear empties the route tree, its side tables, and every guard (both
// sources).
func (a *RoutesAPI) Clear() error {
	r := a.r
	if err := r.requireLive("routes.clear"); err != nil {
		return err
	}
	r.tree.clear()
	r.config.clearAll()
	r.guards.clearAll()
	return nil
}

// Has reports whether name is registered.
func (a *RoutesAPI) Has(name string) bool { return a.r.tree.has(name) }

// Get returns the stored (name, path) core for name.
func (a *RoutesAPI) Get(name string) (RouteDef, bool) { return a.r.tree.get(name) }

// Names returns every registered route name.
func (a *RoutesAPI) Names() []string { return a.r.tree.names() }

// LifecycleAPI registers guards from outside a route's own definition.
// These run before any definition-sourced guard on the same route.
type LifecycleAPI struct {
	r *Router
}

// AddActivateGuard appends an external canActivate factory for name.
func (l *LifecycleAPI) AddActivateGuard(name string, factory GuardFactory) {
	l.r.guards.addExternalActivate(name, factory)
}

// AddDeactivateGuard appends an external canDeactivate factory for name.
func (l *LifecycleAPI) AddDeactivateGuard(name string, factory GuardFactory) {
	l.r.guards.addExternalDeactivate(name, factory)
}
