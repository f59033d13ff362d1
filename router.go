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
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"
)

// Router is the navigation engine. Construct one with New or
// MustNew, register routes via Routes(), then Start it before calling
// Navigate.
type Router struct {
	optsMu sync.RWMutex
	opts   Options

	tree    *routeTree
	config  *configStore
	guards  *guardRegistry
	plugins *pluginRegistry
	mw      *middlewareChain
	deps    *dependencyBag
	fsm     *lifecycleFSM
	events  *eventBus

	diag    DiagnosticHandler
	tracer  trace.Tracer
	codec   PathCodec
	metrics *metricsRecorder

	stateMu sync.RWMutex
	current *State

	navCounter uint64 // atomic: monotonically increasing navigation id source

	navMu  sync.Mutex
	active *navAttempt // the in-flight navigation, if any; superseded by beginNav

	disposedFlag atomic.Bool
}

// New constructs a Router from the given options. The returned Router is in
// the IDLE lifecycle state; call Start to bring it to READY.
func New(options ...Option) (*Router, error) {
	opts := defaultOptions()
	for _, o := range options {
		o(&opts)
	}
	if opts.Diagnostics == nil {
		opts.Diagnostics = defaultDiagnostics()
	}
	if opts.Codec == nil {
		opts.Codec = newDefaultPathCodec()
	}

	r := &Router{
		opts:    opts.clone(),
		tree:    newRouteTree(),
		config:  newConfigStore(),
		guards:  newGuardRegistry(),
		plugins: newPluginRegistry(opts.Diagnostics),
		mw:      newMiddlewareChain(opts.Diagnostics),
		deps:    newDependencyBag(opts.Diagnostics),
		fsm:     newLifecycleFSM(),
		events:  newEventBus(opts.Diagnostics),
		diag:    opts.Diagnostics,
		tracer:  opts.Tracer,
		codec:   opts.Codec,
	}
	r.metrics = newMetricsRecorder(opts.Meter, r)
	return r, nil
}

// MustNew is New, panicking on error. New currently never errors, but
// MustNew is kept for symmetry with the constructors the rest of this
// ecosystem favors and to absorb future validation without a signature
// change.
func MustNew(options ...Option) *Router {
	r, err := New(options...)
	if err != nil {
		panic(err)
	}
	return r
}

// Options returns a copy of the router's active configuration.
func (r *Router) Options() Options {
	r.optsMu.RLock()
	defer r.optsMu.RUnlock()
	return r.opts.clone()
}

// SetDefaultRoute patches the default route name, usable even after Start —
// DefaultRoute/DefaultParams are the two options mutable post-start.
func (r *Router) SetDefaultRoute(name string) {
	r.optsMu.Lock()
	defer r.optsMu.Unlock()
	r.opts.DefaultRoute = name
}

// SetDefaultParams patches the default params, usable even after Start.
func (r *Router) SetDefaultParams(params Params) {
	r.optsMu.Lock()
	defer r.optsMu.Unlock()
	r.opts.DefaultParams = params.Clone()
}

// State returns the router's current State, or nil before the first
// successful transition and after Stop.
func (r *Router) State() *State {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	return r.current
}

func (r *Router) setState(s *State) {
	r.stateMu.Lock()
	r.current = s
	r.stateMu.Unlock()
}

// IsStarted reports whether the router has completed Start and is not yet
// Stopped or Disposed.
func (r *Router) IsStarted() bool {
	switch r.fsm.State() {
	case StateReady, StateTransitioning:
		return true
	default:
		return false
	}
}

// IsDisposed reports whether Dispose has been called.
func (r *Router) IsDisposed() bool {
	return r.disposedFlag.Load()
}

func (r *Router) requireLive(method string) error {
	if r.disposedFlag.Load() {
		err := NewRouterError(ErrCodeRouterDisposed, "")
		err.WithField("method", method) //nolint:errcheck // "method" is never one of the reserved field names
		return err
	}
	return nil
}

// Events exposes the typed event bus.
func (r *Router) Events() *eventBus { return r.events }

// Dependencies returns the facet used to read/write the process-scoped
// dependency bag.
func (r *Router) Dependencies() *DependenciesFacet { return &DependenciesFacet{bag: r.deps} }

// Routes returns the facet used to manage the route tree.
func (r *Router) Routes() *RoutesAPI { return &RoutesAPI{r: r} }

// Lifecycle returns the facet used to register external guards.
func (r *Router) Lifecycle() *LifecycleAPI { return &LifecycleAPI{r: r} }

// Use registers a batch of plugin factories atomically.
func (r *Router) Use(factories ...PluginFactory) (unsubscribe func(), err error) {
	if err := r.requireLive("router.use"); err != nil {
		return nil, err
	}
	return r.plugins.Use(r, factories...)
}

// UseMiddleware registers a batch of middleware factories atomically.
func (r *Router) UseMiddleware(factories ...MiddlewareFactory) (unsubscribe func(), err error) {
	if err := r.requireLive("router.useMiddleware"); err != nil {
		return nil, err
	}
	return r.mw.Use(r, factories...)
}

// AddEventListener subscribes fn to event, usable by plugins and
// middleware given direct access to the Router.
func (r *Router) AddEventListener(event EventType, fn Listener) *Subscription {
	return r.events.Subscribe(event, fn)
}

// MatchPath resolves path against the route tree via the configured
// PathCodec, returning a non-frozen State on a match.
func (r *Router) MatchPath(path string) (*State, error) {
	routes := r.codecRoutes()
	opts := r.Options()
	name, params, ok, err := r.codec.Match(path, routes, opts)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewRouterError(ErrCodeRouteNotFound, "").WithPath(path)
	}
	return &State{Name: name, Params: params, Path: path}, nil
}

// BuildPath renders name's path pattern against params via the configured
// PathCodec.
func (r *Router) BuildPath(name string, params Params) (string, error) {
	return r.codec.Build(name, params, r.codecRoutes(), r.Options())
}

func (r *Router) codecRoutes() []CodecRoute {
	names := r.tree.names()
	out := make([]CodecRoute, 0, len(names))
	for _, n := range names {
		if def, ok := r.tree.get(n); ok {
			out = append(out, CodecRoute{Name: def.Name, Path: def.Path})
		}
	}
	return out
}

// MakeState builds a State for name/params without resolving a path,
// merging the route's defaultParams under params and deriving Path via the
// codec. decodeParams and encodeParams are not applied.
func (r *Router) MakeState(name string, params Params, source string) (*State, error) {
	if !r.tree.has(name) && !isSystemName(name) {
		return nil, NewRouterError(ErrCodeRouteNotFound, "").WithSegment(name)
	}
	merged := r.mergedParams(name, params)
	path, err := r.BuildPath(name, merged)
	if err != nil {
		return nil, err
	}
	return &State{Name: name, Params: merged, Path: path, Meta: &Meta{Source: source}}, nil
}

func (r *Router) mergedParams(name string, params Params) Params {
	_, _, defaults, _, _ := r.config.get(name)
	out := defaults.Clone()
	for k, v := range params {
		out[k] = v
	}
	return out
}

// ForwardState resolves name's forwardTo edge (string or function-valued),
// returning the terminal target name unchanged when there is none.
func (r *Router) ForwardState(name string) (string, error) {
	if target, ok := r.config.resolvedForward(name); ok {
		if _, _, _, hasForward, forward := r.config.get(target); hasForward && forward.Func != nil {
			return r.ForwardState(target)
		}
		return target, nil
	}
	_, _, _, hasForward, forward := r.config.get(name)
	if !hasForward {
		return name, nil
	}
	if forward.Func != nil {
		next := forward.Func()
		if next == "" {
			return name, nil
		}
		return r.ForwardState(next)
	}
	return forward.Name, nil
}

// Dispose permanently halts the router: the lifecycle FSM moves to
// DISPOSED, the dependency bag is marked disposed, every plugin's Teardown
// hook runs, and all subsequent mutating calls return ROUTER_DISPOSED.
// Dispose is idempotent.
func (r *Router) Dispose() error {
	if r.disposedFlag.Swap(true) {
		return nil
	}
	r.fsm.Fire(EventDispose) //nolint:errcheck
	r.deps.dispose()
	r.plugins.notify(func(p Plugin) {
		if p.Teardown != nil {
			p.Teardown()
		}
	})
	return nil
}

// Start transitions the router from IDLE to READY, resolving an initial
// navigation against startPath (if non-empty) or the configured
// DefaultRoute, and emits ROUTER_START once the lifecycle FSM reaches READY.
func (r *Router) Start(ctx context.Context, startPath string) (*State, error) {
	if err := r.requireLive("router.start"); err != nil {
		return nil, err
	}
	if _, err := r.fsm.Fire(EventStart); err != nil {
		return nil, NewRouterError(ErrCodeRouterAlreadyStart, err.Error())
	}
	r.plugins.markStarted()

	var (
		state *State
		err   error
	)
	switch {
	case startPath != "":
		state, err = r.navigateToPathInternal(ctx, startPath, NavigationOptions{Source: "start"}, false)
	default:
		opts := r.Options()
		if opts.DefaultRoute != "" {
			state, err = r.navigateResolved(ctx, opts.DefaultRoute, opts.DefaultParams, NavigationOptions{Source: "start"}, "", false)
		}
	}
	if err != nil {
		r.fsm.Fire(EventFail) //nolint:errcheck
		return nil, err
	}

	if _, fireErr := r.fsm.Fire(EventStarted); fireErr != nil {
		return nil, fireErr
	}
	r.plugins.notify(func(p Plugin) {
		if p.OnStart != nil {
			p.OnStart()
		}
	})
	r.events.Emit(EventRouterStart, EventPayload{Type: EventRouterStart, ToState: state})
	return state, nil
}

// Stop returns the router to IDLE: it cancels any in-flight navigation
// (emitting TRANSITION_CANCEL for it) and clears the current state, and the
// router accepts Start again.
func (r *Router) Stop() error {
	if err := r.requireLive("router.stop"); err != nil {
		return err
	}
	if _, err := r.fsm.Fire(EventStop); err != nil {
		return fmt.Errorf("navigation: %w", err)
	}
	r.navMu.Lock()
	old := r.active
	r.active = nil
	r.navMu.Unlock()
	if old != nil {
		r.supersede(old)
	}
	r.setState(nil)
	r.plugins.notify(func(p Plugin) {
		if p.OnStop != nil {
			p.OnStop()
		}
	})
	r.events.Emit(EventRouterStop, EventPayload{Type: EventRouterStop})
	return nil
}

// beginNav mints a navAttempt and installs it as the active navigation,
// synchronously cancelling whatever attempt it displaces. The displaced
// attempt's guard or middleware call already in progress runs to its end;
// the attempt's next checkAlive then finds it settled and stops it before
// any further guard or middleware runs, and its commit/fail/cancel is a no-op.
func (r *Router) beginNav(from *State) *navAttempt {
	attempt := &navAttempt{id: atomic.AddUint64(&r.navCounter, 1), from: from}
	r.navMu.Lock()
	old := r.active
	r.active = attempt
	r.navMu.Unlock()
	if old != nil {
		r.supersede(old)
	}
	return attempt
}

// Clone returns a new Router with its own copies of this one's route tree,
// side tables, and guard registry, re-initializing this one's plugin and
// middleware factories in order against the clone, and with its own fresh
// current state, event subscribers, and lifecycle FSM. Later mutations of
// either router do not affect the other. The clone's dependency bag is a
// copy of this router's, with newDependencies, if non-nil, merged over it.
func (r *Router) Clone(newDependencies map[string]any) (*Router, error) {
	if err := r.requireLive("router.clone"); err != nil {
		return nil, err
	}
	clone := &Router{
		opts:    r.Options(),
		tree:    r.tree.cloneTree(),
		config:  r.config.cloneStore(),
		guards:  r.guards.clone(),
		plugins: newPluginRegistry(r.diag),
		mw:      newMiddlewareChain(r.diag),
		deps:    r.deps.clone(r.diag),
		fsm:     newLifecycleFSM(),
		events:  newEventBus(r.diag),
		diag:    r.diag,
		tracer:  r.tracer,
		codec:   r.codec,
	}
	clone.metrics = newMetricsRecorder(r.opts.Meter, clone)
	if newDependencies != nil {
		if err := clone.deps.SetAll(newDependencies); err != nil {
			return nil, err
		}
	}
	for _, f := range r.plugins.factories() {
		if _, err := clone.plugins.Use(clone, f); err != nil {
			return nil, err
		}
	}
	for _, f := range r.mw.factories() {
		if _, err := clone.mw.Use(clone, f); err != nil {
			return nil, err
		}
	}
	return clone, nil
}
