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
	"strings"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// unknownRouteName is the system route synthesized when AllowNotFound is set
// and no route matches.
const unknownRouteName = "@@router/UNKNOWN_ROUTE"

// navAttempt tracks one call to Navigate/NavigateToPath/Start's internal
// resolution from beginNav through its single terminal event. Two things
// race to settle it: its own guard/middleware chain reaching commit, fail,
// or cancel, and a later call's beginNav synchronously superseding it.
// settle guarantees only the winner's terminal event is ever emitted; the
// loser's eventual commit/fail/cancel call becomes a pure no-op.
type navAttempt struct {
	id   uint64
	from *State

	mu      sync.Mutex
	to      *State
	navOpts NavigationOptions
	span    trace.Span

	once    sync.Once
	settled atomic.Bool
}

// setTarget records the resolved destination once the attempt has one, so a
// concurrent supersede has something to report on its CANCEL event.
func (a *navAttempt) setTarget(to *State, navOpts NavigationOptions, span trace.Span) {
	a.mu.Lock()
	a.to, a.navOpts, a.span = to, navOpts, span
	a.mu.Unlock()
}

func (a *navAttempt) snapshot() (*State, NavigationOptions, trace.Span) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.to, a.navOpts, a.span
}

// settle runs fn at most once for this attempt and reports whether this
// call is the one that ran it. sync.Once blocks every caller until the
// winner's fn has fully returned, so a loser observes settled already true.
func (a *navAttempt) settle(fn func()) bool {
	ran := false
	a.once.Do(func() {
		ran = true
		a.settled.Store(true)
		fn()
	})
	return ran
}

func (a *navAttempt) isSettled() bool {
	return a.settled.Load()
}

// supersede synchronously emits TRANSITION_CANCEL for old, the attempt
// beginNav just displaced. It never touches the FSM: old may no longer be
// the navigation that owns the TRANSITIONING state, so only the attempt
// that is still active when it reaches its own terminal call may fire one.
func (r *Router) supersede(old *navAttempt) {
	to, _, span := old.snapshot()
	old.settle(func() {
		routerErr := NewRouterError(ErrCodeTransitionCancelled, "navigation superseded by a later call")
		r.emitCancelled(to, old.from, span, routerErr)
	})
}

// emitCancelled runs the plugin/event/span/metrics side effects shared by a
// natural cancellation (cancel) and a synchronous supersede.
func (r *Router) emitCancelled(to, from *State, span trace.Span, routerErr *RouterError) {
	r.plugins.notify(func(p Plugin) {
		if p.OnTransitionCancel != nil {
			p.OnTransitionCancel(to, from)
		}
	})
	r.events.Emit(EventTransitionCancel, EventPayload{Type: EventTransitionCancel, ToState: to, FromState: from})
	r.endSpan(span, codes.Error, routerErr)
	r.metrics.recordCancel(context.Background())
}

// Navigate resolves name against the route tree, runs guards and middleware,
// and — absent a denial, error, supersession, or cancellation — commits the
// result as the router's new State.
//
// A later call to Navigate (or NavigateToPath) made before this one settles
// supersedes it: TRANSITION_CANCEL is emitted for the stale attempt at once,
// instead of TRANSITION_SUCCESS/TRANSITION_ERROR. A guard or middleware call
// of the stale attempt already in progress runs to its end, but the attempt
// stops at its next phase check, so its later guards and middleware do not
// run, and its result is discarded.
func (r *Router) Navigate(ctx context.Context, name string, params Params, opts ...NavigateOption) (*State, error) {
	var navOpts NavigationOptions
	for _, o := range opts {
		o(&navOpts)
	}
	return r.navigate(ctx, name, params, navOpts)
}

// NavigateToPath resolves path via the configured PathCodec and otherwise
// follows the same algorithm as Navigate.
func (r *Router) NavigateToPath(ctx context.Context, path string, opts ...NavigateOption) (*State, error) {
	var navOpts NavigationOptions
	for _, o := range opts {
		o(&navOpts)
	}
	return r.navigateToPath(ctx, path, navOpts)
}

func (r *Router) navigateToPath(ctx context.Context, path string, navOpts NavigationOptions) (*State, error) {
	return r.navigateToPathInternal(ctx, path, navOpts, true)
}

// navigateToPathInternal is shared by NavigateToPath and Start's initial
// resolution; manageLifecycle is false only for the latter.
func (r *Router) navigateToPathInternal(ctx context.Context, path string, navOpts NavigationOptions, manageLifecycle bool) (*State, error) {
	routes := r.codecRoutes()
	opt := r.Options()
	name, params, ok, err := r.codec.Match(path, routes, opt)
	if err != nil {
		return nil, err
	}
	if !ok {
		if opt.AllowNotFound {
			return r.navigateResolved(ctx, unknownRouteName, Params{}, navOpts, path, manageLifecycle)
		}
		return nil, NewRouterError(ErrCodeRouteNotFound, "").WithPath(path)
	}
	return r.navigateResolved(ctx, name, params, navOpts, "", manageLifecycle)
}

func (r *Router) navigate(ctx context.Context, name string, params Params, navOpts NavigationOptions) (*State, error) {
	return r.navigateResolved(ctx, name, params, navOpts, "", true)
}

// navigateResolved runs the full transition algorithm once name/params are
// known (whether supplied directly or resolved from a path by the caller).
// manageLifecycle is false only for the single initial resolution Start
// performs while the lifecycle FSM is still in STARTING: Start itself owns
// that state's NAVIGATE/COMPLETE/FAIL edges, so the transition engine must
// not also try to fire them.
func (r *Router) navigateResolved(ctx context.Context, name string, params Params, navOpts NavigationOptions, requestedPath string, manageLifecycle bool) (*State, error) {
	if r.disposedFlag.Load() {
		return nil, NewRouterError(ErrCodeRouterDisposed, "")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	correlationID := newCorrelationID()
	if manageLifecycle {
		if _, err := r.fsm.Fire(EventNavigate); err != nil {
			return nil, NewRouterError(ErrCodeRouterNotStarted, err.Error())
		}
	}
	r.metrics.recordStart(ctx)

	fromState := r.State()
	attempt := r.beginNav(fromState)

	var span trace.Span
	if r.tracer != nil {
		ctx, span = r.startSpan(ctx, name, attempt.id, correlationID)
	}

	toState, resolveErr := r.resolveTarget(name, params, requestedPath)
	if resolveErr != nil {
		return r.fail(attempt, toState, fromState, navOpts, resolveErr, span, manageLifecycle)
	}

	if toState.SameRoute(fromState) && !navOpts.Reload && !navOpts.Force {
		sameErr := NewRouterError(ErrCodeSameStates, "navigation target equals current state").
			WithSegment(toState.Name)
		return r.fail(attempt, toState, fromState, navOpts, sameErr, span, manageLifecycle)
	}

	toState.Meta = &Meta{ID: attempt.id, CorrelationID: correlationID, Params: params.Clone(), Options: navOpts.clone(), Source: navOpts.Source}
	frozenTo := toState.Freeze()
	attempt.setTarget(frozenTo, navOpts, span)

	if navOpts.SkipTransition {
		return r.commit(attempt, frozenTo, fromState, navOpts, span, manageLifecycle)
	}

	r.events.Emit(EventTransitionStart, EventPayload{Type: EventTransitionStart, ToState: frozenTo, FromState: fromState, Options: navOpts})

	if abort := r.checkAlive(attempt, ctx); abort != nil {
		return r.cancel(attempt, frozenTo, fromState, abort, span, manageLifecycle)
	}

	toActivate, toDeactivate := segmentDiff(fromState, frozenTo)
	deps := r.Dependencies()

	if !navOpts.ForceDeactivate {
		for i := len(toDeactivate) - 1; i >= 0; i-- {
			seg := toDeactivate[i]
			result, err := r.guards.resolveDeactivate(seg, r, deps, ctx, frozenTo, fromState)
			if err != nil {
				return r.fail(attempt, frozenTo, fromState, navOpts, NewRouterError(ErrCodeTransitionErr, err.Error()).WithSegment(seg), span, manageLifecycle)
			}
			if !result.Allow {
				denyErr := NewRouterError(ErrCodeCannotDeactivate, "").WithSegment(seg).WithAttemptedRedirect(result.AttemptedRedirect)
				return r.fail(attempt, frozenTo, fromState, navOpts, denyErr, span, manageLifecycle)
			}
			if abort := r.checkAlive(attempt, ctx); abort != nil {
				return r.cancel(attempt, frozenTo, fromState, abort, span, manageLifecycle)
			}
		}
	}

	for _, seg := range toActivate {
		result, err := r.guards.resolveActivate(seg, r, deps, ctx, frozenTo, fromState)
		if err != nil {
			return r.fail(attempt, frozenTo, fromState, navOpts, NewRouterError(ErrCodeTransitionErr, err.Error()).WithSegment(seg), span, manageLifecycle)
		}
		if !result.Allow {
			denyErr := NewRouterError(ErrCodeCannotActivate, "").WithSegment(seg).WithAttemptedRedirect(result.AttemptedRedirect)
			return r.fail(attempt, frozenTo, fromState, navOpts, denyErr, span, manageLifecycle)
		}
		if abort := r.checkAlive(attempt, ctx); abort != nil {
			return r.cancel(attempt, frozenTo, fromState, abort, span, manageLifecycle)
		}
	}

	if mwErr, redirect := r.mw.run(ctx, frozenTo, fromState); mwErr != nil {
		return r.fail(attempt, frozenTo, fromState, navOpts, mwErr, span, manageLifecycle)
	} else if redirect != nil {
		denyErr := NewRouterError(ErrCodeCannotActivate, "middleware denied with a redirect attempt").WithAttemptedRedirect(redirect)
		return r.fail(attempt, frozenTo, fromState, navOpts, denyErr, span, manageLifecycle)
	}

	if abort := r.checkAlive(attempt, ctx); abort != nil {
		return r.cancel(attempt, frozenTo, fromState, abort, span, manageLifecycle)
	}

	return r.commit(attempt, frozenTo, fromState, navOpts, span, manageLifecycle)
}

// checkAlive returns a non-nil *RouterError once attempt has already been
// settled by a supersede, or ctx has been cancelled; nil means proceed.
func (r *Router) checkAlive(attempt *navAttempt, ctx context.Context) *RouterError {
	if attempt.isSettled() {
		return NewRouterError(ErrCodeTransitionCancelled, "navigation superseded by a later call")
	}
	select {
	case <-ctx.Done():
		return NewRouterError(ErrCodeTransitionCancelled, ctx.Err().Error())
	default:
		return nil
	}
}

// resolveTarget turns (name, params) into a frozen-ready candidate State,
// following forwardTo edges and merging defaultParams + encodeParams. When
// name is unknown, AllowNotFound synthesizes the @@router/UNKNOWN_ROUTE
// state instead of erroring.
func (r *Router) resolveTarget(name string, params Params, requestedPath string) (*State, error) {
	resolvedName := name
	if !isSystemName(name) {
		target, err := r.ForwardState(name)
		if err != nil {
			return nil, err
		}
		resolvedName = target
	}

	if !r.tree.has(resolvedName) && !isSystemName(resolvedName) {
		opt := r.Options()
		if opt.AllowNotFound {
			resolvedName = unknownRouteName
		} else {
			return nil, NewRouterError(ErrCodeRouteNotFound, "").WithSegment(name)
		}
	}

	merged := r.mergedParams(resolvedName, params)
	if decode, _, _, _, _ := r.config.get(resolvedName); decode != nil {
		merged = decode(merged)
	}
	if _, encode, _, _, _ := r.config.get(resolvedName); encode != nil {
		merged = encode(merged)
	}

	path := requestedPath
	if path == "" && !isSystemName(resolvedName) {
		built, err := r.BuildPath(resolvedName, merged)
		if err != nil {
			return nil, err
		}
		path = built
	}

	return &State{Name: resolvedName, Params: merged, Path: path}, nil
}

// segmentDiff computes the dot-notation ancestor chains of from and to,
// returning the segments to deactivate (root-to-leaf order; the caller walks
// it in reverse for leaf-to-root deactivation) and to activate
// (root-to-leaf), skipping their common prefix.
func segmentDiff(from, to *State) (toActivate, toDeactivate []string) {
	var fromChain, toChain []string
	if from != nil {
		fromChain = nameChain(from.Name)
	}
	toChain = nameChain(to.Name)

	common := 0
	for common < len(fromChain) && common < len(toChain) && fromChain[common] == toChain[common] {
		common++
	}
	return toChain[common:], fromChain[common:]
}

func nameChain(name string) []string {
	if name == "" {
		return nil
	}
	segments := strings.Split(name, ".")
	chain := make([]string, len(segments))
	for i := range segments {
		chain[i] = strings.Join(segments[:i+1], ".")
	}
	return chain
}

// commit finalizes a successful navigation: only an attempt that wins its
// own settle may write r.current, fire COMPLETE, and emit
// TRANSITION_SUCCESS. If attempt was already settled by a supersede, this
// is a pure no-op and the caller gets a cancellation error instead.
// manageLifecycle false means this is Start's initial resolution, so the
// STARTING->READY edge belongs to Start and COMPLETE must not be fired here.
func (r *Router) commit(attempt *navAttempt, to, from *State, navOpts NavigationOptions, span trace.Span, manageLifecycle bool) (*State, error) {
	var result *State
	ran := attempt.settle(func() {
		r.setState(to)
		if manageLifecycle {
			r.fsm.Fire(EventComplete) //nolint:errcheck
		}
		r.plugins.notify(func(p Plugin) {
			if p.OnTransitionSuccess != nil {
				p.OnTransitionSuccess(to, from, navOpts)
			}
		})
		r.events.Emit(EventTransitionSucc, EventPayload{Type: EventTransitionSucc, ToState: to, FromState: from, Options: navOpts})
		r.endSpan(span, codes.Ok, nil)
		r.metrics.recordSuccess(context.Background())
		result = to
	})
	if !ran {
		return nil, NewRouterError(ErrCodeTransitionCancelled, "superseded before commit")
	}
	return result, nil
}

// fail reports a denial or error: only an attempt that wins its own settle
// fires EventFail (returning the FSM to READY), notifies plugins, and emits
// TRANSITION_ERROR. An already-settled attempt (superseded mid-flight)
// becomes a no-op here — its CANCEL was already emitted by supersede — and
// routerErr is still returned to this call's own caller. manageLifecycle
// false leaves the FSM in STARTING for Start to resolve via its own
// EventFail.
func (r *Router) fail(attempt *navAttempt, to, from *State, navOpts NavigationOptions, routerErr *RouterError, span trace.Span, manageLifecycle bool) (*State, error) {
	attempt.settle(func() {
		if manageLifecycle {
			r.fsm.Fire(EventFail) //nolint:errcheck
		}
		r.plugins.notify(func(p Plugin) {
			if p.OnTransitionError != nil {
				p.OnTransitionError(to, from, routerErr)
			}
		})
		r.events.Emit(EventTransitionError, EventPayload{Type: EventTransitionError, ToState: to, FromState: from, Options: navOpts, Err: routerErr})
		r.endSpan(span, codes.Error, routerErr)
		r.metrics.recordFailure(context.Background())
	})
	return nil, routerErr
}

// cancel reports a context cancellation or a supersession this attempt only
// just discovered via checkAlive. If it wins its own settle, the FSM
// returns to READY (this attempt still owned TRANSITIONING) and CANCEL is
// emitted. If it was already settled — a concurrent beginNav's supersede
// beat it to the punch — this is a no-op; that call already emitted CANCEL
// without touching the FSM, since a newer attempt now owns TRANSITIONING.
func (r *Router) cancel(attempt *navAttempt, to, from *State, routerErr *RouterError, span trace.Span, manageLifecycle bool) (*State, error) {
	attempt.settle(func() {
		if manageLifecycle {
			r.fsm.Fire(EventCancel) //nolint:errcheck
		}
		r.emitCancelled(to, from, span, routerErr)
	})
	return nil, routerErr
}

