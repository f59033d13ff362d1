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

// Package navigation provides a client-side, in-process navigation engine.
//
// It is framework-agnostic: there is no DOM, no browser history, no server
// listener. A Router owns a hierarchical route tree addressed by
// dot-notation names ("app.users.detail"), a pluggable path codec for
// turning names and params into URLs and back, and a transition engine that
// resolves, guards, and commits one navigation at a time — superseding a
// stale attempt rather than racing it to completion.
//
// # Key Features
//
//   - Hierarchical routes addressed by dot-notation name, not just by path
//   - Pluggable path codec (path-to-regexp backed by default, swappable)
//   - Async transition engine with guard-based activation/deactivation and
//     automatic supersession of superseded navigations
//   - A small lifecycle state machine (IDLE/STARTING/READY/TRANSITIONING/DISPOSED)
//   - Plugins, middleware, and a process-scoped dependency bag as extension points
//   - OpenTelemetry tracing and metrics integration
//
// # Constructor Pattern
//
//   - New returns (*Router, error); MustNew panics instead, for callers that
//     treat router construction as infallible configuration.
//   - All configuration options use the "With" prefix (WithTracing, WithMeter, ...).
//   - Most Options are frozen once a Router is built; only SetDefaultRoute and
//     SetDefaultParams remain mutable after Start.
//
// # Quick Start
//
//	r := navigation.MustNew(
//	    navigation.WithDefaultRoute("home"),
//	)
//
//	r.Routes().Add(
//	    navigation.RouteDef{Name: "home", Path: "/"},
//	    navigation.RouteDef{Name: "users", Path: "/users"},
//	    navigation.RouteDef{Name: "users.detail", Path: "/users/:id"},
//	)
//
//	r.Events().Subscribe(navigation.EventTransitionSucc, func(p navigation.EventPayload) {
//	    log.Printf("navigated to %s", p.ToState.Name)
//	})
//
//	if _, err := r.Start(context.Background(), ""); err != nil {
//	    log.Fatal(err)
//	}
//
//	state, err := r.Navigate(context.Background(), "users.detail", navigation.Params{"id": "42"})
//
// # Guards and Middleware
//
// Guards gate a single segment's activation or deactivation; middleware runs
// once per transition across the whole chain, in registration order:
//
//	r.Lifecycle().AddActivateGuard("users.detail", func(r *navigation.Router, deps *navigation.DependenciesFacet) navigation.Guard {
//	    return func(ctx context.Context, to, from *navigation.State) (navigation.GuardResult, error) {
//	        return navigation.GuardResult{Allow: true}, nil
//	    }
//	})
//
//	r.UseMiddleware(func(r *navigation.Router) navigation.Middleware {
//	    return func(ctx context.Context, to, from *navigation.State, done navigation.Done) {
//	        done(nil, nil)
//	    }
//	})
//
// # Observability
//
// WithTracing and WithMeter wire OpenTelemetry into every transition without
// changing the call sites that drive navigation:
//
//	r := navigation.MustNew(
//	    navigation.WithTracing(otel.Tracer("navigation")),
//	    navigation.WithMeter(otel.Meter("navigation")),
//	)
package navigation
