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
)

const middlewareHardLimit = 50

// Done is the completion signal a Middleware invokes: nil continues, a
// *RouterError fails the transition, a *State is treated as a denied
// redirect attempt exactly like a guard returning a state.
type Done func(err *RouterError, redirect *State)

// Middleware is a generic async interceptor run, in registration order,
// after guards and before commit.
type Middleware func(ctx context.Context, to, from *State, done Done)

// MiddlewareFactory produces a Middleware instance, given a router handle.
type MiddlewareFactory func(r *Router) Middleware

type middlewareEntry struct {
	factory    MiddlewareFactory
	factoryKey uintptr
	instance   Middleware
}

// middlewareChain is the ordered, atomically-registered set of interceptors
//. Its registration contract mirrors the plugin registry:
// atomic batch, rollback on failure, duplicate-factory detection, hard
// limit, warn/error thresholds.
type middlewareChain struct {
	mu      sync.Mutex
	entries []*middlewareEntry
	diag    DiagnosticHandler
}

func newMiddlewareChain(diag DiagnosticHandler) *middlewareChain {
	return &middlewareChain{diag: diag}
}

// Use registers a batch of middleware factories atomically.
func (c *middlewareChain) Use(r *Router, factories ...MiddlewareFactory) (unsubscribe func(), err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries)+len(factories) > middlewareHardLimit {
		return nil, typeError("middleware.use", "registering %d middleware would exceed the hard limit of %d", len(factories), middlewareHardLimit)
	}

	existingKeys := make(map[uintptr]bool, len(c.entries))
	for _, e := range c.entries {
		existingKeys[e.factoryKey] = true
	}
	seenInBatch := make(map[uintptr]bool, len(factories))
	var deduped []MiddlewareFactory
	for _, f := range factories {
		key := factoryKeyOf(f)
		if existingKeys[key] {
			return nil, fmt.Errorf("navigation: middleware factory already registered")
		}
		if seenInBatch[key] {
			emit(c.diag, DiagMiddlewareLimitWarn, "duplicate middleware factory within batch deduplicated", nil)
			continue
		}
		seenInBatch[key] = true
		deduped = append(deduped, f)
	}

	var initialized []*middlewareEntry
	for _, f := range deduped {
		instance, initErr := safeInitMiddleware(f, r)
		if initErr != nil {
			// rollback: nothing to tear down for middleware (no Teardown
			// hook in its factory contract), just discard.
			return nil, initErr
		}
		initialized = append(initialized, &middlewareEntry{factory: f, factoryKey: factoryKeyOf(f), instance: instance})
	}

	c.entries = append(c.entries, initialized...)
	n := len(c.entries)
	if n >= pluginErrorThreshold {
		emit(c.diag, DiagMiddlewareLimitError, "middleware chain at or above error threshold", map[string]any{"count": n})
	} else if n >= pluginWarnThreshold {
		emit(c.diag, DiagMiddlewareLimitWarn, "middleware chain at or above warning threshold", map[string]any{"count": n})
	}

	batch := initialized
	return func() { c.unregister(batch) }, nil
}

func safeInitMiddleware(f MiddlewareFactory, r *Router) (instance Middleware, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("navigation: middleware factory panicked: %v", rec)
		}
	}()
	instance = f(r)
	return instance, nil
}

func (c *middlewareChain) unregister(batch []*middlewareEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	batchSet := make(map[*middlewareEntry]bool, len(batch))
	for _, e := range batch {
		batchSet[e] = true
	}
	remaining := make([]*middlewareEntry, 0, len(c.entries))
	for _, e := range c.entries {
		if !batchSet[e] {
			remaining = append(remaining, e)
		}
	}
	c.entries = remaining
}

func (c *middlewareChain) snapshot() []Middleware {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Middleware, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.instance
	}
	return out
}

func (c *middlewareChain) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// run drives the chain sequentially: the next middleware only starts after
// the previous one signals Done. Returns (nil, nil) on full completion,
// (err, nil) on failure, or (nil, redirect) on a denied redirect attempt.
func (c *middlewareChain) run(ctx context.Context, to, from *State) (*RouterError, *State) {
	for _, mw := range c.snapshot() {
		select {
		case <-ctx.Done():
			return NewRouterError(ErrCodeTransitionCancelled, "transition cancelled during middleware"), nil
		default:
		}

		resultCh := make(chan struct {
			err      *RouterError
			redirect *State
		}, 1)
		mw(ctx, to, from, func(err *RouterError, redirect *State) {
			select {
			case resultCh <- struct {
				err      *RouterError
				redirect *State
			}{err, redirect}:
			default:
			}
		})
		res := <-resultCh
		if res.err != nil {
			return res.err, nil
		}
		if res.redirect != nil {
			return nil, res.redirect
		}
	}
	return nil, nil
}

func (c *middlewareChain) factories() []MiddlewareFactory {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]MiddlewareFactory, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.factory
	}
	return out
}
