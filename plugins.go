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
	"reflect"
	"sync"
)

const (
	pluginWarnThreshold  = 10
	pluginErrorThreshold = 25
	pluginHardLimit      = 50
)

// Plugin is the set of lifecycle hooks a plugin factory may implement. All
// fields are optional; a nil hook is simply never called.
type Plugin struct {
	OnStart             func()
	OnStop              func()
	OnTransitionStart    func(to, from *State)
	OnTransitionSuccess  func(to, from *State, opts NavigationOptions)
	OnTransitionError    func(to, from *State, err *RouterError)
	OnTransitionCancel   func(to, from *State)
	Teardown             func()
}

// PluginFactory builds a Plugin instance, given a router handle.
type PluginFactory func(r *Router) Plugin

type pluginEntry struct {
	factory PluginFactory
	factoryKey uintptr
	instance Plugin
}

// pluginRegistry is the batched, atomic plugin factory registry. A batch
// either fully succeeds or is fully rolled back, including
// running teardown on whatever had already initialized in that batch.
type pluginRegistry struct {
	mu      sync.Mutex
	entries []*pluginEntry
	started bool
	diag    DiagnosticHandler
}

func newPluginRegistry(diag DiagnosticHandler) *pluginRegistry {
	return &pluginRegistry{diag: diag}
}

func factoryKeyOf[T any](fn T) uintptr {
	return reflect.ValueOf(fn).Pointer()
}

// markStarted flags the registry as started so later UsePlugin calls
// registering OnStart can warn that it will never fire retroactively.
func (p *pluginRegistry) markStarted() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = true
}

// Use registers a batch of factories atomically. Duplicate factory
// references within the batch are deduplicated with a warning; a duplicate
// against an already-registered factory is an error for the whole call.
// Each factory is invoked in order; a factory that panics (the panic is
// recovered and treated as the batch's failure) rolls the entire batch back, calling Teardown on every
// already-initialized entry from this call (teardown errors are logged and
// swallowed).
func (p *pluginRegistry) Use(r *Router, factories ...PluginFactory) (unsubscribe func(), err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.entries)+len(factories) > pluginHardLimit {
		return nil, typeError("plugin.use", "registering %d plugins would exceed the hard limit of %d", len(factories), pluginHardLimit)
	}

	existingKeys := make(map[uintptr]bool, len(p.entries))
	for _, e := range p.entries {
		existingKeys[e.factoryKey] = true
	}

	seenInBatch := make(map[uintptr]bool, len(factories))
	var deduped []PluginFactory
	for _, f := range factories {
		key := factoryKeyOf(f)
		if existingKeys[key] {
			return nil, fmt.Errorf("navigation: plugin factory already registered")
		}
		if seenInBatch[key] {
			emit(p.diag, DiagPluginLimitWarn, "duplicate plugin factory within batch deduplicated", nil)
			continue
		}
		seenInBatch[key] = true
		deduped = append(deduped, f)
	}

	var initialized []*pluginEntry
	rollback := func() {
		for _, e := range initialized {
			safeCall(func() {
				if e.instance.Teardown != nil {
					e.instance.Teardown()
				}
			}, p.diag)
		}
	}

	for _, f := range deduped {
		instance, initErr := safeInitPlugin(f, r)
		if initErr != nil {
			rollback()
			return nil, initErr
		}
		if instance.OnStart != nil && p.started {
			emit(p.diag, DiagOnStartAfterStarted, "plugin registered OnStart after router already started", nil)
		}
		entry := &pluginEntry{factory: f, factoryKey: factoryKeyOf(f), instance: instance}
		initialized = append(initialized, entry)
	}

	p.entries = append(p.entries, initialized...)
	n := len(p.entries)
	if n >= pluginErrorThreshold {
		emit(p.diag, DiagPluginLimitError, "plugin registry at or above error threshold", map[string]any{"count": n})
	} else if n >= pluginWarnThreshold {
		emit(p.diag, DiagPluginLimitWarn, "plugin registry at or above warning threshold", map[string]any{"count": n})
	}

	batch := initialized
	return func() { p.unregister(batch) }, nil
}

func safeInitPlugin(f PluginFactory, r *Router) (instance Plugin, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("navigation: plugin factory panicked: %v", rec)
		}
	}()
	instance = f(r)
	return instance, nil
}

func safeCall(fn func(), diag DiagnosticHandler) {
	defer func() {
		if rec := recover(); rec != nil {
			emit(diag, DiagPluginLimitError, "plugin teardown panicked", map[string]any{"recovered": fmt.Sprint(rec)})
		}
	}()
	fn()
}

// unregister removes exactly the entries from one earlier Use call and
// tears each down; idempotent against repeated calls.
func (p *pluginRegistry) unregister(batch []*pluginEntry) {
	p.mu.Lock()
	remaining := make([]*pluginEntry, 0, len(p.entries))
	toTeardown := make([]*pluginEntry, 0, len(batch))
	batchSet := make(map[*pluginEntry]bool, len(batch))
	for _, e := range batch {
		batchSet[e] = true
	}
	for _, e := range p.entries {
		if batchSet[e] {
			toTeardown = append(toTeardown, e)
			continue
		}
		remaining = append(remaining, e)
	}
	p.entries = remaining
	p.mu.Unlock()

	for _, e := range toTeardown {
		safeCall(func() {
			if e.instance.Teardown != nil {
				e.instance.Teardown()
			}
		}, p.diag)
	}
}

func (p *pluginRegistry) snapshot() []Plugin {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Plugin, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.instance
	}
	return out
}

func (p *pluginRegistry) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// notify invokes fn for every registered plugin's hook, swallowing and
// logging any panic so one misbehaving plugin never blocks the others.
func (p *pluginRegistry) notify(fn func(Plugin)) {
	for _, instance := range p.snapshot() {
		inst := instance
		safeCall(func() { fn(inst) }, p.diag)
	}
}

// factories returns the PluginFactory list in registration order, used by
// Router.Clone to re-initialize a fresh instance set against the clone.
func (p *pluginRegistry) factories() []PluginFactory {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PluginFactory, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.factory
	}
	return out
}
