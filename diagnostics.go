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
	"io"
	"log/slog"
)

// noopLogger is the logger used when no diagnostics handler is configured.
var noopLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// DiagnosticEvent represents an informational condition the router wants to
// surface without failing the call that produced it: an overwritten
// dependency key, a guard bypassed because its route forwards elsewhere, a
// plugin/middleware registry approaching its limit, a replace() silently
// dropped because a transition is in flight. The router is fully correct
// whether or not anything observes these.
type DiagnosticEvent struct {
	Kind    DiagnosticKind
	Message string
	Fields  map[string]any
}

// DiagnosticKind categorizes diagnostic events.
type DiagnosticKind string

const (
	DiagDependencyOverwrite   DiagnosticKind = "dependency_overwrite"
	DiagDependencyRemoveMiss  DiagnosticKind = "dependency_remove_missing"
	DiagForwardGuardBypass    DiagnosticKind = "forward_guard_bypass"
	DiagReplaceWhileInFlight  DiagnosticKind = "replace_while_in_flight"
	DiagPluginLimitWarn       DiagnosticKind = "plugin_registry_limit_warn"
	DiagPluginLimitError      DiagnosticKind = "plugin_registry_limit_error"
	DiagMiddlewareLimitWarn   DiagnosticKind = "middleware_registry_limit_warn"
	DiagMiddlewareLimitError  DiagnosticKind = "middleware_registry_limit_error"
	DiagListenerCountWarn     DiagnosticKind = "event_listener_count_warn"
	DiagOnStartAfterStarted   DiagnosticKind = "plugin_onstart_after_started"
	DiagGuardDenial           DiagnosticKind = "guard_denial"
)

// DiagnosticHandler receives diagnostic events. Implementations may log,
// emit metrics, trace events, or ignore them; the router's behavior never
// depends on whether one is configured.
type DiagnosticHandler interface {
	OnDiagnostic(DiagnosticEvent)
}

// DiagnosticHandlerFunc adapts a function to DiagnosticHandler.
type DiagnosticHandlerFunc func(DiagnosticEvent)

func (f DiagnosticHandlerFunc) OnDiagnostic(e DiagnosticEvent) { f(e) }

// slogDiagnostics adapts a *slog.Logger to DiagnosticHandler for the
// router's own default sink (a discard logger unless the caller passes
// WithDiagnostics).
type slogDiagnostics struct {
	logger *slog.Logger
}

func (s slogDiagnostics) OnDiagnostic(e DiagnosticEvent) {
	args := make([]any, 0, len(e.Fields)*2+2)
	args = append(args, "kind", string(e.Kind))
	for k, v := range e.Fields {
		args = append(args, k, v)
	}
	s.logger.Warn(e.Message, args...)
}

func defaultDiagnostics() DiagnosticHandler {
	return slogDiagnostics{logger: noopLogger}
}

// emit is a small convenience used throughout the package so components
// never need a nil check before reaching for r.diagnostics.
func emit(h DiagnosticHandler, kind DiagnosticKind, msg string, fields map[string]any) {
	if h == nil {
		return
	}
	h.OnDiagnostic(DiagnosticEvent{Kind: kind, Message: msg, Fields: fields})
}
