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
	"encoding/json"
	"errors"
	"fmt"
)

// RouterErrorCode is the canonical identifier for a navigation failure. The
// code doubles as the default message when none is supplied.
type RouterErrorCode string

const (
	ErrCodeRouteNotFound       RouterErrorCode = "ROUTE_NOT_FOUND"
	ErrCodeCannotActivate      RouterErrorCode = "CANNOT_ACTIVATE"
	ErrCodeCannotDeactivate    RouterErrorCode = "CANNOT_DEACTIVATE"
	ErrCodeSameStates          RouterErrorCode = "SAME_STATES"
	ErrCodeTransitionErr       RouterErrorCode = "TRANSITION_ERR"
	ErrCodeRouterNotStarted    RouterErrorCode = "ROUTER_NOT_STARTED"
	ErrCodeRouterAlreadyStart  RouterErrorCode = "ROUTER_ALREADY_STARTED"
	ErrCodeRouterDisposed      RouterErrorCode = "ROUTER_DISPOSED"
	ErrCodeTransitionCancelled RouterErrorCode = "TRANSITION_CANCELLED"
)

// reservedErrorFields are the RouterError struct fields that cannot be
// overwritten through the custom-field extension bag.
var reservedErrorFields = map[string]struct{}{
	"code":     {},
	"segment":  {},
	"path":     {},
	"redirect": {},
	"message":  {},
	"cause":    {},
}

// RouterError is the single structured error type delivered to navigation
// callers and emitted alongside TRANSITION_ERROR. It carries a fixed set of
// taxonomy fields plus a user-extension bag for custom fields.
//
// Built-in field names (code, segment, path, redirect, message, cause) are
// reserved: WithField rejects them so a caller can never shadow a taxonomy
// field through the extension mechanism.
type RouterError struct {
	Code               RouterErrorCode
	Message            string
	Segment            string
	Path               string
	Redirect           *State
	AttemptedRedirect  *State
	Cause              error
	fields             map[string]any
}

// NewRouterError builds a RouterError for code, defaulting Message to the
// code's string value when msg is empty.
func NewRouterError(code RouterErrorCode, msg string) *RouterError {
	if msg == "" {
		msg = string(code)
	}
	return &RouterError{Code: code, Message: msg}
}

func (e *RouterError) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *RouterError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether target is the sentinel error for e.Code, so callers can
// write errors.Is(err, navigation.ErrRouteNotFound) against a *RouterError.
func (e *RouterError) Is(target error) bool {
	sentinel, ok := target.(*codeSentinel)
	if !ok {
		return false
	}
	return e.Code == sentinel.code
}

// WithSegment attaches the offending route segment and returns e for chaining.
func (e *RouterError) WithSegment(segment string) *RouterError {
	e.Segment = segment
	return e
}

// WithPath attaches the offending path and returns e for chaining.
func (e *RouterError) WithPath(path string) *RouterError {
	e.Path = path
	return e
}

// WithCause attaches an underlying cause and returns e for chaining.
func (e *RouterError) WithCause(cause error) *RouterError {
	e.Cause = cause
	return e
}

// WithAttemptedRedirect records a guard's denied redirect attempt.
func (e *RouterError) WithAttemptedRedirect(s *State) *RouterError {
	e.AttemptedRedirect = s
	return e
}

// WithField attaches a custom field to the error's JSON serialization.
// Reserved built-in field names return an error instead of mutating e; a
// successful call returns nil (it mutates e in place rather than chaining,
// since the reserved-name case has no *RouterError to hand back).
func (e *RouterError) WithField(key string, value any) error {
	if _, reserved := reservedErrorFields[key]; reserved {
		return fmt.Errorf("navigation: field %q is reserved and cannot be set via WithField", key)
	}
	if e.fields == nil {
		e.fields = make(map[string]any)
	}
	e.fields[key] = value
	return nil
}

// MarshalJSON serializes the taxonomy fields plus any custom fields. The
// stack trace (there isn't one to begin with, by design) is never included.
func (e *RouterError) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"code":    e.Code,
		"message": e.Message,
	}
	if e.Segment != "" {
		out["segment"] = e.Segment
	}
	if e.Path != "" {
		out["path"] = e.Path
	}
	if e.Redirect != nil {
		out["redirect"] = e.Redirect
	}
	if e.AttemptedRedirect != nil {
		out["attemptedRedirect"] = e.AttemptedRedirect
	}
	if e.Cause != nil {
		out["cause"] = e.Cause.Error()
	}
	for k, v := range e.fields {
		out[k] = v
	}
	return json.Marshal(out)
}

// codeSentinel adapts a RouterErrorCode to a comparable error value so that
// errors.Is(err, navigation.ErrRouteNotFound) works against any RouterError
// carrying that code, without requiring pointer identity.
type codeSentinel struct {
	code RouterErrorCode
}

func (s *codeSentinel) Error() string { return string(s.code) }

// Sentinel errors usable with errors.Is against any *RouterError of the
// matching code, e.g. errors.Is(err, navigation.ErrRouteNotFound).
var (
	ErrRouteNotFound       = &codeSentinel{ErrCodeRouteNotFound}
	ErrCannotActivate      = &codeSentinel{ErrCodeCannotActivate}
	ErrCannotDeactivate    = &codeSentinel{ErrCodeCannotDeactivate}
	ErrSameStates          = &codeSentinel{ErrCodeSameStates}
	ErrTransitionErr       = &codeSentinel{ErrCodeTransitionErr}
	ErrRouterNotStarted    = &codeSentinel{ErrCodeRouterNotStarted}
	ErrRouterAlreadyStart  = &codeSentinel{ErrCodeRouterAlreadyStart}
	ErrRouterDisposed      = &codeSentinel{ErrCodeRouterDisposed}
	ErrTransitionCancelled = &codeSentinel{ErrCodeTransitionCancelled}
)

// typeError builds a user-input validation error, prefixing the method name
// in brackets, e.g. "[routes.add] ...". These are returned before any state
// mutation happens.
func typeError(method, format string, args ...any) error {
	return fmt.Errorf("[%s] %w", method, fmt.Errorf(format, args...))
}

// errIsType reports whether err is a validation TypeError produced by
// typeError, as opposed to a *RouterError.
func errIsType(err error) bool {
	var re *RouterError
	return err != nil && !errors.As(err, &re)
}
