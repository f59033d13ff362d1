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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterError_DefaultMessage(t *testing.T) {
	t.Parallel()

	err := NewRouterError(ErrCodeRouteNotFound, "")
	assert.Equal(t, "ROUTE_NOT_FOUND", err.Message)
	assert.Equal(t, "ROUTE_NOT_FOUND: ROUTE_NOT_FOUND", err.Error())
}

func TestRouterError_ErrorsIsAgainstSentinel(t *testing.T) {
	t.Parallel()

	err := NewRouterError(ErrCodeRouteNotFound, "no such route").WithSegment("users.detail")
	assert.True(t, errors.Is(err, ErrRouteNotFound))
	assert.False(t, errors.Is(err, ErrCannotActivate))
}

func TestRouterError_ErrorsAs(t *testing.T) {
	t.Parallel()

	var target *RouterError
	err := error(NewRouterError(ErrCodeCannotActivate, "denied"))
	require.True(t, errors.As(err, &target))
	assert.Equal(t, ErrCodeCannotActivate, target.Code)
}

func TestRouterError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := NewRouterError(ErrCodeTransitionErr, "wrapped").WithCause(cause)
	assert.Same(t, cause, errors.Unwrap(err))
	assert.True(t, errors.Is(err, cause))
}

func TestRouterError_WithFieldRejectsReservedNames(t *testing.T) {
	t.Parallel()

	err := NewRouterError(ErrCodeRouteNotFound, "")
	for _, reserved := range []string{"code", "segment", "path", "redirect", "message", "cause"} {
		result := err.WithField(reserved, "x")
		assert.Error(t, result, "field %q should be rejected", reserved)
	}
}

func TestRouterError_WithFieldAcceptsCustomNames(t *testing.T) {
	t.Parallel()

	err := NewRouterError(ErrCodeRouteNotFound, "")
	result := err.WithField("requestId", "abc-123")
	require.NoError(t, result)

	data, marshalErr := err.MarshalJSON()
	require.NoError(t, marshalErr)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "abc-123", decoded["requestId"])
}

func TestRouterError_MarshalJSONOmitsEmptyFields(t *testing.T) {
	t.Parallel()

	err := NewRouterError(ErrCodeRouteNotFound, "missing")
	data, marshalErr := err.MarshalJSON()
	require.NoError(t, marshalErr)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.NotContains(t, decoded, "segment")
	assert.NotContains(t, decoded, "path")
	assert.NotContains(t, decoded, "cause")
	assert.Equal(t, "ROUTE_NOT_FOUND", decoded["code"])
}

func TestErrIsType(t *testing.T) {
	t.Parallel()

	assert.True(t, errIsType(typeError("routes.add", "bad name %q", "x")))
	assert.False(t, errIsType(NewRouterError(ErrCodeRouteNotFound, "")))
	assert.False(t, errIsType(nil))
}

func TestRouterError_NilErrorString(t *testing.T) {
	t.Parallel()

	var err *RouterError
	assert.Equal(t, "", err.Error())
}
