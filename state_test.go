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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParams_CloneIsIndependent(t *testing.T) {
	t.Parallel()

	p := Params{"id": "42"}
	clone := p.Clone()
	clone["id"] = "99"
	assert.Equal(t, "42", p["id"])
}

func TestParams_Equal(t *testing.T) {
	t.Parallel()

	a := Params{"id": "42", "tab": "info"}
	b := Params{"tab": "info", "id": "42"}
	c := Params{"id": "43"}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(Params{"id": "42"}))
}

func TestState_FreezeIsDeepAndIdempotent(t *testing.T) {
	t.Parallel()

	s := &State{
		Name:   "users.detail",
		Params: Params{"id": "42"},
		Path:   "/users/42",
		Meta:   &Meta{ID: 1, CorrelationID: "corr-1", Params: Params{"id": "42"}, Source: "navigate"},
	}

	frozen := s.Freeze()
	require.True(t, frozen.Frozen())
	assert.False(t, s.Frozen())

	frozen.Params["id"] = "mutated"
	assert.Equal(t, "42", s.Params["id"], "Freeze must deep-copy Params")

	frozen.Meta.Params["id"] = "mutated-meta"
	assert.Equal(t, "42", s.Meta.Params["id"], "Freeze must deep-copy Meta.Params")

	assert.Equal(t, "corr-1", frozen.Meta.CorrelationID)

	twice := frozen.Freeze()
	assert.True(t, twice.Frozen())
	assert.NotSame(t, frozen, twice, "re-freezing clones rather than mutating the receiver")
}

func TestState_SameRoute(t *testing.T) {
	t.Parallel()

	a := &State{Name: "users.detail", Params: Params{"id": "42"}}
	b := &State{Name: "users.detail", Params: Params{"id": "42"}}
	c := &State{Name: "users.detail", Params: Params{"id": "43"}}

	assert.True(t, a.SameRoute(b))
	assert.False(t, a.SameRoute(c))
	assert.True(t, (*State)(nil).SameRoute(nil))
	assert.False(t, a.SameRoute(nil))
}

func TestState_CloneIndependentOfMeta(t *testing.T) {
	t.Parallel()

	s := &State{Name: "home", Meta: &Meta{ID: 1, Params: Params{"a": 1}}}
	clone := s.Clone()
	clone.Meta.Params["a"] = 2
	assert.Equal(t, 1, s.Meta.Params["a"])
}

func TestNewCorrelationID_Unique(t *testing.T) {
	t.Parallel()

	a := newCorrelationID()
	b := newCorrelationID()
	assert.NotEqual(t, a, b)
	assert.NotEmpty(t, a)
}
