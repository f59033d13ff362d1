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

func TestRouteTree_PlanAddFlattensChildren(t *testing.T) {
	t.Parallel()

	tree := newRouteTree()
	flat, err := tree.planAdd([]RouteDef{
		{Name: "users", Path: "/users", Children: []RouteDef{
			{Name: "detail", Path: "/users/:id"},
		}},
	})
	require.NoError(t, err)
	require.Len(t, flat, 2)
	assert.Equal(t, "users", flat[0].Name)
	assert.Equal(t, "users.detail", flat[1].Name)
}

func TestRouteTree_PlanAddRejectsDuplicateName(t *testing.T) {
	t.Parallel()

	tree := newRouteTree()
	flat, err := tree.planAdd([]RouteDef{{Name: "home", Path: "/"}})
	require.NoError(t, err)
	tree.commitAdd(flat)

	_, err = tree.planAdd([]RouteDef{{Name: "home", Path: "/home"}})
	assert.Error(t, err)
}

func TestRouteTree_PlanAddRejectsDuplicatePath(t *testing.T) {
	t.Parallel()

	tree := newRouteTree()
	flat, err := tree.planAdd([]RouteDef{{Name: "home", Path: "/"}})
	require.NoError(t, err)
	tree.commitAdd(flat)

	_, err = tree.planAdd([]RouteDef{{Name: "landing", Path: "/"}})
	assert.Error(t, err)
}

func TestRouteTree_PlanAddRejectsMissingParent(t *testing.T) {
	t.Parallel()

	tree := newRouteTree()
	_, err := tree.planAdd([]RouteDef{{Name: "users.detail", Path: "/users/:id"}})
	assert.Error(t, err)
}

func TestRouteTree_PlanAddRejectsBadNameGrammar(t *testing.T) {
	t.Parallel()

	tree := newRouteTree()
	for _, name := range []string{"", "bad name", "1leading", ".leading", "trailing.", "a..b"} {
		_, err := tree.planAdd([]RouteDef{{Name: name, Path: "/x"}})
		assert.Error(t, err, "name %q should be rejected", name)
	}
}

func TestRouteTree_SystemNameSkipsSegmentPattern(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validateName("@@router/UNKNOWN_ROUTE"))
}

func TestRouteTree_RemoveDropsSubtree(t *testing.T) {
	t.Parallel()

	tree := newRouteTree()
	flat, err := tree.planAdd([]RouteDef{
		{Name: "users", Path: "/users", Children: []RouteDef{
			{Name: "detail", Path: "/users/:id"},
		}},
	})
	require.NoError(t, err)
	tree.commitAdd(flat)

	names := tree.subtreeNames("users")
	assert.ElementsMatch(t, []string{"users", "users.detail"}, names)

	tree.remove(names)
	assert.False(t, tree.has("users"))
	assert.False(t, tree.has("users.detail"))
}

func TestRouteTree_ReplaceSwapsAtomically(t *testing.T) {
	t.Parallel()

	tree := newRouteTree()
	flat, _ := tree.planAdd([]RouteDef{{Name: "home", Path: "/"}})
	tree.commitAdd(flat)

	tree.replace([]RouteDef{{Name: "landing", Path: "/landing"}})
	assert.False(t, tree.has("home"))
	assert.True(t, tree.has("landing"))
}

func TestRouteTree_CloneIsIndependent(t *testing.T) {
	t.Parallel()

	tree := newRouteTree()
	flat, _ := tree.planAdd([]RouteDef{{Name: "home", Path: "/"}})
	tree.commitAdd(flat)

	clone := tree.cloneTree()
	clone.remove([]string{"home"})

	assert.True(t, tree.has("home"), "removing from the clone must not affect the original")
	assert.False(t, clone.has("home"))
}

func TestConfigStore_RecomputeResolvedForwardMap_Chain(t *testing.T) {
	t.Parallel()

	c := newConfigStore()
	c.set("a", RouteDef{ForwardTo: ForwardToName("b")})
	c.set("b", RouteDef{ForwardTo: ForwardToName("c")})

	names := map[string]bool{"a": true, "b": true, "c": true}
	require.NoError(t, c.recomputeResolvedForwardMap(names))

	target, ok := c.resolvedForward("a")
	require.True(t, ok)
	assert.Equal(t, "c", target)
}

func TestConfigStore_RecomputeResolvedForwardMap_DetectsCycle(t *testing.T) {
	t.Parallel()

	c := newConfigStore()
	c.set("a", RouteDef{ForwardTo: ForwardToName("b")})
	c.set("b", RouteDef{ForwardTo: ForwardToName("a")})

	names := map[string]bool{"a": true, "b": true}
	err := c.recomputeResolvedForwardMap(names)
	assert.Error(t, err)
}

func TestConfigStore_RecomputeResolvedForwardMap_MissingTarget(t *testing.T) {
	t.Parallel()

	c := newConfigStore()
	c.set("a", RouteDef{ForwardTo: ForwardToName("ghost")})

	names := map[string]bool{"a": true}
	err := c.recomputeResolvedForwardMap(names)
	assert.Error(t, err)
}

func TestConfigStore_FuncForwardNotPreResolved(t *testing.T) {
	t.Parallel()

	c := newConfigStore()
	c.set("a", RouteDef{ForwardTo: ForwardToFunc(func() string { return "b" })})

	names := map[string]bool{"a": true, "b": true}
	require.NoError(t, c.recomputeResolvedForwardMap(names))

	_, ok := c.resolvedForward("a")
	assert.False(t, ok, "function-valued forward edges are evaluated lazily, not pre-resolved")
}

func TestConfigStore_ClearDropsEverySideTable(t *testing.T) {
	t.Parallel()

	c := newConfigStore()
	c.set("a", RouteDef{DefaultParams: Params{"x": 1}, ForwardTo: ForwardToName("b")})
	c.clear("a")

	decode, encode, defaults, hasForward, _ := c.get("a")
	assert.Nil(t, decode)
	assert.Nil(t, encode)
	assert.Nil(t, defaults)
	assert.False(t, hasForward)
}

func TestConfigStore_CloneIsIndependent(t *testing.T) {
	t.Parallel()

	c := newConfigStore()
	c.set("a", RouteDef{DefaultParams: Params{"x": 1}})

	clone := c.cloneStore()
	_, _, defaults, _, _ := clone.get("a")
	defaults["x"] = 2

	_, _, orig, _, _ := c.get("a")
	assert.Equal(t, 1, orig["x"], "cloning must deep-copy DefaultParams")
}

func TestConfigStore_InvalidateTargetsRemovesDependentForwards(t *testing.T) {
	t.Parallel()

	c := newConfigStore()
	c.set("a", RouteDef{ForwardTo: ForwardToName("b")})
	require.NoError(t, c.recomputeResolvedForwardMap(map[string]bool{"a": true, "b": true}))

	c.invalidateTargets(map[string]bool{"b": true})
	_, ok := c.resolvedForward("a")
	assert.False(t, ok)
}
