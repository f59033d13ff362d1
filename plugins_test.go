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

func TestPluginRegistry_UseAndNotify(t *testing.T) {
	t.Parallel()

	p := newPluginRegistry(nil)
	var started bool
	unsub, err := p.Use(nil, func(r *Router) Plugin {
		return Plugin{OnStart: func() { started = true }}
	})
	require.NoError(t, err)
	require.NotNil(t, unsub)

	p.notify(func(pl Plugin) {
		if pl.OnStart != nil {
			pl.OnStart()
		}
	})
	assert.True(t, started)
	assert.Equal(t, 1, p.size())
}

func TestPluginRegistry_DuplicateFactoryAcrossCallsErrors(t *testing.T) {
	t.Parallel()

	p := newPluginRegistry(nil)
	factory := func(r *Router) Plugin { return Plugin{} }
	_, err := p.Use(nil, factory)
	require.NoError(t, err)

	_, err = p.Use(nil, factory)
	assert.Error(t, err)
}

func TestPluginRegistry_DuplicateWithinBatchDeduplicated(t *testing.T) {
	t.Parallel()

	p := newPluginRegistry(nil)
	var inits int
	factory := func(r *Router) Plugin {
		inits++
		return Plugin{}
	}
	_, err := p.Use(nil, factory, factory)
	require.NoError(t, err)
	assert.Equal(t, 1, p.size())
	assert.Equal(t, 1, inits)
}

func TestPluginRegistry_BatchRollsBackOnFailure(t *testing.T) {
	t.Parallel()

	p := newPluginRegistry(nil)
	var torndown bool
	good := func(r *Router) Plugin {
		return Plugin{Teardown: func() { torndown = true }}
	}
	bad := func(r *Router) Plugin {
		panic("boom")
	}

	_, err := p.Use(nil, good, bad)
	assert.Error(t, err)
	assert.Equal(t, 0, p.size(), "a failed batch must leave no surviving entries")
	assert.True(t, torndown, "already-initialized entries in a rolled-back batch must be torn down")
}

func TestPluginRegistry_HardLimit(t *testing.T) {
	t.Parallel()

	p := newPluginRegistry(nil)
	factories := make([]PluginFactory, pluginHardLimit+1)
	for i := range factories {
		factories[i] = func(r *Router) Plugin { return Plugin{} }
	}
	_, err := p.Use(nil, factories...)
	assert.Error(t, err)
}

func TestPluginRegistry_UnregisterTearsDownOnlyItsBatch(t *testing.T) {
	t.Parallel()

	p := newPluginRegistry(nil)
	var firstTorn, secondTorn bool
	unsubFirst, err := p.Use(nil, func(r *Router) Plugin {
		return Plugin{Teardown: func() { firstTorn = true }}
	})
	require.NoError(t, err)
	_, err = p.Use(nil, func(r *Router) Plugin {
		return Plugin{Teardown: func() { secondTorn = true }}
	})
	require.NoError(t, err)

	unsubFirst()
	assert.True(t, firstTorn)
	assert.False(t, secondTorn)
	assert.Equal(t, 1, p.size())
}

func TestPluginRegistry_NotifySwallowsPanics(t *testing.T) {
	t.Parallel()

	p := newPluginRegistry(nil)
	var secondCalled bool
	_, err := p.Use(nil,
		func(r *Router) Plugin { return Plugin{OnStart: func() { panic("boom") }} },
		func(r *Router) Plugin { return Plugin{OnStart: func() { secondCalled = true }} },
	)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		p.notify(func(pl Plugin) {
			if pl.OnStart != nil {
				pl.OnStart()
			}
		})
	})
	assert.True(t, secondCalled)
}

func TestPluginRegistry_FactoriesPreservesOrder(t *testing.T) {
	t.Parallel()

	p := newPluginRegistry(nil)
	a := func(r *Router) Plugin { return Plugin{} }
	b := func(r *Router) Plugin { return Plugin{} }
	_, err := p.Use(nil, a, b)
	require.NoError(t, err)

	got := p.factories()
	require.Len(t, got, 2)
	assert.Equal(t, factoryKeyOf(a), factoryKeyOf(got[0]))
	assert.Equal(t, factoryKeyOf(b), factoryKeyOf(got[1]))
}
