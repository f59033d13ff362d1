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
)

func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := defaultOptions()
	assert.Equal(t, TrailingSlashNever, opts.TrailingSlash)
	assert.Equal(t, QueryParamsDefault, opts.QueryParamsMode)
	assert.Equal(t, URLParamsEncodingDefault, opts.URLParamsEncoding)
	assert.Nil(t, opts.Codec)
}

func TestOptions_CloneIsIndependent(t *testing.T) {
	t.Parallel()

	opts := Options{DefaultParams: Params{"locale": "en"}}
	clone := opts.clone()
	clone.DefaultParams["locale"] = "fr"

	assert.Equal(t, "en", opts.DefaultParams["locale"])
}

func TestOption_Setters(t *testing.T) {
	t.Parallel()

	var o Options
	WithDefaultRoute("home")(&o)
	WithDefaultParams(Params{"x": 1})(&o)
	WithTrailingSlash(TrailingSlashAlways)(&o)
	WithQueryParamsMode(QueryParamsLoose)(&o)
	WithCaseSensitive(true)(&o)
	WithURLParamsEncoding(URLParamsEncodingNone)(&o)
	WithAllowNotFound(true)(&o)
	WithRewritePathOnMatch(true)(&o)
	WithNoValidate(true)(&o)

	assert.Equal(t, "home", o.DefaultRoute)
	assert.Equal(t, 1, o.DefaultParams["x"])
	assert.Equal(t, TrailingSlashAlways, o.TrailingSlash)
	assert.Equal(t, QueryParamsLoose, o.QueryParamsMode)
	assert.True(t, o.CaseSensitive)
	assert.Equal(t, URLParamsEncodingNone, o.URLParamsEncoding)
	assert.True(t, o.AllowNotFound)
	assert.True(t, o.RewritePathOnMatch)
	assert.True(t, o.NoValidate)
}

func TestWithDefaultParams_CopiesInput(t *testing.T) {
	t.Parallel()

	var o Options
	input := Params{"x": 1}
	WithDefaultParams(input)(&o)
	input["x"] = 2

	assert.Equal(t, 1, o.DefaultParams["x"], "WithDefaultParams must clone its argument")
}

func TestNavigationOptions_CloneIsIndependent(t *testing.T) {
	t.Parallel()

	opts := NavigationOptions{Custom: map[string]any{"tag": "a"}}
	clone := opts.clone()
	clone.Custom["tag"] = "b"

	assert.Equal(t, "a", opts.Custom["tag"])
}

func TestNavigateOption_Setters(t *testing.T) {
	t.Parallel()

	var o NavigationOptions
	WithReplace(true)(&o)
	WithReload(true)(&o)
	WithForce(true)(&o)
	WithSkipTransition(true)(&o)
	WithForceDeactivate(true)(&o)
	WithSource("link")(&o)
	WithCustomOption("tag", "value")(&o)

	assert.True(t, o.Replace)
	assert.True(t, o.Reload)
	assert.True(t, o.Force)
	assert.True(t, o.SkipTransition)
	assert.True(t, o.ForceDeactivate)
	assert.Equal(t, "link", o.Source)
	assert.Equal(t, "value", o.Custom["tag"])
}

func TestWithCustomOption_InitializesNilMap(t *testing.T) {
	t.Parallel()

	var o NavigationOptions
	WithCustomOption("k", 1)(&o)
	assert.Equal(t, 1, o.Custom["k"])
}
