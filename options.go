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
	"maps"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// TrailingSlashMode controls trailing-slash handling in the path codec.
type TrailingSlashMode string

const (
	TrailingSlashStrict   TrailingSlashMode = "strict"
	TrailingSlashNever    TrailingSlashMode = "never"
	TrailingSlashAlways   TrailingSlashMode = "always"
	TrailingSlashPreserve TrailingSlashMode = "preserve"
)

// QueryParamsMode controls querystring parsing strictness in the path codec.
type QueryParamsMode string

const (
	QueryParamsDefault QueryParamsMode = "default"
	QueryParamsStrict  QueryParamsMode = "strict"
	QueryParamsLoose   QueryParamsMode = "loose"
)

// URLParamsEncoding controls how path parameters are percent-encoded when
// building a path.
type URLParamsEncoding string

const (
	URLParamsEncodingDefault      URLParamsEncoding = "default"
	URLParamsEncodingURI          URLParamsEncoding = "uri"
	URLParamsEncodingURIComponent URLParamsEncoding = "uriComponent"
	URLParamsEncodingNone         URLParamsEncoding = "none"
)

// QueryParamsFormat configures array/boolean/null encoding for query params,
// passed through to the configured path codec.
type QueryParamsFormat struct {
	ArrayFormat   string
	BooleanFormat string
	NullFormat    string
}

// Options configures a Router at construction time. Options are deep-frozen
// (a private snapshot is taken) once a Router is built; only DefaultRoute
// and DefaultParams may still be changed after start(), via
// Router.SetDefaultRoute / Router.SetDefaultParams.
type Options struct {
	DefaultRoute   string
	DefaultParams  Params
	TrailingSlash  TrailingSlashMode
	QueryParams    QueryParamsFormat
	QueryParamsMode QueryParamsMode
	CaseSensitive  bool
	URLParamsEncoding URLParamsEncoding

	// AllowNotFound synthesizes a @@router/UNKNOWN_ROUTE state instead of
	// emitting ROUTE_NOT_FOUND when a path or name fails to resolve.
	AllowNotFound bool

	// RewritePathOnMatch replaces the caller-supplied path with the one the
	// path codec builds back from the resolved (name, params) pair.
	RewritePathOnMatch bool

	// NoValidate skips runtime name/param shape validation in the routes
	// API for hot paths where the caller has pre-validated. It never
	// suppresses structural/state-machine errors.
	NoValidate bool

	// Codec is the pluggable path codec (component A). Defaults to the
	// path-to-regexp backed defaultPathCodec in pathcodec.go.
	Codec PathCodec

	// Tracer, when set (via WithTracing), wraps every transition attempt in
	// a span. Nil disables tracing entirely — a true no-op, not a check
	// sprinkled through the transition engine.
	Tracer trace.Tracer

	// Diagnostics receives DiagnosticEvent values for informational,
	// non-fatal conditions (overwrite warnings, registry limits, guard
	// bypass on forwardTo, replace()-while-in-flight no-ops, ...).
	Diagnostics DiagnosticHandler

	// Meter, when set (via WithMeter), enables OTel metric instruments for
	// transition outcomes and registry sizes. Nil disables metrics entirely.
	Meter metric.Meter
}

// clone returns a deep-enough copy of o for the frozen-options snapshot:
// DefaultParams and QueryParams are copied by value/shallow-map-copy so a
// caller mutating the Options they passed in cannot reach the router's copy.
func (o Options) clone() Options {
	out := o
	out.DefaultParams = o.DefaultParams.Clone()
	return out
}

func defaultOptions() Options {
	return Options{
		TrailingSlash:     TrailingSlashNever,
		QueryParamsMode:   QueryParamsDefault,
		URLParamsEncoding: URLParamsEncodingDefault,
		Codec:             nil, // filled in by New with the default pathcodec implementation
	}
}

// NavigationOptions are the per-call options recognized by Navigate. Unknown
// string/bool keys are preserved in Custom and carried into
// State.Meta.Options without validation.
type NavigationOptions struct {
	Replace          bool
	Reload           bool
	Force            bool
	SkipTransition   bool
	ForceDeactivate  bool
	Source           string
	Custom           map[string]any
}

func (o NavigationOptions) clone() NavigationOptions {
	out := o
	out.Custom = make(map[string]any, len(o.Custom))
	maps.Copy(out.Custom, o.Custom)
	return out
}

// NavigateOption configures a single Navigate call.
type NavigateOption func(*NavigationOptions)

func WithReplace(v bool) NavigateOption { return func(o *NavigationOptions) { o.Replace = v } }
func WithReload(v bool) NavigateOption  { return func(o *NavigationOptions) { o.Reload = v } }
func WithForce(v bool) NavigateOption   { return func(o *NavigationOptions) { o.Force = v } }
func WithSkipTransition(v bool) NavigateOption {
	return func(o *NavigationOptions) { o.SkipTransition = v }
}
func WithForceDeactivate(v bool) NavigateOption {
	return func(o *NavigationOptions) { o.ForceDeactivate = v }
}
func WithSource(src string) NavigateOption { return func(o *NavigationOptions) { o.Source = src } }

// WithCustomOption attaches an opaque string/bool/number field carried
// through to State.Meta.Options.Custom, for use by external collaborators
// (history adapters, plugins) that need to tag a navigation.
func WithCustomOption(key string, value any) NavigateOption {
	return func(o *NavigationOptions) {
		if o.Custom == nil {
			o.Custom = make(map[string]any)
		}
		o.Custom[key] = value
	}
}

// Option configures a Router at construction time.
type Option func(*Options)

func WithDefaultRoute(name string) Option {
	return func(o *Options) { o.DefaultRoute = name }
}

func WithDefaultParams(params Params) Option {
	return func(o *Options) { o.DefaultParams = params.Clone() }
}

func WithTrailingSlash(mode TrailingSlashMode) Option {
	return func(o *Options) { o.TrailingSlash = mode }
}

func WithQueryParamsMode(mode QueryParamsMode) Option {
	return func(o *Options) { o.QueryParamsMode = mode }
}

func WithQueryParamsFormat(format QueryParamsFormat) Option {
	return func(o *Options) { o.QueryParams = format }
}

func WithCaseSensitive(v bool) Option {
	return func(o *Options) { o.CaseSensitive = v }
}

func WithURLParamsEncoding(enc URLParamsEncoding) Option {
	return func(o *Options) { o.URLParamsEncoding = enc }
}

func WithAllowNotFound(v bool) Option {
	return func(o *Options) { o.AllowNotFound = v }
}

func WithRewritePathOnMatch(v bool) Option {
	return func(o *Options) { o.RewritePathOnMatch = v }
}

func WithNoValidate(v bool) Option {
	return func(o *Options) { o.NoValidate = v }
}

// WithCodec overrides the default path-to-regexp backed path codec with a
// caller-supplied matchPath/buildPath pair, treated as an opaque
// collaborator; the core only guarantees both directions see the same
// configured options.
func WithCodec(codec PathCodec) Option {
	return func(o *Options) { o.Codec = codec }
}

// WithTracing enables OpenTelemetry tracing of transition attempts. Each
// transition becomes one span named "navigation.transition".
func WithTracing(tracer trace.Tracer) Option {
	return func(o *Options) { o.Tracer = tracer }
}

// WithDiagnostics registers a handler for informational DiagnosticEvents.
func WithDiagnostics(handler DiagnosticHandler) Option {
	return func(o *Options) { o.Diagnostics = handler }
}

// WithMeter enables OpenTelemetry metrics for transition outcomes and
// registry sizes.
func WithMeter(meter metric.Meter) Option {
	return func(o *Options) { o.Meter = meter }
}
