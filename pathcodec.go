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
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"

	ptr "github.com/soongo/path-to-regexp"
)

// CodecRoute is the minimal view of a registered route a PathCodec needs:
// its dot-notation name and its raw path pattern.
type CodecRoute struct {
	Name string
	Path string
}

// PathCodec is component A: the pluggable matchPath/buildPath pair. The
// router ships a path-to-regexp backed default; callers may supply their
// own via WithCodec to integrate a different URL pattern syntax entirely.
type PathCodec interface {
	// Match resolves path (which may include a query string) against routes,
	// returning the matched route's name and decoded params. ok is false
	// (with a nil error) when nothing matches; err is reserved for codec
	// malfunctions (a malformed stored pattern) and malformed query strings,
	// not ordinary non-matches.
	Match(path string, routes []CodecRoute, opts Options) (name string, params Params, ok bool, err error)

	// Build renders name's path pattern against params, appending any params
	// left over after filling path placeholders as a query string.
	Build(name string, params Params, routes []CodecRoute, opts Options) (string, error)
}

// defaultPathCodec is the default PathCodec, backed by
// github.com/soongo/path-to-regexp. Compiled matchers/builders are cached by
// pattern+sensitivity since compiling a pattern's regexp is the expensive
// part and route sets rarely change shape after startup.
type defaultPathCodec struct {
	mu       sync.Mutex
	matchers map[string]func(string) (*ptr.MatchResult, error)
	builders map[string]func(any) (string, error)
}

func newDefaultPathCodec() *defaultPathCodec {
	return &defaultPathCodec{
		matchers: make(map[string]func(string) (*ptr.MatchResult, error)),
		builders: make(map[string]func(any) (string, error)),
	}
}

func cacheKey(pattern string, sensitive bool) string {
	if sensitive {
		return "S:" + pattern
	}
	return "I:" + pattern
}

func (c *defaultPathCodec) matcherFor(pattern string, opts Options) (func(string) (*ptr.MatchResult, error), error) {
	key := cacheKey(pattern, opts.CaseSensitive)
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.matchers[key]; ok {
		return m, nil
	}
	end := true
	m, err := ptr.Match(pattern, &ptr.Options{
		Sensitive: opts.CaseSensitive,
		End:       &end,
	})
	if err != nil {
		return nil, fmt.Errorf("navigation: invalid path pattern %q: %w", pattern, err)
	}
	c.matchers[key] = m
	return m, nil
}

func (c *defaultPathCodec) builderFor(pattern string, opts Options) (func(any) (string, error), error) {
	key := cacheKey(pattern, opts.CaseSensitive) + ":" + string(opts.URLParamsEncoding)
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.builders[key]; ok {
		return b, nil
	}
	b, err := ptr.Compile(pattern, &ptr.Options{
		Sensitive: opts.CaseSensitive,
		Encode:    encodeFuncFor(opts.URLParamsEncoding),
	})
	if err != nil {
		return nil, fmt.Errorf("navigation: invalid path pattern %q: %w", pattern, err)
	}
	c.builders[key] = b
	return b, nil
}

func encodeFuncFor(enc URLParamsEncoding) func(string, any) string {
	switch enc {
	case URLParamsEncodingNone:
		return func(s string, _ any) string { return s }
	case URLParamsEncodingURI:
		return func(s string, _ any) string { return (&url.URL{Path: s}).EscapedPath() }
	case URLParamsEncodingURIComponent, URLParamsEncodingDefault:
		return func(s string, _ any) string { return url.PathEscape(s) }
	default:
		return func(s string, _ any) string { return url.PathEscape(s) }
	}
}

// normalizeTrailingSlash applies mode to a bare path (no query string).
func normalizeTrailingSlash(path string, mode TrailingSlashMode) string {
	if path == "/" || path == "" {
		return path
	}
	switch mode {
	case TrailingSlashNever:
		return strings.TrimRight(path, "/")
	case TrailingSlashAlways:
		if !strings.HasSuffix(path, "/") {
			return path + "/"
		}
		return path
	default: // strict, preserve
		return path
	}
}

// splitQuery separates a path+query string into its two parts.
func splitQuery(raw string) (path, query string) {
	if idx := strings.IndexByte(raw, '?'); idx >= 0 {
		return raw[:idx], raw[idx+1:]
	}
	return raw, ""
}

// decodeQueryParams parses a raw query string into Params, coercing simple
// boolean/numeric-looking values per mode (QueryParamsStrict leaves every
// value as a string; QueryParamsLoose/Default coerce "true"/"false" and
// integers/floats).
func decodeQueryParams(query string, mode QueryParamsMode) (Params, error) {
	out := Params{}
	if query == "" {
		return out, nil
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return nil, fmt.Errorf("navigation: malformed query string: %w", err)
	}
	for key, vs := range values {
		if len(vs) == 0 {
			continue
		}
		var decoded any
		if len(vs) == 1 {
			decoded = decodeScalar(vs[0], mode)
		} else {
			arr := make([]any, len(vs))
			for i, v := range vs {
				arr[i] = decodeScalar(v, mode)
			}
			decoded = arr
		}
		out[key] = decoded
	}
	return out, nil
}

func decodeScalar(v string, mode QueryParamsMode) any {
	if mode == QueryParamsStrict {
		return v
	}
	switch v {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return n
	}
	return v
}

// encodeQueryParams renders leftover (non-path) params as a query string per
// format, sorted by key for deterministic output.
func encodeQueryParams(params Params, format QueryParamsFormat) string {
	if len(params) == 0 {
		return ""
	}
	values := url.Values{}
	keys := sortedKeys(params)
	for _, k := range keys {
		switch v := params[k].(type) {
		case nil:
			values.Set(k, nullLiteral(format))
		case []any:
			encodeArray(values, k, v, format)
		default:
			values.Set(k, fmt.Sprint(v))
		}
	}
	return values.Encode()
}

func nullLiteral(format QueryParamsFormat) string {
	if format.NullFormat == "string" {
		return "null"
	}
	return ""
}

func encodeArray(values url.Values, key string, arr []any, format QueryParamsFormat) {
	switch format.ArrayFormat {
	case "comma":
		parts := make([]string, len(arr))
		for i, v := range arr {
			parts[i] = fmt.Sprint(v)
		}
		values.Set(key, strings.Join(parts, ","))
	case "brackets":
		for _, v := range arr {
			values.Add(key+"[]", fmt.Sprint(v))
		}
	default: // "repeat"
		for _, v := range arr {
			values.Add(key, fmt.Sprint(v))
		}
	}
}

func sortedKeys(p Params) []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

// matchResultParams converts a soongo MatchResult's loosely-typed Params
// field into a flat Params map, since the underlying library mirrors the JS
// original and may hand back either a map or an ordered key/value slice
// depending on pattern shape.
func matchResultParams(raw any) Params {
	out := Params{}
	switch v := raw.(type) {
	case map[string]any:
		for k, val := range v {
			out[k] = val
		}
	case map[string]string:
		for k, val := range v {
			out[k] = val
		}
	}
	return out
}

// Match implements PathCodec for the default path-to-regexp codec.
func (c *defaultPathCodec) Match(raw string, routes []CodecRoute, opts Options) (string, Params, bool, error) {
	pathPart, queryPart := splitQuery(raw)
	pathPart = normalizeTrailingSlash(pathPart, opts.TrailingSlash)

	candidates := []string{pathPart}
	if opts.TrailingSlash == TrailingSlashPreserve || opts.TrailingSlash == TrailingSlashStrict {
		if strings.HasSuffix(pathPart, "/") && pathPart != "/" {
			candidates = append(candidates, strings.TrimRight(pathPart, "/"))
		} else {
			candidates = append(candidates, pathPart+"/")
		}
	}

	for _, route := range routes {
		matcher, err := c.matcherFor(route.Path, opts)
		if err != nil {
			return "", nil, false, err
		}
		for _, candidate := range candidates {
			result, _ := matcher(candidate)
			if result == nil {
				continue
			}
			params := matchResultParams(result.Params)
			if queryPart != "" {
				queryParams, err := decodeQueryParams(queryPart, opts.QueryParamsMode)
				if err != nil {
					return "", nil, false, err
				}
				for k, v := range queryParams {
					if _, exists := params[k]; !exists {
						params[k] = v
					}
				}
			}
			return route.Name, params, true, nil
		}
	}
	return "", nil, false, nil
}

// Build implements PathCodec for the default path-to-regexp codec.
func (c *defaultPathCodec) Build(name string, params Params, routes []CodecRoute, opts Options) (string, error) {
	var pattern string
	found := false
	for _, route := range routes {
		if route.Name == name {
			pattern = route.Path
			found = true
			break
		}
	}
	if !found {
		return "", NewRouterError(ErrCodeRouteNotFound, "").WithSegment(name)
	}

	builder, err := c.builderFor(pattern, opts)
	if err != nil {
		return "", err
	}

	consumed := extractPlaceholders(pattern)
	pathParams := make(map[string]any, len(params))
	leftover := Params{}
	for k, v := range params {
		if consumed[k] {
			pathParams[k] = v
		} else {
			leftover[k] = v
		}
	}

	built, err := builder(pathParams)
	if err != nil {
		return "", typeError("router.buildPath", "failed to build path for route %q: %v", name, err)
	}
	built = normalizeTrailingSlash(built, opts.TrailingSlash)

	if qs := encodeQueryParams(leftover, opts.QueryParams); qs != "" {
		built += "?" + qs
	}
	return built, nil
}

var placeholderPattern = regexp.MustCompile(`[:*]([A-Za-z_][A-Za-z0-9_]*)`)

func extractPlaceholders(pattern string) map[string]bool {
	out := map[string]bool{}
	for _, match := range placeholderPattern.FindAllStringSubmatch(pattern, -1) {
		out[match[1]] = true
	}
	return out
}
