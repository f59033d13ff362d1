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
	"regexp"
	"strings"
	"sync"
)

const (
	maxRouteNameLength = 10000
	maxForwardDepth    = 100
)

var segmentPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// ParamsCodec transforms a Params map, used for a route's encodeParams /
// decodeParams hooks.
type ParamsCodec func(Params) Params

// ForwardTarget is either a literal target name or a nullary function
// evaluated lazily at navigation time.
// Exactly one of Name/Func should be set; Func takes precedence when both
// are present the two are mutually exclusive by construction via
// ForwardToName/ForwardToFunc.
type ForwardTarget struct {
	Name string
	Func func() string
}

func (t ForwardTarget) isZero() bool {
	return t.Name == "" && t.Func == nil
}

// ForwardToName builds a literal ForwardTarget.
func ForwardToName(name string) ForwardTarget { return ForwardTarget{Name: name} }

// ForwardToFunc builds a lazily-evaluated ForwardTarget.
func ForwardToFunc(fn func() string) ForwardTarget { return ForwardTarget{Func: fn} }

// RouteDef is the input shape for registering a route. Unexported
// fields are not part of this shape — RouteDef is a plain data value, sent
// through Add/Update/Replace and sanitized to a small core on store.
type RouteDef struct {
	Name     string
	Path     string
	Children []RouteDef

	CanActivate   GuardFactory
	CanDeactivate GuardFactory
	DecodeParams  ParamsCodec
	EncodeParams  ParamsCodec
	DefaultParams Params
	ForwardTo     ForwardTarget
}

// isSystemName reports whether name is a reserved system name, which
// bypasses segment-pattern validation (but not the dot/length rules).
func isSystemName(name string) bool {
	return strings.HasPrefix(name, "@@")
}

// validateName enforces the route name grammar: segments matching
// [A-Za-z_][A-Za-z0-9_-]*, dot-joined, no leading/trailing/consecutive dots,
// max 10,000 chars. System names (@@-prefixed) skip the segment pattern.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("route name must not be empty")
	}
	if len(name) > maxRouteNameLength {
		return fmt.Errorf("route name exceeds maximum length of %d", maxRouteNameLength)
	}
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") || strings.Contains(name, "..") {
		return fmt.Errorf("route name %q has leading, trailing, or consecutive dots", name)
	}
	if isSystemName(name) {
		return nil
	}
	for _, segment := range strings.Split(name, ".") {
		if !segmentPattern.MatchString(segment) {
			return fmt.Errorf("route name segment %q in %q does not match [A-Za-z_][A-Za-z0-9_-]*", segment, name)
		}
	}
	return nil
}

// parentName returns the dot-notation parent of name, or "" if name is
// top-level.
func parentName(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return ""
	}
	return name[:idx]
}

// routeNode is the sanitized, stored core of a route definition.
type routeNode struct {
	name string
	path string
}

// routeTree is the hierarchical route registry. All mutation
// goes through the Router's routes facet, which coordinates routeTree,
// configStore, and the guard registry as a single atomic unit; routeTree
// itself only validates and stores node/path data.
type routeTree struct {
	mu      sync.RWMutex
	byName  map[string]*routeNode
	byPath  map[string]string // path -> name
}

func newRouteTree() *routeTree {
	return &routeTree{byName: make(map[string]*routeNode), byPath: make(map[string]string)}
}

func (t *routeTree) has(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.byName[name]
	return ok
}

func (t *routeTree) get(name string) (RouteDef, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.byName[name]
	if !ok {
		return RouteDef{}, false
	}
	return RouteDef{Name: n.name, Path: n.path}, true
}

func (t *routeTree) names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.byName))
	for n := range t.byName {
		out = append(out, n)
	}
	return out
}

// flatten walks def and its Children, producing one routeNode per entry with
// its fully-qualified dot-joined name, in pre-order (parents precede
// children — required so a batch may introduce a parent and its own child
// in the same call).
func flatten(def RouteDef, prefix string) []RouteDef {
	full := def
	if prefix != "" {
		full.Name = prefix + "." + def.Name
	}
	out := []RouteDef{full}
	for _, child := range def.Children {
		out = append(out, flatten(child, full.Name)...)
	}
	return out
}

// planAdd validates a batch of route definitions against add() semantics
// without mutating t, returning the flattened, validated entries
// ready for commit. Errors leave t untouched (the caller never calls commit
// after a planAdd error).
func (t *routeTree) planAdd(defs []RouteDef) ([]RouteDef, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var flat []RouteDef
	for _, d := range defs {
		flat = append(flat, flatten(d, "")...)
	}

	seenNames := make(map[string]bool, len(flat))
	seenPaths := make(map[string]bool, len(flat))
	for _, d := range flat {
		if err := validateName(d.Name); err != nil {
			return nil, typeError("routes.add", "%v", err)
		}
		if d.Path == "" {
			return nil, typeError("routes.add", "route %q has an empty path", d.Name)
		}
		if strings.ContainsAny(d.Path, " \t\n\r") {
			return nil, typeError("routes.add", "route %q path must not contain whitespace", d.Name)
		}
		if _, exists := t.byName[d.Name]; exists || seenNames[d.Name] {
			return nil, typeError("routes.add", "duplicate route name %q", d.Name)
		}
		if existingName, exists := t.byPath[d.Path]; (exists && existingName != d.Name) || seenPaths[d.Path] {
			return nil, typeError("routes.add", "duplicate route path %q", d.Path)
		}
		seenNames[d.Name] = true
		seenPaths[d.Path] = true

		if parent := parentName(d.Name); parent != "" {
			if _, exists := t.byName[parent]; !exists && !seenNames[parent] {
				return nil, typeError("routes.add", "parent route %q for %q does not exist", parent, d.Name)
			}
		}
	}
	return flat, nil
}

// commitAdd stores pre-validated entries. Call only after a successful
// planAdd against the same tree state.
func (t *routeTree) commitAdd(flat []RouteDef) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, d := range flat {
		t.byName[d.Name] = &routeNode{name: d.Name, path: d.Path}
		t.byPath[d.Path] = d.Name
	}
}

// subtreeNames returns name and every descendant name currently stored
// (dot-notation children), used by remove().
func (t *routeTree) subtreeNames(name string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	prefix := name + "."
	out := []string{}
	if _, ok := t.byName[name]; ok {
		out = append(out, name)
	}
	for n := range t.byName {
		if strings.HasPrefix(n, prefix) {
			out = append(out, n)
		}
	}
	return out
}

// remove deletes the given names (and their path entries) from the tree.
func (t *routeTree) remove(names []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, n := range names {
		if node, ok := t.byName[n]; ok {
			delete(t.byPath, node.path)
			delete(t.byName, n)
		}
	}
}

// replace atomically swaps in an entirely new set of validated entries.
func (t *routeTree) replace(flat []RouteDef) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byName = make(map[string]*routeNode, len(flat))
	t.byPath = make(map[string]string, len(flat))
	for _, d := range flat {
		t.byName[d.Name] = &routeNode{name: d.Name, path: d.Path}
		t.byPath[d.Path] = d.Name
	}
}

func (t *routeTree) clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byName = make(map[string]*routeNode)
	t.byPath = make(map[string]string)
}

// cloneTree returns a deep copy of t for Router.Clone.
func (t *routeTree) cloneTree() *routeTree {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := newRouteTree()
	for name, node := range t.byName {
		out.byName[name] = &routeNode{name: node.name, path: node.path}
	}
	for path, name := range t.byPath {
		out.byPath[path] = name
	}
	return out
}

// updatePath rewrites the stored path for an existing route. RoutesAPI.Update
// does not call it: Update keeps a route's stored path unchanged.
func (t *routeTree) updatePath(name, path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	node, ok := t.byName[name]
	if !ok {
		return NewRouterError(ErrCodeRouteNotFound, "").WithSegment(name)
	}
	if existing, exists := t.byPath[path]; exists && existing != name {
		return typeError("routes.update", "path %q already used by route %q", path, existing)
	}
	delete(t.byPath, node.path)
	node.path = path
	t.byPath[path] = name
	return nil
}

// configStore holds the per-route side tables: decoders,
// encoders, defaultParams, and the forward map plus its precomputed
// resolution. All writes are atomic with the owning routeTree mutation that
// triggers them (coordinated by the routes facet, not by configStore
// itself).
type configStore struct {
	mu                 sync.RWMutex
	decoders           map[string]ParamsCodec
	encoders           map[string]ParamsCodec
	defaultParams      map[string]Params
	forwardMap         map[string]ForwardTarget
	resolvedForwardMap map[string]string
}

func newConfigStore() *configStore {
	return &configStore{
		decoders:           make(map[string]ParamsCodec),
		encoders:           make(map[string]ParamsCodec),
		defaultParams:      make(map[string]Params),
		forwardMap:         make(map[string]ForwardTarget),
		resolvedForwardMap: make(map[string]string),
	}
}

// set stores def's side properties under name.
func (c *configStore) set(name string, def RouteDef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if def.DecodeParams != nil {
		c.decoders[name] = def.DecodeParams
	}
	if def.EncodeParams != nil {
		c.encoders[name] = def.EncodeParams
	}
	if def.DefaultParams != nil {
		c.defaultParams[name] = def.DefaultParams.Clone()
	}
	if !def.ForwardTo.isZero() {
		c.forwardMap[name] = def.ForwardTo
	}
}

// clear drops every side-table entry for name.
func (c *configStore) clear(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.decoders, name)
	delete(c.encoders, name)
	delete(c.defaultParams, name)
	delete(c.forwardMap, name)
	delete(c.resolvedForwardMap, name)
}

// clearAll empties every side table.
func (c *configStore) clearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decoders = make(map[string]ParamsCodec)
	c.encoders = make(map[string]ParamsCodec)
	c.defaultParams = make(map[string]Params)
	c.forwardMap = make(map[string]ForwardTarget)
	c.resolvedForwardMap = make(map[string]string)
}

func (c *configStore) get(name string) (decode, encode ParamsCodec, defaults Params, hasForward bool, forward ForwardTarget) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	decode = c.decoders[name]
	encode = c.encoders[name]
	defaults = c.defaultParams[name]
	forward, hasForward = c.forwardMap[name]
	return
}

func (c *configStore) resolvedForward(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	target, ok := c.resolvedForwardMap[name]
	return target, ok
}

// recomputeResolvedForwardMap rebuilds resolvedForwardMap by following every
// string-valued forward edge to its terminal target, cycle-detecting with a
// marked-in-progress DFS. Function-valued edges are neither pre-resolved
// (they're evaluated lazily at navigation time) nor walked for cycle
// detection: a string chain that reaches a route with a function-valued edge
// resolves to that route. names is the full set of known route
// names, used to validate that every forward target exists.
func (c *configStore) recomputeResolvedForwardMap(names map[string]bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	resolved := make(map[string]string, len(c.forwardMap))
	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)
	state := make(map[string]int, len(c.forwardMap))

	var chain []string
	var resolve func(name string) (string, error)
	resolve = func(name string) (string, error) {
		if state[name] == visited {
			if target, ok := resolved[name]; ok {
				return target, nil
			}
			return name, nil
		}
		if state[name] == visiting {
			chain = append(chain, name)
			return "", fmt.Errorf("circular forwardTo: %s", strings.Join(chain, " → "))
		}
		edge, hasEdge := c.forwardMap[name]
		if !hasEdge || edge.Func != nil {
			state[name] = visited
			return name, nil
		}
		state[name] = visiting
		chain = append(chain, name)
		if len(chain) > maxForwardDepth {
			return "", fmt.Errorf("forwardTo chain exceeds maximum depth of %d", maxForwardDepth)
		}
		if !names[edge.Name] {
			return "", fmt.Errorf("forwardTo target %q does not exist", edge.Name)
		}
		target, err := resolve(edge.Name)
		chain = chain[:len(chain)-1]
		if err != nil {
			return "", err
		}
		state[name] = visited
		resolved[name] = target
		return target, nil
	}

	for name, edge := range c.forwardMap {
		if edge.Func != nil {
			continue
		}
		chain = chain[:0]
		if _, err := resolve(name); err != nil {
			return err
		}
	}
	c.resolvedForwardMap = resolved
	return nil
}

// cloneStore returns a deep-enough copy of c for Router.Clone: every
// Params value is cloned, every factory/codec reference is shared.
func (c *configStore) cloneStore() *configStore {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := newConfigStore()
	for k, v := range c.decoders {
		out.decoders[k] = v
	}
	for k, v := range c.encoders {
		out.encoders[k] = v
	}
	for k, v := range c.defaultParams {
		out.defaultParams[k] = v.Clone()
	}
	for k, v := range c.forwardMap {
		out.forwardMap[k] = v
	}
	for k, v := range c.resolvedForwardMap {
		out.resolvedForwardMap[k] = v
	}
	return out
}

// invalidateTargets removes every resolvedForwardMap entry whose terminal
// target is in removed (used by remove()).
func (c *configStore) invalidateTargets(removed map[string]bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for name, target := range c.resolvedForwardMap {
		if removed[target] || removed[name] {
			delete(c.resolvedForwardMap, name)
		}
	}
	for name := range c.forwardMap {
		if removed[name] {
			delete(c.forwardMap, name)
		}
	}
}
