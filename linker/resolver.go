package linker

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/numbridge/engine"
	"github.com/wippyai/numbridge/errors"
)

// Resolver maps dotted paths such as "Base.LinAlg.BLAS.dot" to callables
// in the runtime namespace.
//
// Every segment but the last must name a module; the last must name a
// function or type constructor. Successful resolutions are cached by full
// path only, so "a.b" and "a.b.c" are independent entries.
//
// The cache is safe for concurrent use. Resolve walks runtime modules and
// must run on the runtime's thread.
type Resolver struct {
	root   *engine.Module
	cache  map[string]engine.Value
	mu     sync.RWMutex
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewResolver creates a resolver rooted at root, normally Main.
func NewResolver(root *engine.Module) *Resolver {
	return &Resolver{
		root:  root,
		cache: make(map[string]engine.Value),
	}
}

// SplitPath splits a dotted path into segments. Empty segments are
// rejected.
func SplitPath(path string) ([]string, bool) {
	if path == "" {
		return nil, false
	}
	parts := strings.Split(path, ".")
	for _, p := range parts {
		if p == "" {
			return nil, false
		}
	}
	return parts, true
}

// Resolve returns the callable bound at path. Failures carry
// UndefinedBinding with the full requested path.
func (r *Resolver) Resolve(path string) (engine.Value, error) {
	r.mu.RLock()
	fn, ok := r.cache[path]
	r.mu.RUnlock()
	if ok {
		r.hits.Add(1)
		return fn, nil
	}
	r.misses.Add(1)

	fn, err := r.walk(path)
	if err != nil {
		Logger().Debug("resolve failed", zap.String("path", path), zap.Error(err))
		return nil, errors.UndefinedBinding(path, err)
	}

	r.mu.Lock()
	r.cache[path] = fn
	r.mu.Unlock()

	Logger().Debug("resolved", zap.String("path", path))
	return fn, nil
}

func (r *Resolver) walk(path string) (engine.Value, error) {
	parts, ok := SplitPath(path)
	if !ok {
		return nil, fmt.Errorf("invalid path %q", path)
	}

	mod := r.root
	for i, name := range parts[:len(parts)-1] {
		v, ok := mod.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%s not defined", strings.Join(parts[:i+1], "."))
		}
		sub, ok := v.(*engine.Module)
		if !ok {
			return nil, fmt.Errorf("%s is not a module", strings.Join(parts[:i+1], "."))
		}
		mod = sub
	}

	last := parts[len(parts)-1]
	v, ok := mod.Lookup(last)
	if !ok {
		return nil, fmt.Errorf("%s not defined", path)
	}
	if !engine.IsCallable(v) {
		return nil, fmt.Errorf("%s is a %s, not a function", path, engine.TypeOf(v))
	}
	return v, nil
}

// Preload seeds the cache, for instance with the exported functions of a
// freshly imported module.
func (r *Resolver) Preload(path string, fn engine.Value) {
	r.mu.Lock()
	r.cache[path] = fn
	r.mu.Unlock()
}

// Invalidate drops cached entries equal to prefix or below it
// (prefix + "."). An empty prefix clears the cache. It returns the number
// of entries dropped.
func (r *Resolver) Invalidate(prefix string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prefix == "" {
		n := len(r.cache)
		clear(r.cache)
		return n
	}
	n := 0
	for k := range r.cache {
		if k == prefix || strings.HasPrefix(k, prefix+".") {
			delete(r.cache, k)
			n++
		}
	}
	return n
}

// Len returns the number of cached paths.
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

// Stats returns cache hit and miss counts.
func (r *Resolver) Stats() (hits, misses uint64) {
	return r.hits.Load(), r.misses.Load()
}
