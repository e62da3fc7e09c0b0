package service

import (
	"context"
	"slices"
	"sync"
)

type cacheKey struct{}

// requestCache memoizes reads for the lifetime of one request.
type requestCache struct {
	mu      sync.Mutex
	entries map[string]any
}

// WithRequestCache returns a context whose reads through Service are memoized
// until the context is discarded or a mutation runs on it.
func WithRequestCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, cacheKey{}, &requestCache{entries: make(map[string]any)})
}

func cacheFrom(ctx context.Context) *requestCache {
	c, _ := ctx.Value(cacheKey{}).(*requestCache)
	return c
}

func (c *requestCache) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *requestCache) put(key string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = v
}

func (c *requestCache) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// memoize runs load once per key per request. Errors are not cached.
func memoize[T any](ctx context.Context, key string, load func() (T, error)) (T, error) {
	c := cacheFrom(ctx)
	if c == nil {
		return load()
	}
	if v, ok := c.get(key); ok {
		return v.(T), nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	c.put(key, v)
	return v, nil
}

// memoizeSlice is memoize for list reads. Every caller gets its own slice;
// pointer fields of the elements are still shared.
func memoizeSlice[E any](ctx context.Context, key string, load func() ([]E, error)) ([]E, error) {
	v, err := memoize(ctx, key, load)
	if err != nil {
		return nil, err
	}
	return slices.Clone(v), nil
}

func invalidateRequestCache(ctx context.Context) {
	if c := cacheFrom(ctx); c != nil {
		c.reset()
	}
}
