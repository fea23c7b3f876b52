// Package query is a keyed response cache for server data. Entries are fresh
// for a stale time, identical concurrent fetches share one call, and whole
// families of keys can be invalidated by prefix after a mutation.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Key identifies a cached query, e.g. {"departments", "list", "limit=10&page=1"}.
type Key []any

// String encodes each element as JSON and joins them with "/".
func (k Key) String() string {
	parts := make([]string, len(k))
	for i, el := range k {
		b, err := json.Marshal(el)
		if err != nil {
			b = []byte(fmt.Sprintf("%q", fmt.Sprint(el)))
		}
		parts[i] = string(b)
	}
	return strings.Join(parts, "/")
}

// HasPrefix reports whether k starts with every element of prefix.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	return Key(k[:len(prefix)]).String() == prefix.String()
}

type entry struct {
	key       Key
	value     any
	fetchedAt time.Time
}

// Cache is safe for concurrent use.
type Cache struct {
	staleTime time.Duration
	now       func() time.Time

	mu      sync.Mutex
	entries map[string]entry
	// generation increments on every invalidation so fetches started
	// before it do not repopulate the cache with old data.
	generation uint64

	group singleflight.Group
}

// New returns a cache whose entries are fresh for staleTime.
func New(staleTime time.Duration) *Cache {
	return &Cache{
		staleTime: staleTime,
		now:       time.Now,
		entries:   make(map[string]entry),
	}
}

// SetClock overrides the time source. Intended for tests.
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Get returns a fresh cached value.
func (c *Cache) Get(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok || c.now().Sub(e.fetchedAt) >= c.staleTime {
		return nil, false
	}
	return e.value, true
}

// Set stores value under key as freshly fetched.
func (c *Cache) Set(key Key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key.String()] = entry{key: key, value: value, fetchedAt: c.now()}
}

// Invalidate drops every entry whose key starts with prefix.
// An empty prefix drops everything.
func (c *Cache) Invalidate(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	n := 0
	for s, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			delete(c.entries, s)
			n++
		}
	}
	return n
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.Invalidate(nil)
}

// Len returns the number of stored entries, fresh or stale.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) gen() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

func (c *Cache) storeIfCurrent(key Key, value any, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return
	}
	c.entries[key.String()] = entry{key: key, value: value, fetchedAt: c.now()}
}

// Fetch returns the fresh cached value for key or calls fn once, sharing the
// call with concurrent fetches of the same key. Errors are not cached.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fn func(ctx context.Context) (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	gen := c.gen()
	ch := c.group.DoChan(key.String(), func() (any, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		c.storeIfCurrent(key, v, gen)
		return v, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		typed, ok := res.Val.(T)
		if !ok {
			return zero, fmt.Errorf("query %s: cached %T is not %T", key, res.Val, zero)
		}
		return typed, nil
	}
}
