// Package cache provides a small TTL cache with deduplicated loads.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader fetches the value for key on a miss.
type Loader[K comparable, V any] func(ctx context.Context, key K) (V, error)

const defaultLoadTimeout = 10 * time.Second

type entry[V any] struct {
	value   V
	expires time.Time
}

// TTL caches loaded values for a fixed duration. Concurrent misses for the
// same key share one load. Errors are never cached.
//
// A load runs detached from the caller's cancellation, bounded by
// loadTimeout, so one cancelled request does not fail the others waiting on
// the same key. gen and flights only hold keys with a load in flight.
type TTL[K comparable, V any] struct {
	ttl         time.Duration
	loadTimeout time.Duration
	load        Loader[K, V]
	now         func() time.Time

	mu      sync.Mutex
	entries map[K]entry[V]
	gen     map[K]uint64
	flights map[K]int
	group   singleflight.Group
}

// New creates a cache. A nil now uses time.Now.
func New[K comparable, V any](ttl time.Duration, now func() time.Time, load Loader[K, V]) *TTL[K, V] {
	if now == nil {
		now = time.Now
	}
	return &TTL[K, V]{
		ttl:         ttl,
		loadTimeout: defaultLoadTimeout,
		load:        load,
		now:         now,
		entries:     make(map[K]entry[V]),
		gen:         make(map[K]uint64),
		flights:     make(map[K]int),
	}
}

// Get returns the cached value for key, loading it when missing or expired.
// A cancelled ctx returns ctx.Err() while the shared load keeps running.
func (c *TTL[K, V]) Get(ctx context.Context, key K) (V, error) {
	var zero V
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.now().Before(e.expires) {
		c.mu.Unlock()
		return e.value, nil
	}
	sfKey := fmt.Sprintf("%v#%d", key, c.gen[key])
	c.mu.Unlock()

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(sfKey, func() (any, error) {
		return c.loadAndStore(loadCtx, key)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(V), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (c *TTL[K, V]) loadAndStore(ctx context.Context, key K) (V, error) {
	c.mu.Lock()
	gen := c.gen[key]
	c.flights[key]++
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.loadTimeout)
	defer cancel()
	value, err := c.load(ctx, key)

	c.mu.Lock()
	defer c.mu.Unlock()
	// An invalidation during the load makes this value stale.
	if err == nil && c.gen[key] == gen {
		c.entries[key] = entry[V]{value: value, expires: c.now().Add(c.ttl)}
	}
	if c.flights[key]--; c.flights[key] == 0 {
		delete(c.flights, key)
		delete(c.gen, key)
	}
	return value, err
}

// Invalidate drops key. A load already in flight for it will not be stored.
func (c *TTL[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	if c.flights[key] > 0 {
		c.gen[key]++
	}
}

// Refresh drops key and loads it again.
func (c *TTL[K, V]) Refresh(ctx context.Context, key K) (V, error) {
	c.Invalidate(key)
	return c.Get(ctx, key)
}

// Purge drops every entry and every load in flight.
func (c *TTL[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.flights {
		c.gen[k]++
	}
	c.entries = make(map[K]entry[V])
}

// Len returns the number of entries, expired ones included.
func (c *TTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
