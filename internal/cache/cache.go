// Package cache holds loaded datasets keyed by a fingerprint of their raw
// bytes, so re-uploads of identical content skip parsing. Invalidation is
// explicit; there is no background sweeper.
package cache

import (
	"context"
	"encoding/hex"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"

	"tabsight/internal/dataset"
)

// Fingerprint derives the cache key for raw content: the hex form of its
// BLAKE2b-256 digest.
func Fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

type entry struct {
	ds      *dataset.Dataset
	addedAt time.Time
}

// Cache is a TTL-bounded dataset store. Concurrent loads of the same key
// collapse into a single execution.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]entry
	ttl        time.Duration
	maxEntries int
	group      singleflight.Group
	now        func() time.Time
}

// New builds a cache. A zero ttl disables expiry; a zero maxEntries
// disables the size bound.
func New(ttl time.Duration, maxEntries int) *Cache {
	return &Cache{
		entries:    make(map[string]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the dataset for key if present and fresh. An expired entry is
// dropped on the spot and reported as a miss.
func (c *Cache) Get(key string) (*dataset.Dataset, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.expired(e) {
		c.mu.Lock()
		if current, still := c.entries[key]; still && c.expired(current) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.ds, true
}

// Put stores a dataset under key, evicting the oldest entry when the size
// bound is exceeded.
func (c *Cache) Put(key string, ds *dataset.Dataset) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{ds: ds, addedAt: c.now()}
	if c.maxEntries > 0 && len(c.entries) > c.maxEntries {
		c.evictOldestLocked()
	}
}

// GetOrLoad returns the cached dataset for key or runs load to produce it,
// collapsing concurrent callers of the same key onto one load. The second
// return reports whether the value came from cache.
func (c *Cache) GetOrLoad(ctx context.Context, key string, load func(context.Context) (*dataset.Dataset, error)) (*dataset.Dataset, bool, error) {
	if ds, ok := c.Get(key); ok {
		return ds, true, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// A concurrent flight may have filled the entry in the meantime.
		if ds, ok := c.Get(key); ok {
			return ds, nil
		}
		ds, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.Put(key, ds)
		return ds, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*dataset.Dataset), false, nil
}

// Invalidate removes one key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidateAll empties the cache.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) expired(e entry) bool {
	return c.ttl > 0 && c.now().Sub(e.addedAt) > c.ttl
}

func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	first := true
	for key, e := range c.entries {
		if first || e.addedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = e.addedAt
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}
