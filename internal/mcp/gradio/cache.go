package gradio

import (
	"sync"
	"sync/atomic"
	"time"
)

// entry is the common shape stored by both cache levels: a value plus the
// bookkeeping needed for TTL expiry and conditional revalidation.
type entry[T any] struct {
	value     T
	etag      string
	fetchedAt time.Time
}

// Stats are the per-cache counters exposed by §4.4.2.
type Stats struct {
	Hits              int64
	Misses            int64
	Size              int
	EtagRevalidations int64
}

// Cache is the two-level metadata/schema cache described in §4.4.2: an
// in-memory map keyed by space name, with TTL measured from creation (not
// last access) and a revalidation path that bypasses TTL to recover a stale
// entry's ETag.
//
// Cache is safe for concurrent use. No single global lock is held across an
// outbound call — callers fetch first, then call Set.
type Cache[T any] struct {
	ttl time.Duration

	mu   sync.RWMutex
	data map[string]entry[T]

	hits              atomic.Int64
	misses            atomic.Int64
	etagRevalidations atomic.Int64
}

// NewCache returns an empty [Cache] with the given TTL.
func NewCache[T any](ttl time.Duration) *Cache[T] {
	return &Cache[T]{
		ttl:  ttl,
		data: make(map[string]entry[T]),
	}
}

// Get returns the cached value for key if present and not yet expired
// (P2: TTL measured from creation). A hit or miss is recorded regardless of
// outcome.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	e, ok := c.data[key]
	c.mu.RUnlock()

	if !ok || time.Since(e.fetchedAt) >= c.ttl {
		c.misses.Add(1)
		var zero T
		return zero, false
	}
	c.hits.Add(1)
	return e.value, true
}

// GetForRevalidation returns the cached value and ETag for key regardless of
// TTL expiry, so callers can send a conditional "If-None-Match" request.
// It does not affect hit/miss statistics.
func (c *Cache[T]) GetForRevalidation(key string) (value T, etag string, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, found := c.data[key]
	if !found {
		var zero T
		return zero, "", false
	}
	return e.value, e.etag, true
}

// Set stores value under key with the given ETag, UNLESS private is true
// (P1: private spaces are never cached). The privacy check happens here, at
// the single choke point every write must pass through.
func (c *Cache[T]) Set(key string, value T, etag string, private bool) {
	if private {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = entry[T]{value: value, etag: etag, fetchedAt: time.Now()}
}

// TouchRevalidated refreshes fetchedAt for key (leaving the value and ETag
// untouched) and increments the ETag-revalidation counter. Used on a 304
// response (P3).
func (c *Cache[T]) TouchRevalidated(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.data[key]
	if !ok {
		return
	}
	e.fetchedAt = time.Now()
	c.data[key] = e
	c.etagRevalidations.Add(1)
}

// Clear empties the cache and resets all statistics.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]entry[T])
	c.hits.Store(0)
	c.misses.Store(0)
	c.etagRevalidations.Store(0)
}

// Stats returns a snapshot of the cache's counters.
func (c *Cache[T]) Stats() Stats {
	c.mu.RLock()
	size := len(c.data)
	c.mu.RUnlock()
	return Stats{
		Hits:              c.hits.Load(),
		Misses:            c.misses.Load(),
		Size:              size,
		EtagRevalidations: c.etagRevalidations.Load(),
	}
}
