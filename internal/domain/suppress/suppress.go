// Package suppress keeps recently accepted payloads so repeat scans are rejected
// locally before any lookup. It is advisory: the store remains the uniqueness authority.
package suppress

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTTL is how long an accepted payload stays suppressed.
const DefaultTTL = 30 * time.Second

// Cache records accepted payloads for a bounded time.
type Cache interface {
	// IsSuppressed reports whether payload was accepted less than TTL ago.
	IsSuppressed(ctx context.Context, payload string) bool
	// MarkAccepted inserts or refreshes payload.
	MarkAccepted(ctx context.Context, payload string)
	// Clear removes payload and reports whether a live entry existed.
	Clear(ctx context.Context, payload string) bool
	// Sweep evicts expired entries and returns how many were removed.
	Sweep(ctx context.Context) int

	Size() int64
}

type entry struct {
	acceptedAt time.Time
}

// memoryCache is the in-process Cache. Expired entries are removed lazily on
// lookup or eagerly by Sweep, whichever comes first.
type memoryCache struct {
	settings

	mu      sync.Mutex
	entries map[string]entry
	size    atomic.Int64
}

// NewMemory creates an in-memory suppression cache.
func NewMemory(opts ...Option) Cache {
	return &memoryCache{
		settings: newSettings(opts),
		entries:  make(map[string]entry),
	}
}

func (c *memoryCache) live(e entry, now time.Time) bool {
	return now.Sub(e.acceptedAt) < c.ttl
}

func (c *memoryCache) IsSuppressed(_ context.Context, payload string) bool {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[payload]
	if !ok {
		return false
	}
	if c.live(e, now) {
		return true
	}
	c.remove(payload)
	return false
}

func (c *memoryCache) MarkAccepted(_ context.Context, payload string) {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[payload]; !ok {
		if c.maxSize > 0 && len(c.entries) >= c.maxSize {
			c.sweep(now)
		}
		if c.maxSize > 0 && len(c.entries) >= c.maxSize {
			c.evictOldest()
		}
		c.size.Add(1)
	}
	c.entries[payload] = entry{acceptedAt: now}
}

func (c *memoryCache) Clear(_ context.Context, payload string) bool {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[payload]
	if !ok {
		return false
	}
	c.remove(payload)
	return c.live(e, now)
}

func (c *memoryCache) Sweep(_ context.Context) int {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweep(now)
}

// sweep must be called with c.mu held.
func (c *memoryCache) sweep(now time.Time) int {
	n := 0
	for payload, e := range c.entries {
		if !c.live(e, now) {
			c.remove(payload)
			n++
		}
	}
	return n
}

func (c *memoryCache) Size() int64 {
	return c.size.Load()
}

// remove must be called with c.mu held.
func (c *memoryCache) remove(payload string) {
	delete(c.entries, payload)
	c.size.Add(-1)
}

// evictOldest must be called with c.mu held. It runs only when every entry
// is still live, so the cache can forget a payload early; the guard and the
// store's unique key still reject the duplicate.
func (c *memoryCache) evictOldest() {
	var (
		oldest string
		at     time.Time
		found  bool
	)
	for payload, e := range c.entries {
		if !found || e.acceptedAt.Before(at) {
			oldest, at, found = payload, e.acceptedAt, true
		}
	}
	if found {
		c.remove(oldest)
	}
}
