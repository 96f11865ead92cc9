// Package cache provides an expiring in-memory cache and a cache-aside
// decorator over ports.Store.
package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/artpar/accrue/ports"
)

// DefaultTTL is used when Set is called with a non-positive ttl.
const DefaultTTL = 5 * time.Minute

// Memory is an expiring key/value map with prefix invalidation.
// Suitable for single-instance deployments; stale reads up to the TTL are
// possible when another process writes the same database.
type Memory struct {
	mu         sync.RWMutex
	data       map[string]entry
	clock      ports.Clock
	defaultTTL time.Duration
}

type entry struct {
	value     any
	expiresAt time.Time
}

// NewMemory creates an empty cache. A non-positive ttl selects DefaultTTL.
func NewMemory(clock ports.Clock, ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		data:       make(map[string]entry),
		clock:      clock,
		defaultTTL: ttl,
	}
}

// Get returns a live value. Expired entries are dropped on read.
func (c *Memory) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.data[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if c.clock.Now().After(e.expiresAt) {
		c.mu.Lock()
		if cur, ok := c.data[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(c.data, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set stores value under key for ttl (DefaultTTL if ttl <= 0).
func (c *Memory) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.data[key] = entry{value: value, expiresAt: c.clock.Now().Add(ttl)}
}

// Invalidate removes a single key.
func (c *Memory) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// InvalidatePrefix removes every key starting with prefix.
func (c *Memory) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
		}
	}
}

// SetDefaultTTL changes the TTL used by later Set calls.
func (c *Memory) SetDefaultTTL(ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultTTL = ttl
}

// Purge drops expired entries and returns how many were removed.
func (c *Memory) Purge() int {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.data {
		if now.After(e.expiresAt) {
			delete(c.data, k)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, including expired ones not yet purged.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

var _ ports.Cache = (*Memory)(nil)
