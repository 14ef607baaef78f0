// Package cache provides the process-scoped session cache mapping
// session tokens to denormalized user records.
package cache

import (
	"sync"
	"sync/atomic"

	"github.com/whirlwindnoa/ams/internal/model"
)

// SessionCache is a thread-safe token-to-user mapping constructed once
// at startup and shared by the session manager and middleware. Entries
// have no TTL of their own: they are removed only by explicit
// invalidation (logout, eviction, user deletion) or corrected on the
// next resolve that finds the backing session gone. Concurrent writers
// may race on the same token; last-write-wins is fine because every
// writer derives its value from the authoritative store.
type SessionCache struct {
	mu      sync.RWMutex
	entries map[string]model.CachedUser

	// Statistics
	hits   atomic.Int64
	misses atomic.Int64
}

// NewSessionCache creates an empty session cache.
func NewSessionCache() *SessionCache {
	return &SessionCache{
		entries: make(map[string]model.CachedUser),
	}
}

// Get returns the cached user for a token, if present.
func (c *SessionCache) Get(token string) (model.CachedUser, bool) {
	c.mu.RLock()
	entry, ok := c.entries[token]
	c.mu.RUnlock()

	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return entry, ok
}

// Set stores the user projection under its token.
func (c *SessionCache) Set(user model.CachedUser) {
	c.mu.Lock()
	c.entries[user.Token] = user
	c.mu.Unlock()
}

// Delete removes a token's entry. Deleting an absent token is a no-op.
func (c *SessionCache) Delete(token string) {
	c.mu.Lock()
	delete(c.entries, token)
	c.mu.Unlock()
}

// Merge overwrites the identity fields of an existing entry with a
// fresh user projection, keeping the entry's token. Entries for tokens
// not currently cached are left alone; they will pick up the fresh
// fields from the store on their next resolve.
func (c *SessionCache) Merge(token string, fresh model.User) {
	c.mu.Lock()
	if entry, ok := c.entries[token]; ok {
		entry.ID = fresh.ID
		entry.Email = fresh.Email
		entry.Elevation = fresh.Elevation
		c.entries[token] = entry
	}
	c.mu.Unlock()
}

// Len returns the number of cached entries.
func (c *SessionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear removes all entries.
func (c *SessionCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]model.CachedUser)
	c.mu.Unlock()
}

// Stats holds cache hit/miss counters.
type Stats struct {
	Hits   int64
	Misses int64
	Items  int
}

// Stats returns current cache statistics.
func (c *SessionCache) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Items:  c.Len(),
	}
}
