// Package profile holds the resolved-profile model and the in-memory
// resolution cache keyed by auth identity id.
package profile

import (
	"sync"

	"opsdesk/backend/internal/profile/domain"
)

// Cache memoizes resolved profiles by auth identity id. No eviction beyond
// Clear, which runs on sign-out; entries accumulate per distinct signed-in
// identity within one process lifetime.
type Cache struct {
	mu sync.RWMutex
	m  map[string]*domain.Profile
}

// NewCache returns an empty profile cache.
func NewCache() *Cache {
	return &Cache{m: make(map[string]*domain.Profile)}
}

// Get returns the cached profile for authID, or (nil, false) when absent.
func (c *Cache) Get(authID string) (*domain.Profile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.m[authID]
	return p, ok
}

// Put stores the profile for authID, replacing any previous entry.
func (c *Cache) Put(authID string, p *domain.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[authID] = p
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m = make(map[string]*domain.Profile)
}
