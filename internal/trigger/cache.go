package trigger

import (
	"sync"
	"time"
)

// PathCache remembers when each path last qualified. Entries are never
// evicted: once a path is cached it stays cached for the life of the
// process.
type PathCache struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

// NewPathCache creates an empty cache.
func NewPathCache() *PathCache {
	return &PathCache{entries: make(map[string]time.Time)}
}

// Cached reports whether path has a recorded timestamp.
func (c *PathCache) Cached(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen, ok := c.entries[path]
	return ok && !seen.IsZero()
}

// Record stores t as the last time path qualified.
func (c *PathCache) Record(path string, t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = t
}

// LastSeen returns the recorded timestamp for path.
func (c *PathCache) LastSeen(path string) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.entries[path]
	return t, ok
}

// Len returns the number of cached paths.
func (c *PathCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
