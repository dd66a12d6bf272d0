package cache

import (
	"sync"
	"time"

	"midnightmedia/pkg/models"
)

// entry represents a cached media list with expiration
type entry struct {
	media      []models.Media
	expiration time.Time
}

func (e *entry) expired() bool {
	return time.Now().After(e.expiration)
}

// ListCache is a small TTL cache for media lists (the all-media view and
// per-playlist views). Writers must invalidate the keys they touch.
type ListCache struct {
	items map[string]*entry
	mutex sync.RWMutex
	ttl   time.Duration
}

// NewListCache creates a new media list cache
func NewListCache(ttl time.Duration) *ListCache {
	c := &ListCache{
		items: make(map[string]*entry),
		ttl:   ttl,
	}

	// Start cleanup goroutine
	go c.cleanupExpired()

	return c
}

// Set stores a media list in the cache
func (c *ListCache) Set(key string, media []models.Media) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[key] = &entry{
		media:      media,
		expiration: time.Now().Add(c.ttl),
	}
}

// Get retrieves a media list from the cache
func (c *ListCache) Get(key string) ([]models.Media, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	e, exists := c.items[key]
	if !exists || e.expired() {
		return nil, false
	}

	return e.media, true
}

// Invalidate removes a single key from the cache
func (c *ListCache) Invalidate(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.items, key)
}

// Clear removes all items from the cache
func (c *ListCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items = make(map[string]*entry)
}

// cleanupExpired periodically removes expired entries
func (c *ListCache) cleanupExpired() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for range ticker.C {
		c.mutex.Lock()
		for key, e := range c.items {
			if e.expired() {
				delete(c.items, key)
			}
		}
		c.mutex.Unlock()
	}
}
