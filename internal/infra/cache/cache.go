// Package cache provides in-memory caching for probed video metadata.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/driftbyte/fetchtube/internal/domain"
)

// ProbeCache caches metadata probes so repeated requests for the same
// URL (common when a user retries after picking the wrong resolution)
// skip the yt-dlp call.
type ProbeCache struct {
	cache *gocache.Cache
}

// New creates a ProbeCache with the given TTL and cleanup interval.
func New(ttl, cleanupInterval time.Duration) *ProbeCache {
	return &ProbeCache{
		cache: gocache.New(ttl, cleanupInterval),
	}
}

// Default creates a ProbeCache with a 1 hour TTL and 10 minute cleanup.
func Default() *ProbeCache {
	return New(time.Hour, 10*time.Minute)
}

// Get retrieves probed metadata for a URL.
func (c *ProbeCache) Get(url string) (*domain.VideoInfo, bool) {
	if item, found := c.cache.Get(url); found {
		if info, ok := item.(*domain.VideoInfo); ok {
			return info, true
		}
	}
	return nil, false
}

// Set stores probed metadata for a URL.
func (c *ProbeCache) Set(url string, info *domain.VideoInfo) {
	c.cache.Set(url, info, gocache.DefaultExpiration)
}

// Delete removes a URL's metadata from the cache.
func (c *ProbeCache) Delete(url string) {
	c.cache.Delete(url)
}

// Flush removes all cached metadata.
func (c *ProbeCache) Flush() {
	c.cache.Flush()
}

// ItemCount returns the number of cached entries.
func (c *ProbeCache) ItemCount() int {
	return c.cache.ItemCount()
}
