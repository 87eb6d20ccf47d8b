package media

import (
	"os"
	"sync"
	"time"
)

type probeEntry struct {
	result  ProbeResult
	size    int64
	modTime time.Time
}

// ProbeCache caches probe results to avoid repeated ffprobe calls.
// An entry is only served while the file's size and mtime are unchanged.
type ProbeCache struct {
	cache map[string]probeEntry
	mu    sync.RWMutex
}

// NewProbeCache creates an empty cache.
func NewProbeCache() *ProbeCache {
	return &ProbeCache{
		cache: make(map[string]probeEntry),
	}
}

// Get retrieves a cached result for path if info still matches.
func (c *ProbeCache) Get(path string, info os.FileInfo) (ProbeResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.cache[path]
	if !ok || e.size != info.Size() || !e.modTime.Equal(info.ModTime()) {
		return ProbeResult{}, false
	}
	return e.result, true
}

// Set stores a result keyed by path and the file's current size and mtime.
func (c *ProbeCache) Set(path string, info os.FileInfo, r ProbeResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[path] = probeEntry{result: r, size: info.Size(), modTime: info.ModTime()}
}

// Remove removes a specific path from the cache.
func (c *ProbeCache) Remove(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, path)
}

// Size returns the number of cached entries.
func (c *ProbeCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}
