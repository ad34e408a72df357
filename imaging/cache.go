package imaging

import (
	"sort"
	"sync"
)

// Logo is the result of preparing an image for a paper class
type Logo struct {
	Source     string
	Ready      bool
	Raster     []byte
	PixelWidth int
	Height     int
	// DisplayWidth is the recommended on-paper width for the class
	DisplayWidth int
}

type cacheKey struct {
	source string
	width  PaperWidth
}

// LogoCache stores prepared logos by (source, paper width). Entries never
// expire; only Clear removes them. Concurrent writers race last-write-wins.
type LogoCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]Logo
}

// NewLogoCache returns an empty cache
func NewLogoCache() *LogoCache {
	return &LogoCache{entries: make(map[cacheKey]Logo)}
}

// Get returns a cached logo. An entry without raster data is evicted and
// reported as a miss so the caller converts again.
func (c *LogoCache) Get(source string, width PaperWidth) (Logo, bool) {
	key := cacheKey{source, width}

	c.mu.RLock()
	logo, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return Logo{}, false
	}
	if logo.Raster == nil {
		c.mu.Lock()
		if cur, still := c.entries[key]; still && cur.Raster == nil {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return Logo{}, false
	}
	return logo, true
}

// Put stores logo for (source, width)
func (c *LogoCache) Put(source string, width PaperWidth, logo Logo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{source, width}] = logo
}

// Clear removes every entry for source, or everything when source is empty.
// It returns the number of entries removed.
func (c *LogoCache) Clear(source string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if source == "" {
		n := len(c.entries)
		c.entries = make(map[cacheKey]Logo)
		return n
	}
	n := 0
	for key := range c.entries {
		if key.source == source {
			delete(c.entries, key)
			n++
		}
	}
	return n
}

// CacheStats describes cache contents
type CacheStats struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
}

// Stats lists the cached keys as "source@width"
func (c *LogoCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key.source+"@"+key.width.String())
	}
	sort.Strings(keys)
	return CacheStats{Size: len(keys), Keys: keys}
}
