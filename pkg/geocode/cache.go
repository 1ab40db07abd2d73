package geocode

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// cacheKey returns SHA-256 hex of the normalized query.
func cacheKey(place string) string {
	normalized := strings.ToLower(strings.TrimSpace(place))
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)
}

type cacheEntry struct {
	candidates []Candidate
	cachedAt   time.Time
}

// searchCache is an in-process result cache. Nominatim's usage policy asks
// clients to cache; repeated valuations of the same place are common.
type searchCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

func newSearchCache() *searchCache {
	return &searchCache{entries: make(map[string]cacheEntry)}
}

func (c *searchCache) get(key string, ttl time.Duration) ([]Candidate, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Since(entry.cachedAt) > ttl {
		return nil, false
	}

	keyPrefix := key
	if len(keyPrefix) > 12 {
		keyPrefix = keyPrefix[:12]
	}
	zap.L().Debug("geocode cache hit", zap.String("key", keyPrefix), zap.Int("candidates", len(entry.candidates)))
	return entry.candidates, true
}

func (c *searchCache) put(key string, candidates []Candidate) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{candidates: candidates, cachedAt: time.Now()}
	c.mu.Unlock()
}
