package memorygateway

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// SearchCache is a TTL-bounded, capacity-bounded in-memory cache of
// query -> result, keyed by the normalized query plus its sorted
// parameters. Ported from the retrieved search_cache.py: same TTL/
// capacity defaults, same sha256-prefix key, same oldest-quartile
// eviction.
type SearchCache struct {
	mu            sync.Mutex
	ttl           time.Duration
	maxEntries    int
	entries       map[string]cacheEntry
	hits, misses  int
	invalidations int
	now           func() time.Time
}

type cacheEntry struct {
	value    any
	storedAt time.Time
}

// DefaultCacheTTL and DefaultCacheCapacity: 120s TTL, 200 entries.
const (
	DefaultCacheTTL      = 120 * time.Second
	DefaultCacheCapacity = 200
)

func NewSearchCache() *SearchCache {
	return &SearchCache{
		ttl:        DefaultCacheTTL,
		maxEntries: DefaultCacheCapacity,
		entries:    map[string]cacheEntry{},
		now:        time.Now,
	}
}

// MakeKey builds a stable cache key from a query string and its sorted
// parameters, matching make_key's "query|k=v|k=v" -> sha256[:16] scheme.
func (c *SearchCache) MakeKey(query string, params map[string]any) string {
	parts := []string{strings.ToLower(strings.TrimSpace(query))}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, params[k]))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])[:16]
}

// Get returns the cached value for key, or (nil, false) on a miss or
// expiry.
func (c *SearchCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if c.now().Sub(entry.storedAt) > c.ttl {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}
	c.hits++
	return entry.value, true
}

// Put stores value under key, evicting the oldest quartile of entries
// first if the cache is already at capacity.
func (c *SearchCache) Put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}
	c.entries[key] = cacheEntry{value: value, storedAt: c.now()}
}

// Invalidate clears the entire cache; called after any write (upsert,
// delete, auto_remember, flush_queue).
func (c *SearchCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]cacheEntry{}
	c.invalidations++
}

func (c *SearchCache) evictOldest() {
	if len(c.entries) == 0 {
		return
	}
	type kv struct {
		key      string
		storedAt time.Time
	}
	all := make([]kv, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, kv{k, e.storedAt})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].storedAt.Before(all[j].storedAt) })
	evictCount := len(all) / 4
	if evictCount < 1 {
		evictCount = 1
	}
	for _, e := range all[:evictCount] {
		delete(c.entries, e.key)
	}
}

// Stats reports cache hit/miss counters, mirroring the original's stats().
type Stats struct {
	Hits          int
	Misses        int
	HitRate       float64
	Cached        int
	MaxEntries    int
	TTLSeconds    float64
	Invalidations int
}

func (c *SearchCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return Stats{
		Hits:          c.hits,
		Misses:        c.misses,
		HitRate:       rate,
		Cached:        len(c.entries),
		MaxEntries:    c.maxEntries,
		TTLSeconds:    c.ttl.Seconds(),
		Invalidations: c.invalidations,
	}
}
