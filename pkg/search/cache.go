package search

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rebuildup/my-web-2025-sub006/pkg/infrastructure/logging"
)

// CacheEntry is a memoized page of search results. Entries are never mutated
// after insertion; expiry is checked lazily on read.
type CacheEntry struct {
	Key     string         `json:"key"`
	Results []SearchResult `json:"results"`
	Total   int            `json:"total"`
	// Creation time, unix milliseconds
	Timestamp int64 `json:"timestamp"`
	// Lifetime in milliseconds
	TTL int64 `json:"ttl"`
}

// IsExpired checks if the cache entry has expired at now
func (e *CacheEntry) IsExpired(now time.Time) bool {
	return now.UnixMilli()-e.Timestamp > e.TTL
}

// CacheStats provides cache statistics
type CacheStats struct {
	Size    int              `json:"size"`
	MaxSize int              `json:"maxSize"`
	Hits    int64            `json:"hits"`
	Misses  int64            `json:"misses"`
	Entries []CacheEntryInfo `json:"entries"`
}

// CacheEntryInfo describes one cached key
type CacheEntryInfo struct {
	Key     string `json:"key"`
	AgeMS   int64  `json:"ageMs"`
	TTLMS   int64  `json:"ttlMs"`
	Expired bool   `json:"expired"`
}

// ResultCacheConfig configures the result cache
type ResultCacheConfig struct {
	MaxSize    int
	DefaultTTL time.Duration
	// Used to resolve options before deriving keys
	Search SearchConfig
	// Clock; defaults to time.Now
	Now     func() time.Time
	Logger  *logging.Logger
	Metrics *Metrics
}

// DefaultResultCacheConfig returns default cache configuration
func DefaultResultCacheConfig() ResultCacheConfig {
	return ResultCacheConfig{
		MaxSize:    100,
		DefaultTTL: 5 * time.Minute,
		Search:     DefaultSearchConfig(),
	}
}

// ResultCache memoizes search result pages with per-entry TTL and a bounded
// size. Past the bound, the oldest-inserted entry is evicted.
type ResultCache struct {
	mu         sync.Mutex
	entries    map[string]*CacheEntry
	order      []string // insertion order, oldest first
	maxSize    int
	defaultTTL time.Duration
	search     SearchConfig
	now        func() time.Time
	logger     *logging.Logger
	metrics    *Metrics

	// Bumped by Clear so searches started against an older index
	// cannot repopulate the cache
	generation uint64

	hits   int64
	misses int64
}

// NewResultCache creates a result cache
func NewResultCache(cfg ResultCacheConfig) *ResultCache {
	d := DefaultResultCacheConfig()
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = d.MaxSize
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = d.DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetGlobalLogger()
	}

	return &ResultCache{
		entries:    make(map[string]*CacheEntry),
		order:      make([]string, 0, cfg.MaxSize),
		maxSize:    cfg.MaxSize,
		defaultTTL: cfg.DefaultTTL,
		search:     cfg.Search.withDefaults(),
		now:        cfg.Now,
		logger:     cfg.Logger.WithComponent("search.cache"),
		metrics:    cfg.Metrics,
	}
}

// CacheKey derives the cache key for a query and resolved options
func CacheKey(query string, resolved SearchOptions) string {
	data, _ := json.Marshal(resolved)
	return strings.ToLower(strings.TrimSpace(query)) + "|" + string(data)
}

// Key derives the cache key, resolving opts with the cache's defaults first
func (c *ResultCache) Key(query string, opts SearchOptions) string {
	return CacheKey(query, opts.Resolve(c.search))
}

// Get retrieves cached results for query and options
func (c *ResultCache) Get(query string, opts SearchOptions) ([]SearchResult, bool) {
	entry, ok := c.lookup(c.Key(query, opts))
	if !ok {
		return nil, false
	}
	return entry.Results, true
}

// lookup returns a copy of the live entry for key, evicting it if expired
func (c *ResultCache) lookup(key string) (CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if exists && entry.IsExpired(c.now()) {
		c.removeLocked(key)
		exists = false
	}

	if !exists {
		atomic.AddInt64(&c.misses, 1)
		c.metrics.recordCacheLookup(false)
		return CacheEntry{}, false
	}
	atomic.AddInt64(&c.hits, 1)
	c.metrics.recordCacheLookup(true)
	out := *entry
	out.Results = cloneResults(entry.Results)
	return out, true
}

// Put stores results with the default TTL
func (c *ResultCache) Put(query string, opts SearchOptions, results []SearchResult) {
	c.PutWithTTL(query, opts, results, c.defaultTTL)
}

// PutWithTTL stores results with a custom TTL
func (c *ResultCache) PutWithTTL(query string, opts SearchOptions, results []SearchResult, ttl time.Duration) {
	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()
	c.store(gen, c.Key(query, opts), results, len(results), ttl)
}

// Generation identifies the cache contents since the last Clear
func (c *ResultCache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// store inserts a page under key; total is the unpaginated result count.
// The page is dropped when the cache was cleared after generation gen was read.
func (c *ResultCache) store(gen uint64, key string, results []SearchResult, total int, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	results = cloneResults(results)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return false
	}
	entry := &CacheEntry{
		Key:       key,
		Results:   results,
		Total:     total,
		Timestamp: c.now().UnixMilli(),
		TTL:       ttl.Milliseconds(),
	}
	c.insertLocked(entry)
	return true
}

// cloneResults deep-copies a page so cached entries never alias caller memory
func cloneResults(results []SearchResult) []SearchResult {
	out := make([]SearchResult, len(results))
	for i, r := range results {
		if r.Highlights != nil {
			r.Highlights = append([]string(nil), r.Highlights...)
		}
		out[i] = r
	}
	return out
}

func (c *ResultCache) insertLocked(entry *CacheEntry) {
	// A replaced key counts as a fresh insertion
	if _, exists := c.entries[entry.Key]; exists {
		c.removeLocked(entry.Key)
	}

	for len(c.entries) >= c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
		c.metrics.recordEviction()
	}

	c.entries[entry.Key] = entry
	c.order = append(c.order, entry.Key)
	c.metrics.setCacheSize(len(c.entries))
}

func (c *ResultCache) removeLocked(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.metrics.setCacheSize(len(c.entries))
}

// Invalidate removes every key containing pattern (case-insensitive).
// An empty pattern clears the cache. It returns the number of removed entries.
func (c *ResultCache) Invalidate(pattern string) int {
	if pattern == "" {
		return c.Clear()
	}
	pattern = strings.ToLower(pattern)

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, key := range append([]string(nil), c.order...) {
		if strings.Contains(strings.ToLower(key), pattern) {
			c.removeLocked(key)
			removed++
		}
	}
	return removed
}

// Clear removes all entries from the cache
func (c *ResultCache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	c.generation++
	c.entries = make(map[string]*CacheEntry)
	c.order = c.order[:0]
	c.metrics.setCacheSize(0)
	return n
}

// Size returns the current number of entries
func (c *ResultCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// CleanExpired removes all expired entries
func (c *ResultCache) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for _, key := range append([]string(nil), c.order...) {
		if c.entries[key].IsExpired(now) {
			c.removeLocked(key)
			removed++
		}
	}
	return removed
}

// Stats returns cache statistics; entries are listed oldest first
func (c *ResultCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	stats := CacheStats{
		Size:    len(c.entries),
		MaxSize: c.maxSize,
		Hits:    atomic.LoadInt64(&c.hits),
		Misses:  atomic.LoadInt64(&c.misses),
		Entries: make([]CacheEntryInfo, 0, len(c.order)),
	}
	for _, key := range c.order {
		e := c.entries[key]
		stats.Entries = append(stats.Entries, CacheEntryInfo{
			Key:     key,
			AgeMS:   now.UnixMilli() - e.Timestamp,
			TTLMS:   e.TTL,
			Expired: e.IsExpired(now),
		})
	}
	return stats
}

// Persist writes all live entries to path as a JSON array
func (c *ResultCache) Persist(path string) error {
	c.mu.Lock()
	now := c.now()
	live := make([]CacheEntry, 0, len(c.order))
	for _, key := range c.order {
		if e := c.entries[key]; !e.IsExpired(now) {
			live = append(live, *e)
		}
	}
	c.mu.Unlock()

	if err := writeJSONAtomic(path, live); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	c.logger.WithFields(map[string]interface{}{
		"entries": len(live),
		"path":    path,
	}).Debug("persisted result cache")
	return nil
}

// LoadPersisted restores entries from a snapshot written by Persist, skipping
// any that have already expired. A missing file loads nothing; an unreadable
// one leaves the cache cold and returns ErrSnapshotCorrupt.
func (c *ResultCache) LoadPersisted(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %w", ErrSnapshotCorrupt, err)
	}

	var entries []CacheEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		c.logger.WithError(err).Warn("cache snapshot unreadable, starting cold")
		return 0, fmt.Errorf("%w: %w", ErrSnapshotCorrupt, err)
	}

	// Oldest first so eviction order survives the round trip
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Timestamp < entries[j].Timestamp })

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	loaded := 0
	for i := range entries {
		e := entries[i]
		if e.Key == "" || e.IsExpired(now) {
			continue
		}
		if e.Results == nil {
			e.Results = []SearchResult{}
		}
		c.insertLocked(&e)
		loaded++
	}
	if loaded > c.maxSize {
		loaded = c.maxSize
	}
	return loaded, nil
}
