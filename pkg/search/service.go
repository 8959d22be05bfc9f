package search

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rebuildup/my-web-2025-sub006/pkg/content"
	"github.com/rebuildup/my-web-2025-sub006/pkg/infrastructure/config"
	"github.com/rebuildup/my-web-2025-sub006/pkg/infrastructure/logging"
)

// Options configures a search service
type Options struct {
	Source content.Source
	Search SearchConfig

	// Index snapshot location; empty keeps the index in memory only
	IndexPath          string
	IncludeUnpublished bool

	CacheSize          int
	CacheTTL           time.Duration
	CachePath          string
	PopularQueriesPath string
	PreloadCount       int

	// Defaults to the fuzzy matcher
	Matcher   Matcher
	Segmenter Segmenter

	Logger *logging.Logger
	// Metrics are registered here when set
	Registerer prometheus.Registerer
	// Clock for cache expiry and recency scoring; defaults to time.Now
	Now func() time.Time
}

// OptionsFromConfig maps the file/env configuration onto service options.
// The Japanese segmenter is not created here; it is loaded by the caller
// when cfg.Search.JapaneseTokenize is set.
func OptionsFromConfig(cfg *config.Config, src content.Source) Options {
	opts := Options{
		Source: src,
		Search: SearchConfig{
			DefaultLimit:    cfg.Search.DefaultLimit,
			MaxLimit:        cfg.Search.MaxLimit,
			Threshold:       cfg.Search.Threshold,
			HighlightLength: cfg.Search.HighlightLength,
		},
		IndexPath:          cfg.Index.SnapshotPath,
		IncludeUnpublished: cfg.Index.IncludeUnpublished,
		CacheSize:          cfg.Cache.MaxEntries,
		CacheTTL:           time.Duration(cfg.Cache.TTLSeconds) * time.Second,
		CachePath:          cfg.Cache.SnapshotPath,
		PopularQueriesPath: cfg.Cache.PopularQueries,
		PreloadCount:       cfg.Cache.PreloadCount,
	}
	if !cfg.Search.Fuzzy {
		opts.Matcher = SubstringMatcher{}
	}
	return opts
}

// Service wires the index store, query engine and result cache together.
// It is the only surface the API and CLI talk to.
type Service struct {
	store   *Store
	engine  *Engine
	cache   *ResultCache
	builder *Builder
	metrics *Metrics
	logger  *logging.Logger
	opts    Options
}

// NewService creates a search service. Nothing is loaded until first use.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	opts.Search = opts.Search.withDefaults()

	var metrics *Metrics
	if opts.Registerer != nil {
		metrics = NewMetrics(opts.Registerer)
	}

	builder := NewBuilder(logger)
	builder.IncludeAll = opts.IncludeUnpublished
	builder.Now = now

	store := NewStore(StoreConfig{
		Builder:      builder,
		Source:       opts.Source,
		SnapshotPath: opts.IndexPath,
		Segmenter:    opts.Segmenter,
		Logger:       logger,
		Metrics:      metrics,
	})

	cache := NewResultCache(ResultCacheConfig{
		MaxSize:    opts.CacheSize,
		DefaultTTL: opts.CacheTTL,
		Search:     opts.Search,
		Now:        now,
		Logger:     logger,
		Metrics:    metrics,
	})

	engine := NewEngine(EngineConfig{
		Index:     store,
		Cache:     cache,
		Matcher:   opts.Matcher,
		Segmenter: opts.Segmenter,
		Search:    opts.Search,
		Logger:    logger,
		Metrics:   metrics,
	})
	engine.now = now

	return &Service{
		store:   store,
		engine:  engine,
		cache:   cache,
		builder: builder,
		metrics: metrics,
		logger:  logger.WithComponent("search.service"),
		opts:    opts,
	}
}

// Engine returns the query engine
func (s *Service) Engine() *Engine {
	return s.engine
}

// Cache returns the result cache
func (s *Service) Cache() *ResultCache {
	return s.cache
}

// BuildIndex builds entries from every content type without installing them
func (s *Service) BuildIndex(ctx context.Context) ([]IndexEntry, error) {
	if s.opts.Source == nil {
		return []IndexEntry{}, newError(ErrSourceUnavailable, "no content source configured")
	}
	return s.builder.BuildFromSource(ctx, s.opts.Source)
}

// LoadIndex returns the current index entries, loading them on first use
func (s *Service) LoadIndex(ctx context.Context) ([]IndexEntry, error) {
	return s.store.Load(ctx)
}

// SaveIndex installs entries as the current index and persists them.
// Cached results computed against the old index are dropped.
func (s *Service) SaveIndex(entries []IndexEntry) bool {
	ok := s.store.Save(entries)
	s.cache.Clear()
	return ok
}

// UpdateIndex re-reads one content type from the source and merges it into
// the index; an empty type rebuilds everything. The result cache is cleared
// on success. It reports whether the index was updated.
func (s *Service) UpdateIndex(ctx context.Context, t content.Type) bool {
	var err error
	if t == "" {
		_, err = s.store.Rebuild(ctx)
	} else {
		_, err = s.store.UpdateType(ctx, t)
	}
	if err != nil {
		s.logger.WithFields(map[string]interface{}{
			"type":  string(t),
			"error": err,
		}).Error("index update failed")
		return false
	}

	removed := s.cache.Clear()
	s.logger.WithFields(map[string]interface{}{
		"type":          string(t),
		"cache_cleared": removed,
	}).Info("index updated")
	return true
}

// OnIndexUpdate registers fn for index update events
func (s *Service) OnIndexUpdate(fn func(IndexEvent)) func() {
	return s.store.Subscribe(fn)
}

// Search returns the ranked results for query
func (s *Service) Search(ctx context.Context, query string, opts SearchOptions) []SearchResult {
	return s.engine.Search(ctx, query, opts)
}

// SearchWithMeta returns results with paging metadata and suggested queries
func (s *Service) SearchWithMeta(ctx context.Context, query string, opts SearchOptions) SearchResponse {
	return s.engine.SearchWithMeta(ctx, query, opts)
}

// List returns filtered entries by static score
func (s *Service) List(ctx context.Context, opts SearchOptions) SearchResponse {
	return s.engine.List(ctx, opts)
}

// GetSuggestions returns query completions from titles and tags
func (s *Service) GetSuggestions(ctx context.Context, query string, limit int) []string {
	idx := s.currentOrNil(ctx)
	return Suggestions(idx, query, limit)
}

// GetRelatedContent returns entries sharing category or tags with id
func (s *Service) GetRelatedContent(ctx context.Context, id string, limit int) []Related {
	idx := s.currentOrNil(ctx)
	return RelatedContent(idx, id, limit)
}

func (s *Service) currentOrNil(ctx context.Context) *Index {
	idx, err := s.store.Current(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("index load failed")
	}
	return idx
}

// CacheGet returns cached results for query and options
func (s *Service) CacheGet(query string, opts SearchOptions) ([]SearchResult, bool) {
	return s.cache.Get(query, opts)
}

// CachePut stores results for query and options; a zero ttl uses the default
func (s *Service) CachePut(query string, opts SearchOptions, results []SearchResult, ttl time.Duration) {
	s.cache.PutWithTTL(query, opts, results, ttl)
}

// CacheClear removes entries whose key contains pattern, or all of them
func (s *Service) CacheClear(pattern string) int {
	return s.cache.Invalidate(pattern)
}

// CacheStats returns result cache statistics
func (s *Service) CacheStats() CacheStats {
	return s.cache.Stats()
}

// CacheSweep drops expired cache entries
func (s *Service) CacheSweep() int {
	return s.cache.CleanExpired()
}

// CachePersist writes the live cache entries to the configured snapshot
func (s *Service) CachePersist() error {
	if s.opts.CachePath == "" {
		return nil
	}
	return s.cache.Persist(s.opts.CachePath)
}

// CacheLoadPersisted restores the cache snapshot, skipping expired entries
func (s *Service) CacheLoadPersisted() (int, error) {
	if s.opts.CachePath == "" {
		return 0, nil
	}
	return s.cache.LoadPersisted(s.opts.CachePath)
}

// Preload warms the cache with the most popular queries
func (s *Service) Preload(ctx context.Context) (int, error) {
	return Preload(ctx, s.engine, s.opts.PopularQueriesPath, s.opts.PreloadCount)
}
