package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rebuildup/my-web-2025-sub006/pkg/infrastructure/logging"
)

// Field weights for the per-field match score
const (
	titleWeight       = 1.0
	tagsWeight        = 0.8
	descriptionWeight = 0.7
	contentWeight     = 0.4
)

// Engine answers text queries against the current index
type Engine struct {
	index       IndexProvider
	cache       *ResultCache
	matcher     Matcher
	segmenter   Segmenter
	config      SearchConfig
	highlighter Highlighter
	logger      *logging.Logger
	metrics     *Metrics
	now         func() time.Time
}

// EngineConfig configures a query engine
type EngineConfig struct {
	Index IndexProvider
	// Optional; nil disables result caching
	Cache *ResultCache
	// Defaults to the fuzzy matcher
	Matcher   Matcher
	Segmenter Segmenter
	Search    SearchConfig
	Logger    *logging.Logger
	Metrics   *Metrics
}

// NewEngine creates a query engine
func NewEngine(cfg EngineConfig) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	matcher := cfg.Matcher
	if matcher == nil {
		matcher = DefaultFuzzyMatcher()
	}
	search := cfg.Search.withDefaults()

	return &Engine{
		index:     cfg.Index,
		cache:     cfg.Cache,
		matcher:   matcher,
		segmenter: cfg.Segmenter,
		config:    search,
		highlighter: Highlighter{
			Length: search.HighlightLength,
			Max:    search.MaxHighlights,
		},
		logger:  logger.WithComponent("search.engine"),
		metrics: cfg.Metrics,
		now:     time.Now,
	}
}

// Config returns the engine's resolved search defaults
func (e *Engine) Config() SearchConfig {
	return e.config
}

// Search returns the ranked page of results for query
func (e *Engine) Search(ctx context.Context, query string, opts SearchOptions) []SearchResult {
	return e.SearchWithMeta(ctx, query, opts).Results
}

// SearchWithMeta runs a query and returns results with paging metadata and,
// when nothing matched, suggested alternative queries. It never fails: index
// problems produce an empty response.
func (e *Engine) SearchWithMeta(ctx context.Context, query string, opts SearchOptions) SearchResponse {
	start := e.now()
	o := opts.Resolve(e.config)
	resp := SearchResponse{Query: query, Results: []SearchResult{}}

	// Read before the index so a clear racing with this search wins
	var gen uint64
	if e.cache != nil {
		gen = e.cache.Generation()
	}

	idx, err := e.index.Current(ctx)
	if err != nil {
		e.logger.WithError(err).Warn("index load failed")
	}
	if idx == nil {
		e.finish(&resp, outcomeError, start)
		return resp
	}

	// Empty query: nothing, or a listing when asked for
	if strings.TrimSpace(query) == "" {
		if o.ListAll {
			resp = e.list(idx, o)
			resp.Query = query
		}
		e.finish(&resp, outcomeEmpty, start)
		return resp
	}

	candidates := filterEntries(idx, o)

	// Cache check
	key := CacheKey(query, o)
	if e.cache != nil {
		if entry, ok := e.cache.lookup(key); ok {
			resp.Results = entry.Results
			resp.Total = entry.Total
			resp.HasMore = o.Offset+len(entry.Results) < entry.Total
			resp.Cached = true
			if len(resp.Results) == 0 {
				resp.SuggestedQueries = e.suggestQueries(idx, Tokenize(query, e.segmenter))
			}
			e.finish(&resp, outcomeHit, start)
			return resp
		}
	}

	terms := Tokenize(query, e.segmenter)
	var scored []scoredEntry
	if len(terms) > 0 {
		scored = e.scoreCandidates(idx, candidates, Normalize(query), terms, o)
	}
	sortScored(idx, scored)

	resp.Total = len(scored)
	page := paginate(scored, o.Offset, o.Limit)
	for _, s := range page {
		entry := idx.Entries[s.pos]
		resp.Results = append(resp.Results, SearchResult{
			ID:          entry.ID,
			Type:        entry.Type,
			Title:       entry.Title,
			Description: entry.Description,
			URL:         URLFor(entry.Type, entry.ID),
			Score:       s.score,
			Highlights:  e.highlighter.Highlights(entry, terms),
		})
	}
	resp.HasMore = o.Offset+len(resp.Results) < resp.Total

	// Empty results are cached too so repeated misses stay cheap
	if e.cache != nil {
		e.cache.store(gen, key, resp.Results, resp.Total, 0)
	}

	if len(resp.Results) == 0 && len(terms) > 0 {
		resp.SuggestedQueries = e.suggestQueries(idx, terms)
	}

	e.finish(&resp, outcomeMiss, start)
	return resp
}

// List returns filtered entries ordered by static score, paginated
func (e *Engine) List(ctx context.Context, opts SearchOptions) SearchResponse {
	start := e.now()
	o := opts.Resolve(e.config)

	idx, err := e.index.Current(ctx)
	if err != nil {
		e.logger.WithError(err).Warn("index load failed")
	}
	if idx == nil {
		resp := SearchResponse{Results: []SearchResult{}}
		e.finish(&resp, outcomeError, start)
		return resp
	}

	resp := e.list(idx, o)
	e.finish(&resp, outcomeEmpty, start)
	return resp
}

func (e *Engine) list(idx *Index, o SearchOptions) SearchResponse {
	candidates := filterEntries(idx, o)
	scored := make([]scoredEntry, len(candidates))
	for i, pos := range candidates {
		scored[i] = scoredEntry{pos: pos, score: idx.Entries[pos].SearchScore}
	}
	sortScored(idx, scored)

	resp := SearchResponse{Results: []SearchResult{}, Total: len(scored)}
	for _, s := range paginate(scored, o.Offset, o.Limit) {
		entry := idx.Entries[s.pos]
		resp.Results = append(resp.Results, SearchResult{
			ID:          entry.ID,
			Type:        entry.Type,
			Title:       entry.Title,
			Description: entry.Description,
			URL:         URLFor(entry.Type, entry.ID),
			Score:       clamp01(entry.SearchScore),
			Highlights:  e.highlighter.Highlights(entry, nil),
		})
	}
	resp.HasMore = o.Offset+len(resp.Results) < resp.Total
	return resp
}

func (e *Engine) finish(resp *SearchResponse, outcome string, start time.Time) {
	elapsed := e.now().Sub(start)
	resp.TimeTakenMS = elapsed.Milliseconds()
	e.metrics.recordSearch(outcome, elapsed)
}

// scoredEntry is a candidate position in the index with its match score
type scoredEntry struct {
	pos   int
	score float64
}

// filterEntries applies the structural filters and returns matching positions
func filterEntries(idx *Index, o SearchOptions) []int {
	out := make([]int, 0, len(idx.Entries))
	for i := range idx.Entries {
		entry := &idx.Entries[i]
		if o.Type != "" && entry.Type != o.Type {
			continue
		}
		if o.Category != "" && !strings.EqualFold(entry.Category, o.Category) {
			continue
		}
		if len(o.Tags) > 0 && !overlaps(idx.fields[i].tagSet, o.Tags) {
			continue
		}
		out = append(out, i)
	}
	return out
}

func overlaps(set map[string]bool, tags []string) bool {
	for _, t := range tags {
		if set[Normalize(t)] {
			return true
		}
	}
	return false
}

func (e *Engine) scoreCandidates(idx *Index, candidates []int, normalizedQuery string, terms []string, o SearchOptions) []scoredEntry {
	scored := make([]scoredEntry, 0, len(candidates))
	for _, pos := range candidates {
		score, err := e.scoreEntry(idx, pos, normalizedQuery, terms, o)
		if err != nil {
			e.logger.WithFields(map[string]interface{}{
				"id":    idx.Entries[pos].ID,
				"error": err,
			}).Warn("skipping candidate")
			continue
		}
		if score <= 0 || score < o.MinScore {
			continue
		}
		scored = append(scored, scoredEntry{pos: pos, score: score})
	}
	return scored
}

// scoreEntry computes the best per-field score for one entry. A panic in a
// matcher only drops this candidate.
func (e *Engine) scoreEntry(idx *Index, pos int, normalizedQuery string, terms []string, o SearchOptions) (score float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scoring panicked: %v", r)
		}
	}()

	entry := &idx.Entries[pos]
	f := &idx.fields[pos]

	// Whole-query containment in the title is the strongest possible match
	if normalizedQuery != "" && strings.Contains(f.title, normalizedQuery) {
		return titleWeight, nil
	}

	best := titleWeight * e.meanTermScore(f.title, terms, o.Threshold)
	best = maxFloat(best, tagsWeight*e.tagScore(f.tags, terms, o.Threshold))
	best = maxFloat(best, descriptionWeight*e.meanTermScore(f.description, terms, o.Threshold))
	if o.IncludeContent {
		best = maxFloat(best, contentWeight*e.meanTermScore(entry.SearchableContent, terms, o.Threshold))
	}
	return clamp01(best), nil
}

func (e *Engine) meanTermScore(text string, terms []string, threshold float64) float64 {
	if text == "" || len(terms) == 0 {
		return 0
	}
	total := 0.0
	for _, term := range terms {
		total += e.matcher.Match(text, term, threshold)
	}
	return total / float64(len(terms))
}

// tagScore gives full credit when every term matches some tag and partial
// credit in proportion otherwise
func (e *Engine) tagScore(tags []string, terms []string, threshold float64) float64 {
	if len(tags) == 0 || len(terms) == 0 {
		return 0
	}
	total := 0.0
	for _, term := range terms {
		best := 0.0
		for _, tag := range tags {
			if s := e.matcher.Match(tag, term, threshold); s > best {
				best = s
			}
		}
		total += best
	}
	return total / float64(len(terms))
}

// sortScored orders by score, then static score, then id
func sortScored(idx *Index, scored []scoredEntry) {
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.score != b.score {
			return a.score > b.score
		}
		ea, eb := &idx.Entries[a.pos], &idx.Entries[b.pos]
		if ea.SearchScore != eb.SearchScore {
			return ea.SearchScore > eb.SearchScore
		}
		return ea.ID < eb.ID
	})
}

func paginate(scored []scoredEntry, offset, limit int) []scoredEntry {
	if offset >= len(scored) {
		return nil
	}
	end := offset + limit
	if end > len(scored) {
		end = len(scored)
	}
	return scored[offset:end]
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
