package search

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rebuildup/my-web-2025-sub006/pkg/content"
)

// IndexEntry is the search-optimized projection of a content record.
// Entries are created by the Builder and never mutated afterwards.
type IndexEntry struct {
	ID          string       `json:"id"`
	Type        content.Type `json:"type"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	// Plain-text body with markup removed
	Content  string   `json:"content,omitempty"`
	Tags     []string `json:"tags"`
	Category string   `json:"category"`

	SearchableContent string  `json:"searchableContent"`
	SearchScore       float64 `json:"searchScore"`
	UpdatedAt         string  `json:"updatedAt,omitempty"`
}

// SearchOptions configures a single query. Zero values mean "use the default".
type SearchOptions struct {
	Type           content.Type `json:"type,omitempty"`
	Category       string       `json:"category,omitempty"`
	Tags           []string     `json:"tags,omitempty"`
	Limit          int          `json:"limit"`
	Offset         int          `json:"offset"`
	IncludeContent bool         `json:"includeContent"`
	// Fuzziness in (0,1]; 0 selects the configured default. Exact-only
	// matching is the SubstringMatcher, not a zero threshold.
	Threshold float64 `json:"threshold"`
	MinScore  float64 `json:"minScore"`
	// Return all filtered entries when the query is empty
	ListAll bool `json:"listAll"`
}

// Resolve fills defaults and canonicalizes the options so equivalent option
// sets compare and serialize identically.
func (o SearchOptions) Resolve(cfg SearchConfig) SearchOptions {
	r := o

	if r.Limit <= 0 {
		r.Limit = cfg.DefaultLimit
	}
	if cfg.MaxLimit > 0 && r.Limit > cfg.MaxLimit {
		r.Limit = cfg.MaxLimit
	}
	if r.Offset < 0 {
		r.Offset = 0
	}
	// Zero is indistinguishable from unset
	if r.Threshold <= 0 || math.IsNaN(r.Threshold) {
		r.Threshold = cfg.Threshold
	}
	r.Threshold = clamp01(r.Threshold)
	if math.IsNaN(r.MinScore) {
		r.MinScore = 0
	}
	r.MinScore = clamp01(r.MinScore)
	r.Category = strings.TrimSpace(r.Category)

	if len(o.Tags) > 0 {
		seen := make(map[string]bool, len(o.Tags))
		tags := make([]string, 0, len(o.Tags))
		for _, tag := range o.Tags {
			t := strings.ToLower(strings.TrimSpace(tag))
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			tags = append(tags, t)
		}
		sort.Strings(tags)
		r.Tags = tags
	}
	if len(r.Tags) == 0 {
		r.Tags = nil
	}

	return r
}

// Validate reports option values that can only come from a caller bug
func (o SearchOptions) Validate() error {
	if o.Limit < 0 {
		return newError(ErrInvalidOption, "limit cannot be negative")
	}
	if o.Offset < 0 {
		return newError(ErrInvalidOption, "offset cannot be negative")
	}
	if math.IsNaN(o.Threshold) || o.Threshold < 0 || o.Threshold > 1 {
		return newError(ErrInvalidOption, "threshold must be within [0,1]")
	}
	if math.IsNaN(o.MinScore) || o.MinScore < 0 || o.MinScore > 1 {
		return newError(ErrInvalidOption, "minScore must be within [0,1]")
	}
	if o.Type != "" {
		if _, err := content.ParseType(string(o.Type)); err != nil {
			return newError(ErrInvalidOption, err.Error())
		}
	}
	return nil
}

// SearchResult is a single ranked hit
type SearchResult struct {
	ID          string       `json:"id"`
	Type        content.Type `json:"type"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	URL         string       `json:"url"`
	Score       float64      `json:"score"`
	Highlights  []string     `json:"highlights"`
}

// SearchResponse is the rich response variant with paging metadata
type SearchResponse struct {
	Query            string         `json:"query"`
	Results          []SearchResult `json:"results"`
	Total            int            `json:"total"`
	HasMore          bool           `json:"hasMore"`
	SuggestedQueries []string       `json:"suggestedQueries,omitempty"`
	Cached           bool           `json:"cached"`
	TimeTakenMS      int64          `json:"timeTakenMs"`
}

// Related is an entry related to another by shared category and tags
type Related struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// IndexEvent is published after every successful index update
type IndexEvent struct {
	// Content type that was reindexed; empty for a full rebuild
	Type  content.Type `json:"type,omitempty"`
	Count int          `json:"count"`
	At    time.Time    `json:"at"`
}

// SearchConfig configures query defaults
type SearchConfig struct {
	DefaultLimit    int     `json:"default_limit"`
	MaxLimit        int     `json:"max_limit"`
	Threshold       float64 `json:"threshold"`
	HighlightLength int     `json:"highlight_length"`
	MaxHighlights   int     `json:"max_highlights"`
	MaxSuggested    int     `json:"max_suggested"`
}

// DefaultSearchConfig returns default search configuration
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		DefaultLimit:    10,
		MaxLimit:        100,
		Threshold:       0.3,
		HighlightLength: 150,
		MaxHighlights:   3,
		MaxSuggested:    5,
	}
}

func (c SearchConfig) withDefaults() SearchConfig {
	d := DefaultSearchConfig()
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = d.DefaultLimit
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = d.MaxLimit
	}
	if c.Threshold <= 0 {
		c.Threshold = d.Threshold
	}
	if c.HighlightLength <= 0 {
		c.HighlightLength = d.HighlightLength
	}
	if c.MaxHighlights <= 0 {
		c.MaxHighlights = d.MaxHighlights
	}
	if c.MaxSuggested <= 0 {
		c.MaxSuggested = d.MaxSuggested
	}
	return c
}

// SearchError represents a search-related error
type SearchError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e SearchError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// Is matches errors by code so detailed copies still satisfy errors.Is
func (e SearchError) Is(target error) bool {
	t, ok := target.(SearchError)
	return ok && t.Code == e.Code
}

// Common search errors
var (
	ErrSourceUnavailable = SearchError{Code: "source_unavailable", Message: "Content source unavailable"}
	ErrSnapshotCorrupt   = SearchError{Code: "snapshot_corrupt", Message: "Snapshot is missing or unreadable"}
	ErrPersistence       = SearchError{Code: "persistence_failure", Message: "Failed to persist snapshot"}
	ErrIndexNotLoaded    = SearchError{Code: "index_not_loaded", Message: "Search index not loaded"}
	ErrInvalidOption     = SearchError{Code: "invalid_option", Message: "Invalid search option"}
	ErrNotFound          = SearchError{Code: "not_found", Message: "Entry not found"}
)

func newError(base SearchError, details string) SearchError {
	base.Details = details
	return base
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
