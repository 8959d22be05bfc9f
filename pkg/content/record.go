// Package content models the site's content records and the sources they are read from.
//
// Records are owned by the site's editors; this package only reads them. A
// Source returns the records for one content type or for all of them, and a
// Watcher reports which type changed on disk so the search index can be
// updated incrementally.
package content

import (
	"fmt"
	"time"
)

// Type is a content kind
type Type string

const (
	TypePortfolio Type = "portfolio"
	TypeBlog      Type = "blog"
	TypePlugin    Type = "plugin"
	TypeTool      Type = "tool"
	TypeProfile   Type = "profile"
	TypePage      Type = "page"
	TypeDownload  Type = "download"
	TypeAsset     Type = "asset"
)

// Types lists every known content type in a stable order
var Types = []Type{
	TypePortfolio,
	TypeBlog,
	TypePlugin,
	TypeTool,
	TypeProfile,
	TypePage,
	TypeDownload,
	TypeAsset,
}

// ParseType validates a type name
func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown content type '%s'", s)
}

// Status is a record's publication state
type Status string

const (
	StatusPublished Status = "published"
	StatusDraft     Status = "draft"
	StatusArchived  Status = "archived"
	StatusScheduled Status = "scheduled"
)

// SEO holds the per-record search engine flags that matter for indexing
type SEO struct {
	NoIndex bool `json:"noIndex,omitempty"`
}

// Record is a single indexable unit of site content
type Record struct {
	ID          string   `json:"id"`
	Type        Type     `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Content     string   `json:"content,omitempty"`
	Tags        []string `json:"tags"`
	Category    string   `json:"category"`
	Status      Status   `json:"status"`
	Priority    float64  `json:"priority"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt,omitempty"`
	SEO         *SEO     `json:"seo,omitempty"`
}

// IsPublished reports whether the record is live on the site
func (r Record) IsPublished() bool {
	return r.Status == StatusPublished
}

// NoIndex reports whether the record opted out of search
func (r Record) NoIndex() bool {
	return r.SEO != nil && r.SEO.NoIndex
}

// LastModified returns updatedAt, falling back to createdAt.
// ok is false when neither timestamp parses.
func (r Record) LastModified() (t time.Time, ok bool) {
	for _, s := range []string{r.UpdatedAt, r.CreatedAt} {
		if parsed, err := ParseTimestamp(s); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses the ISO-8601 variants the site writes
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp '%s'", s)
}
