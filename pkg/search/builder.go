package search

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/rebuildup/my-web-2025-sub006/pkg/content"
	"github.com/rebuildup/my-web-2025-sub006/pkg/infrastructure/logging"
)

// Static score blend. Weights sum to 1 so the score stays in [0,1].
const (
	typeWeightShare = 0.5
	priorityShare   = 0.3
	recencyShare    = 0.2

	// Priority at which the priority component reaches one half
	priorityHalf = 10.0
	// Age in days over which recency decays by a factor of e
	recencyDecayDays = 365.0
)

var typeWeights = map[content.Type]float64{
	content.TypeBlog:      1.0,
	content.TypePortfolio: 0.9,
	content.TypeTool:      0.8,
	content.TypePlugin:    0.8,
	content.TypeProfile:   0.6,
	content.TypePage:      0.5,
	content.TypeDownload:  0.5,
	content.TypeAsset:     0.3,
}

// TypeWeight returns the relevance weight of a content type
func TypeWeight(t content.Type) float64 {
	if w, ok := typeWeights[t]; ok {
		return w
	}
	return 0.5
}

// StaticScore computes the query-independent bias of a record. It is
// monotonic in priority and in recency.
func StaticScore(r content.Record, now time.Time) float64 {
	p := r.Priority
	if p < 0 || math.IsNaN(p) {
		p = 0
	}
	priority := p / (p + priorityHalf)

	recency := 0.0
	if modified, ok := r.LastModified(); ok {
		ageDays := now.Sub(modified).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
		recency = math.Exp(-ageDays / recencyDecayDays)
	}

	score := typeWeightShare*TypeWeight(r.Type) + priorityShare*priority + recencyShare*recency
	return clamp01(score)
}

// Builder turns content records into index entries
type Builder struct {
	// Index every status, not just published records
	IncludeAll bool
	// Clock used for recency; defaults to time.Now
	Now func() time.Time

	logger *logging.Logger
}

// NewBuilder creates an index builder
func NewBuilder(logger *logging.Logger) *Builder {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Builder{
		Now:    time.Now,
		logger: logger.WithComponent("search.builder"),
	}
}

// Build converts records into index entries, preserving input order.
// Unpublished records are dropped unless IncludeAll is set; records flagged
// noIndex are always dropped.
func (b *Builder) Build(records []content.Record) []IndexEntry {
	now := time.Now()
	if b.Now != nil {
		now = b.Now()
	}

	entries := make([]IndexEntry, 0, len(records))
	for _, r := range records {
		if r.NoIndex() {
			continue
		}
		if !b.IncludeAll && !r.IsPublished() {
			continue
		}
		entries = append(entries, buildEntry(r, now))
	}
	return entries
}

func buildEntry(r content.Record, now time.Time) IndexEntry {
	body := StripHTML(r.Content)

	tags := make([]string, len(r.Tags))
	copy(tags, r.Tags)

	parts := []string{r.Title, r.Description, body, strings.Join(tags, " "), r.Category}

	updated := r.UpdatedAt
	if updated == "" {
		updated = r.CreatedAt
	}

	return IndexEntry{
		ID:                r.ID,
		Type:              r.Type,
		Title:             r.Title,
		Description:       r.Description,
		Content:           body,
		Tags:              tags,
		Category:          r.Category,
		SearchableContent: Normalize(strings.Join(parts, " ")),
		SearchScore:       StaticScore(r, now),
		UpdatedAt:         updated,
	}
}

// BuildFromSource loads records through src and builds them. When types is
// empty every type is loaded. On source failure the index is empty and the
// error is logged and returned.
func (b *Builder) BuildFromSource(ctx context.Context, src content.Source, types ...content.Type) ([]IndexEntry, error) {
	var records []content.Record
	var err error

	if len(types) == 0 {
		records, err = src.LoadAll(ctx)
	} else {
		for _, t := range types {
			var batch []content.Record
			batch, err = src.Load(ctx, t)
			if err != nil {
				break
			}
			records = append(records, batch...)
		}
	}

	if err != nil {
		b.logger.WithError(err).Error("content source unavailable, using empty index")
		return []IndexEntry{}, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	entries := b.Build(records)
	b.logger.WithFields(map[string]interface{}{
		"records": len(records),
		"entries": len(entries),
	}).Debug("built index entries")
	return entries, nil
}

// tagPattern matches something shaped like an opening, closing or
// self-closing tag; the name still has to be a known HTML element.
var tagPattern = regexp.MustCompile(`<(/?)([A-Za-z][A-Za-z0-9]*)(\s[^<>]*)?/?>|<!--`)

// StripHTML reduces markup to its text content. Script and style bodies are
// dropped. Bodies without any real tag are plain text: a bare "<" as in
// "a<b" or "vector<int>" is kept, and only entities are decoded.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	if !looksLikeMarkup(s) {
		return html.UnescapeString(s)
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skip := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")

		case html.StartTagToken:
			name, _ := z.TagName()
			if isRawTextTag(name) {
				skip++
			} else if !isInlineTag(name) && b.Len() > 0 {
				b.WriteByte(' ')
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			if isRawTextTag(name) && skip > 0 {
				skip--
				b.WriteByte(' ')
			} else if !isInlineTag(name) {
				b.WriteByte(' ')
			}

		case html.SelfClosingTagToken:
			b.WriteByte(' ')

		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func looksLikeMarkup(s string) bool {
	for _, m := range tagPattern.FindAllStringSubmatch(s, -1) {
		if m[0] == "<!--" {
			return true
		}
		name := strings.ToLower(m[2])
		if atom.Lookup([]byte(name)) != 0 && !attributeOnly[name] {
			return true
		}
	}
	return false
}

// Atoms that name attributes rather than elements
var attributeOnly = map[string]bool{
	"alt": true, "class": true, "height": true, "href": true, "id": true, "max": true,
	"min": true, "name": true, "size": true, "src": true, "type": true, "value": true, "width": true,
}

func isRawTextTag(name []byte) bool {
	switch string(name) {
	case "script", "style":
		return true
	}
	return false
}

func isInlineTag(name []byte) bool {
	switch string(name) {
	case "a", "abbr", "b", "code", "em", "i", "kbd", "mark", "s", "small", "span", "strong", "sub", "sup", "u":
		return true
	}
	return false
}
