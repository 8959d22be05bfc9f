package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebuildup/my-web-2025-sub006/pkg/content"
	"github.com/rebuildup/my-web-2025-sub006/pkg/infrastructure/logging"
)

func TestBuildIsIdempotent(t *testing.T) {
	b := testBuilder()
	records := siteRecords()

	first := b.Build(records)
	second := b.Build(records)
	assert.Equal(t, first, second)
}

func TestBuildFiltersUnpublishedAndNoIndex(t *testing.T) {
	b := testBuilder()
	entries := b.Build(siteRecords())

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	assert.Equal(t, []string{"blog1", "react-hooks", "portfolio-site", "color-picker"}, ids)

	b.IncludeAll = true
	entries = b.Build(siteRecords())
	ids = ids[:0]
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	assert.Contains(t, ids, "draft-post")
	assert.NotContains(t, ids, "hidden-page", "noIndex is honoured even when including drafts")
}

func TestBuildEntryFields(t *testing.T) {
	entries := testBuilder().Build(siteRecords()[1:2])
	require.Len(t, entries, 1)
	e := entries[0]

	assert.Equal(t, "Hooks let function components hold state.", e.Content)
	assert.NotContains(t, e.SearchableContent, "track")
	assert.Contains(t, e.SearchableContent, "understanding react hooks")
	assert.Contains(t, e.SearchableContent, "tutorial")
	assert.Equal(t, "2025-05-01T00:00:00Z", e.UpdatedAt)
	assert.Greater(t, e.SearchScore, 0.0)
	assert.LessOrEqual(t, e.SearchScore, 1.0)
}

func TestStaticScoreMonotonic(t *testing.T) {
	base := content.Record{Type: content.TypeBlog, Priority: 1, UpdatedAt: "2025-01-01"}

	higher := base
	higher.Priority = 50
	assert.Greater(t, StaticScore(higher, fixedNow), StaticScore(base, fixedNow))

	newer := base
	newer.UpdatedAt = "2025-05-30"
	assert.Greater(t, StaticScore(newer, fixedNow), StaticScore(base, fixedNow))

	undated := content.Record{Type: content.TypeBlog, Priority: 1}
	assert.Less(t, StaticScore(undated, fixedNow), StaticScore(base, fixedNow))

	assert.Greater(t, TypeWeight(content.TypeBlog), TypeWeight(content.TypeAsset))
	assert.Equal(t, 0.5, TypeWeight(content.Type("unknown")))
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"<p>one</p><p>two</p>", "one two"},
		{"a <strong>bold</strong> word", "a bold word"},
		{"x<script>alert(1)</script>y", "x y"},
		{"<style>p{}</style><h1>Title</h1>", "Title"},
		{"fish &amp; chips", "fish & chips"},
		{"line<br/>break", "line break"},
		{"<!-- note -->kept", "kept"},
		{"Compare values when a<b holds, then refactor the generics loop", "Compare values when a<b holds, then refactor the generics loop"},
		{"std::vector<int> keeps ints", "std::vector<int> keeps ints"},
		{"Map<String, List<T>> nests", "Map<String, List<T>> nests"},
		{"x &lt; y", "x < y"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripHTML(tt.in), "StripHTML(%q)", tt.in)
	}
}

func TestBuildKeepsPlainTextBodyWithAngleBrackets(t *testing.T) {
	entries := testBuilder().Build([]content.Record{{
		ID: "notes", Type: content.TypeBlog, Title: "Notes", Category: "misc",
		Content: "Compare values when a<b holds, then refactor the generics loop",
		Status:  content.StatusPublished,
	}})
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].SearchableContent, "generics loop")

	engine := NewEngine(EngineConfig{
		Index:  fixedIndex{idx: newIndex(entries, nil)},
		Logger: logging.NewNopLogger(),
	})
	got := engine.Search(context.Background(), "generics", SearchOptions{IncludeContent: true})
	assert.Equal(t, []string{"notes"}, resultIDs(got))
}

func TestBuildFromSourceFailure(t *testing.T) {
	src := &content.StaticSource{Err: errors.New("disk on fire")}
	entries, err := testBuilder().BuildFromSource(context.Background(), src)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
	assert.Empty(t, entries)
	assert.NotNil(t, entries)
}

func TestBuildFromSourceByType(t *testing.T) {
	src := &content.StaticSource{Records: siteRecords()}
	entries, err := testBuilder().BuildFromSource(context.Background(), src, content.TypePortfolio, content.TypeTool)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "portfolio-site", entries[0].ID)
	assert.Equal(t, "color-picker", entries[1].ID)
}
