package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebuildup/my-web-2025-sub006/pkg/content"
)

func TestSuggestions(t *testing.T) {
	idx := indexOf(siteRecords())

	assert.Empty(t, Suggestions(idx, "r", 5), "single characters get nothing")
	assert.Empty(t, Suggestions(nil, "react", 5))

	got := Suggestions(idx, "Re", 10)
	assert.Contains(t, got, "react")
	assert.NotContains(t, got, "hooks")
	for _, s := range got {
		assert.Contains(t, s, "re")
	}

	// Deduplicated: "react" appears in a title and two tag lists
	count := 0
	for _, s := range got {
		if s == "react" {
			count++
		}
	}
	assert.Equal(t, 1, count)

	assert.Len(t, Suggestions(idx, "co", 1), 1)
}

func TestRelatedContent(t *testing.T) {
	idx := indexOf([]content.Record{
		{ID: "1", Type: content.TypeBlog, Tags: []string{"react", "hooks"}, Category: "tutorial", Status: content.StatusPublished},
		{ID: "2", Type: content.TypeBlog, Tags: []string{"react", "components"}, Category: "tutorial", Status: content.StatusPublished},
		{ID: "3", Type: content.TypeBlog, Tags: []string{"vue"}, Category: "web", Status: content.StatusPublished},
	})

	got := RelatedContent(idx, "1", 5)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
	assert.Equal(t, 2.0, got[0].Score)
}

func TestRelatedContentOrdering(t *testing.T) {
	idx := indexOf(siteRecords())

	got := RelatedContent(idx, "react-hooks", 5)
	require.Len(t, got, 2)
	// blog1 shares the category, portfolio-site shares a tag
	assert.Equal(t, "blog1", got[0].ID)
	assert.Equal(t, "portfolio-site", got[1].ID)

	assert.Empty(t, RelatedContent(idx, "missing", 5))
	assert.Empty(t, RelatedContent(nil, "react-hooks", 5))
	assert.Len(t, RelatedContent(idx, "react-hooks", 1), 1)
}

func TestSuggestedQueries(t *testing.T) {
	idx := indexOf(siteRecords())

	got := SuggestedQueries(idx, []string{"raect", "hoks"}, 5)
	assert.Contains(t, got, "react hooks")

	completions := SuggestedQueries(idx, []string{"colo"}, 5)
	assert.Contains(t, completions, "color")
	assert.Contains(t, completions, "colors")

	assert.Empty(t, SuggestedQueries(idx, nil, 5))
}
