package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rebuildup/my-web-2025-sub006/pkg/content"
	"github.com/rebuildup/my-web-2025-sub006/pkg/infrastructure/logging"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func javascriptTips() content.Record {
	return content.Record{
		ID:          "blog1",
		Type:        content.TypeBlog,
		Title:       "JavaScript Tips",
		Description: "Useful JavaScript tips and tricks",
		Tags:        []string{"javascript", "tips"},
		Category:    "tutorial",
		Status:      content.StatusPublished,
		Priority:    8,
	}
}

func siteRecords() []content.Record {
	return []content.Record{
		javascriptTips(),
		{
			ID:          "react-hooks",
			Type:        content.TypeBlog,
			Title:       "Understanding React Hooks",
			Description: "A tour of useState and useEffect",
			Content:     "<p>Hooks let function components hold <strong>state</strong>.</p><script>track()</script>",
			Tags:        []string{"react", "hooks"},
			Category:    "tutorial",
			Status:      content.StatusPublished,
			Priority:    5,
			UpdatedAt:   "2025-05-01T00:00:00Z",
		},
		{
			ID:          "portfolio-site",
			Type:        content.TypePortfolio,
			Title:       "Portfolio Website",
			Description: "Personal site built with React and Next.js",
			Tags:        []string{"react", "nextjs"},
			Category:    "web",
			Status:      content.StatusPublished,
			Priority:    9,
			CreatedAt:   "2024-01-10",
		},
		{
			ID:          "color-picker",
			Type:        content.TypeTool,
			Title:       "Color Picker",
			Description: "Pick and convert colors in the browser",
			Tags:        []string{"design", "color"},
			Category:    "utility",
			Status:      content.StatusPublished,
			Priority:    3,
		},
		{
			ID:          "draft-post",
			Type:        content.TypeBlog,
			Title:       "Unfinished JavaScript Notes",
			Description: "Draft",
			Tags:        []string{"javascript"},
			Category:    "tutorial",
			Status:      content.StatusDraft,
		},
		{
			ID:          "hidden-page",
			Type:        content.TypePage,
			Title:       "Internal JavaScript Checklist",
			Description: "Not for search",
			Status:      content.StatusPublished,
			SEO:         &content.SEO{NoIndex: true},
		},
	}
}

func testBuilder() *Builder {
	b := NewBuilder(logging.NewNopLogger())
	b.Now = func() time.Time { return fixedNow }
	return b
}

// fixedIndex serves a prebuilt index
type fixedIndex struct {
	idx *Index
	err error
}

func (f fixedIndex) Current(ctx context.Context) (*Index, error) {
	return f.idx, f.err
}

func indexOf(records []content.Record) *Index {
	return newIndex(testBuilder().Build(records), nil)
}

func newTestEngine(t *testing.T, records []content.Record, cache *ResultCache) *Engine {
	t.Helper()
	return NewEngine(EngineConfig{
		Index:  fixedIndex{idx: indexOf(records)},
		Cache:  cache,
		Logger: logging.NewNopLogger(),
	})
}

func newTestService(t *testing.T, records []content.Record) *Service {
	t.Helper()
	dir := t.TempDir()
	svc := NewService(Options{
		Source:    &content.StaticSource{Records: records},
		IndexPath: dir + "/index.json",
		CachePath: dir + "/cache.json",
		Logger:    logging.NewNopLogger(),
		Now:       func() time.Time { return fixedNow },
	})
	require.NotNil(t, svc)
	return svc
}

func resultIDs(results []SearchResult) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	return ids
}
