package search

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebuildup/my-web-2025-sub006/pkg/content"
	"github.com/rebuildup/my-web-2025-sub006/pkg/infrastructure/config"
	"github.com/rebuildup/my-web-2025-sub006/pkg/infrastructure/logging"
)

func TestServiceSearchEndToEnd(t *testing.T) {
	svc := newTestService(t, []content.Record{javascriptTips()})
	ctx := context.Background()

	got := svc.Search(ctx, "javascript", SearchOptions{})
	require.Len(t, got, 1)
	assert.Equal(t, "/workshop/blog/blog1", got[0].URL)

	assert.Empty(t, svc.Search(ctx, "nonexistent", SearchOptions{}))
}

func TestServiceUpdateIndexClearsCache(t *testing.T) {
	src := &content.StaticSource{Records: siteRecords()}
	svc := NewService(Options{Source: src, Logger: logging.NewNopLogger()})
	ctx := context.Background()

	assert.Empty(t, svc.Search(ctx, "unit", SearchOptions{}))
	assert.Equal(t, 1, svc.CacheStats().Size)

	var events []IndexEvent
	svc.OnIndexUpdate(func(e IndexEvent) { events = append(events, e) })

	src.Records = append(src.Records, content.Record{
		ID: "unit-converter", Type: content.TypeTool, Title: "Unit Converter", Status: content.StatusPublished,
	})
	require.True(t, svc.UpdateIndex(ctx, content.TypeTool))
	assert.Zero(t, svc.CacheStats().Size)
	require.Len(t, events, 1)
	assert.Equal(t, content.TypeTool, events[0].Type)

	got := svc.Search(ctx, "unit", SearchOptions{})
	assert.Equal(t, []string{"unit-converter"}, resultIDs(got))

	// Full rebuild
	require.True(t, svc.UpdateIndex(ctx, ""))
	entries, err := svc.LoadIndex(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}

func TestServiceUpdateIndexFailureKeepsServing(t *testing.T) {
	src := &content.StaticSource{Records: siteRecords()}
	svc := NewService(Options{Source: src, Logger: logging.NewNopLogger()})
	ctx := context.Background()
	require.NotEmpty(t, svc.Search(ctx, "react", SearchOptions{}))

	src.Err = errors.New("offline")
	assert.False(t, svc.UpdateIndex(ctx, content.TypeBlog))
	assert.NotEmpty(t, svc.Search(ctx, "react", SearchOptions{}))
}

func TestServiceBuildAndSaveIndex(t *testing.T) {
	svc := newTestService(t, siteRecords())
	ctx := context.Background()

	entries, err := svc.BuildIndex(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.True(t, svc.SaveIndex(entries[:1]))
	loaded, err := svc.LoadIndex(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 1)

	_, err = NewService(Options{Logger: logging.NewNopLogger()}).BuildIndex(ctx)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestServiceSuggestionsAndRelated(t *testing.T) {
	svc := newTestService(t, siteRecords())
	ctx := context.Background()

	assert.Contains(t, svc.GetSuggestions(ctx, "rea", 5), "react")
	related := svc.GetRelatedContent(ctx, "react-hooks", 5)
	require.NotEmpty(t, related)
	assert.Equal(t, "blog1", related[0].ID)

	broken := NewService(Options{
		Source: &content.StaticSource{Err: errors.New("offline")},
		Logger: logging.NewNopLogger(),
	})
	assert.Empty(t, broken.GetSuggestions(ctx, "rea", 5))
	assert.Empty(t, broken.GetRelatedContent(ctx, "react-hooks", 5))
	assert.Empty(t, broken.Search(ctx, "react", SearchOptions{}))
}

func TestServiceCacheOperations(t *testing.T) {
	svc := newTestService(t, siteRecords())

	svc.CachePut("manual", SearchOptions{}, results("x"), 0)
	got, ok := svc.CacheGet("manual", SearchOptions{})
	require.True(t, ok)
	assert.Equal(t, results("x"), got)

	require.NoError(t, svc.CachePersist())
	assert.Equal(t, 1, svc.CacheClear(""))

	n, err := svc.CacheLoadPersisted()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, svc.CacheSweep())
}

func TestServicePreload(t *testing.T) {
	dir := t.TempDir()
	popular := filepath.Join(dir, "popular.json")
	data, err := json.Marshal(map[string]int{"react": 10, "color": 4, "javascript": 7})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(popular, data, 0644))

	svc := NewService(Options{
		Source:             &content.StaticSource{Records: siteRecords()},
		PopularQueriesPath: popular,
		PreloadCount:       2,
		Logger:             logging.NewNopLogger(),
	})

	n, err := svc.Preload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, ok := svc.CacheGet("react", SearchOptions{})
	assert.True(t, ok)
	_, ok = svc.CacheGet("javascript", SearchOptions{})
	assert.True(t, ok)
	_, ok = svc.CacheGet("color", SearchOptions{})
	assert.False(t, ok)
}

func TestLoadPopularQueries(t *testing.T) {
	dir := t.TempDir()

	none, err := LoadPopularQueries(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	assert.Empty(t, none)

	path := filepath.Join(dir, "popular.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"b": 2, "a": 2, "c": 5}`), 0644))
	queries, err := LoadPopularQueries(path)
	require.NoError(t, err)
	assert.Equal(t, []PopularQuery{{"c", 5}, {"a", 2}, {"b", 2}}, queries)

	require.NoError(t, os.WriteFile(path, []byte(`["not", "an", "object"]`), 0644))
	_, err = LoadPopularQueries(path)
	assert.ErrorIs(t, err, ErrSnapshotCorrupt)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Search.Fuzzy = false
	cfg.Cache.TTLSeconds = 60

	opts := OptionsFromConfig(cfg, nil)
	assert.Equal(t, time.Minute, opts.CacheTTL)
	assert.Equal(t, cfg.Index.SnapshotPath, opts.IndexPath)
	assert.IsType(t, SubstringMatcher{}, opts.Matcher)

	cfg.Search.Fuzzy = true
	assert.Nil(t, OptionsFromConfig(cfg, nil).Matcher)
}

func TestSchedulerRegistersConfiguredJobs(t *testing.T) {
	svc := newTestService(t, siteRecords())

	s, err := NewScheduler(svc, Schedules{CachePersist: "*/10 * * * *", ExpirySweep: "@every 1m"}, logging.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, 2, s.Jobs())

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))

	_, err = NewScheduler(svc, Schedules{Rebuild: "every now and then"}, logging.NewNopLogger())
	assert.Error(t, err)
}

func TestSchedulerJobs(t *testing.T) {
	svc := newTestService(t, siteRecords())
	s, err := NewScheduler(svc, Schedules{}, logging.NewNopLogger())
	require.NoError(t, err)
	assert.Zero(t, s.Jobs())

	svc.CachePut("q", SearchOptions{}, results("x"), time.Minute)
	s.persistCache()
	assert.FileExists(t, svc.opts.CachePath)

	s.sweep()
	s.rebuild()
	entries, err := svc.LoadIndex(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}
