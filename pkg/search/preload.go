package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/rebuildup/my-web-2025-sub006/pkg/infrastructure/workers"
)

// PopularQuery is a query with the number of times it was issued
type PopularQuery struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

// LoadPopularQueries reads a {"query": count} JSON object and returns the
// queries by count, then alphabetically. A missing file yields none.
func LoadPopularQueries(path string) ([]PopularQuery, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read popular queries: %w", err)
	}

	var counts map[string]int
	if err := json.Unmarshal(data, &counts); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSnapshotCorrupt, err)
	}

	queries := make([]PopularQuery, 0, len(counts))
	for q, n := range counts {
		if q == "" {
			continue
		}
		queries = append(queries, PopularQuery{Query: q, Count: n})
	}
	sort.Slice(queries, func(i, j int) bool {
		if queries[i].Count != queries[j].Count {
			return queries[i].Count > queries[j].Count
		}
		return queries[i].Query < queries[j].Query
	})
	return queries, nil
}

// Preload runs the n most popular queries with default options so their
// results are cached. It returns how many queries were run.
func Preload(ctx context.Context, engine *Engine, popularPath string, n int) (int, error) {
	if engine == nil || n <= 0 || popularPath == "" {
		return 0, nil
	}

	queries, err := LoadPopularQueries(popularPath)
	if err != nil {
		return 0, err
	}
	if len(queries) > n {
		queries = queries[:n]
	}

	tasks := make([]workers.Task, len(queries))
	for i, q := range queries {
		query := q.Query
		tasks[i] = workers.TaskFunc{
			Name: query,
			Fn: func(ctx context.Context) (interface{}, error) {
				return engine.SearchWithMeta(ctx, query, SearchOptions{}), nil
			},
		}
	}

	if _, err := workers.NewPool(0).Run(ctx, tasks); err != nil {
		return 0, fmt.Errorf("preload failed: %w", err)
	}

	engine.logger.WithField("queries", len(tasks)).Info("preloaded popular queries")
	return len(tasks), nil
}
