package content

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rebuildup/my-web-2025-sub006/pkg/infrastructure/workers"
)

// FileSource reads records from <Dir>/<type>.json, one JSON array per type.
// A missing file means the type has no records.
type FileSource struct {
	Dir  string
	pool *workers.Pool
}

// NewFileSource creates a file-backed source rooted at dir
func NewFileSource(dir string) *FileSource {
	return &FileSource{
		Dir:  dir,
		pool: workers.NewPool(len(Types)),
	}
}

// PathFor returns the JSON file holding records of the given type
func (s *FileSource) PathFor(t Type) string {
	return filepath.Join(s.Dir, string(t)+".json")
}

// TypeForPath maps a file name back to its content type
func TypeForPath(path string) (Type, bool) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, ".json") {
		return "", false
	}
	t, err := ParseType(strings.TrimSuffix(base, ".json"))
	if err != nil {
		return "", false
	}
	return t, true
}

// Load reads all records of one type
func (s *FileSource) Load(ctx context.Context, t Type) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := s.PathFor(t)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	// Files written by hand sometimes omit the type field
	for i := range records {
		if records[i].Type == "" {
			records[i].Type = t
		}
	}
	return records, nil
}

// LoadAll reads every type concurrently. Any unreadable file fails the whole load.
func (s *FileSource) LoadAll(ctx context.Context) ([]Record, error) {
	pool := s.pool
	if pool == nil {
		pool = workers.NewPool(len(Types))
	}

	tasks := make([]workers.Task, len(Types))
	for i, t := range Types {
		t := t
		tasks[i] = workers.TaskFunc{
			Name: string(t),
			Fn: func(ctx context.Context) (interface{}, error) {
				return s.Load(ctx, t)
			},
		}
	}

	values, err := pool.Run(ctx, tasks)
	if err != nil {
		return nil, err
	}

	var all []Record
	for _, v := range values {
		all = append(all, v.([]Record)...)
	}
	return all, nil
}

// Save writes the records of one type, replacing the file
func (s *FileSource) Save(t Type, records []Record) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create content directory: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s records: %w", t, err)
	}

	if err := os.WriteFile(s.PathFor(t), data, 0644); err != nil {
		return fmt.Errorf("failed to write %s records: %w", t, err)
	}
	return nil
}
