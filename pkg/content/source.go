package content

import (
	"context"
)

// Source supplies content records. Implementations never mutate what they read.
type Source interface {
	// Load returns all records of one type
	Load(ctx context.Context, t Type) ([]Record, error)

	// LoadAll returns records of every type
	LoadAll(ctx context.Context) ([]Record, error)
}

// StaticSource serves a fixed record set, mostly useful for tests and one-off builds
type StaticSource struct {
	Records []Record
	Err     error
}

// Load returns the records of the given type
func (s *StaticSource) Load(ctx context.Context, t Type) ([]Record, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var out []Record
	for _, r := range s.Records {
		if r.Type == t {
			out = append(out, r)
		}
	}
	return out, nil
}

// LoadAll returns a copy of all records
func (s *StaticSource) LoadAll(ctx context.Context) ([]Record, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]Record, len(s.Records))
	copy(out, s.Records)
	return out, nil
}
