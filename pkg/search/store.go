package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rebuildup/my-web-2025-sub006/pkg/content"
	"github.com/rebuildup/my-web-2025-sub006/pkg/infrastructure/logging"
)

// IndexProvider hands out the current index snapshot
type IndexProvider interface {
	Current(ctx context.Context) (*Index, error)
}

// Store holds the built index in memory and mirrors it to a JSON snapshot.
// Mutators are serialized by a mutex; readers take the current immutable
// Index without locking.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[Index]
	stale   atomic.Bool

	builder   *Builder
	source    content.Source
	path      string
	segmenter Segmenter
	logger    *logging.Logger
	metrics   *Metrics

	subMu       sync.RWMutex
	subscribers map[int]func(IndexEvent)
	nextSub     int
}

// StoreConfig configures an index store
type StoreConfig struct {
	Builder *Builder
	Source  content.Source
	// JSON snapshot location; empty disables persistence
	SnapshotPath string
	Segmenter    Segmenter
	Logger       *logging.Logger
	Metrics      *Metrics
}

// NewStore creates an empty store. Nothing is loaded until first use.
func NewStore(cfg StoreConfig) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	builder := cfg.Builder
	if builder == nil {
		builder = NewBuilder(logger)
	}
	return &Store{
		builder:     builder,
		source:      cfg.Source,
		path:        cfg.SnapshotPath,
		segmenter:   cfg.Segmenter,
		logger:      logger.WithComponent("search.store"),
		metrics:     cfg.Metrics,
		subscribers: make(map[int]func(IndexEvent)),
	}
}

// Current returns the index, loading it on first use
func (s *Store) Current(ctx context.Context) (*Index, error) {
	if idx := s.current.Load(); idx != nil && !s.stale.Load() {
		return idx, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

// Load returns the index entries: the in-memory copy if valid, else the
// snapshot file, else a fresh build from the source (which is then persisted).
// When every tier fails the result is empty and the error describes why.
func (s *Store) Load(ctx context.Context) ([]IndexEntry, error) {
	idx, err := s.Current(ctx)
	if idx == nil {
		return []IndexEntry{}, err
	}
	return idx.Entries, err
}

func (s *Store) loadLocked(ctx context.Context) (*Index, error) {
	// Another caller may have loaded while we waited for the lock
	if idx := s.current.Load(); idx != nil && !s.stale.Load() {
		return idx, nil
	}

	if entries, err := s.readSnapshot(); err == nil {
		idx := s.setLocked(entries)
		s.logger.WithFields(map[string]interface{}{
			"entries": len(entries),
			"path":    s.path,
		}).Info("loaded index snapshot")
		return idx, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		s.logger.WithError(err).Warn("index snapshot unusable, rebuilding")
	}

	entries, err := s.build(ctx)
	if err != nil {
		// Keep serving the last good index if there is one
		if idx := s.current.Load(); idx != nil {
			s.stale.Store(false)
			return idx, err
		}
		return nil, err
	}

	idx := s.setLocked(entries)
	s.persistLocked(entries)
	return idx, nil
}

func (s *Store) build(ctx context.Context, types ...content.Type) ([]IndexEntry, error) {
	if s.source == nil {
		return nil, newError(ErrSourceUnavailable, "no content source configured")
	}
	return s.builder.BuildFromSource(ctx, s.source, types...)
}

// setLocked swaps in a new index built from entries
func (s *Store) setLocked(entries []IndexEntry) *Index {
	idx := newIndex(entries, s.segmenter)
	s.current.Store(idx)
	s.stale.Store(false)
	s.metrics.setIndexSize(len(entries))
	return idx
}

// Save replaces the in-memory index and writes the snapshot. It returns
// false if the snapshot could not be written; the in-memory state is
// updated either way.
func (s *Store) Save(entries []IndexEntry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setLocked(entries)
	return s.persistLocked(entries)
}

func (s *Store) persistLocked(entries []IndexEntry) bool {
	if s.path == "" {
		return true
	}
	if err := writeJSONAtomic(s.path, entries); err != nil {
		s.logger.WithError(fmt.Errorf("%w: %w", ErrPersistence, err)).Error("failed to save index snapshot")
		return false
	}
	return true
}

func (s *Store) readSnapshot() ([]IndexEntry, error) {
	if s.path == "" {
		return nil, os.ErrNotExist
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	var entries []IndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSnapshotCorrupt, err)
	}
	if entries == nil {
		return nil, newError(ErrSnapshotCorrupt, "snapshot is not an array")
	}
	return entries, nil
}

// ReplaceType removes every entry of type t, appends newEntries, persists and
// returns the merged list.
func (s *Store) ReplaceType(ctx context.Context, t content.Type, newEntries []IndexEntry) ([]IndexEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.loadLocked(ctx)
	var existing []IndexEntry
	if idx != nil {
		existing = idx.Entries
	} else if err != nil {
		s.logger.WithError(err).Warn("no existing index, updating from empty")
	}

	merged := make([]IndexEntry, 0, len(existing)+len(newEntries))
	for _, e := range existing {
		if e.Type != t {
			merged = append(merged, e)
		}
	}
	merged = append(merged, newEntries...)

	s.setLocked(merged)
	s.persistLocked(merged)
	s.publish(IndexEvent{Type: t, Count: len(newEntries), At: time.Now()})
	return merged, nil
}

// UpdateType rebuilds the entries of one type from the source.
// If the source fails the current index is kept and the error returned.
func (s *Store) UpdateType(ctx context.Context, t content.Type) ([]IndexEntry, error) {
	fresh, err := s.build(ctx, t)
	if err != nil {
		s.metrics.recordRebuild(false)
		entries, _ := s.Load(ctx)
		return entries, err
	}
	s.metrics.recordRebuild(true)
	return s.ReplaceType(ctx, t, fresh)
}

// Rebuild reloads everything from the source. On failure the last good
// index keeps serving.
func (s *Store) Rebuild(ctx context.Context) ([]IndexEntry, error) {
	entries, err := s.build(ctx)
	if err != nil {
		s.metrics.recordRebuild(false)
		current, _ := s.Load(ctx)
		return current, err
	}
	s.metrics.recordRebuild(true)

	s.mu.Lock()
	s.setLocked(entries)
	s.persistLocked(entries)
	s.mu.Unlock()

	s.publish(IndexEvent{Count: len(entries), At: time.Now()})
	s.logger.WithField("entries", len(entries)).Info("index rebuilt")
	return entries, nil
}

// Invalidate forces the next load to re-read the snapshot or rebuild
func (s *Store) Invalidate() {
	s.stale.Store(true)
}

// Subscribe registers fn to receive index events and returns a function that removes it
func (s *Store) Subscribe(fn func(IndexEvent)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subscribers, id)
		s.subMu.Unlock()
	}
}

func (s *Store) publish(event IndexEvent) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	for _, fn := range s.subscribers {
		fn(event)
	}
}

// writeJSONAtomic writes v as JSON to path via a temp file and rename
func writeJSONAtomic(path string, v interface{}) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}
	return nil
}
