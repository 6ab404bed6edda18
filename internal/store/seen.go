package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/amishk599/upfeed/internal/model"
)

// Backend is the durable home of the seen set. Load returns ids in insertion
// order; Save replaces the stored set with ids.
type Backend interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, ids []string) error
	Close() error
}

// Ensure SeenSet implements model.SeenStore.
var _ model.SeenStore = (*SeenSet)(nil)

// SeenSet is the ordered set of processed item ids, loaded once from a
// Backend and written back on Persist. Safe for concurrent use.
type SeenSet struct {
	backend Backend
	logger  *slog.Logger

	mu      sync.Mutex
	ids     []string
	index   map[string]struct{}
	version uint64

	// persistMu serializes Persist so snapshots reach the backend in order.
	persistMu    sync.Mutex
	savedVersion uint64
}

// Open loads the persisted set from backend. A backend with no prior state
// yields an empty set.
func Open(ctx context.Context, backend Backend, logger *slog.Logger) (*SeenSet, error) {
	ids, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading seen set: %w", err)
	}

	s := &SeenSet{
		backend: backend,
		logger:  logger,
		index:   make(map[string]struct{}, len(ids)),
	}
	for _, id := range ids {
		if _, ok := s.index[id]; ok {
			continue
		}
		s.index[id] = struct{}{}
		s.ids = append(s.ids, id)
	}
	logger.Debug("seen set loaded", "count", len(s.ids))
	return s, nil
}

// HasSeen reports whether id has been recorded.
func (s *SeenSet) HasSeen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[id]
	return ok
}

// MarkSeen appends id. Recording an id twice is a no-op.
func (s *SeenSet) MarkSeen(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[id]; ok {
		return
	}
	s.index[id] = struct{}{}
	s.ids = append(s.ids, id)
	s.version++
}

// Reset empties the set in place. Call Persist to make it durable.
func (s *SeenSet) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = nil
	s.index = make(map[string]struct{})
	s.version++
}

// Len returns the number of recorded ids.
func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// IDs returns a copy of the recorded ids in insertion order.
func (s *SeenSet) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.ids)
}

// Persist writes the current set to the backend. The snapshot is taken after
// the persist lock is held, so a later Persist always writes a superset of an
// earlier one unless Reset ran in between. Unchanged sets are not rewritten.
func (s *SeenSet) Persist(ctx context.Context) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	if s.version == s.savedVersion {
		s.mu.Unlock()
		return nil
	}
	snapshot := slices.Clone(s.ids)
	version := s.version
	s.mu.Unlock()

	if err := s.backend.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("persisting seen set: %w", err)
	}
	s.savedVersion = version
	s.logger.Debug("seen set persisted", "count", len(snapshot))
	return nil
}

// Close releases the backend.
func (s *SeenSet) Close() error {
	return s.backend.Close()
}
