package repository

import (
	"context"
	"strings"
	"sync"

	"github.com/flexcrm/engage/internal/domain/model"
)

// InMemoryEventStore implements EventStore with a per-entity index over
// an insertion-ordered log. It mirrors the query surface of the managed
// backing table: filtered reads by entity set and subtype prefix,
// append-only writes.
type InMemoryEventStore struct {
	mu       sync.RWMutex
	log      []model.Event
	byEntity map[string][]int // entity id -> indexes into log
	closed   bool
}

// NewInMemoryEventStore creates an empty event store.
func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{
		byEntity: make(map[string][]int),
	}
}

// Append inserts one event. Events are immutable once written.
func (s *InMemoryEventStore) Append(ctx context.Context, e model.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.log = append(s.log, e)
	s.byEntity[e.EntityID] = append(s.byEntity[e.EntityID], len(s.log)-1)
	return nil
}

// ListByEntities returns all events for the given entity ids whose
// subtype starts with subtypePrefix. The result preserves insertion
// order across entities.
func (s *InMemoryEventStore) ListByEntities(ctx context.Context, ids []string, subtypePrefix string) ([]model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrEmptyEntitySet
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	// Duplicate ids in the request must not replay an entity's log.
	seen := make(map[string]struct{}, len(ids))
	var indexes []int
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		indexes = append(indexes, s.byEntity[id]...)
	}
	// Restore global insertion order when more than one entity matched.
	if len(ids) > 1 {
		sortInts(indexes)
	}

	out := make([]model.Event, 0, len(indexes))
	for _, i := range indexes {
		e := s.log[i]
		if subtypePrefix != "" && !strings.HasPrefix(e.Subtype, subtypePrefix) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// ListRecent returns up to limit events, newest first.
func (s *InMemoryEventStore) ListRecent(ctx context.Context, limit int) ([]model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	if limit <= 0 || limit > len(s.log) {
		limit = len(s.log)
	}
	out := make([]model.Event, 0, limit)
	for i := len(s.log) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.log[i])
	}
	return out, nil
}

// Count returns the total number of stored events.
func (s *InMemoryEventStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.log)
}

// Close rejects further reads and writes.
func (s *InMemoryEventStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// sortInts is a small insertion sort; entity index slices are already
// sorted so merged slices are nearly ordered.
func sortInts(a []int) {
	for i := 1; i < len(a); i++ {
		for j := i; j > 0 && a[j] < a[j-1]; j-- {
			a[j], a[j-1] = a[j-1], a[j]
		}
	}
}
