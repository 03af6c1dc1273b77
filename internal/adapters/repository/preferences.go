package repository

import (
	"context"
	"sync"
)

// InMemoryPreferenceStore implements PreferenceStore. Preferences are
// flat boolean maps keyed by category name, scoped per user.
type InMemoryPreferenceStore struct {
	mu     sync.RWMutex
	byUser map[string]map[string]bool
}

// NewInMemoryPreferenceStore creates an empty preference store.
func NewInMemoryPreferenceStore() *InMemoryPreferenceStore {
	return &InMemoryPreferenceStore{
		byUser: make(map[string]map[string]bool),
	}
}

// Get returns a copy of the user's preference map. Users without a
// stored record get an empty map; callers treat absent categories as
// enabled.
func (s *InMemoryPreferenceStore) Get(ctx context.Context, userID string) (map[string]bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]bool, len(s.byUser[userID]))
	for k, v := range s.byUser[userID] {
		out[k] = v
	}
	return out, nil
}

// Put replaces the user's preference map.
func (s *InMemoryPreferenceStore) Put(ctx context.Context, userID string, prefs map[string]bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make(map[string]bool, len(prefs))
	for k, v := range prefs {
		stored[k] = v
	}
	s.byUser[userID] = stored
	return nil
}
