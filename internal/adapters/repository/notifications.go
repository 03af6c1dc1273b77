package repository

import (
	"context"
	"sync"

	"github.com/flexcrm/engage/internal/domain/model"
	"github.com/flexcrm/engage/internal/domain/notify"
)

// InMemoryNotificationStore implements NotificationStore.
type InMemoryNotificationStore struct {
	mu    sync.RWMutex
	byID  map[string]model.Notification
	order []string // insertion order for stable listings
}

// NewInMemoryNotificationStore creates an empty notification store.
func NewInMemoryNotificationStore() *InMemoryNotificationStore {
	return &InMemoryNotificationStore{
		byID: make(map[string]model.Notification),
	}
}

// Insert adds a new notification. Duplicate ids are rejected.
func (s *InMemoryNotificationStore) Insert(ctx context.Context, n model.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[n.ID]; ok {
		return ErrDuplicateID
	}
	s.byID[n.ID] = n
	s.order = append(s.order, n.ID)
	return nil
}

// Get returns a notification by id.
func (s *InMemoryNotificationStore) Get(ctx context.Context, id string) (model.Notification, error) {
	if err := ctx.Err(); err != nil {
		return model.Notification{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.byID[id]
	if !ok {
		return model.Notification{}, notify.ErrNotFound
	}
	return n, nil
}

// Update replaces an existing notification.
func (s *InMemoryNotificationStore) Update(ctx context.Context, n model.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[n.ID]; !ok {
		return notify.ErrNotFound
	}
	s.byID[n.ID] = n
	return nil
}

// List returns notifications with the given status in insertion order;
// an empty status returns everything.
func (s *InMemoryNotificationStore) List(ctx context.Context, status model.NotificationStatus) ([]model.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Notification, 0, len(s.order))
	for _, id := range s.order {
		n := s.byID[id]
		if status != "" && n.Status != status {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}
