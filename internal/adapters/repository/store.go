// Package repository defines the store interfaces and errors for the
// append-only event log, notifications and user preferences.
package repository

import (
	"context"

	"github.com/flexcrm/engage/internal/domain/model"
)

// EventStore is the query surface over the append-only activity log.
// Writes are insert-only; nothing in this subsystem updates or deletes
// events.
type EventStore interface {
	// Append inserts one event.
	Append(ctx context.Context, e model.Event) error

	// ListByEntities returns all events whose entity id is in ids and
	// whose subtype starts with subtypePrefix (empty prefix matches
	// all). Returns ErrEmptyEntitySet for an empty id set rather than
	// running an unbounded query.
	ListByEntities(ctx context.Context, ids []string, subtypePrefix string) ([]model.Event, error)

	// ListRecent returns up to limit events, newest first.
	ListRecent(ctx context.Context, limit int) ([]model.Event, error)

	// Count returns the total number of stored events.
	Count(ctx context.Context) int
}

// NotificationStore persists notifications.
type NotificationStore interface {
	Insert(ctx context.Context, n model.Notification) error
	Get(ctx context.Context, id string) (model.Notification, error)
	Update(ctx context.Context, n model.Notification) error

	// List returns notifications with the given status; an empty
	// status returns everything.
	List(ctx context.Context, status model.NotificationStatus) ([]model.Notification, error)
}

// PreferenceStore holds the per-user flat boolean map of notification
// toggles. Absent categories default to shown; only explicit disables
// are stored meaningfully.
type PreferenceStore interface {
	Get(ctx context.Context, userID string) (map[string]bool, error)
	Put(ctx context.Context, userID string, prefs map[string]bool) error
}
