// Package model contains domain models passed between layers.
package model

import "time"

// Event represents a single activity event in the append-only log.
// Events are immutable once written; the store only ever inserts.
type Event struct {
	EventID   string         // unique id for idempotency
	EntityID  string         // deal identifier the event belongs to
	Subtype   string         // activity type, e.g. "flex_file_downloaded"
	ActorID   string         // stable actor identifier (may be empty)
	ActorName string         // display name fallback for the actor
	Metadata  map[string]any // free-form payload, tolerated when malformed
	TS        time.Time      // event timestamp
}

// ActorKey returns the key used to group events by participant.
// A stable identifier is preferred; the display name is the fallback.
// Returns "" when neither is present, in which case the event still
// scores at entity level but is excluded from per-actor views.
func (e Event) ActorKey() string {
	if e.ActorID != "" {
		return e.ActorID
	}
	if e.ActorName != "" {
		return e.ActorName
	}
	if id, ok := e.Metadata["actor_id"].(string); ok && id != "" {
		return id
	}
	if name, ok := e.Metadata["actor_name"].(string); ok && name != "" {
		return name
	}
	return ""
}

// Aggregate is the per-entity engagement summary. It is a read-time
// projection recomputed from the event log on every fetch, never
// persisted independently of the underlying events.
type Aggregate struct {
	EntityID     string          `json:"entity_id"`
	Score        int             `json:"score"`
	Tier         Tier            `json:"tier"`
	ActorCount   int             `json:"actor_count"`
	Counts       map[string]int  `json:"counts"`
	LastActivity time.Time       `json:"last_activity"`
	Flags        map[string]bool `json:"flags"`
	Artifacts    []string        `json:"artifacts,omitempty"`
}

// ActorAggregate is the per-actor variant used for the lender-level view
// of a single deal.
type ActorAggregate struct {
	EntityID     string          `json:"entity_id"`
	ActorKey     string          `json:"actor_key"`
	ActorName    string          `json:"actor_name,omitempty"`
	Score        int             `json:"score"`
	Tier         Tier            `json:"tier"`
	Counts       map[string]int  `json:"counts"`
	LastActivity time.Time       `json:"last_activity"`
	Flags        map[string]bool `json:"flags"`
	Artifacts    []string        `json:"artifacts,omitempty"`
}
