package model

import "time"

// NotificationStatus tracks the lifecycle of a single notification.
// Transitions are one-way: pending -> read | approved | denied.
type NotificationStatus string

const (
	StatusPending  NotificationStatus = "pending"
	StatusRead     NotificationStatus = "read"
	StatusApproved NotificationStatus = "approved"
	StatusDenied   NotificationStatus = "denied"
)

// Decided reports whether the status is terminal for an actionable
// notification.
func (s NotificationStatus) Decided() bool {
	return s == StatusApproved || s == StatusDenied
}

// Notification is a user-facing alert derived from activity events.
type Notification struct {
	ID          string             `json:"id"`
	EntityID    string             `json:"entity_id"`
	Category    string             `json:"category"`
	Subtype     string             `json:"subtype"`
	Message     string             `json:"message"`
	Status      NotificationStatus `json:"status"`
	ActorEmail  string             `json:"actor_email,omitempty"`
	ActorName   string             `json:"actor_name,omitempty"`
	RelatedName string             `json:"related_name,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	DecidedAt   time.Time          `json:"decided_at,omitzero"`
}

// Decision is the outcome of an actionable notification.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionDenied   Decision = "denied"
)
