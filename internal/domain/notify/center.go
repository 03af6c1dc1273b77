package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/flexcrm/engage/internal/domain/model"
	"github.com/flexcrm/engage/pkg/logger"
	"github.com/flexcrm/engage/pkg/metrics"
)

// Store persists notifications. Implemented by the repository adapter.
// Get and Update return ErrNotFound for unknown ids.
type Store interface {
	Insert(ctx context.Context, n model.Notification) error
	Get(ctx context.Context, id string) (model.Notification, error)
	Update(ctx context.Context, n model.Notification) error
	List(ctx context.Context, status model.NotificationStatus) ([]model.Notification, error)
}

// DecisionSender delivers the outbound decision call. Best-effort: the
// local status change is the source of truth and a send failure never
// rolls it back.
type DecisionSender interface {
	Send(ctx context.Context, n model.Notification, decision model.Decision) error
}

// Center owns the notification state machine:
//
//	pending -> read | approved | denied
//
// Transitions are one-way; there is no way back to pending and a
// decided notification cannot be re-decided.
type Center struct {
	store  Store
	sender DecisionSender
	logger logger.Logger
	now    func() time.Time
}

// CenterOption applies a configuration option to the Center.
type CenterOption func(*Center)

// WithSender sets the outbound decision sender.
func WithSender(sender DecisionSender) CenterOption {
	return func(c *Center) {
		if sender != nil {
			c.sender = sender
		}
	}
}

// WithLogger sets a custom logger for the center.
func WithLogger(l logger.Logger) CenterOption {
	return func(c *Center) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) CenterOption {
	return func(c *Center) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCenter creates a Center over the given store.
func NewCenter(store Store, opts ...CenterOption) *Center {
	c := &Center{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("notify")
	}
	return c
}

// Create registers a new pending notification and returns it with an
// assigned id.
func (c *Center) Create(ctx context.Context, n model.Notification) (model.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.Status = model.StatusPending
	n.CreatedAt = c.now()
	if err := c.store.Insert(ctx, n); err != nil {
		return model.Notification{}, err
	}
	return n, nil
}

// List returns notifications filtered by status.
func (c *Center) List(ctx context.Context, status model.NotificationStatus) ([]model.Notification, error) {
	return c.store.List(ctx, status)
}

// MarkRead transitions a pending notification to read. Marking an
// already-read notification is a no-op; marking a decided one fails.
func (c *Center) MarkRead(ctx context.Context, id string) error {
	n, err := c.store.Get(ctx, id)
	if err != nil {
		return err
	}
	switch n.Status {
	case model.StatusRead:
		return nil
	case model.StatusApproved, model.StatusDenied:
		return ErrAlreadyDecided
	}
	n.Status = model.StatusRead
	return c.store.Update(ctx, n)
}

// Decide transitions a notification to approved or denied and fires the
// one-shot outbound decision call. Re-deciding returns
// ErrAlreadyDecided; the status never moves back to pending. Failure of
// the outbound call is logged and does not reverse the local
// transition.
func (c *Center) Decide(ctx context.Context, id string, decision model.Decision) (model.Notification, error) {
	if decision != model.DecisionApproved && decision != model.DecisionDenied {
		return model.Notification{}, ErrInvalidStatus
	}

	n, err := c.store.Get(ctx, id)
	if err != nil {
		return model.Notification{}, err
	}
	if n.Status.Decided() {
		return model.Notification{}, ErrAlreadyDecided
	}

	if decision == model.DecisionApproved {
		n.Status = model.StatusApproved
	} else {
		n.Status = model.StatusDenied
	}
	n.DecidedAt = c.now()
	if err := c.store.Update(ctx, n); err != nil {
		return model.Notification{}, err
	}
	metrics.RecordNotificationDecision(string(decision))

	if c.sender != nil {
		if err := c.sender.Send(ctx, n, decision); err != nil {
			metrics.RecordWebhookError()
			c.logger.Warn(ctx, "decision webhook failed",
				logger.String("notificationID", n.ID),
				logger.String("decision", string(decision)),
				logger.Error(err),
			)
		} else {
			metrics.RecordWebhookSent()
		}
	}
	return n, nil
}
