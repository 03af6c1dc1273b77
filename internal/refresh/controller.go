// Package refresh bridges the live change feed to the invalidation
// queue.
//
// The controller watches a set of entity ids. When an insert for a
// watched entity arrives (or any insert, in all-activity mode) it
// enqueues an invalidation signal; the recompute workers then rebuild
// the aggregate from a fresh full query. Signals are deliberately not
// coalesced: N quick inserts may cause up to N redundant recomputes,
// which is accepted because recomputation is idempotent and last write
// wins.
package refresh

import (
	"context"
	"sync"

	"github.com/flexcrm/engage/internal/adapters/mq/queue"
	"github.com/flexcrm/engage/internal/domain/model"
	"github.com/flexcrm/engage/pkg/logger"
	"github.com/flexcrm/engage/pkg/metrics"
)

// Subscriber is the change feed surface the controller consumes.
type Subscriber interface {
	Subscribe(ctx context.Context, entityID string) (<-chan model.Event, func())
}

// Enqueuer accepts invalidation signals.
type Enqueuer interface {
	Enqueue(ctx context.Context, sig queue.Signal) bool
}

// Controller maintains the feed subscription for the watched entity
// set. The subscription is torn down when the set becomes empty and
// re-established when it refills, so an idle controller holds no live
// connection.
type Controller struct {
	feed  Subscriber
	sink  Enqueuer
	all   bool // all-activity mode: every insert triggers a signal
	log   logger.Logger

	mu      sync.Mutex
	watched map[string]struct{}
	sub     *subscription
	stopped bool
}

// subscription ties a feed subscription to a controller-owned context.
// The lifetime belongs to the controller, never to the caller whose
// request established the watch.
type subscription struct {
	stop func()
}

// Option applies a configuration option to the Controller.
type Option func(*Controller)

// WithAllActivity makes the controller signal on every insert
// regardless of the watched set.
func WithAllActivity() Option {
	return func(c *Controller) {
		c.all = true
	}
}

// WithLogger sets a custom logger for the controller.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a Controller. No subscription exists until Watch is
// called with a non-empty set (or immediately, in all-activity mode).
func New(feed Subscriber, sink Enqueuer, opts ...Option) *Controller {
	c := &Controller{
		feed:    feed,
		sink:    sink,
		watched: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get().Named("refresh")
	}
	return c
}

// Start establishes the subscription in all-activity mode. In watched
// mode it is a no-op; Watch manages the subscription lifecycle.
func (c *Controller) Start(ctx context.Context) {
	if !c.all {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureSubscriptionLocked()
}

// Watch replaces the watched entity set. An empty set tears the
// subscription down; a refill re-subscribes. The context covers only
// this call; cancelling it later does not disturb the subscription,
// which stays up for as long as the watched set is non-empty.
func (c *Controller) Watch(ctx context.Context, entityIDs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}

	c.watched = make(map[string]struct{}, len(entityIDs))
	for _, id := range entityIDs {
		c.watched[id] = struct{}{}
	}

	if len(c.watched) == 0 && !c.all {
		c.teardownLocked()
		return
	}
	c.ensureSubscriptionLocked()
}

// Stop tears down the subscription permanently.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	c.teardownLocked()
}

// Watching reports whether the entity is in the watched set.
func (c *Controller) Watching(entityID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.all {
		return true
	}
	_, ok := c.watched[entityID]
	return ok
}

func (c *Controller) ensureSubscriptionLocked() {
	if c.sub != nil {
		return
	}
	subCtx, stop := context.WithCancel(context.Background())
	ch, unsubscribe := c.feed.Subscribe(subCtx, "")
	s := &subscription{stop: func() {
		stop()
		unsubscribe()
	}}
	c.sub = s
	go c.loop(subCtx, s, ch)
}

func (c *Controller) teardownLocked() {
	if c.sub != nil {
		c.sub.stop()
		c.sub = nil
	}
}

// release clears the live subscription when its loop exits, so a later
// Watch can re-subscribe. A newer subscription is left untouched.
func (c *Controller) release(s *subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub == s {
		s.stop()
		c.sub = nil
	}
}

func (c *Controller) loop(ctx context.Context, s *subscription, ch <-chan model.Event) {
	defer c.release(s)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			if !c.Watching(e.EntityID) {
				continue
			}
			metrics.RecordRefreshSignal()
			if !c.sink.Enqueue(ctx, queue.Signal{EntityID: e.EntityID, Reason: "insert"}) {
				c.log.Warn(ctx, "invalidation signal dropped",
					logger.String("entityID", e.EntityID),
				)
			}
		}
	}
}
