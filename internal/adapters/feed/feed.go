// Package feed provides an in-process change feed of event inserts.
//
// The feed mirrors the managed backend's realtime channel: subscribers
// receive insert notifications, optionally filtered to a single entity
// id. Publishing never blocks; deliveries to slow subscribers are
// dropped and counted, since every delivery only triggers a full
// recompute and a later one will catch up.
package feed

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/flexcrm/engage/internal/domain/model"
	"github.com/flexcrm/engage/pkg/metrics"
)

const defaultBufferSize = 64

// Feed fans event inserts out to subscribers.
type Feed struct {
	mu     sync.RWMutex
	subs   map[string]*subscription
	buffer int
	closed bool
}

type subscription struct {
	entityID string // "" means unfiltered
	ch       chan model.Event
}

// Option applies a configuration option to the Feed.
type Option func(*Feed)

// WithBufferSize sets the per-subscriber channel buffer.
func WithBufferSize(size int) Option {
	return func(f *Feed) {
		if size > 0 {
			f.buffer = size
		}
	}
}

// New creates a Feed.
func New(opts ...Option) *Feed {
	f := &Feed{
		subs:   make(map[string]*subscription),
		buffer: defaultBufferSize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Subscribe registers for insert notifications. entityID filters to a
// single entity; pass "" for all inserts. The returned cancel func
// tears the subscription down and closes the channel; it is safe to
// call more than once.
func (f *Feed) Subscribe(ctx context.Context, entityID string) (<-chan model.Event, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan model.Event, f.buffer)
	if f.closed {
		close(ch)
		return ch, func() {}
	}

	id := uuid.NewString()
	f.subs[id] = &subscription{entityID: entityID, ch: ch}
	metrics.UpdateFeedSubscriptions(len(f.subs))

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if sub, ok := f.subs[id]; ok {
				delete(f.subs, id)
				close(sub.ch)
				metrics.UpdateFeedSubscriptions(len(f.subs))
			}
		})
	}
	return ch, cancel
}

// Publish delivers an insert notification to every matching subscriber
// without blocking. Full subscriber buffers drop the delivery.
func (f *Feed) Publish(ctx context.Context, e model.Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return
	}
	for _, sub := range f.subs {
		if sub.entityID != "" && sub.entityID != e.EntityID {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			metrics.RecordFeedDropped()
		}
	}
}

// Close tears down all subscriptions.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	for id, sub := range f.subs {
		delete(f.subs, id)
		close(sub.ch)
	}
	metrics.UpdateFeedSubscriptions(0)
}
