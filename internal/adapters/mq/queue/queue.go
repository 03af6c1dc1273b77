// Package queue defines the bounded queue of invalidation signals that
// drives aggregate recomputation.
package queue

import (
	"context"
	"sync"

	"github.com/flexcrm/engage/pkg/metrics"
)

const defaultCapacity = 4096

// Signal asks the recompute workers to rebuild one entity's aggregate.
type Signal struct {
	EntityID string
	Reason   string // "insert", "manual", ...
}

// Queue provides non-blocking enqueue and channel-based dequeue.
type Queue interface {
	// Enqueue adds a signal. Returns false if the queue is full or
	// closed; redundant signals are acceptable, lost ones are made up
	// for by the next fetch-time recompute.
	Enqueue(ctx context.Context, sig Signal) bool

	// Dequeue returns the channel signals are consumed from. The
	// channel is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Signal

	// Len returns the current number of queued signals.
	Len(ctx context.Context) int

	// Close shuts the queue down; no further signals are accepted.
	Close() error
}

// InMemoryQueue implements Queue with a buffered channel.
type InMemoryQueue struct {
	signals  chan Signal
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// Option applies a configuration option to the InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity sets the queue capacity.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// NewInMemoryQueue creates an in-memory invalidation queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.signals = make(chan Signal, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)
	return q
}

// Enqueue adds a signal without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, sig Signal) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		return false
	}
	select {
	case q.signals <- sig:
		q.observe()
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		return false
	default:
		metrics.RecordQueueEnqueueError()
		return false
	}
}

// Dequeue returns the consumption channel.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Signal {
	return q.signals
}

// Len returns the current number of queued signals.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	return len(q.signals)
}

// Close shuts the queue down.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.signals)
	q.closed = true
	return nil
}

func (q *InMemoryQueue) observe() {
	size := len(q.signals)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}
