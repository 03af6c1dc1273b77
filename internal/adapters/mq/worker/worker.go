// Package worker runs the pool of recompute workers draining the
// invalidation queue.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/flexcrm/engage/internal/adapters/mq/queue"
	"github.com/flexcrm/engage/pkg/logger"
	"github.com/flexcrm/engage/pkg/metrics"
)

const (
	defaultWorkerCount    = 4
	workerShutdownTimeout = 5 * time.Second
)

// Recomputer rebuilds one entity's aggregate from a fresh full query.
// Recomputation is idempotent; workers never patch cached state
// incrementally.
type Recomputer interface {
	Recompute(ctx context.Context, entityID string) error
}

// Dequeuer defines how workers receive invalidation signals.
type Dequeuer interface {
	Dequeue(ctx context.Context) <-chan queue.Signal
}

// Worker drains signals and triggers recomputes.
type Worker struct {
	queue      Dequeuer
	recomputer Recomputer
	name       string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// Option applies a configuration option to the Worker.
type Option func(*Worker)

// WithName sets the worker name for logging.
func WithName(name string) Option {
	return func(w *Worker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWorker creates a worker over the given queue and recomputer.
func NewWorker(q Dequeuer, r Recomputer, opts ...Option) *Worker {
	w := &Worker{
		queue:      q,
		recomputer: r,
		name:       "worker",
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run processes signals until ctx is canceled, the queue closes, or
// Shutdown is called.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	signals := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			w.process(ctx, sig)
		}
	}
}

// Shutdown stops the worker, waiting for the in-flight signal.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker shutdown timed out: %w", ctx.Err())
	}
}

func (w *Worker) process(ctx context.Context, sig queue.Signal) {
	start := time.Now()
	err := w.recomputer.Recompute(ctx, sig.EntityID)
	metrics.RecordRecomputeLatency(float64(time.Since(start).Milliseconds()))

	if err != nil {
		metrics.RecordRecomputeError()
		w.logger.Error(ctx, "recompute failed",
			logger.String("entityID", sig.EntityID),
			logger.String("reason", sig.Reason),
			logger.Error(err),
		)
		return
	}
	metrics.RecordRecompute()
}

// Pool manages a fixed set of workers.
type Pool struct {
	workers []*Worker
	logger  logger.Logger
}

// NewPool creates workerCount workers over the queue and recomputer.
func NewPool(workerCount int, q Dequeuer, r Recomputer) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}
	p := &Pool{
		workers: make([]*Worker, workerCount),
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		p.workers[i] = NewWorker(q, r, WithName(fmt.Sprintf("worker-%d", i)))
	}
	return p
}

// Start launches all workers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop stops all workers, bounding the wait per worker.
func (p *Pool) Stop() {
	for _, w := range p.workers {
		ctx, cancel := context.WithTimeout(context.Background(), workerShutdownTimeout)
		if err := w.Shutdown(ctx); err != nil {
			p.logger.Warn(ctx, "worker did not stop cleanly", logger.Error(err))
		}
		cancel()
	}
}
