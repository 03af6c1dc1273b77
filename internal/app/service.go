// Package app provides the core service implementing the dependencies
// required by the HTTP API.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flexcrm/engage/internal/adapters/feed"
	"github.com/flexcrm/engage/internal/adapters/mq/queue"
	"github.com/flexcrm/engage/internal/adapters/mq/worker"
	"github.com/flexcrm/engage/internal/adapters/repository"
	"github.com/flexcrm/engage/internal/adapters/webhook"
	"github.com/flexcrm/engage/internal/domain/aggregate"
	"github.com/flexcrm/engage/internal/domain/dedupe"
	"github.com/flexcrm/engage/internal/domain/model"
	"github.com/flexcrm/engage/internal/domain/notify"
	"github.com/flexcrm/engage/internal/domain/scoring"
	"github.com/flexcrm/engage/internal/domain/tier"
	"github.com/flexcrm/engage/internal/refresh"
	"github.com/flexcrm/engage/pkg/logger"
	"github.com/flexcrm/engage/pkg/metrics"
)

// Service owns the engagement pipeline: event ingest, read-time
// aggregation, live refresh, and the notification layer.
type Service struct {
	mu sync.RWMutex // lifecycle

	// stateMu guards the aggregate cache, weight table and builder.
	// Separate from the lifecycle mutex so recompute workers never
	// contend with Start/Stop.
	stateMu sync.RWMutex

	// Components
	events     repository.EventStore
	notifStore repository.NotificationStore
	prefs      repository.PreferenceStore
	deduper    dedupe.Deduper
	changeFeed *feed.Feed
	sigQueue   *queue.InMemoryQueue
	pool       *worker.Pool
	refresher  *refresh.Controller
	builder    *aggregate.Builder
	gate       *notify.Gate
	center     *notify.Center

	// Aggregate cache: written by recomputes and reads, consulted for
	// stats and the degraded read path. Last write wins; the cache is
	// never patched incrementally.
	cache map[string]*model.Aggregate

	// Configuration
	queueSize      int
	workerCount    int
	dedupeSize     int
	subtypePrefix  string
	weights        map[string]int
	hotMin         int
	warmMin        int
	coldMin        int
	highValue      []string
	download       string
	categories     map[string]string
	webhookURL     string
	webhookTimeout time.Duration
	allActivity    bool

	started bool
	logger  logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		cache:          make(map[string]*model.Aggregate),
		queueSize:      4096,
		workerCount:    4,
		dedupeSize:     50_000,
		subtypePrefix:  "flex_",
		weights:        map[string]int{},
		hotMin:         50,
		warmMin:        15,
		coldMin:        1,
		download:       "flex_file_downloaded",
		categories:     map[string]string{},
		webhookTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting engagement service...")

	s.events = repository.NewInMemoryEventStore()
	s.notifStore = repository.NewInMemoryNotificationStore()
	s.prefs = repository.NewInMemoryPreferenceStore()
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.changeFeed = feed.New()
	s.sigQueue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.builder = s.newBuilder(s.weights)
	s.gate = notify.NewGate(notify.WithCategories(s.categories))

	sender := webhook.New(s.webhookURL, webhook.WithTimeout(s.webhookTimeout))
	s.center = notify.NewCenter(s.notifStore,
		notify.WithSender(sender),
		notify.WithLogger(s.logger.Named("notify")),
	)

	s.pool = worker.NewPool(s.workerCount, s.sigQueue, s)
	s.pool.Start(ctx)

	refreshOpts := []refresh.Option{refresh.WithLogger(s.logger.Named("refresh"))}
	if s.allActivity {
		refreshOpts = append(refreshOpts, refresh.WithAllActivity())
	}
	s.refresher = refresh.New(s.changeFeed, s.sigQueue, refreshOpts...)
	s.refresher.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "engagement service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("weights", len(s.weights)),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping engagement service...")

	s.refresher.Stop()
	_ = s.sigQueue.Close()
	s.pool.Stop()
	s.changeFeed.Close()
	if closer, ok := s.events.(interface{ Close() error }); ok {
		_ = closer.Close()
	}

	s.started = false
	s.logger.Info(ctx, "engagement service stopped")
}

// AppendEvent ingests one activity event: idempotency check, append,
// publish to the change feed. Returns duplicate=true when the event id
// was already seen.
func (s *Service) AppendEvent(ctx context.Context, e model.Event) (duplicate bool, err error) {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.TS.IsZero() {
		e.TS = time.Now()
	}
	if s.deduper.SeenAndRecord(ctx, e.EventID) {
		metrics.RecordEventDuplicate()
		return true, nil
	}
	if err := s.events.Append(ctx, e); err != nil {
		// Allow a retry of the same event id after a failed append.
		s.deduper.Unrecord(ctx, e.EventID)
		return false, err
	}
	metrics.RecordEventAppended()
	s.changeFeed.Publish(ctx, e)
	return false, nil
}

// Engagement recomputes and returns the aggregates for the given
// entity ids, and moves the live-refresh watch set to those ids. An
// empty id list returns an empty result without touching the store.
func (s *Service) Engagement(ctx context.Context, entityIDs []string) (map[string]*model.Aggregate, error) {
	s.refresher.Watch(ctx, entityIDs)
	if len(entityIDs) == 0 {
		return map[string]*model.Aggregate{}, nil
	}

	events, err := s.events.ListByEntities(ctx, entityIDs, s.subtypePrefix)
	if err != nil {
		return nil, err
	}
	aggs := s.currentBuilder().Build(entityIDs, events)
	s.storeInCache(aggs)
	return aggs, nil
}

// ActorEngagement returns the per-actor aggregates for one entity,
// ordered by descending score.
func (s *Service) ActorEngagement(ctx context.Context, entityID string) ([]*model.ActorAggregate, error) {
	events, err := s.events.ListByEntities(ctx, []string{entityID}, s.subtypePrefix)
	if err != nil {
		return nil, err
	}
	return s.currentBuilder().BuildByActor(entityID, events), nil
}

// RecentActivity returns up to limit recent events, newest first.
func (s *Service) RecentActivity(ctx context.Context, limit int) ([]model.Event, error) {
	return s.events.ListRecent(ctx, limit)
}

// Recompute rebuilds one entity's aggregate from a fresh full query.
// Called by the recompute workers; also usable for manual refreshes.
func (s *Service) Recompute(ctx context.Context, entityID string) error {
	events, err := s.events.ListByEntities(ctx, []string{entityID}, s.subtypePrefix)
	if err != nil {
		return err
	}
	aggs := s.currentBuilder().Build([]string{entityID}, events)
	s.storeInCache(aggs)
	return nil
}

// CachedAggregate returns the last computed aggregate for an entity, if
// any. Serves the degraded "could not refresh" read path.
func (s *Service) CachedAggregate(entityID string) (*model.Aggregate, bool) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	agg, ok := s.cache[entityID]
	return agg, ok
}

// Preferences returns the user's notification preference map.
func (s *Service) Preferences(ctx context.Context, userID string) (map[string]bool, error) {
	return s.prefs.Get(ctx, userID)
}

// SetPreferences replaces the user's notification preference map.
func (s *Service) SetPreferences(ctx context.Context, userID string, prefs map[string]bool) error {
	return s.prefs.Put(ctx, userID, prefs)
}

// CreateNotification registers a pending notification for activity of
// the given subtype. The category is derived from the gate mapping.
func (s *Service) CreateNotification(ctx context.Context, n model.Notification) (model.Notification, error) {
	if n.Category == "" {
		if category, ok := s.gate.Category(n.Subtype); ok {
			n.Category = category
		}
	}
	return s.center.Create(ctx, n)
}

// NotificationsFor lists notifications visible to the given user,
// applying the preference gate per notification subtype. Unmapped
// subtypes are suppressed (fail closed for display).
func (s *Service) NotificationsFor(ctx context.Context, userID string, status model.NotificationStatus) ([]model.Notification, error) {
	prefs, err := s.prefs.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	all, err := s.center.List(ctx, status)
	if err != nil {
		return nil, err
	}
	out := make([]model.Notification, 0, len(all))
	for _, n := range all {
		if s.gate.Visible(n.Subtype, prefs) {
			out = append(out, n)
		}
	}
	return out, nil
}

// MarkNotificationRead transitions a notification to read.
func (s *Service) MarkNotificationRead(ctx context.Context, id string) error {
	return s.center.MarkRead(ctx, id)
}

// DecideNotification approves or denies a pending notification.
func (s *Service) DecideNotification(ctx context.Context, id string, decision model.Decision) (model.Notification, error) {
	return s.center.Decide(ctx, id, decision)
}

// UpdateWeights swaps in a new score-weight table. Used by the config
// hot-reload path; subsequent recomputes pick the new weights up.
func (s *Service) UpdateWeights(weights map[string]int) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.weights = weights
	s.builder = s.newBuilder(weights)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
	}
	if s.started {
		s.stateMu.RLock()
		cached := len(s.cache)
		s.stateMu.RUnlock()

		stats["events"] = s.events.Count(ctx)
		stats["queueLength"] = s.sigQueue.Len(ctx)
		stats["cachedEntities"] = cached
		stats["dedupeSize"] = s.deduper.Size()
		metrics.UpdateTrackedEntities(cached)
	}
	return stats
}

// newBuilder assembles the aggregate builder for a weight table.
// Caller holds stateMu when swapping the live builder.
func (s *Service) newBuilder(weights map[string]int) *aggregate.Builder {
	return aggregate.New(
		aggregate.WithScorer(scoring.New(scoring.WithWeights(weights))),
		aggregate.WithClassifier(tier.New(tier.WithThresholds([]tier.Threshold{
			{Min: s.hotMin, Tier: model.TierHot},
			{Min: s.warmMin, Tier: model.TierWarm},
			{Min: s.coldMin, Tier: model.TierCold},
		}))),
		aggregate.WithHighValueSubtypes(s.highValue),
		aggregate.WithDownloadSubtype(s.download),
	)
}

func (s *Service) currentBuilder() *aggregate.Builder {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.builder
}

func (s *Service) storeInCache(aggs map[string]*model.Aggregate) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	for id, agg := range aggs {
		s.cache[id] = agg
	}
	metrics.UpdateTrackedEntities(len(s.cache))
}
