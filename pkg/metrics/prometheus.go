// Package metrics provides Prometheus metrics for the engagement service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Ingest
	eventsAppended  prometheus.Counter
	eventsDuplicate prometheus.Counter

	// Aggregation
	recomputes       prometheus.Counter
	recomputeErrors  prometheus.Counter
	recomputeLatency prometheus.Histogram
	trackedEntities  prometheus.Gauge

	// Live refresh
	refreshSignals prometheus.Counter
	feedDropped    prometheus.Counter
	feedSubs       prometheus.Gauge

	// Notifications
	notificationDecisions *prometheus.CounterVec
	webhookSent           prometheus.Counter
	webhookErrors         prometheus.Counter

	// Invalidation queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueErrors prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance on a custom registry to avoid the
// default Go collectors.
var globalManager *Manager                    //nolint:gochecknoglobals // singleton metrics manager
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "engage",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.eventsAppended = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_appended_total",
		Help:      "Total number of activity events appended to the store",
	})
	m.eventsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_duplicate_total",
		Help:      "Total number of duplicate events rejected by the deduper",
	})
	m.recomputes = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "aggregate_recomputes_total",
		Help:      "Total number of full aggregate recomputations",
	})
	m.recomputeErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "aggregate_recompute_errors_total",
		Help:      "Total number of failed aggregate recomputations",
	})
	m.recomputeLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "aggregate_recompute_latency_milliseconds",
		Help:      "Histogram of full recompute latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.trackedEntities = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tracked_entities",
		Help:      "Number of entities with a cached aggregate",
	})
	m.refreshSignals = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "refresh_signals_total",
		Help:      "Total number of invalidation signals emitted by the live refresh controller",
	})
	m.feedDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feed_dropped_total",
		Help:      "Total number of change-feed deliveries dropped on slow subscribers",
	})
	m.feedSubs = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feed_subscriptions",
		Help:      "Number of live change-feed subscriptions",
	})
	m.notificationDecisions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notification_decisions_total",
		Help:      "Total number of notification decisions by outcome",
	}, []string{"decision"})
	m.webhookSent = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "decision_webhook_sent_total",
		Help:      "Total number of outbound decision webhook calls delivered",
	})
	m.webhookErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "decision_webhook_errors_total",
		Help:      "Total number of outbound decision webhook calls that failed",
	})
	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "invalidation_queue_size",
		Help:      "Current number of queued invalidation signals",
	})
	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "invalidation_queue_capacity",
		Help:      "Configured capacity of the invalidation queue",
	})
	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "invalidation_queue_utilization_ratio",
		Help:      "Invalidation queue utilization (0-1)",
	})
	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "invalidation_queue_enqueue_errors_total",
		Help:      "Total number of invalidation signals dropped by the queue",
	})
	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "Histogram of HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status"})
}

// GetRegistry returns the registry backing the global manager, for
// exposition via promhttp.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Package-level helpers recording against the global manager.

func RecordEventAppended()  { globalManager.eventsAppended.Inc() }
func RecordEventDuplicate() { globalManager.eventsDuplicate.Inc() }

func RecordRecompute()               { globalManager.recomputes.Inc() }
func RecordRecomputeError()          { globalManager.recomputeErrors.Inc() }
func RecordRecomputeLatency(ms float64) {
	globalManager.recomputeLatency.Observe(ms)
}
func UpdateTrackedEntities(n int) { globalManager.trackedEntities.Set(float64(n)) }

func RecordRefreshSignal()     { globalManager.refreshSignals.Inc() }
func RecordFeedDropped()       { globalManager.feedDropped.Inc() }
func UpdateFeedSubscriptions(n int) {
	globalManager.feedSubs.Set(float64(n))
}

func RecordNotificationDecision(decision string) {
	globalManager.notificationDecisions.WithLabelValues(decision).Inc()
}
func RecordWebhookSent()  { globalManager.webhookSent.Inc() }
func RecordWebhookError() { globalManager.webhookErrors.Inc() }

func UpdateQueueSize(n int)     { globalManager.queueSize.Set(float64(n)) }
func UpdateQueueCapacity(n int) { globalManager.queueCapacity.Set(float64(n)) }
func UpdateQueueUtilization(ratio float64) {
	globalManager.queueUtilization.Set(ratio)
}
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, status string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(ms)
}
