// Package config defines service configuration structures and loading.
//
// Conventions:
// - Defaults come from New; Load layers an optional YAML file and env vars on top.
// - External errors are wrapped via this package's error helpers.
package config

import "context"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the invalidation-signal queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of recompute workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the event-id idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`

	// SubtypePrefix namespaces the activity subtypes this pipeline
	// aggregates, e.g. "flex_".
	SubtypePrefix string `koanf:"subtype_prefix"`

	// ScoreWeights maps activity subtypes to their integer weights.
	// Unknown subtypes score zero.
	ScoreWeights map[string]int `koanf:"score_weights"`

	// Tier breakpoints: minimum score per tier.
	TierHotMin  int `koanf:"tier_hot_min"`
	TierWarmMin int `koanf:"tier_warm_min"`
	TierColdMin int `koanf:"tier_cold_min"`

	// HighValueSubtypes raise a boolean flag on the aggregate.
	HighValueSubtypes []string `koanf:"high_value_subtypes"`

	// DownloadSubtype feeds the deduplicated artifact list.
	DownloadSubtype string `koanf:"download_subtype"`

	// Categories maps subtypes to notification preference categories.
	// Unmapped subtypes are hidden by default.
	Categories map[string]string `koanf:"notification_categories"`

	// WebhookURL is the outbound decision endpoint; empty disables it.
	WebhookURL       string `koanf:"webhook_url"`
	WebhookTimeoutMS int    `koanf:"webhook_timeout_ms"`

	// MaxRecentLimit caps GET /activity/recent?limit.
	MaxRecentLimit int `koanf:"max_recent_limit"`

	// AllActivity switches the live refresh controller to signal on
	// every insert instead of only watched entities.
	AllActivity bool `koanf:"all_activity"`
}

// New creates a Config with defaults. Context is accepted first per the
// project-wide convention; it is reserved for future use.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:      "info",
		Addr:          ":9090",
		QueueSize:     4096,
		WorkerCount:   4,
		DedupeSize:    50_000,
		SubtypePrefix: "flex_",
		ScoreWeights: map[string]int{
			"flex_deal_viewed":          1,
			"flex_question_asked":       5,
			"flex_file_downloaded":      10,
			"flex_meeting_requested":    15,
			"flex_term_sheet_requested": 25,
			"flex_nda_requested":        50,
		},
		TierHotMin:  50,
		TierWarmMin: 15,
		TierColdMin: 1,
		HighValueSubtypes: []string{
			"flex_term_sheet_requested",
			"flex_nda_requested",
		},
		DownloadSubtype: "flex_file_downloaded",
		Categories: map[string]string{
			"flex_deal_viewed":          "engagement",
			"flex_question_asked":       "engagement",
			"flex_file_downloaded":      "engagement",
			"flex_meeting_requested":    "milestone",
			"flex_term_sheet_requested": "milestone",
			"flex_nda_requested":        "milestone",
		},
		WebhookURL:       "",
		WebhookTimeoutMS: 5000,
		MaxRecentLimit:   200,
		AllActivity:      false,
	}
}
