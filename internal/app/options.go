package app

import (
	"time"

	"github.com/flexcrm/engage/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithQueueSize bounds the invalidation-signal queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithWorkerCount sets the number of recompute workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithDedupeSize sets the size of the event-id idempotency cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithSubtypePrefix namespaces the subtypes this pipeline aggregates.
func WithSubtypePrefix(prefix string) Option {
	return func(s *Service) {
		s.subtypePrefix = prefix
	}
}

// WithScoreWeights sets the subtype weight table.
func WithScoreWeights(weights map[string]int) Option {
	return func(s *Service) {
		if weights != nil {
			s.weights = weights
		}
	}
}

// WithTierBreakpoints sets the minimum scores for hot, warm and cold.
func WithTierBreakpoints(hotMin, warmMin, coldMin int) Option {
	return func(s *Service) {
		s.hotMin = hotMin
		s.warmMin = warmMin
		s.coldMin = coldMin
	}
}

// WithHighValueSubtypes marks subtypes that raise aggregate flags.
func WithHighValueSubtypes(subtypes []string) Option {
	return func(s *Service) {
		s.highValue = subtypes
	}
}

// WithDownloadSubtype sets the subtype feeding the artifact list.
func WithDownloadSubtype(subtype string) Option {
	return func(s *Service) {
		if subtype != "" {
			s.download = subtype
		}
	}
}

// WithCategories sets the subtype -> preference category mapping.
func WithCategories(categories map[string]string) Option {
	return func(s *Service) {
		if categories != nil {
			s.categories = categories
		}
	}
}

// WithWebhook configures the outbound decision endpoint.
func WithWebhook(url string, timeout time.Duration) Option {
	return func(s *Service) {
		s.webhookURL = url
		if timeout > 0 {
			s.webhookTimeout = timeout
		}
	}
}

// WithAllActivity signals recomputes on every insert instead of only
// watched entities.
func WithAllActivity(enabled bool) Option {
	return func(s *Service) {
		s.allActivity = enabled
	}
}
