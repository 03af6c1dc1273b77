// Package tier classifies engagement scores into ordinal tiers.
package tier

import (
	"sort"

	"github.com/flexcrm/engage/internal/domain/model"
)

// Default breakpoints: >=50 hot, >=15 warm, >=1 cold, else none.
const (
	defaultHotMin  = 50
	defaultWarmMin = 15
	defaultColdMin = 1
)

// Threshold binds a minimum score to a tier.
type Threshold struct {
	Min  int
	Tier model.Tier
}

// Classifier maps a score to a tier via ordered threshold checks from
// highest to lowest; the first matching threshold wins.
type Classifier struct {
	thresholds []Threshold
}

// Option applies a configuration option to the Classifier.
type Option func(*Classifier)

// WithThresholds replaces the default breakpoints. The slice is copied
// and sorted by descending Min so callers need not pre-order it.
func WithThresholds(thresholds []Threshold) Option {
	return func(c *Classifier) {
		if len(thresholds) == 0 {
			return
		}
		c.thresholds = make([]Threshold, len(thresholds))
		copy(c.thresholds, thresholds)
		sort.Slice(c.thresholds, func(i, j int) bool {
			return c.thresholds[i].Min > c.thresholds[j].Min
		})
	}
}

// New creates a Classifier with the default breakpoints.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		thresholds: []Threshold{
			{Min: defaultHotMin, Tier: model.TierHot},
			{Min: defaultWarmMin, Tier: model.TierWarm},
			{Min: defaultColdMin, Tier: model.TierCold},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify is total: every integer maps to exactly one tier. Scores
// below the lowest threshold, including zero and negatives, map to
// TierNone.
func (c *Classifier) Classify(score int) model.Tier {
	for _, t := range c.thresholds {
		if score >= t.Min {
			return t.Tier
		}
	}
	return model.TierNone
}
