// Package scoring computes engagement scores from activity events.
//
// The calculator is a pure function of its input: the score for an
// entity is the sum of the configured weights of all its events, with
// unrecognized subtypes contributing zero. There is no decay and no
// time-windowing.
package scoring

import "github.com/flexcrm/engage/internal/domain/model"

// Calculator maps events to a weighted integer score using a static
// subtype -> weight table.
type Calculator struct {
	weights map[string]int
}

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithWeights sets the subtype weight table. Negative weights are
// dropped; weights must be non-negative by contract.
func WithWeights(weights map[string]int) Option {
	return func(c *Calculator) {
		c.weights = make(map[string]int, len(weights))
		for subtype, w := range weights {
			if w >= 0 {
				c.weights[subtype] = w
			}
		}
	}
}

// New creates a Calculator. Without options the weight table is empty
// and every event scores zero.
func New(opts ...Option) *Calculator {
	c := &Calculator{
		weights: make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Weight returns the configured weight for a subtype, or 0 when the
// subtype is unknown.
func (c *Calculator) Weight(subtype string) int {
	return c.weights[subtype]
}

// Known reports whether the subtype appears in the weight table.
// Unknown subtypes score zero and are excluded from per-subtype counts.
func (c *Calculator) Known(subtype string) bool {
	_, ok := c.weights[subtype]
	return ok
}

// Score sums the weights of the given events. Order-independent,
// deterministic, no side effects.
func (c *Calculator) Score(events []model.Event) int {
	total := 0
	for _, e := range events {
		total += c.weights[e.Subtype]
	}
	return total
}
