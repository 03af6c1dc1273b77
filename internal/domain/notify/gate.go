// Package notify decides which activity surfaces as visible alerts and
// owns the notification lifecycle.
package notify

// Gate filters raw activity subtypes against a user's per-category
// preference record.
//
// Visibility fails closed for display: a subtype with no category
// mapping is hidden regardless of preferences, so new event types do
// not spam users before an explicit toggle exists for them. Scoring is
// unaffected; the gate only governs display.
type Gate struct {
	categories map[string]string // subtype -> preference category
}

// GateOption applies a configuration option to the Gate.
type GateOption func(*Gate)

// WithCategories sets the subtype -> category mapping.
func WithCategories(categories map[string]string) GateOption {
	return func(g *Gate) {
		g.categories = make(map[string]string, len(categories))
		for subtype, cat := range categories {
			g.categories[subtype] = cat
		}
	}
}

// NewGate creates a Gate. Without options every subtype is unmapped and
// therefore hidden.
func NewGate(opts ...GateOption) *Gate {
	g := &Gate{
		categories: make(map[string]string),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Visible reports whether activity of the given subtype should render
// as a notification for a user with the given preferences. Categories
// absent from prefs default to shown; each category toggles
// independently.
func (g *Gate) Visible(subtype string, prefs map[string]bool) bool {
	category, ok := g.categories[subtype]
	if !ok {
		return false
	}
	enabled, ok := prefs[category]
	if !ok {
		return true
	}
	return enabled
}

// Category returns the preference category for a subtype, if mapped.
func (g *Gate) Category(subtype string) (string, bool) {
	category, ok := g.categories[subtype]
	return category, ok
}
