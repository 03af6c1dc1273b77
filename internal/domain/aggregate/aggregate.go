// Package aggregate turns slices of activity events into per-entity and
// per-actor engagement summaries.
//
// Aggregates are read-time projections: every build starts from the
// full event slice for the requested entities and recomputes from
// scratch. Building twice from the same events yields identical output.
package aggregate

import (
	"sort"

	"github.com/flexcrm/engage/internal/domain/model"
	"github.com/flexcrm/engage/internal/domain/scoring"
	"github.com/flexcrm/engage/internal/domain/tier"
)

// Builder computes engagement aggregates from events.
type Builder struct {
	scorer     *scoring.Calculator
	classifier *tier.Classifier
	highValue  map[string]struct{}
	download   string
}

// Option applies a configuration option to the Builder.
type Option func(*Builder)

// WithScorer sets the score calculator.
func WithScorer(s *scoring.Calculator) Option {
	return func(b *Builder) {
		if s != nil {
			b.scorer = s
		}
	}
}

// WithClassifier sets the tier classifier.
func WithClassifier(c *tier.Classifier) Option {
	return func(b *Builder) {
		if c != nil {
			b.classifier = c
		}
	}
}

// WithHighValueSubtypes marks subtypes that raise a boolean flag on the
// aggregate when seen, e.g. a term-sheet request.
func WithHighValueSubtypes(subtypes []string) Option {
	return func(b *Builder) {
		b.highValue = make(map[string]struct{}, len(subtypes))
		for _, s := range subtypes {
			b.highValue[s] = struct{}{}
		}
	}
}

// WithDownloadSubtype sets the subtype whose events contribute to the
// deduplicated artifact list.
func WithDownloadSubtype(subtype string) Option {
	return func(b *Builder) {
		if subtype != "" {
			b.download = subtype
		}
	}
}

// New creates a Builder. A zero-option Builder scores everything at 0
// with default tier breakpoints.
func New(opts ...Option) *Builder {
	b := &Builder{
		scorer:     scoring.New(),
		classifier: tier.New(),
		highValue:  make(map[string]struct{}),
		download:   "flex_file_downloaded",
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build groups events by entity and computes an aggregate per requested
// entity id. Every requested id gets an entry even with zero events, so
// callers can tell "no data yet" from "entity not found". Events whose
// entity is not in the requested set are ignored.
func (b *Builder) Build(entityIDs []string, events []model.Event) map[string]*model.Aggregate {
	out := make(map[string]*model.Aggregate, len(entityIDs))
	actors := make(map[string]map[string]struct{}, len(entityIDs))
	for _, id := range entityIDs {
		if _, ok := out[id]; !ok {
			out[id] = b.empty(id)
			actors[id] = make(map[string]struct{})
		}
	}

	for _, e := range events {
		agg, ok := out[e.EntityID]
		if !ok {
			continue
		}
		b.apply(agg, e)
		if key := e.ActorKey(); key != "" {
			actors[e.EntityID][key] = struct{}{}
		}
	}

	for id, agg := range out {
		agg.ActorCount = len(actors[id])
	}

	for _, agg := range out {
		agg.Score = b.scoreFromCounts(agg)
		agg.Tier = b.classifier.Classify(agg.Score)
	}
	return out
}

// BuildByActor groups one entity's events by actor key and returns one
// aggregate per distinct actor, ordered by descending score. Tie order
// is unspecified; callers must not rely on it. Events without any actor
// key are excluded.
func (b *Builder) BuildByActor(entityID string, events []model.Event) []*model.ActorAggregate {
	groups := make(map[string]*model.ActorAggregate)
	scores := make(map[string]int)

	for _, e := range events {
		if e.EntityID != entityID {
			continue
		}
		key := e.ActorKey()
		if key == "" {
			continue
		}
		agg, ok := groups[key]
		if !ok {
			agg = &model.ActorAggregate{
				EntityID: entityID,
				ActorKey: key,
				Counts:   make(map[string]int),
				Flags:    make(map[string]bool),
			}
			groups[key] = agg
		}
		if agg.ActorName == "" && e.ActorName != "" {
			agg.ActorName = e.ActorName
		}
		scores[key] += b.scorer.Weight(e.Subtype)
		if b.scorer.Known(e.Subtype) {
			agg.Counts[e.Subtype]++
		}
		if _, high := b.highValue[e.Subtype]; high {
			agg.Flags[e.Subtype] = true
		}
		if e.Subtype == b.download {
			agg.Artifacts = appendArtifact(agg.Artifacts, e)
		}
		if e.TS.After(agg.LastActivity) {
			agg.LastActivity = e.TS
		}
	}

	out := make([]*model.ActorAggregate, 0, len(groups))
	for key, agg := range groups {
		agg.Score = scores[key]
		agg.Tier = b.classifier.Classify(agg.Score)
		out = append(out, agg)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// empty initializes the zero-event aggregate for an entity.
func (b *Builder) empty(id string) *model.Aggregate {
	return &model.Aggregate{
		EntityID: id,
		Tier:     model.TierNone,
		Counts:   make(map[string]int),
		Flags:    make(map[string]bool),
	}
}

// apply folds one event into the aggregate. Scoring is deferred to
// scoreFromCounts so the score stays a pure function of the counts.
func (b *Builder) apply(agg *model.Aggregate, e model.Event) {
	if b.scorer.Known(e.Subtype) {
		agg.Counts[e.Subtype]++
	}
	if _, high := b.highValue[e.Subtype]; high {
		agg.Flags[e.Subtype] = true
	}
	if e.Subtype == b.download {
		agg.Artifacts = appendArtifact(agg.Artifacts, e)
	}
	if e.TS.After(agg.LastActivity) {
		agg.LastActivity = e.TS
	}
}

// scoreFromCounts derives the total score from the per-subtype counts.
// Unknown subtypes never appear in Counts, and unknown weights are zero,
// so this equals summing weight(subtype) over the raw events.
func (b *Builder) scoreFromCounts(agg *model.Aggregate) int {
	total := 0
	for subtype, n := range agg.Counts {
		total += b.scorer.Weight(subtype) * n
	}
	return total
}

// appendArtifact extracts the artifact identifier from a download event
// and appends it if unseen. A stable file id is preferred; the file name
// is the fallback. Events missing both are tolerated and skipped.
func appendArtifact(artifacts []string, e model.Event) []string {
	id, _ := e.Metadata["file_id"].(string)
	if id == "" {
		id, _ = e.Metadata["file_name"].(string)
	}
	if id == "" {
		return artifacts
	}
	for _, existing := range artifacts {
		if existing == id {
			return artifacts
		}
	}
	return append(artifacts, id)
}
