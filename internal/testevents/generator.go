// Package testevents generates synthetic activity events for manual
// testing against a running instance.
package testevents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Subtype mix used by the generator, weighted toward views.
var subtypes = []string{
	"flex_deal_viewed",
	"flex_deal_viewed",
	"flex_deal_viewed",
	"flex_question_asked",
	"flex_file_downloaded",
	"flex_file_downloaded",
	"flex_meeting_requested",
	"flex_term_sheet_requested",
	"flex_nda_requested",
}

// Generator produces and submits random activity events.
type Generator struct {
	baseURL  string
	client   *http.Client
	rng      *rand.Rand
	entities []string
	actors   []string
}

// NewGenerator creates a Generator posting to baseURL.
func NewGenerator(baseURL string, dealCount, actorCount int, seed int64) *Generator {
	if dealCount < 1 {
		dealCount = 5
	}
	if actorCount < 1 {
		actorCount = 8
	}
	g := &Generator{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
		rng:     rand.New(rand.NewSource(seed)), //nolint:gosec // reproducible test data
	}
	for i := 0; i < dealCount; i++ {
		g.entities = append(g.entities, fmt.Sprintf("deal-%03d", i+1))
	}
	for i := 0; i < actorCount; i++ {
		g.actors = append(g.actors, fmt.Sprintf("lender-%03d", i+1))
	}
	return g
}

// Next builds one random event payload.
func (g *Generator) Next() map[string]any {
	subtype := subtypes[g.rng.Intn(len(subtypes))]
	actor := g.actors[g.rng.Intn(len(g.actors))]
	payload := map[string]any{
		"event_id":   uuid.NewString(),
		"entity_id":  g.entities[g.rng.Intn(len(g.entities))],
		"subtype":    subtype,
		"actor_id":   actor,
		"actor_name": "Lender " + actor,
		"ts":         time.Now().UTC().Format(time.RFC3339),
	}
	if subtype == "flex_file_downloaded" {
		payload["metadata"] = map[string]any{
			"file_id":   fmt.Sprintf("file-%03d", g.rng.Intn(20)+1),
			"file_name": "teaser.pdf",
		}
	}
	return payload
}

// Post submits one event to the running instance.
func (g *Generator) Post(ctx context.Context, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/events", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("event rejected with %d", resp.StatusCode)
	}
	return nil
}

// Run posts count events with the given delay between posts.
func (g *Generator) Run(ctx context.Context, count int, delay time.Duration) error {
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := g.Post(ctx, g.Next()); err != nil {
			return err
		}
		if delay > 0 {
			time.Sleep(delay)
		}
	}
	return nil
}
