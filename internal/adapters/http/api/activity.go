// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/flexcrm/engage/internal/domain/model"
)

// ActivityDependencies defines the interface for recent-activity reads.
type ActivityDependencies interface {
	RecentActivity(ctx context.Context, limit int) ([]model.Event, error)
}

// ActivityHandler handles the recent-activity feed.
type ActivityHandler struct {
	deps     ActivityDependencies
	maxLimit int
}

// NewActivityHandler creates a new activity handler.
func NewActivityHandler(deps ActivityDependencies, maxLimit int) *ActivityHandler {
	return &ActivityHandler{deps: deps, maxLimit: maxLimit}
}

// activityEntry mirrors the read shape of a single activity event.
type activityEntry struct {
	EventID   string         `json:"event_id"`
	EntityID  string         `json:"entity_id"`
	Subtype   string         `json:"subtype"`
	ActorID   string         `json:"actor_id,omitempty"`
	ActorName string         `json:"actor_name,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	TS        time.Time      `json:"ts"`
}

// HandleGetRecent handles GET /activity/recent?limit=N requests.
func (h *ActivityHandler) HandleGetRecent(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_recent_activity"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	limitStr := r.URL.Query().Get("limit")
	n, err := strconv.Atoi(limitStr)
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}
	events, err := h.deps.RecentActivity(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	out := make([]activityEntry, len(events))
	for i, e := range events {
		out[i] = activityEntry{
			EventID:   e.EventID,
			EntityID:  e.EntityID,
			Subtype:   e.Subtype,
			ActorID:   e.ActorID,
			ActorName: e.ActorName,
			Metadata:  e.Metadata,
			TS:        e.TS,
		}
	}
	writeJSON(w, http.StatusOK, out)
}
