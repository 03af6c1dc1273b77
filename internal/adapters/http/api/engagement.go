// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/flexcrm/engage/internal/domain/model"
)

// EngagementDependencies defines the interface for aggregate reads.
type EngagementDependencies interface {
	Engagement(ctx context.Context, entityIDs []string) (map[string]*model.Aggregate, error)
	ActorEngagement(ctx context.Context, entityID string) ([]*model.ActorAggregate, error)
}

// EngagementHandler handles per-entity aggregate requests.
type EngagementHandler struct {
	deps EngagementDependencies
}

// NewEngagementHandler creates a new engagement handler.
func NewEngagementHandler(deps EngagementDependencies) *EngagementHandler {
	return &EngagementHandler{deps: deps}
}

// HandleGetEngagement handles GET /engagement?entity_ids=a,b requests.
// An empty id list yields an empty object without querying the store.
func (h *EngagementHandler) HandleGetEngagement(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_engagement"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	ids := splitIDs(r.URL.Query().Get("entity_ids"))
	aggs, err := h.deps.Engagement(r.Context(), ids)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "could_not_refresh", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, aggs)
}

// splitIDs parses a comma-separated id list, dropping empty entries.
func splitIDs(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}
