// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strings"
)

// ActorsHandler handles the per-actor view of a single entity.
type ActorsHandler struct {
	deps EngagementDependencies
}

// NewActorsHandler creates a new actors handler.
func NewActorsHandler(deps EngagementDependencies) *ActorsHandler {
	return &ActorsHandler{deps: deps}
}

// HandleGetActors handles GET /engagement/{entity_id}/actors requests.
// Results are ordered by descending score.
func (h *ActorsHandler) HandleGetActors(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_actors"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/engagement/")
	entityID, rest, ok := strings.Cut(path, "/")
	if !ok || entityID == "" || rest != "actors" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	actors, err := h.deps.ActorEngagement(r.Context(), entityID)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "could_not_refresh", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, actors)
}
