// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// PreferenceDependencies defines the interface for the per-user
// notification toggles.
type PreferenceDependencies interface {
	Preferences(ctx context.Context, userID string) (map[string]bool, error)
	SetPreferences(ctx context.Context, userID string, prefs map[string]bool) error
}

// PreferencesHandler handles reading and replacing a user's flat
// boolean preference map.
type PreferencesHandler struct {
	deps PreferenceDependencies
}

// NewPreferencesHandler creates a new preferences handler.
func NewPreferencesHandler(deps PreferenceDependencies) *PreferencesHandler {
	return &PreferencesHandler{deps: deps}
}

// HandlePreferences handles GET and PUT /preferences/{user_id}.
func (h *PreferencesHandler) HandlePreferences(w http.ResponseWriter, r *http.Request) {
	const op = "api.preferences"
	userID := strings.TrimPrefix(r.URL.Path, "/preferences/")
	if userID == "" || strings.Contains(userID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	switch r.Method {
	case http.MethodGet:
		prefs, err := h.deps.Preferences(r.Context(), userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusOK, prefs)
	case http.MethodPut:
		var prefs map[string]bool
		if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		if err := h.deps.SetPreferences(r.Context(), userID, prefs); err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusOK, prefs)
	default:
		http.NotFound(w, r)
	}
}
