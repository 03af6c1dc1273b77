// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/flexcrm/engage/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle
// keeps the handler layer loosely coupled to the service package.
type Dependencies interface {
	EventDependencies
	EngagementDependencies
	ActivityDependencies
	NotificationDependencies
	PreferenceDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler        *HealthHandler
	statsHandler         *StatsHandler
	eventsHandler        *EventsHandler
	engagementHandler    *EngagementHandler
	actorsHandler        *ActorsHandler
	activityHandler      *ActivityHandler
	notificationsHandler *NotificationsHandler
	preferencesHandler   *PreferencesHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxRecentLimit int) *Server {
	return &Server{
		healthHandler:        NewHealthHandler(),
		statsHandler:         NewStatsHandler(statsProvider),
		eventsHandler:        NewEventsHandler(deps),
		engagementHandler:    NewEngagementHandler(deps),
		actorsHandler:        NewActorsHandler(deps),
		activityHandler:      NewActivityHandler(deps, maxRecentLimit),
		notificationsHandler: NewNotificationsHandler(deps),
		preferencesHandler:   NewPreferencesHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("/engagement", MetricsMiddleware(s.engagementHandler.HandleGetEngagement, "engagement"))
	mux.HandleFunc("/engagement/", MetricsMiddleware(s.actorsHandler.HandleGetActors, "engagement_actors"))
	mux.HandleFunc("/activity/recent", MetricsMiddleware(s.activityHandler.HandleGetRecent, "activity_recent"))
	mux.HandleFunc("/notifications", MetricsMiddleware(s.notificationsHandler.HandleNotifications, "notifications"))
	mux.HandleFunc("/notifications/", MetricsMiddleware(s.notificationsHandler.HandleNotificationAction, "notification_action"))
	mux.HandleFunc("/preferences/", MetricsMiddleware(s.preferencesHandler.HandlePreferences, "preferences"))
}

// eventRequest mirrors the wire schema for POST /events.
type eventRequest struct {
	EventID   string         `json:"event_id"`
	EntityID  string         `json:"entity_id"`
	Subtype   string         `json:"subtype"`
	ActorID   string         `json:"actor_id"`
	ActorName string         `json:"actor_name"`
	Metadata  map[string]any `json:"metadata"`
	TS        string         `json:"ts"`
}

func (e eventRequest) validate() error {
	switch {
	case strings.TrimSpace(e.EntityID) == "":
		return errors.New("missing entity_id")
	case strings.TrimSpace(e.Subtype) == "":
		return errors.New("missing subtype")
	}
	if e.TS != "" {
		if _, err := time.Parse(time.RFC3339, e.TS); err != nil {
			return errors.New("invalid ts; must be RFC3339")
		}
	}
	return nil
}

func (e eventRequest) toModel() model.Event {
	ev := model.Event{
		EventID:   e.EventID,
		EntityID:  e.EntityID,
		Subtype:   e.Subtype,
		ActorID:   e.ActorID,
		ActorName: e.ActorName,
		Metadata:  e.Metadata,
	}
	if e.TS != "" {
		ev.TS, _ = time.Parse(time.RFC3339, e.TS)
	}
	return ev
}

type ackResponse struct {
	Status    string `json:"status"`
	EventID   string `json:"event_id,omitempty"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
