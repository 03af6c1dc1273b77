// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/flexcrm/engage/internal/domain/model"
	"github.com/flexcrm/engage/internal/domain/notify"
)

// NotificationDependencies defines the interface for the notification
// lifecycle.
type NotificationDependencies interface {
	CreateNotification(ctx context.Context, n model.Notification) (model.Notification, error)
	NotificationsFor(ctx context.Context, userID string, status model.NotificationStatus) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	DecideNotification(ctx context.Context, id string, decision model.Decision) (model.Notification, error)
}

// NotificationsHandler handles notification listing, creation, read
// marks and decisions.
type NotificationsHandler struct {
	deps NotificationDependencies
}

// NewNotificationsHandler creates a new notifications handler.
func NewNotificationsHandler(deps NotificationDependencies) *NotificationsHandler {
	return &NotificationsHandler{deps: deps}
}

// createRequest mirrors the wire schema for POST /notifications.
type createRequest struct {
	EntityID    string `json:"entity_id"`
	Subtype     string `json:"subtype"`
	Message     string `json:"message"`
	ActorEmail  string `json:"actor_email"`
	ActorName   string `json:"actor_name"`
	RelatedName string `json:"related_name"`
}

// decisionRequest mirrors the wire schema for the decision action.
type decisionRequest struct {
	Decision string `json:"decision"`
}

// HandleNotifications handles GET /notifications?user_id=&status= and
// POST /notifications.
func (h *NotificationsHandler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	const op = "api.notifications"
	switch r.Method {
	case http.MethodGet:
		userID := r.URL.Query().Get("user_id")
		if userID == "" {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		status := model.NotificationStatus(r.URL.Query().Get("status"))
		list, err := h.deps.NotificationsFor(r.Context(), userID, status)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusOK, list)
	case http.MethodPost:
		var req createRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		if req.EntityID == "" || req.Subtype == "" {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		n, err := h.deps.CreateNotification(r.Context(), model.Notification{
			EntityID:    req.EntityID,
			Subtype:     req.Subtype,
			Message:     req.Message,
			ActorEmail:  req.ActorEmail,
			ActorName:   req.ActorName,
			RelatedName: req.RelatedName,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusCreated, n)
	default:
		http.NotFound(w, r)
	}
}

// HandleNotificationAction handles POST /notifications/{id}/read and
// POST /notifications/{id}/decision.
func (h *NotificationsHandler) HandleNotificationAction(w http.ResponseWriter, r *http.Request) {
	const op = "api.notification_action"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/notifications/")
	id, action, ok := strings.Cut(path, "/")
	if !ok || id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	switch action {
	case "read":
		if err := h.deps.MarkNotificationRead(r.Context(), id); err != nil {
			writeNotifyError(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": string(model.StatusRead)})
	case "decision":
		var req decisionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		n, err := h.deps.DecideNotification(r.Context(), id, model.Decision(req.Decision))
		if err != nil {
			writeNotifyError(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, n)
	default:
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
	}
}

// writeNotifyError translates notification lifecycle errors to status
// codes.
func writeNotifyError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, notify.ErrAlreadyDecided):
		writeError(w, http.StatusConflict, "already_decided", Wrap(op, err))
	case errors.Is(err, notify.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
	case errors.Is(err, notify.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
