package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"store-dashboard-api/internal/models"
	"store-dashboard-api/internal/session"
)

// SessionHandler manages the dashboard session lifecycle and serves the
// per-session notification state.
type SessionHandler struct {
	registry *session.Registry
	logger   *slog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(registry *session.Registry, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		registry: registry,
		logger:   logger,
	}
}

// StartSession handles POST /v1/dashboard/session. An optional sessionId in
// the body makes the call idempotent: restarting a running session is a
// no-op that returns the existing session.
func (h *SessionHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionId"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid JSON", nil)
			return
		}
	}

	sess, err := h.registry.StartSession(req.SessionID)
	if err != nil {
		h.logger.Error("Failed to start dashboard session", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, "session_error", "Failed to start session", nil)
		return
	}

	writeJSONResponse(w, http.StatusOK, models.SessionResponse{
		SessionID: sess.ID,
		StartedAt: sess.StartedAt.Format(time.RFC3339),
	})
}

// StopSession handles DELETE /v1/dashboard/session/{sessionId}.
func (h *SessionHandler) StopSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	if err := h.registry.StopSession(sessionID); err != nil {
		writeErrorResponse(w, http.StatusNotFound, "not_found", "Session not found", nil)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// GetNotifications handles GET /v1/dashboard/session/{sessionId}/notifications.
// Returns the session's full notification log in arrival order plus the
// badge state.
func (h *SessionHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	sess, ok := h.registry.Get(sessionID)
	if !ok {
		writeErrorResponse(w, http.StatusNotFound, "not_found", "Session not found", nil)
		return
	}

	notifications := sess.Engine.Notifications()
	writeJSONResponse(w, http.StatusOK, models.NotificationsResponse{
		SessionID:     sessionID,
		Notifications: notifications,
		Count:         len(notifications),
		BadgeVisible:  sess.Engine.BadgeVisible(),
	})
}

// ToggleBadge handles POST /v1/dashboard/session/{sessionId}/badge. Flips
// the badge without touching the notification log.
func (h *SessionHandler) ToggleBadge(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	sess, ok := h.registry.Get(sessionID)
	if !ok {
		writeErrorResponse(w, http.StatusNotFound, "not_found", "Session not found", nil)
		return
	}

	visible := sess.Engine.ToggleBadge()
	writeJSONResponse(w, http.StatusOK, map[string]bool{"badgeVisible": visible})
}
