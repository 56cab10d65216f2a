package apiserver

import (
	"net/http"

	"gobear/internal/config"
	"gobear/internal/middleware"
	"gobear/internal/models"
	"gobear/internal/services"
	"gobear/internal/ws"
)

// NotificationHandler handles the notification list, read-marking and the
// realtime push socket.
type NotificationHandler struct {
	notificationService services.NotificationService
	hub                 *ws.Hub
	wsCfg               config.WebSocketConfig
}

// NewNotificationHandler creates a new NotificationHandler. hub may be nil
// when websocket push is disabled.
func NewNotificationHandler(ns services.NotificationService, hub *ws.Hub, wsCfg config.WebSocketConfig) *NotificationHandler {
	return &NotificationHandler{notificationService: ns, hub: hub, wsCfg: wsCfg}
}

// ListNotificationsHandler handles GET /api/v1/notifications
func (h *NotificationHandler) ListNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "failed to get user ID from context", http.StatusUnauthorized)
		return
	}

	notifications, err := h.notificationService.ListNotifications(r.Context(), callerID, queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	writeJSONResponse(w, http.StatusOK, notifications)
}

// MarkReadHandler handles POST /api/v1/notifications/{notificationID}/read
func (h *NotificationHandler) MarkReadHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "failed to get user ID from context", http.StatusUnauthorized)
		return
	}
	notificationID, err := pathID(r, "notificationID")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.notificationService.MarkRead(r.Context(), callerID, notificationID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "marked read"})
}

// NotificationSocketHandler handles GET /api/v1/notifications/ws and upgrades
// the connection for realtime push.
func (h *NotificationHandler) NotificationSocketHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "failed to get user ID from context", http.StatusUnauthorized)
		return
	}
	if h.hub == nil {
		writeJSONError(w, "realtime notifications are disabled", http.StatusServiceUnavailable)
		return
	}

	ws.ServeNotificationSocket(h.hub, callerID, w, r, h.wsCfg)
}
