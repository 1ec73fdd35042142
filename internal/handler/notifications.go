package handler

import (
	"log/slog"
	"net/http"

	"codeshare/internal/domain/services"
	"codeshare/internal/handler/sse"
	"codeshare/internal/httputil"
)

// NotificationHandler handles share notification HTTP requests
type NotificationHandler struct {
	sharing   services.SharingService
	sseConfig *sse.Config
	logger    *slog.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(sharing services.SharingService, sseConfig *sse.Config, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		sharing:   sharing,
		sseConfig: sseConfig,
		logger:    logger,
	}
}

// ListNotifications returns the user's notifications, newest first
// GET /api/notifications
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	user := httputil.GetUser(r)

	notifications, err := h.sharing.ListNotifications(r.Context(), user)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, notifications)
}

// MarkRead flips a notification's read flag
// POST /api/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user := httputil.GetUser(r)

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "notification ID is required")
		return
	}

	if err := h.sharing.MarkRead(r.Context(), user, id); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// StreamNotifications streams the user's notification set over SSE. The
// first event carries current state; later events follow every notification
// commit affecting the user.
// GET /api/notifications/stream
func (h *NotificationHandler) StreamNotifications(w http.ResponseWriter, r *http.Request) {
	user := httputil.GetUser(r)

	sub, err := h.sharing.SubscribeNotifications(r.Context(), user)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	defer sub.Cancel()

	writer, ok := sse.NewEventWriter(w, "notifications")
	if !ok {
		httputil.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	keepAlive := sse.NewTickerKeepAlive(h.sseConfig.KeepAliveInterval)
	stopped := keepAlive.Start(writer, h.logger)
	defer keepAlive.Stop()

	h.logger.Debug("notification stream established", "user_id", user.ID)

	for {
		select {
		case notifications, open := <-sub.Updates():
			if !open {
				return
			}
			if err := writer.WriteEvent("notifications", notifications); err != nil {
				h.logger.Debug("notification stream write failed", "user_id", user.ID, "error", err)
				return
			}
		case <-stopped:
			return
		case <-r.Context().Done():
			return
		}
	}
}
