package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/services"
)

type NotificationHandlers struct {
	notifications *services.NotificationService
	logger        *zap.Logger
}

func NewNotificationHandlers(notifications *services.NotificationService, logger *zap.Logger) *NotificationHandlers {
	return &NotificationHandlers{notifications: notifications, logger: logger}
}

func (h *NotificationHandlers) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	limit, offset := pagination(r)

	notifications, err := h.notifications.List(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if notifications == nil {
		notifications = []domain.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"notifications": notifications})
}

func (h *NotificationHandlers) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	notificationID := chi.URLParam(r, "notificationID")

	if err := h.notifications.MarkRead(r.Context(), userID, notificationID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}
