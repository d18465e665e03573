package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"popin-backend/internal/middleware"
	"popin-backend/internal/services"
	"popin-backend/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// NotificationHandler handles notification HTTP requests
type NotificationHandler struct {
	notificationService *services.NotificationService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// List handles GET /api/v1/notifications?limit=
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, "Invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = n
	}

	notifications, err := h.notificationService.List(r.Context(), userID, limit)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list notifications")
		respondError(w, "Failed to list notifications", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, notifications)
}

// MarkRead handles POST /api/v1/notifications/{notification_id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	notificationID := chi.URLParam(r, "notification_id")

	if err := h.notificationService.MarkRead(r.Context(), notificationID, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, "Notification not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("notification_id", notificationID).Msg("Failed to mark notification read")
		respondError(w, "Failed to mark notification read", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead handles POST /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.notificationService.MarkAllRead(r.Context(), userID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to mark notifications read")
		respondError(w, "Failed to mark notifications read", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/v1/notifications/{notification_id}
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	notificationID := chi.URLParam(r, "notification_id")

	if err := h.notificationService.Delete(r.Context(), notificationID, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, "Notification not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("notification_id", notificationID).Msg("Failed to delete notification")
		respondError(w, "Failed to delete notification", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
