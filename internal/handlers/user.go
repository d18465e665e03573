package handlers

import (
	"errors"
	"net/http"

	"popin-backend/internal/middleware"
	"popin-backend/internal/services"
	"popin-backend/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// UserHandler handles user profile HTTP requests
type UserHandler struct {
	userService   *services.UserService
	avatarService *services.AvatarService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService, avatarService *services.AvatarService) *UserHandler {
	return &UserHandler{
		userService:   userService,
		avatarService: avatarService,
	}
}

// Me handles GET /api/v1/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		respondError(w, "Failed to load profile", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// Get handles GET /api/v1/users/{user_id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, "User not found", http.StatusNotFound)
			return
		}
		respondError(w, "Failed to load user", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// Search handles GET /api/v1/users/search?q=
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	query := r.URL.Query().Get("q")

	users, err := h.userService.Search(r.Context(), userID, query)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("Failed to search users")
		respondError(w, "Failed to search users", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

// PushTokenRequest represents the request body for push token registration
type PushTokenRequest struct {
	PushToken *string `json:"push_token"`
}

// UpdatePushToken handles PUT /api/v1/users/me/push-token
func (h *UserHandler) UpdatePushToken(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req PushTokenRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.userService.UpdatePushToken(r.Context(), userID, req.PushToken); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to update push token")
		respondError(w, "Failed to update push token", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AvatarRequest represents the request body for avatar uploads
type AvatarRequest struct {
	ContentType string `json:"content_type" validate:"required"`
}

// AvatarUploadURL handles POST /api/v1/users/me/avatar
func (h *UserHandler) AvatarUploadURL(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req AvatarRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.avatarService.GetUploadURL(r.Context(), userID, req.ContentType)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to create avatar upload URL")
		respondError(w, "Failed to create upload URL", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}
