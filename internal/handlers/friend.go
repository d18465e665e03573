package handlers

import (
	"context"
	"errors"
	"net/http"

	"popin-backend/internal/middleware"
	"popin-backend/internal/services"
	"popin-backend/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// FriendHandler handles friend request and friendship HTTP requests
type FriendHandler struct {
	friendService *services.FriendService
}

// NewFriendHandler creates a new friend handler
func NewFriendHandler(friendService *services.FriendService) *FriendHandler {
	return &FriendHandler{friendService: friendService}
}

// SendRequestRequest represents the request body for sending a friend request
type SendRequestRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// SendRequest handles POST /api/v1/friends/requests
func (h *FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req SendRequestRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	fr, err := h.friendService.SendRequest(r.Context(), userID, req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			respondError(w, "User not found", http.StatusNotFound)
		case errors.Is(err, services.ErrSelfRequest),
			errors.Is(err, services.ErrAlreadyFriends),
			errors.Is(err, services.ErrRequestPending):
			respondError(w, err.Error(), http.StatusConflict)
		default:
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to send friend request")
			respondError(w, "Failed to send friend request", http.StatusInternalServerError)
		}
		return
	}

	log.Info().
		Str("sender_id", fr.SenderID).
		Str("receiver_id", fr.ReceiverID).
		Msg("Friend request sent")

	respondJSON(w, http.StatusCreated, fr)
}

// Accept handles POST /api/v1/friends/requests/{request_id}/accept
func (h *FriendHandler) Accept(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	requestID := chi.URLParam(r, "request_id")

	friendship, err := h.friendService.Accept(r.Context(), requestID, userID)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			respondError(w, "Request not found", http.StatusNotFound)
		case errors.Is(err, services.ErrNotRequestParty):
			respondError(w, err.Error(), http.StatusForbidden)
		default:
			log.Error().Err(err).Str("request_id", requestID).Msg("Failed to accept friend request")
			respondError(w, "Failed to accept friend request", http.StatusInternalServerError)
		}
		return
	}
	respondJSON(w, http.StatusOK, friendship)
}

// Decline handles POST /api/v1/friends/requests/{request_id}/decline
func (h *FriendHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.deleteRequest(w, r, h.friendService.Decline)
}

// Cancel handles DELETE /api/v1/friends/requests/{request_id}
func (h *FriendHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.deleteRequest(w, r, h.friendService.Cancel)
}

func (h *FriendHandler) deleteRequest(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, requestID, userID string) error) {
	userID := middleware.GetUserID(r.Context())
	requestID := chi.URLParam(r, "request_id")

	if err := fn(r.Context(), requestID, userID); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			respondError(w, "Request not found", http.StatusNotFound)
		case errors.Is(err, services.ErrNotRequestParty):
			respondError(w, err.Error(), http.StatusForbidden)
		default:
			log.Error().Err(err).Str("request_id", requestID).Msg("Failed to delete friend request")
			respondError(w, "Failed to delete friend request", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListRequests handles GET /api/v1/friends/requests
func (h *FriendHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	reqs, err := h.friendService.ListRequests(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list friend requests")
		respondError(w, "Failed to list friend requests", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, reqs)
}

// ListFriends handles GET /api/v1/friends
func (h *FriendHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	friends, err := h.friendService.ListFriends(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list friends")
		respondError(w, "Failed to list friends", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, friends)
}

// RemoveFriend handles DELETE /api/v1/friends/{friend_id}
func (h *FriendHandler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	friendID := chi.URLParam(r, "friend_id")

	if err := h.friendService.RemoveFriend(r.Context(), userID, friendID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, "Friendship not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to remove friend")
		respondError(w, "Failed to remove friend", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
