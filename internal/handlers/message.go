package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"popin-backend/internal/middleware"
	"popin-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// MessageHandler handles direct message HTTP requests
type MessageHandler struct {
	messageService *services.MessageService
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(messageService *services.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// SendMessageRequest represents the request body for sending a message
type SendMessageRequest struct {
	ReceiverID string `json:"receiver_id" validate:"required"`
	Content    string `json:"content" validate:"required,max=4000"`
}

// Send handles POST /api/v1/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req SendMessageRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	msg, err := h.messageService.Send(r.Context(), userID, req.ReceiverID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFriends):
			respondError(w, err.Error(), http.StatusForbidden)
		case errors.Is(err, services.ErrEmptyMessage):
			respondError(w, err.Error(), http.StatusBadRequest)
		default:
			log.Error().Err(err).Str("sender_id", userID).Msg("Failed to send message")
			respondError(w, "Failed to send message", http.StatusInternalServerError)
		}
		return
	}
	respondJSON(w, http.StatusCreated, msg)
}

// ListConversations handles GET /api/v1/conversations
func (h *MessageHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	convs, err := h.messageService.ListConversations(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list conversations")
		respondError(w, "Failed to list conversations", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, convs)
}

// ListMessages handles GET /api/v1/conversations/{friend_id}/messages?before=&limit=
func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	friendID := chi.URLParam(r, "friend_id")

	var before time.Time
	if v := r.URL.Query().Get("before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, "Invalid before parameter", http.StatusBadRequest)
			return
		}
		before = t
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, "Invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = n
	}

	msgs, err := h.messageService.ListMessages(r.Context(), userID, friendID, before, limit)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list messages")
		respondError(w, "Failed to list messages", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, msgs)
}

// MarkRead handles POST /api/v1/conversations/{friend_id}/read
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	friendID := chi.URLParam(r, "friend_id")

	if err := h.messageService.MarkRead(r.Context(), userID, friendID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to mark conversation read")
		respondError(w, "Failed to mark conversation read", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
