package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"popin-backend/internal/storage"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Frame represents a typed message pushed to a client over the WebSocket
type Frame struct {
	Type    string `json:"type"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// Presence is the payload of a presence frame
type Presence struct {
	UserID string `json:"user_id"`
	Online bool   `json:"online"`
}

// Hub manages WebSocket connections, one per user
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*websocket.Conn
	friends     storage.FriendStore
}

// NewHub creates a new WebSocket hub
func NewHub(friends storage.FriendStore) *Hub {
	return &Hub{
		connections: make(map[string]*websocket.Conn),
		friends:     friends,
	}
}

// Register registers a new WebSocket connection for a user, replacing any
// existing one
func (h *Hub) Register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	if existing, exists := h.connections[userID]; exists {
		existing.Close()
	}
	h.connections[userID] = conn
	h.mu.Unlock()

	log.Info().Str("user_id", userID).Msg("WebSocket connection registered")
}

// Unregister removes a user's WebSocket connection. The conn must be the
// one being torn down: a handler whose connection was already replaced must
// not remove the replacement.
func (h *Hub) Unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	if current, exists := h.connections[userID]; exists && current == conn {
		conn.Close()
		delete(h.connections, userID)
		log.Info().Str("user_id", userID).Msg("WebSocket connection unregistered")
	}
	h.mu.Unlock()
}

// SendToUser sends a frame to a specific user
func (h *Hub) SendToUser(userID string, frame Frame) error {
	h.mu.RLock()
	conn, exists := h.connections[userID]
	h.mu.RUnlock()

	if !exists {
		return fmt.Errorf("user %s is not connected", userID)
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.Unregister(userID, conn)
		return fmt.Errorf("failed to send frame: %w", err)
	}

	return nil
}

// IsOnline checks if a user is online
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.connections[userID]
	return exists
}

// BroadcastPresence notifies a user's online friends that the user came
// online or went offline
func (h *Hub) BroadcastPresence(ctx context.Context, userID string, online bool) {
	friendIDs, err := h.friends.ListFriendIDs(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list friends for presence")
		return
	}

	frame := Frame{
		Type: "presence",
		Data: Presence{UserID: userID, Online: online},
	}
	for _, friendID := range friendIDs {
		if !h.IsOnline(friendID) {
			continue
		}
		if err := h.SendToUser(friendID, frame); err != nil {
			log.Error().Err(err).Str("friend_id", friendID).Msg("Failed to send presence")
		}
	}
}
