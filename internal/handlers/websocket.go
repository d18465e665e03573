package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"popin-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // browser clients connect from any origin
	},
}

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub            *services.Hub
	userService    *services.UserService
	messageService *services.MessageService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	hub *services.Hub,
	userService *services.UserService,
	messageService *services.MessageService,
) *WebSocketHandler {
	return &WebSocketHandler{
		hub:            hub,
		userService:    userService,
		messageService: messageService,
	}
}

type inboundFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type sendMessagePayload struct {
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
}

type markReadPayload struct {
	FriendID string `json:"friend_id"`
}

// HandleWebSocket handles GET /ws?token=
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, "token required", http.StatusUnauthorized)
		return
	}

	userID, err := h.userService.ValidateJWT(token)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	ctx := r.Context()

	h.hub.Register(userID, conn)
	h.hub.BroadcastPresence(ctx, userID, true)
	defer func() {
		h.hub.Unregister(userID, conn)
		// A reconnect closes the old conn; only the handler owning the
		// live connection announces the user offline
		if !h.hub.IsOnline(userID) {
			h.hub.BroadcastPresence(context.Background(), userID, false)
		}
	}()

	log.Info().Str("user_id", userID).Msg("WebSocket connection established")

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			break
		}

		var frame inboundFrame
		if err := json.Unmarshal(messageBytes, &frame); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to parse WebSocket frame")
			h.sendError(userID, "Invalid frame format")
			continue
		}

		if err := h.handleFrame(ctx, userID, frame); err != nil {
			log.Error().Err(err).Str("user_id", userID).Str("type", frame.Type).Msg("Failed to handle frame")
			h.sendError(userID, err.Error())
		}
	}
}

// handleFrame processes incoming WebSocket frames
func (h *WebSocketHandler) handleFrame(ctx context.Context, userID string, frame inboundFrame) error {
	switch frame.Type {
	case "message":
		var p sendMessagePayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return err
		}
		msg, err := h.messageService.Send(ctx, userID, p.ReceiverID, p.Content)
		if err != nil {
			return err
		}
		// Echo to the sender so all their clients converge
		return h.hub.SendToUser(userID, services.Frame{Type: "message", Data: msg})
	case "read":
		var p markReadPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return err
		}
		return h.messageService.MarkRead(ctx, userID, p.FriendID)
	default:
		return h.hub.SendToUser(userID, services.Frame{Type: "error", Message: "Unknown frame type"})
	}
}

func (h *WebSocketHandler) sendError(userID, message string) {
	if err := h.hub.SendToUser(userID, services.Frame{Type: "error", Message: message}); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to send error frame")
	}
}
