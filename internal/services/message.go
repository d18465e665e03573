package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"popin-backend/internal/models"
	"popin-backend/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNotFriends is returned when messaging a user who is not a friend
	ErrNotFriends = errors.New("users are not friends")
	// ErrEmptyMessage is returned for blank message content
	ErrEmptyMessage = errors.New("message content is empty")
)

// previewText shortens content for a notification body, never splitting a
// multi-byte rune at the cut
func previewText(content string) string {
	const max = 80
	if len(content) <= max {
		return content
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}

// ConversationID derives the deterministic id of a two-party thread: the
// participant ids sorted lexicographically and joined with "_".
func ConversationID(userA, userB string) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return userA + "_" + userB
}

// MessageService handles direct messages between friends
type MessageService struct {
	messageRepo   storage.MessageStore
	friendRepo    storage.FriendStore
	userRepo      storage.UserStore
	hub           *Hub
	notifications *NotificationService
}

// NewMessageService creates a new message service
func NewMessageService(
	messageRepo storage.MessageStore,
	friendRepo storage.FriendStore,
	userRepo storage.UserStore,
	hub *Hub,
	notifications *NotificationService,
) *MessageService {
	return &MessageService{
		messageRepo:   messageRepo,
		friendRepo:    friendRepo,
		userRepo:      userRepo,
		hub:           hub,
		notifications: notifications,
	}
}

// Send persists a message and delivers it: over the WebSocket when the
// receiver is online, as a notification otherwise
func (s *MessageService) Send(ctx context.Context, senderID, receiverID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	friends, err := s.friendRepo.AreFriends(ctx, senderID, receiverID)
	if err != nil {
		return nil, fmt.Errorf("failed to check friendship: %w", err)
	}
	if !friends {
		return nil, ErrNotFriends
	}

	msg := &models.Message{
		ID:             uuid.New().String(),
		ConversationID: ConversationID(senderID, receiverID),
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}

	if s.hub.IsOnline(receiverID) {
		if err := s.hub.SendToUser(receiverID, Frame{Type: "message", Data: msg}); err != nil {
			log.Error().Err(err).Str("receiver_id", receiverID).Msg("Failed to push message")
		}
		return msg, nil
	}

	sender, err := s.userRepo.GetByID(ctx, senderID)
	if err != nil {
		return msg, nil
	}
	if _, err := s.notifications.Notify(ctx, receiverID, models.NotificationMessage,
		fmt.Sprintf("Message from %s", sender.Username),
		previewText(content),
		map[string]any{"sender_id": senderID, "message_id": msg.ID},
	); err != nil {
		log.Error().Err(err).Str("receiver_id", receiverID).Msg("Failed to notify message")
	}

	return msg, nil
}

// ListConversations retrieves the caller's conversation summaries
func (s *MessageService) ListConversations(ctx context.Context, userID string) ([]*models.Conversation, error) {
	return s.messageRepo.ListConversations(ctx, userID)
}

// ListMessages retrieves messages between the caller and a friend, newest
// first, strictly older than before
func (s *MessageService) ListMessages(ctx context.Context, userID, friendID string, before time.Time, limit int) ([]*models.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if before.IsZero() {
		before = time.Now().UTC().Add(time.Minute)
	}
	return s.messageRepo.ListByConversation(ctx, ConversationID(userID, friendID), before, limit)
}

// MarkRead marks the caller's side of a conversation as read
func (s *MessageService) MarkRead(ctx context.Context, userID, friendID string) error {
	return s.messageRepo.MarkConversationRead(ctx, ConversationID(userID, friendID), userID)
}
