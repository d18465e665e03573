package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"popin-backend/internal/models"
)

// MessageStore handles database operations for direct messages
type MessageStore struct {
	db *sql.DB
}

// Create persists a new message
func (s *MessageStore) Create(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (id, conversation_id, sender_id, receiver_id, content, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.ConversationID, msg.SenderID, msg.ReceiverID,
		msg.Content, msg.Read, toMillis(msg.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// ListByConversation retrieves messages in a conversation, newest first,
// strictly older than before
func (s *MessageStore) ListByConversation(ctx context.Context, conversationID string, before time.Time, limit int) ([]*models.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, receiver_id, content, is_read, created_at
		FROM messages
		WHERE conversation_id = ? AND created_at < ?
		ORDER BY created_at DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, conversationID, toMillis(before), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var msgs []*models.Message
	for rows.Next() {
		var msg models.Message
		var created int64
		err := rows.Scan(
			&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.ReceiverID,
			&msg.Content, &msg.Read, &created,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.CreatedAt = fromMillis(created)
		msgs = append(msgs, &msg)
	}
	return msgs, rows.Err()
}

// ListConversations retrieves the latest message and unread count per
// conversation the user participates in, newest first
func (s *MessageStore) ListConversations(ctx context.Context, userID string) ([]*models.Conversation, error) {
	query := `
		SELECT m.id, m.conversation_id, m.sender_id, m.receiver_id, m.content, m.is_read, m.created_at,
			(SELECT COUNT(*) FROM messages u
			 WHERE u.conversation_id = m.conversation_id AND u.receiver_id = ? AND u.is_read = 0)
		FROM messages m
		WHERE m.id IN (
			SELECT (SELECT x.id FROM messages x
			        WHERE x.conversation_id = c.conversation_id
			        ORDER BY x.created_at DESC, x.id DESC LIMIT 1)
			FROM (SELECT DISTINCT conversation_id FROM messages
			      WHERE sender_id = ? OR receiver_id = ?) c
		)
		ORDER BY m.created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var convs []*models.Conversation
	for rows.Next() {
		var msg models.Message
		var created int64
		var unread int
		err := rows.Scan(
			&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.ReceiverID,
			&msg.Content, &msg.Read, &created, &unread,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		msg.CreatedAt = fromMillis(created)
		friendID := msg.SenderID
		if friendID == userID {
			friendID = msg.ReceiverID
		}
		convs = append(convs, &models.Conversation{
			ConversationID: msg.ConversationID,
			FriendID:       friendID,
			LastMessage:    &msg,
			UnreadCount:    unread,
		})
	}
	return convs, rows.Err()
}

// MarkConversationRead marks every message addressed to the reader in a
// conversation as read
func (s *MessageStore) MarkConversationRead(ctx context.Context, conversationID, readerID string) error {
	query := `UPDATE messages SET is_read = 1 WHERE conversation_id = ? AND receiver_id = ?`
	if _, err := s.db.ExecContext(ctx, query, conversationID, readerID); err != nil {
		return fmt.Errorf("failed to mark conversation read: %w", err)
	}
	return nil
}
