package postgres

import (
	"context"
	"fmt"
	"time"

	"popin-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MessageStore handles database operations for direct messages
type MessageStore struct {
	db *pgxpool.Pool
}

// NewMessageStore creates a new message store
func NewMessageStore(db *pgxpool.Pool) *MessageStore {
	return &MessageStore{db: db}
}

// Create persists a new message
func (r *MessageStore) Create(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (id, conversation_id, sender_id, receiver_id, content, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		msg.ID, msg.ConversationID, msg.SenderID, msg.ReceiverID,
		msg.Content, msg.Read, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// ListByConversation retrieves messages in a conversation, newest first,
// strictly older than before
func (r *MessageStore) ListByConversation(ctx context.Context, conversationID string, before time.Time, limit int) ([]*models.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, receiver_id, content, is_read, created_at
		FROM messages
		WHERE conversation_id = $1 AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`
	rows, err := r.db.Query(ctx, query, conversationID, before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var msgs []*models.Message
	for rows.Next() {
		var msg models.Message
		err := rows.Scan(
			&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.ReceiverID,
			&msg.Content, &msg.Read, &msg.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, &msg)
	}
	return msgs, rows.Err()
}

// ListConversations retrieves the latest message and unread count per
// conversation the user participates in, newest first
func (r *MessageStore) ListConversations(ctx context.Context, userID string) ([]*models.Conversation, error) {
	query := `
		SELECT DISTINCT ON (m.conversation_id)
			m.id, m.conversation_id, m.sender_id, m.receiver_id, m.content, m.is_read, m.created_at,
			(SELECT COUNT(*) FROM messages u
			 WHERE u.conversation_id = m.conversation_id AND u.receiver_id = $1 AND u.is_read = FALSE)
		FROM messages m
		WHERE m.sender_id = $1 OR m.receiver_id = $1
		ORDER BY m.conversation_id, m.created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var convs []*models.Conversation
	for rows.Next() {
		var msg models.Message
		var unread int
		err := rows.Scan(
			&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.ReceiverID,
			&msg.Content, &msg.Read, &msg.CreatedAt, &unread,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
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
func (r *MessageStore) MarkConversationRead(ctx context.Context, conversationID, readerID string) error {
	query := `UPDATE messages SET is_read = TRUE WHERE conversation_id = $1 AND receiver_id = $2`
	if _, err := r.db.Exec(ctx, query, conversationID, readerID); err != nil {
		return fmt.Errorf("failed to mark conversation read: %w", err)
	}
	return nil
}
