package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"popin-backend/internal/models"
	"popin-backend/internal/storage"
)

// NotificationStore handles database operations for notifications
type NotificationStore struct {
	db *sql.DB
}

// Create persists a new notification
func (s *NotificationStore) Create(ctx context.Context, n *models.Notification) error {
	data, err := json.Marshal(n.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal notification data: %w", err)
	}
	query := `
		INSERT INTO notifications (id, user_id, type, title, message, data, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		n.ID, n.UserID, n.Type, n.Title, n.Message, string(data), n.Read, toMillis(n.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// ListByUser retrieves a user's notifications, newest first
func (s *NotificationStore) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, user_id, type, title, message, data, is_read, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		var n models.Notification
		var data string
		var created int64
		err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &data, &n.Read, &created)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &n.Data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal notification data: %w", err)
		}
		n.CreatedAt = fromMillis(created)
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}

// MarkRead marks one notification as read
func (s *NotificationStore) MarkRead(ctx context.Context, id, userID string) error {
	query := `UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?`
	result, err := s.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// MarkAllRead marks all of a user's notifications as read
func (s *NotificationStore) MarkAllRead(ctx context.Context, userID string) error {
	query := `UPDATE notifications SET is_read = 1 WHERE user_id = ?`
	if _, err := s.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

// Delete deletes one notification
func (s *NotificationStore) Delete(ctx context.Context, id, userID string) error {
	query := `DELETE FROM notifications WHERE id = ? AND user_id = ?`
	result, err := s.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
