package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"popin-backend/internal/models"
	"popin-backend/internal/storage"
)

// FriendStore handles database operations for friend requests and friendships
type FriendStore struct {
	db *sql.DB
}

// CreateRequest creates a new pending friend request
func (s *FriendStore) CreateRequest(ctx context.Context, req *models.FriendRequest) error {
	query := `
		INSERT INTO friend_requests (id, sender_id, receiver_id, created_at)
		VALUES (?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query, req.ID, req.SenderID, req.ReceiverID, toMillis(req.CreatedAt))
	if err != nil {
		if mapped := mapError(err); errors.Is(mapped, storage.ErrDuplicate) {
			return mapped
		}
		return fmt.Errorf("failed to create friend request: %w", err)
	}
	return nil
}

// GetRequest retrieves a friend request by ID
func (s *FriendStore) GetRequest(ctx context.Context, id string) (*models.FriendRequest, error) {
	query := `SELECT id, sender_id, receiver_id, created_at FROM friend_requests WHERE id = ?`
	var req models.FriendRequest
	var created int64
	err := s.db.QueryRowContext(ctx, query, id).Scan(&req.ID, &req.SenderID, &req.ReceiverID, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get friend request: %w", err)
	}
	req.CreatedAt = fromMillis(created)
	return &req, nil
}

// DeleteRequest deletes a friend request by ID
func (s *FriendStore) DeleteRequest(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM friend_requests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete friend request: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete friend request: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *FriendStore) listRequests(ctx context.Context, query, userID string) ([]*models.FriendRequest, error) {
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friend requests: %w", err)
	}
	defer rows.Close()

	var reqs []*models.FriendRequest
	for rows.Next() {
		var req models.FriendRequest
		var created int64
		if err := rows.Scan(&req.ID, &req.SenderID, &req.ReceiverID, &created); err != nil {
			return nil, fmt.Errorf("failed to scan friend request: %w", err)
		}
		req.CreatedAt = fromMillis(created)
		reqs = append(reqs, &req)
	}
	return reqs, rows.Err()
}

// ListRequestsBySender retrieves pending requests sent by a user
func (s *FriendStore) ListRequestsBySender(ctx context.Context, senderID string) ([]*models.FriendRequest, error) {
	query := `
		SELECT id, sender_id, receiver_id, created_at
		FROM friend_requests
		WHERE sender_id = ?
		ORDER BY created_at DESC
	`
	return s.listRequests(ctx, query, senderID)
}

// ListRequestsByReceiver retrieves pending requests received by a user
func (s *FriendStore) ListRequestsByReceiver(ctx context.Context, receiverID string) ([]*models.FriendRequest, error) {
	query := `
		SELECT id, sender_id, receiver_id, created_at
		FROM friend_requests
		WHERE receiver_id = ?
		ORDER BY created_at DESC
	`
	return s.listRequests(ctx, query, receiverID)
}

// PendingRequestExists checks if a pending request exists between two users
// in either direction
func (s *FriendStore) PendingRequestExists(ctx context.Context, userA, userB string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM friend_requests
			WHERE (sender_id = ? AND receiver_id = ?)
			   OR (sender_id = ? AND receiver_id = ?)
		)
	`
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, userA, userB, userB, userA).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check pending request: %w", err)
	}
	return exists, nil
}

// CreateFriendship creates a friendship row
func (s *FriendStore) CreateFriendship(ctx context.Context, f *models.Friendship) error {
	query := `INSERT INTO friendships (user_a_id, user_b_id, created_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, f.UserAID, f.UserBID, toMillis(f.CreatedAt))
	if err != nil {
		if mapped := mapError(err); errors.Is(mapped, storage.ErrDuplicate) {
			return mapped
		}
		return fmt.Errorf("failed to create friendship: %w", err)
	}
	return nil
}

// DeleteFriendship deletes a friendship regardless of id order
func (s *FriendStore) DeleteFriendship(ctx context.Context, userA, userB string) error {
	query := `
		DELETE FROM friendships
		WHERE (user_a_id = ? AND user_b_id = ?)
		   OR (user_a_id = ? AND user_b_id = ?)
	`
	result, err := s.db.ExecContext(ctx, query, userA, userB, userB, userA)
	if err != nil {
		return fmt.Errorf("failed to delete friendship: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete friendship: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// AreFriends checks if two users are friends
func (s *FriendStore) AreFriends(ctx context.Context, userA, userB string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM friendships
			WHERE (user_a_id = ? AND user_b_id = ?)
			   OR (user_a_id = ? AND user_b_id = ?)
		)
	`
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, userA, userB, userB, userA).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check friendship: %w", err)
	}
	return exists, nil
}

// ListFriendIDs retrieves the ids of all friends of a user
func (s *FriendStore) ListFriendIDs(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT CASE WHEN user_a_id = ? THEN user_b_id ELSE user_a_id END
		FROM friendships
		WHERE user_a_id = ? OR user_b_id = ?
	`
	rows, err := s.db.QueryContext(ctx, query, userID, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan friend id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
