package postgres

import (
	"context"
	"errors"
	"fmt"

	"popin-backend/internal/models"
	"popin-backend/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FriendStore handles database operations for friend requests and friendships
type FriendStore struct {
	db *pgxpool.Pool
}

// NewFriendStore creates a new friend store
func NewFriendStore(db *pgxpool.Pool) *FriendStore {
	return &FriendStore{db: db}
}

// CreateRequest creates a new pending friend request
func (r *FriendStore) CreateRequest(ctx context.Context, req *models.FriendRequest) error {
	query := `
		INSERT INTO friend_requests (id, sender_id, receiver_id, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Exec(ctx, query, req.ID, req.SenderID, req.ReceiverID, req.CreatedAt)
	if err != nil {
		if mapped := mapError(err); errors.Is(mapped, storage.ErrDuplicate) {
			return mapped
		}
		return fmt.Errorf("failed to create friend request: %w", err)
	}
	return nil
}

// GetRequest retrieves a friend request by ID
func (r *FriendStore) GetRequest(ctx context.Context, id string) (*models.FriendRequest, error) {
	query := `
		SELECT id, sender_id, receiver_id, created_at
		FROM friend_requests
		WHERE id = $1
	`
	var req models.FriendRequest
	err := r.db.QueryRow(ctx, query, id).Scan(
		&req.ID, &req.SenderID, &req.ReceiverID, &req.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get friend request: %w", err)
	}
	return &req, nil
}

// DeleteRequest deletes a friend request by ID
func (r *FriendStore) DeleteRequest(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM friend_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete friend request: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *FriendStore) listRequests(ctx context.Context, query, userID string) ([]*models.FriendRequest, error) {
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friend requests: %w", err)
	}
	defer rows.Close()

	var reqs []*models.FriendRequest
	for rows.Next() {
		var req models.FriendRequest
		if err := rows.Scan(&req.ID, &req.SenderID, &req.ReceiverID, &req.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan friend request: %w", err)
		}
		reqs = append(reqs, &req)
	}
	return reqs, rows.Err()
}

// ListRequestsBySender retrieves pending requests sent by a user
func (r *FriendStore) ListRequestsBySender(ctx context.Context, senderID string) ([]*models.FriendRequest, error) {
	query := `
		SELECT id, sender_id, receiver_id, created_at
		FROM friend_requests
		WHERE sender_id = $1
		ORDER BY created_at DESC
	`
	return r.listRequests(ctx, query, senderID)
}

// ListRequestsByReceiver retrieves pending requests received by a user
func (r *FriendStore) ListRequestsByReceiver(ctx context.Context, receiverID string) ([]*models.FriendRequest, error) {
	query := `
		SELECT id, sender_id, receiver_id, created_at
		FROM friend_requests
		WHERE receiver_id = $1
		ORDER BY created_at DESC
	`
	return r.listRequests(ctx, query, receiverID)
}

// PendingRequestExists checks if a pending request exists between two users
// in either direction
func (r *FriendStore) PendingRequestExists(ctx context.Context, userA, userB string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM friend_requests
			WHERE (sender_id = $1 AND receiver_id = $2)
			   OR (sender_id = $2 AND receiver_id = $1)
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, userA, userB).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check pending request: %w", err)
	}
	return exists, nil
}

// CreateFriendship creates a friendship row
func (r *FriendStore) CreateFriendship(ctx context.Context, f *models.Friendship) error {
	query := `
		INSERT INTO friendships (user_a_id, user_b_id, created_at)
		VALUES ($1, $2, $3)
	`
	_, err := r.db.Exec(ctx, query, f.UserAID, f.UserBID, f.CreatedAt)
	if err != nil {
		if mapped := mapError(err); errors.Is(mapped, storage.ErrDuplicate) {
			return mapped
		}
		return fmt.Errorf("failed to create friendship: %w", err)
	}
	return nil
}

// DeleteFriendship deletes a friendship regardless of id order
func (r *FriendStore) DeleteFriendship(ctx context.Context, userA, userB string) error {
	query := `
		DELETE FROM friendships
		WHERE (user_a_id = $1 AND user_b_id = $2)
		   OR (user_a_id = $2 AND user_b_id = $1)
	`
	result, err := r.db.Exec(ctx, query, userA, userB)
	if err != nil {
		return fmt.Errorf("failed to delete friendship: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// AreFriends checks if two users are friends
func (r *FriendStore) AreFriends(ctx context.Context, userA, userB string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM friendships
			WHERE (user_a_id = $1 AND user_b_id = $2)
			   OR (user_a_id = $2 AND user_b_id = $1)
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, userA, userB).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check friendship: %w", err)
	}
	return exists, nil
}

// ListFriendIDs retrieves the ids of all friends of a user
func (r *FriendStore) ListFriendIDs(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT CASE WHEN user_a_id = $1 THEN user_b_id ELSE user_a_id END
		FROM friendships
		WHERE user_a_id = $1 OR user_b_id = $1
	`
	rows, err := r.db.Query(ctx, query, userID)
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
