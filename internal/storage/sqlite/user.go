package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"popin-backend/internal/models"
	"popin-backend/internal/storage"
)

// UserStore handles database operations for users
type UserStore struct {
	db *sql.DB
}

const userColumns = `id, email, username, full_name, password_hash, avatar_url, push_token, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var user models.User
	var created int64
	err := row.Scan(
		&user.ID, &user.Email, &user.Username, &user.FullName,
		&user.PasswordHash, &user.AvatarURL, &user.PushToken, &created,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	user.CreatedAt = fromMillis(created)
	return &user, nil
}

// Create creates a new user
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, username, full_name, password_hash, avatar_url, push_token, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		user.ID, user.Email, user.Username, user.FullName,
		user.PasswordHash, user.AvatarURL, user.PushToken, toMillis(user.CreatedAt),
	)
	if err != nil {
		if mapped := mapError(err); errors.Is(mapped, storage.ErrDuplicate) {
			return mapped
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (s *UserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a user by email
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return scanUser(s.db.QueryRowContext(ctx, query, email))
}

// GetByUsername retrieves a user by username
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	return scanUser(s.db.QueryRowContext(ctx, query, username))
}

// Search retrieves users whose username or full name matches a prefix
func (s *UserStore) Search(ctx context.Context, query string, limit int) ([]*models.User, error) {
	stmt := `
		SELECT ` + userColumns + `
		FROM users
		WHERE username LIKE ? || '%' OR full_name LIKE ? || '%'
		ORDER BY username
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, stmt, query, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UpdatePushToken updates the push token for a user
func (s *UserStore) UpdatePushToken(ctx context.Context, userID string, pushToken *string) error {
	query := `UPDATE users SET push_token = ? WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, pushToken, userID); err != nil {
		return fmt.Errorf("failed to update push token: %w", err)
	}
	return nil
}

// UpdateAvatarURL updates the avatar URL for a user
func (s *UserStore) UpdateAvatarURL(ctx context.Context, userID, avatarURL string) error {
	query := `UPDATE users SET avatar_url = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, avatarURL, userID)
	if err != nil {
		return fmt.Errorf("failed to update avatar url: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update avatar url: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
