package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"popin-backend/internal/models"
	"popin-backend/internal/storage"
)

// EventStore handles database operations for events and hangout matches
type EventStore struct {
	db *sql.DB
}

const eventColumns = `id, owner_id, title, description, start_time, end_time, event_type, visibility, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (*models.Event, error) {
	var ev models.Event
	var start, end, created, updated int64
	err := row.Scan(
		&ev.ID, &ev.OwnerID, &ev.Title, &ev.Description,
		&start, &end, &ev.Type, &ev.Visibility, &created, &updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}
	ev.StartTime = fromMillis(start)
	ev.EndTime = fromMillis(end)
	ev.CreatedAt = fromMillis(created)
	ev.UpdatedAt = fromMillis(updated)
	return &ev, nil
}

// Create creates a new event
func (s *EventStore) Create(ctx context.Context, ev *models.Event) error {
	query := `
		INSERT INTO events (id, owner_id, title, description, start_time, end_time, event_type, visibility, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		ev.ID, ev.OwnerID, ev.Title, ev.Description,
		toMillis(ev.StartTime), toMillis(ev.EndTime), ev.Type, ev.Visibility,
		toMillis(ev.CreatedAt), toMillis(ev.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// GetByID retrieves an event by ID
func (s *EventStore) GetByID(ctx context.Context, id string) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = ?`
	return scanEvent(s.db.QueryRowContext(ctx, query, id))
}

// Update updates an event's mutable fields
func (s *EventStore) Update(ctx context.Context, ev *models.Event) error {
	query := `
		UPDATE events
		SET title = ?, description = ?, start_time = ?, end_time = ?,
		    event_type = ?, visibility = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query,
		ev.Title, ev.Description, toMillis(ev.StartTime), toMillis(ev.EndTime),
		ev.Type, ev.Visibility, toMillis(ev.UpdatedAt), ev.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete deletes an event by ID
func (s *EventStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *EventStore) queryEvents(ctx context.Context, query string, args ...any) ([]*models.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// ListByOwner retrieves a user's events, optionally bounded by a time window
func (s *EventStore) ListByOwner(ctx context.Context, ownerID string, from, to *time.Time) ([]*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE owner_id = ?`
	args := []any{ownerID}
	if from != nil {
		query += " AND end_time >= ?"
		args = append(args, toMillis(*from))
	}
	if to != nil {
		query += " AND start_time <= ?"
		args = append(args, toMillis(*to))
	}
	query += " ORDER BY start_time"
	return s.queryEvents(ctx, query, args...)
}

// ListVisibleHangouts retrieves friends-visible hangout events owned by any
// of the given users
func (s *EventStore) ListVisibleHangouts(ctx context.Context, ownerIDs []string) ([]*models.Event, error) {
	if len(ownerIDs) == 0 {
		return nil, nil
	}
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE owner_id IN (` + placeholders(len(ownerIDs)) + `) AND event_type = ? AND visibility = ?
	`
	args := make([]any, 0, len(ownerIDs)+2)
	for _, id := range ownerIDs {
		args = append(args, id)
	}
	args = append(args, models.EventTypeHangout, models.VisibilityFriends)
	return s.queryEvents(ctx, query, args...)
}

// CreateMatch records a hangout match for an event pair
func (s *EventStore) CreateMatch(ctx context.Context, m *models.HangoutMatch) error {
	query := `
		INSERT INTO hangout_matches (id, event_a_id, event_b_id, user_a_id, user_b_id, overlap_start, overlap_end, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		m.ID, m.EventAID, m.EventBID, m.UserAID, m.UserBID,
		toMillis(m.OverlapStart), toMillis(m.OverlapEnd), toMillis(m.CreatedAt),
	)
	if err != nil {
		if mapped := mapError(err); errors.Is(mapped, storage.ErrDuplicate) {
			return mapped
		}
		return fmt.Errorf("failed to create hangout match: %w", err)
	}
	return nil
}

// DeleteMatchesByEvent deletes all matches involving an event
func (s *EventStore) DeleteMatchesByEvent(ctx context.Context, eventID string) error {
	query := `DELETE FROM hangout_matches WHERE event_a_id = ? OR event_b_id = ?`
	if _, err := s.db.ExecContext(ctx, query, eventID, eventID); err != nil {
		return fmt.Errorf("failed to delete hangout matches: %w", err)
	}
	return nil
}

// ListMatchesByUser retrieves all matches involving a user
func (s *EventStore) ListMatchesByUser(ctx context.Context, userID string) ([]*models.HangoutMatch, error) {
	query := `
		SELECT id, event_a_id, event_b_id, user_a_id, user_b_id, overlap_start, overlap_end, created_at
		FROM hangout_matches
		WHERE user_a_id = ? OR user_b_id = ?
		ORDER BY overlap_start
	`
	rows, err := s.db.QueryContext(ctx, query, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list hangout matches: %w", err)
	}
	defer rows.Close()

	var matches []*models.HangoutMatch
	for rows.Next() {
		var m models.HangoutMatch
		var start, end, created int64
		err := rows.Scan(
			&m.ID, &m.EventAID, &m.EventBID, &m.UserAID, &m.UserBID,
			&start, &end, &created,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan hangout match: %w", err)
		}
		m.OverlapStart = fromMillis(start)
		m.OverlapEnd = fromMillis(end)
		m.CreatedAt = fromMillis(created)
		matches = append(matches, &m)
	}
	return matches, rows.Err()
}
