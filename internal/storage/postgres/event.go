package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"popin-backend/internal/models"
	"popin-backend/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EventStore handles database operations for events and hangout matches
type EventStore struct {
	db *pgxpool.Pool
}

// NewEventStore creates a new event store
func NewEventStore(db *pgxpool.Pool) *EventStore {
	return &EventStore{db: db}
}

const eventColumns = `id, owner_id, title, description, start_time, end_time, event_type, visibility, created_at, updated_at`

func scanEvent(row pgx.Row) (*models.Event, error) {
	var ev models.Event
	err := row.Scan(
		&ev.ID, &ev.OwnerID, &ev.Title, &ev.Description,
		&ev.StartTime, &ev.EndTime, &ev.Type, &ev.Visibility,
		&ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}
	return &ev, nil
}

// Create creates a new event
func (r *EventStore) Create(ctx context.Context, ev *models.Event) error {
	query := `
		INSERT INTO events (id, owner_id, title, description, start_time, end_time, event_type, visibility, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		ev.ID, ev.OwnerID, ev.Title, ev.Description,
		ev.StartTime, ev.EndTime, ev.Type, ev.Visibility,
		ev.CreatedAt, ev.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// GetByID retrieves an event by ID
func (r *EventStore) GetByID(ctx context.Context, id string) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	return scanEvent(r.db.QueryRow(ctx, query, id))
}

// Update updates an event's mutable fields
func (r *EventStore) Update(ctx context.Context, ev *models.Event) error {
	query := `
		UPDATE events
		SET title = $1, description = $2, start_time = $3, end_time = $4,
		    event_type = $5, visibility = $6, updated_at = $7
		WHERE id = $8
	`
	result, err := r.db.Exec(ctx, query,
		ev.Title, ev.Description, ev.StartTime, ev.EndTime,
		ev.Type, ev.Visibility, ev.UpdatedAt, ev.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete deletes an event by ID
func (r *EventStore) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *EventStore) queryEvents(ctx context.Context, query string, args ...any) ([]*models.Event, error) {
	rows, err := r.db.Query(ctx, query, args...)
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
func (r *EventStore) ListByOwner(ctx context.Context, ownerID string, from, to *time.Time) ([]*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE owner_id = $1`
	args := []any{ownerID}
	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND end_time >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND start_time <= $%d", len(args))
	}
	query += " ORDER BY start_time"
	return r.queryEvents(ctx, query, args...)
}

// ListVisibleHangouts retrieves friends-visible hangout events owned by any
// of the given users
func (r *EventStore) ListVisibleHangouts(ctx context.Context, ownerIDs []string) ([]*models.Event, error) {
	if len(ownerIDs) == 0 {
		return nil, nil
	}
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE owner_id = ANY($1) AND event_type = $2 AND visibility = $3
	`
	return r.queryEvents(ctx, query, ownerIDs, models.EventTypeHangout, models.VisibilityFriends)
}

// CreateMatch records a hangout match for an event pair
func (r *EventStore) CreateMatch(ctx context.Context, m *models.HangoutMatch) error {
	query := `
		INSERT INTO hangout_matches (id, event_a_id, event_b_id, user_a_id, user_b_id, overlap_start, overlap_end, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		m.ID, m.EventAID, m.EventBID, m.UserAID, m.UserBID,
		m.OverlapStart, m.OverlapEnd, m.CreatedAt,
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
func (r *EventStore) DeleteMatchesByEvent(ctx context.Context, eventID string) error {
	query := `DELETE FROM hangout_matches WHERE event_a_id = $1 OR event_b_id = $1`
	if _, err := r.db.Exec(ctx, query, eventID); err != nil {
		return fmt.Errorf("failed to delete hangout matches: %w", err)
	}
	return nil
}

// ListMatchesByUser retrieves all matches involving a user
func (r *EventStore) ListMatchesByUser(ctx context.Context, userID string) ([]*models.HangoutMatch, error) {
	query := `
		SELECT id, event_a_id, event_b_id, user_a_id, user_b_id, overlap_start, overlap_end, created_at
		FROM hangout_matches
		WHERE user_a_id = $1 OR user_b_id = $1
		ORDER BY overlap_start
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list hangout matches: %w", err)
	}
	defer rows.Close()

	var matches []*models.HangoutMatch
	for rows.Next() {
		var m models.HangoutMatch
		err := rows.Scan(
			&m.ID, &m.EventAID, &m.EventBID, &m.UserAID, &m.UserBID,
			&m.OverlapStart, &m.OverlapEnd, &m.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan hangout match: %w", err)
		}
		matches = append(matches, &m)
	}
	return matches, rows.Err()
}
