// Package postgres implements the storage interfaces on PostgreSQL.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"popin-backend/internal/storage"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

// Open connects to PostgreSQL and ensures the schema exists
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return db, nil
}

// NewStores builds the full repository bundle on one pool
func NewStores(db *pgxpool.Pool) *storage.Stores {
	return &storage.Stores{
		Users:         NewUserStore(db),
		Friends:       NewFriendStore(db),
		Events:        NewEventStore(db),
		Messages:      NewMessageStore(db),
		Notifications: NewNotificationStore(db),
	}
}

// mapError translates driver errors to storage sentinels
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return storage.ErrDuplicate
	}
	return err
}
