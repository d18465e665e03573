// Package sqlite implements the storage interfaces on a single local
// SQLite file, the backend used when running without a hosted database.
package sqlite

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"popin-backend/internal/storage"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

//go:embed schema.sql
var schema string

// Store persists all application state in SQLite
type Store struct {
	db *sql.DB
}

// Open opens the SQLite store and applies the embedded schema
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the SQLite handle
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// NewStores builds the full repository bundle on one handle
func NewStores(s *Store) *storage.Stores {
	return &storage.Stores{
		Users:         &UserStore{db: s.db},
		Friends:       &FriendStore{db: s.db},
		Events:        &EventStore{db: s.db},
		Messages:      &MessageStore{db: s.db},
		Notifications: &NotificationStore{db: s.db},
	}
}

// mapError translates driver errors to storage sentinels
func mapError(err error) error {
	var se *msqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return storage.ErrDuplicate
		}
	}
	return err
}

// Timestamps are stored as UTC unix milliseconds

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
