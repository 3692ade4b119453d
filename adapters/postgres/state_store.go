package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"datalens/domain/core"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// StateStore persists workspace notes and tour flags in Postgres
type StateStore struct {
	db *sqlx.DB
}

// NewStateStore creates a new state store over db
func NewStateStore(db *sqlx.DB) *StateStore {
	return &StateStore{db: db}
}

// Connect opens a Postgres connection and wraps it in a StateStore
func Connect(ctx context.Context, databaseURL string) (*StateStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &StateStore{db: db}, nil
}

// DB exposes the underlying handle for migrations
func (s *StateStore) DB() *sqlx.DB {
	return s.db
}

// LoadNotes returns the saved notes for a dataset
func (s *StateStore) LoadNotes(ctx context.Context, id core.DatasetID) (string, error) {
	var notes string
	err := s.db.GetContext(ctx, &notes, `
		SELECT notes FROM workspace_notes WHERE dataset_id = $1`, id.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return "", core.ErrNotesNotFound
		}
		return "", fmt.Errorf("failed to load notes: %w", err)
	}
	return notes, nil
}

// SaveNotes upserts the notes for a dataset
func (s *StateStore) SaveNotes(ctx context.Context, id core.DatasetID, notes string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workspace_notes (dataset_id, notes, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (dataset_id) DO UPDATE SET
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at`,
		id.String(), notes,
	)
	if err != nil {
		return fmt.Errorf("failed to save notes: %w", err)
	}
	return nil
}

// TourSeen reports whether the named tour has been completed or skipped
func (s *StateStore) TourSeen(ctx context.Context, tour string) (bool, error) {
	var seen bool
	err := s.db.GetContext(ctx, &seen, `
		SELECT EXISTS (SELECT 1 FROM tour_state WHERE tour_name = $1)`, tour)
	if err != nil {
		return false, fmt.Errorf("failed to read tour state: %w", err)
	}
	return seen, nil
}

// MarkTourSeen records the named tour as seen
func (s *StateStore) MarkTourSeen(ctx context.Context, tour string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tour_state (tour_name, seen_at)
		VALUES ($1, NOW())
		ON CONFLICT (tour_name) DO NOTHING`, tour)
	if err != nil {
		return fmt.Errorf("failed to save tour state: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (s *StateStore) Close() error {
	return s.db.Close()
}
