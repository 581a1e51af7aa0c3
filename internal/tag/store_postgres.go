package tag

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresStore persists tag records in PostgreSQL via database/sql over the
// pgx stdlib driver.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed tag store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the tag table if it does not exist. Called once at
// startup so deployments stay a single binary with no migration tooling.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS tag_records (
			tag_id         TEXT PRIMARY KEY,
			pin            TEXT NOT NULL,
			active         BOOLEAN NOT NULL DEFAULT FALSE,
			pin_updated_at TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure tag schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, tagID string) (Record, error) {
	var record Record
	err := s.db.QueryRowContext(ctx, `
		SELECT tag_id, pin, active, pin_updated_at
		FROM tag_records
		WHERE tag_id = $1
	`, tagID).Scan(&record.TagID, &record.PIN, &record.Active, &record.PINUpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("find tag: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) Save(ctx context.Context, record Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tag_records (tag_id, pin, active, pin_updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tag_id) DO UPDATE
		SET pin = EXCLUDED.pin,
		    active = EXCLUDED.active,
		    pin_updated_at = EXCLUDED.pin_updated_at
	`, record.TagID, record.PIN, record.Active, record.PINUpdatedAt)
	if err != nil {
		return fmt.Errorf("save tag: %w", err)
	}
	return nil
}

// UpdatePIN conditions the overwrite on the PIN value last read. Zero rows
// affected means either the tag vanished or another change won the race.
func (s *PostgresStore) UpdatePIN(ctx context.Context, tagID, currentPIN, newPIN, updatedAt string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tag_records
		SET pin = $3, pin_updated_at = $4
		WHERE tag_id = $1 AND pin = $2
	`, tagID, currentPIN, newPIN, updatedAt)
	if err != nil {
		return fmt.Errorf("update pin: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update pin rows affected: %w", err)
	}
	if affected == 0 {
		if _, findErr := s.FindByID(ctx, tagID); errors.Is(findErr, ErrNotFound) {
			return ErrNotFound
		}
		return ErrPINStale
	}
	return nil
}
