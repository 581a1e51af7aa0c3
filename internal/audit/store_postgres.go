package audit

import (
	"context"
	"fmt"

	"database/sql"

	"github.com/google/uuid"
)

// PostgresStore appends audit records to a single table. Writers that bring
// their own key (verify keys records by requestId) keep it as the row id;
// everyone else gets a fresh UUID.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed audit store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the audit table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_records (
			id         TEXT PRIMARY KEY,
			request_id TEXT NOT NULL,
			ts         TEXT NOT NULL,
			kind       TEXT NOT NULL DEFAULT '',
			tag_id     TEXT NOT NULL DEFAULT '',
			ok         BOOLEAN NOT NULL,
			status     TEXT NOT NULL DEFAULT '',
			outcome    TEXT NOT NULL DEFAULT '',
			message    TEXT NOT NULL DEFAULT '',
			reason     TEXT NOT NULL DEFAULT '',
			error      TEXT NOT NULL DEFAULT '',
			ip         TEXT NOT NULL DEFAULT '',
			ua         TEXT NOT NULL DEFAULT '',
			client     TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS audit_records_tag_id_idx ON audit_records (tag_id);
	`)
	if err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, record Record) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_records (
			id, request_id, ts, kind, tag_id, ok,
			status, outcome, message, reason, error, ip, ua, client
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		record.ID, record.RequestID, record.TS, string(record.Kind), record.TagID, record.OK,
		record.Status, record.Outcome, record.Message, record.Reason, record.Error,
		record.IP, record.UA, record.Client,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByTag(ctx context.Context, tagID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, ts, kind, tag_id, ok,
		       status, outcome, message, reason, error, ip, ua, client
		FROM audit_records
		WHERE tag_id = $1
		ORDER BY created_at
	`, tagID)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, ts, kind, tag_id, ok,
		       status, outcome, message, reason, error, ip, ua, client
		FROM audit_records
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var record Record
		var kind string
		err := rows.Scan(
			&record.ID, &record.RequestID, &record.TS, &kind, &record.TagID, &record.OK,
			&record.Status, &record.Outcome, &record.Message, &record.Reason, &record.Error,
			&record.IP, &record.UA, &record.Client,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		record.Kind = Kind(kind)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return records, nil
}
