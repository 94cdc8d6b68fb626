// Package store persists consultation records to SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"agent-advisor/internal/domain"
)

// SQLiteConsultationStore implements domain.ConsultationStore using SQLite.
type SQLiteConsultationStore struct {
	db *sql.DB
}

// NewSQLiteConsultationStore opens (or creates) a SQLite database at dbPath
// and runs the schema migration.
func NewSQLiteConsultationStore(dbPath string) (*SQLiteConsultationStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open consultation db: %w", err)
	}
	// WAL mode for better concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate consultation db: %w", err)
	}
	return &SQLiteConsultationStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS consultations (
			id                 TEXT PRIMARY KEY,
			agent_id           TEXT NOT NULL DEFAULT '',
			domain             TEXT NOT NULL DEFAULT '',
			type               TEXT NOT NULL DEFAULT '',
			status             TEXT NOT NULL,
			error_category     TEXT NOT NULL DEFAULT '',
			processing_time_ms INTEGER NOT NULL DEFAULT 0,
			created_at         TEXT NOT NULL
		)
	`)
	return err
}

// Close closes the underlying database connection.
func (s *SQLiteConsultationStore) Close() error {
	return s.db.Close()
}

// Save implements domain.ConsultationStore.
func (s *SQLiteConsultationStore) Save(ctx context.Context, rec *domain.ConsultationRecord) error {
	if rec.ID == "" {
		return domain.NewDomainError("SQLiteConsultationStore.Save", domain.ErrInvalidRequest, "record has no ID")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO consultations (id, agent_id, domain, type, status, error_category, processing_time_ms, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		rec.ID, rec.AgentID, rec.Domain, rec.Type, string(rec.Status),
		rec.ErrorCategory, rec.ProcessingTimeMs, rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return domain.NewDomainError("SQLiteConsultationStore.Save", domain.ErrStoreFailure, err.Error())
	}
	return nil
}

// Get implements domain.ConsultationStore.
func (s *SQLiteConsultationStore) Get(ctx context.Context, id string) (*domain.ConsultationRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, agent_id, domain, type, status, error_category, processing_time_ms, created_at FROM consultations WHERE id = ?", id)

	var rec domain.ConsultationRecord
	var status, createdAt string
	err := row.Scan(&rec.ID, &rec.AgentID, &rec.Domain, &rec.Type, &status,
		&rec.ErrorCategory, &rec.ProcessingTimeMs, &createdAt)
	if err == sql.ErrNoRows {
		return nil, domain.NewDomainError("SQLiteConsultationStore.Get", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, domain.NewDomainError("SQLiteConsultationStore.Get", domain.ErrStoreFailure, err.Error())
	}
	rec.Status = domain.Status(status)
	if t, perr := time.Parse(time.RFC3339Nano, createdAt); perr == nil {
		rec.CreatedAt = t
	}
	return &rec, nil
}

// Recent returns the most recent records, newest first.
func (s *SQLiteConsultationStore) Recent(ctx context.Context, limit int) ([]*domain.ConsultationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, agent_id, domain, type, status, error_category, processing_time_ms, created_at FROM consultations ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, domain.NewDomainError("SQLiteConsultationStore.Recent", domain.ErrStoreFailure, err.Error())
	}
	defer rows.Close()

	var out []*domain.ConsultationRecord
	for rows.Next() {
		var rec domain.ConsultationRecord
		var status, createdAt string
		if err := rows.Scan(&rec.ID, &rec.AgentID, &rec.Domain, &rec.Type, &status,
			&rec.ErrorCategory, &rec.ProcessingTimeMs, &createdAt); err != nil {
			return nil, domain.NewDomainError("SQLiteConsultationStore.Recent", domain.ErrStoreFailure, err.Error())
		}
		rec.Status = domain.Status(status)
		if t, perr := time.Parse(time.RFC3339Nano, createdAt); perr == nil {
			rec.CreatedAt = t
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// Recorder turns consultation events into stored records. Subscribe it to
// the bus's completed and failed events; it is safe for concurrent use
// because the bus dispatches handlers on their own goroutines and SQLite
// serializes writes.
func Recorder(s domain.ConsultationStore, onError func(error)) domain.EventHandler {
	return func(ctx context.Context, event domain.Event) {
		var rec domain.ConsultationRecord
		if len(event.Payload) > 0 {
			if err := json.Unmarshal(event.Payload, &rec); err != nil && onError != nil {
				onError(err)
				return
			}
		}
		rec.ID = event.RequestID
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = event.Timestamp
		}
		if err := s.Save(ctx, &rec); err != nil && onError != nil {
			onError(err)
		}
	}
}
