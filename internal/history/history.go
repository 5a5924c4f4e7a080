// Package history records deploy attempts in SQLite. The site
// registry itself is in-memory only; history is the durable audit
// trail of what was deployed, when, and how it went.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// History manages deployment history in SQLite
type History struct {
	db *sql.DB
}

// NewHistory creates a new history tracker
func NewHistory(dbPath string) (*History, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for SQLite (single writer)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	h := &History{db: db}

	if err := h.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return h, nil
}

// Close closes the database connection
func (h *History) Close() error {
	return h.db.Close()
}

// initSchema creates the database tables and indexes
func (h *History) initSchema() error {
	_, err := h.db.Exec(`
		CREATE TABLE IF NOT EXISTS deployments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			slug TEXT NOT NULL,
			source_url TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TEXT NOT NULL,
			duration_seconds REAL,
			error_message TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	_, err = h.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_slug_started
		ON deployments(slug, started_at DESC)
	`)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// RecordDeployment records a deploy attempt and returns its row ID.
func (h *History) RecordDeployment(ctx context.Context, record *DeploymentRecord) (int64, error) {
	startedAt := record.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	result, err := h.db.ExecContext(ctx, `
		INSERT INTO deployments
		(slug, source_url, status, started_at, duration_seconds, error_message)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		record.Slug,
		record.SourceURL,
		record.Status,
		startedAt.UTC().Format(time.RFC3339),
		record.DurationSeconds,
		record.ErrorMessage,
	)

	if err != nil {
		return 0, fmt.Errorf("failed to insert deployment record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	return id, nil
}

// GetRecentDeployments returns the most recent deploy attempts, newest
// first.
func (h *History) GetRecentDeployments(ctx context.Context, limit int) ([]DeploymentRecord, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, slug, source_url, status, started_at,
		       duration_seconds, error_message
		FROM deployments
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query deployment history: %w", err)
	}
	defer rows.Close()

	var records []DeploymentRecord
	for rows.Next() {
		record, err := scanDeploymentRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deployment record: %w", err)
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

func scanDeploymentRecord(rows *sql.Rows) (*DeploymentRecord, error) {
	var record DeploymentRecord
	var startedAt string

	err := rows.Scan(
		&record.ID,
		&record.Slug,
		&record.SourceURL,
		&record.Status,
		&startedAt,
		&record.DurationSeconds,
		&record.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}

	if t, err := time.Parse(time.RFC3339, startedAt); err == nil {
		record.StartedAt = t
	}

	return &record, nil
}
