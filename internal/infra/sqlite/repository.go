// Package sqlite persists the download history.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/driftbyte/fetchtube/internal/domain"
)

// Repository provides database operations for download records.
type Repository struct {
	db *sql.DB
}

// NewRepository opens (creating if needed) the history database under
// dataDir.
func NewRepository(dataDir string) (*Repository, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "downloads.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer; keep the pool at one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := configureDB(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	slog.Info("History database initialized", "path", dbPath)

	return &Repository{db: db}, nil
}

// configureDB applies SQLite optimizations.
func configureDB(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=10000",
		"PRAGMA busy_timeout=5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	return nil
}

// createSchema creates the downloads table.
func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS downloads (
			id TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			title TEXT,
			resolution TEXT,
			requester_id INTEGER,
			status TEXT DEFAULT 'pending',
			error TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			finished_at DATETIME
		);

		CREATE INDEX IF NOT EXISTS idx_downloads_status ON downloads(status);
		CREATE INDEX IF NOT EXISTS idx_downloads_created ON downloads(created_at);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Create inserts a new download record.
func (r *Repository) Create(ctx context.Context, rec *domain.Record) error {
	query := `
		INSERT INTO downloads (id, url, title, resolution, requester_id, status, error, created_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.URL,
		rec.Title,
		string(rec.Resolution),
		rec.RequesterID,
		string(rec.Status),
		rec.Error,
		rec.CreatedAt,
		rec.FinishedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create record: %w", err)
	}

	return nil
}

// Finish marks a record terminal with the given status and error text.
func (r *Repository) Finish(ctx context.Context, id string, status domain.RecordStatus, errMsg string) error {
	query := `UPDATE downloads SET status = ?, error = ?, finished_at = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, string(status), errMsg, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to finish record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("record not found: %s", id)
	}

	return nil
}

// SetTitle updates a record's title once the probe has resolved it.
func (r *Repository) SetTitle(ctx context.Context, id, title string) error {
	query := `UPDATE downloads SET title = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, title, id)
	return err
}

// GetByID retrieves a record by its ID, or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Record, error) {
	query := `
		SELECT id, url, title, resolution, requester_id, status, error, created_at, finished_at
		FROM downloads
		WHERE id = ?
	`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

// ListRecent returns the most recent records, newest first.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]*domain.Record, error) {
	query := `
		SELECT id, url, title, resolution, requester_id, status, error, created_at, finished_at
		FROM downloads
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []*domain.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// CountByStatus returns the number of records with the given status.
func (r *Repository) CountByStatus(ctx context.Context, status domain.RecordStatus) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM downloads WHERE status = ?", string(status)).Scan(&count)
	return count, err
}

// Count returns the total number of records.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM downloads").Scan(&count)
	return count, err
}

// DeleteOlderThan deletes records older than the given age.
func (r *Repository) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	threshold := time.Now().UTC().Add(-age)

	result, err := r.db.ExecContext(ctx, `DELETE FROM downloads WHERE created_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old records: %w", err)
	}

	return result.RowsAffected()
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*domain.Record, error) {
	rec := &domain.Record{}
	var title, errMsg sql.NullString
	var resolution string
	var finishedAt sql.NullTime
	var status string

	err := s.Scan(
		&rec.ID,
		&rec.URL,
		&title,
		&resolution,
		&rec.RequesterID,
		&status,
		&errMsg,
		&rec.CreatedAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Title = title.String
	rec.Resolution = domain.Resolution(resolution)
	rec.Status = domain.RecordStatus(status)
	rec.Error = errMsg.String
	if finishedAt.Valid {
		rec.FinishedAt = &finishedAt.Time
	}

	return rec, nil
}
