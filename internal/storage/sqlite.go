package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hyperjump/tategaki/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS generations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		author TEXT NOT NULL DEFAULT '',
		identifier TEXT NOT NULL DEFAULT '',
		filename TEXT NOT NULL DEFAULT '',
		size_bytes INTEGER NOT NULL DEFAULT 0,
		digest TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		error_code TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_generations_created_at ON generations(created_at);
	CREATE INDEX IF NOT EXISTS idx_generations_source ON generations(source_id, created_at);
	`
	_, err := db.Exec(schema)
	return err
}

const selectColumns = `SELECT id, source_id, title, author, identifier, filename, size_bytes, digest, status, error_code, created_at
	FROM generations`

// RecordGeneration inserts a history record.
func (s *SQLiteStorage) RecordGeneration(ctx context.Context, rec *models.GenerationRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO generations (source_id, title, author, identifier, filename, size_bytes, digest, status, error_code, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SourceID, rec.Title, rec.Author, rec.Identifier, rec.Filename, rec.SizeBytes,
		rec.Digest, rec.Status, string(rec.ErrorCode), rec.CreatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = id
	return nil
}

// ListGenerations returns records with offset and limit, newest first.
func (s *SQLiteStorage) ListGenerations(ctx context.Context, offset, limit int) ([]*models.GenerationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		selectColumns+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

// ListBySource returns up to limit records for sourceID, newest first.
func (s *SQLiteStorage) ListBySource(ctx context.Context, sourceID string, limit int) ([]*models.GenerationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		selectColumns+` WHERE source_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		sourceID, limit,
	)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]*models.GenerationRecord, error) {
	defer rows.Close()
	var recs []*models.GenerationRecord
	for rows.Next() {
		var rec models.GenerationRecord
		var code string
		if err := rows.Scan(&rec.ID, &rec.SourceID, &rec.Title, &rec.Author, &rec.Identifier, &rec.Filename,
			&rec.SizeBytes, &rec.Digest, &rec.Status, &code, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.ErrorCode = models.ErrorCode(code)
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}

// CountGenerations returns the number of records with status, or of all records when status is empty.
func (s *SQLiteStorage) CountGenerations(ctx context.Context, status string) (int64, error) {
	var count int64
	var err error
	if status == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM generations`).Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM generations WHERE status = ?`, status).Scan(&count)
	}
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
