package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kotae/internal/models"
)

// SQLiteRegistry implements Registry using SQLite.
type SQLiteRegistry struct {
	db *sql.DB
}

// NewSQLiteRegistry opens or creates a SQLite database at dbPath and
// initializes the schema. Parent directories are created if needed.
func NewSQLiteRegistry(dbPath string) (*SQLiteRegistry, error) {
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
	return &SQLiteRegistry{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS uploads (
		filename TEXT PRIMARY KEY,
		text_length INTEGER NOT NULL,
		num_chunks INTEGER NOT NULL,
		uploaded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_uploads_uploaded_at ON uploads(uploaded_at);
	`
	_, err := db.Exec(schema)
	return err
}

// RecordUpload inserts or updates the registry row for a filename.
// Re-uploading a file refreshes its text length and adds to its chunk count,
// matching the index's append-only behavior.
func (s *SQLiteRegistry) RecordUpload(ctx context.Context, doc *models.UploadedDocument) error {
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO uploads (filename, text_length, num_chunks, uploaded_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(filename) DO UPDATE SET
		   text_length = excluded.text_length,
		   num_chunks = num_chunks + excluded.num_chunks,
		   uploaded_at = excluded.uploaded_at`,
		doc.Filename, doc.TextLength, doc.NumChunks, doc.UploadedAt,
	)
	return err
}

// GetUpload returns the registry row for filename.
func (s *SQLiteRegistry) GetUpload(ctx context.Context, filename string) (*models.UploadedDocument, error) {
	var doc models.UploadedDocument
	err := s.db.QueryRowContext(ctx,
		`SELECT filename, text_length, num_chunks, uploaded_at
		 FROM uploads WHERE filename = ?`, filename,
	).Scan(&doc.Filename, &doc.TextLength, &doc.NumChunks, &doc.UploadedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("upload not found: %s", filename)
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListUploads returns all registry rows ordered by upload time.
func (s *SQLiteRegistry) ListUploads(ctx context.Context) ([]*models.UploadedDocument, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT filename, text_length, num_chunks, uploaded_at
		 FROM uploads ORDER BY uploaded_at`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.UploadedDocument
	for rows.Next() {
		var doc models.UploadedDocument
		if err := rows.Scan(&doc.Filename, &doc.TextLength, &doc.NumChunks, &doc.UploadedAt); err != nil {
			return nil, err
		}
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// CountUploads returns the number of registered files.
func (s *SQLiteRegistry) CountUploads(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM uploads`).Scan(&count)
	return count, err
}

// ClearUploads removes all rows, mirroring a collection clear.
func (s *SQLiteRegistry) ClearUploads(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM uploads`)
	return err
}

// Close closes the database connection.
func (s *SQLiteRegistry) Close() error {
	return s.db.Close()
}
