// Package storage provides the SQLite implementation of the rename journal.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/emotags/internal/models"
)

// SQLiteJournal implements Journal using SQLite.
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
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

	return &SQLiteJournal{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS renames (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		operation TEXT NOT NULL,
		old_path TEXT NOT NULL,
		new_path TEXT,
		old_title TEXT NOT NULL,
		new_title TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_renames_created_at ON renames(created_at);
	CREATE INDEX IF NOT EXISTS idx_renames_document_id ON renames(document_id);
	CREATE INDEX IF NOT EXISTS idx_renames_status ON renames(status);
	`
	_, err := db.Exec(schema)
	return err
}

// RecordRename inserts a journal entry. CreatedAt is set when zero.
func (s *SQLiteJournal) RecordRename(ctx context.Context, rec *models.RenameRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("rename record id is required")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO renames (id, document_id, operation, old_path, new_path, old_title, new_title, status, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.DocumentID, string(rec.Operation), rec.OldPath, rec.NewPath,
		rec.OldTitle, rec.NewTitle, string(rec.Status), rec.Error, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record rename: %w", err)
	}
	return nil
}

// ListRenames returns journal entries, newest first.
func (s *SQLiteJournal) ListRenames(ctx context.Context, offset, limit int) ([]*models.RenameRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, operation, old_path, new_path, old_title, new_title, status, error, created_at
		 FROM renames ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*models.RenameRecord
	for rows.Next() {
		var rec models.RenameRecord
		var op, status string
		var newPath, errMsg sql.NullString
		if err := rows.Scan(&rec.ID, &rec.DocumentID, &op, &rec.OldPath, &newPath,
			&rec.OldTitle, &rec.NewTitle, &status, &errMsg, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Operation = models.Operation(op)
		rec.Status = models.RenameStatus(status)
		rec.NewPath = newPath.String
		rec.Error = errMsg.String
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}

// CountRenames returns the number of entries with the given status, or all
// entries when status is empty.
func (s *SQLiteJournal) CountRenames(ctx context.Context, status models.RenameStatus) (int64, error) {
	var count int64
	var err error
	if status == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM renames`).Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM renames WHERE status = ?`, string(status)).Scan(&count)
	}
	return count, err
}

// Close closes the database connection.
func (s *SQLiteJournal) Close() error {
	return s.db.Close()
}
