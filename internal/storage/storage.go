// Package storage defines the persistence interface for the rename journal.
package storage

import (
	"context"

	"github.com/hyperjump/emotags/internal/models"
)

// Journal records rename attempts.
type Journal interface {
	RecordRename(ctx context.Context, rec *models.RenameRecord) error
	ListRenames(ctx context.Context, offset, limit int) ([]*models.RenameRecord, error)
	CountRenames(ctx context.Context, status models.RenameStatus) (int64, error)

	Close() error
}
