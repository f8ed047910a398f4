// Package storage provides the upload registry: per-file upload metadata
// persisted in SQLite.
package storage

import (
	"context"

	"github.com/hyperjump/kotae/internal/models"
)

// Registry records uploaded documents. The vector index remains the source
// of truth for chunk contents; the registry keeps per-upload facts (text
// length, chunk count, upload time) that the index does not carry.
type Registry interface {
	RecordUpload(ctx context.Context, doc *models.UploadedDocument) error
	GetUpload(ctx context.Context, filename string) (*models.UploadedDocument, error)
	ListUploads(ctx context.Context) ([]*models.UploadedDocument, error)
	CountUploads(ctx context.Context) (int64, error)
	ClearUploads(ctx context.Context) error
	Close() error
}
