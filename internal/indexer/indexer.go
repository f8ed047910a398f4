// Package indexer ingests documents: save, extract, chunk, embed, index.
package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/kotae/internal/chunker"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
	"go.uber.org/zap"
)

// Indexer runs the upload pipeline. Extraction failures surface before any
// index mutation; a successfully extracted document is chunked, indexed, and
// recorded in the upload registry.
type Indexer struct {
	extractor *extract.Extractor
	chunker   *chunker.Chunker
	store     *vector.Store
	registry  storage.Registry
	uploadDir string
	logger    *zap.Logger
}

// New creates an indexer. uploadDir may be empty to skip keeping raw copies
// of uploaded files.
func New(ch *chunker.Chunker, store *vector.Store, registry storage.Registry, uploadDir string, logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{
		extractor: extract.NewExtractor(),
		chunker:   ch,
		store:     store,
		registry:  registry,
		uploadDir: uploadDir,
		logger:    logger,
	}
}

// IngestBytes processes an uploaded file body. The filename's extension
// selects the extractor; unsupported extensions fail before anything is
// written. The raw bytes are kept under the upload dir for reference.
func (ix *Indexer) IngestBytes(ctx context.Context, content []byte, filename string) (*models.UploadResponse, error) {
	name := filepath.Base(filename)
	ext := filepath.Ext(name)
	if !extract.Supported(ext) {
		return nil, fmt.Errorf("%w: %q", extract.ErrUnsupportedFormat, ext)
	}

	if ix.uploadDir != "" {
		if err := os.MkdirAll(ix.uploadDir, 0755); err != nil {
			return nil, fmt.Errorf("create upload dir: %w", err)
		}
		if err := os.WriteFile(filepath.Join(ix.uploadDir, name), content, 0644); err != nil {
			return nil, fmt.Errorf("save upload: %w", err)
		}
	}

	text, err := ix.extractor.ExtractBytes(content, ext)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", name, err)
	}
	return ix.ingestText(ctx, text, name)
}

// IngestFile extracts and indexes a file already on disk (watch directory,
// CLI). The file is not copied into the upload dir.
func (ix *Indexer) IngestFile(ctx context.Context, path string) (*models.UploadResponse, error) {
	if !extract.Supported(filepath.Ext(path)) {
		return nil, fmt.Errorf("%w: %q", extract.ErrUnsupportedFormat, filepath.Ext(path))
	}
	text, err := ix.extractor.Extract(path)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}
	return ix.ingestText(ctx, text, filepath.Base(path))
}

func (ix *Indexer) ingestText(ctx context.Context, text, name string) (*models.UploadResponse, error) {
	chunks := ix.chunker.Chunk(text)
	added, err := ix.store.AddDocuments(ctx, chunks, name)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", name, err)
	}

	if ix.registry != nil {
		err := ix.registry.RecordUpload(ctx, &models.UploadedDocument{
			Filename:   name,
			TextLength: len(text),
			NumChunks:  added,
		})
		if err != nil {
			return nil, fmt.Errorf("record upload %s: %w", name, err)
		}
	}

	ix.logger.Info("document ingested",
		zap.String("filename", name),
		zap.Int("text_length", len(text)),
		zap.Int("num_chunks", added),
	)
	return &models.UploadResponse{
		Filename:   name,
		TextLength: len(text),
		NumChunks:  added,
		Stats:      ix.store.Stats(),
	}, nil
}

// Clear empties the collection and the upload registry together.
func (ix *Indexer) Clear(ctx context.Context) error {
	if err := ix.store.Clear(); err != nil {
		return err
	}
	if ix.registry != nil {
		if err := ix.registry.ClearUploads(ctx); err != nil {
			return fmt.Errorf("clear upload registry: %w", err)
		}
	}
	return nil
}
