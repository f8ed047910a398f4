// Package vector provides a flat L2 vector index with parallel chunk metadata
// and snapshot persistence.
package vector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
	"go.uber.org/zap"
)

// ErrIntegrity reports that the persisted vector and metadata artifacts
// disagree in record count. A store in this state is never served.
var ErrIntegrity = errors.New("vector/metadata count mismatch")

// Store holds embeddings and their chunk metadata as two parallel sequences:
// the Nth vector always corresponds to the Nth record. Mutations (append,
// clear) are serialized and followed by a snapshot write, so a restart
// resumes from the last committed state.
type Store struct {
	dimensions int
	collection string
	dir        string
	embedder   embedding.Embedder
	logger     *zap.Logger

	mu      sync.RWMutex
	vectors [][]float32
	records []models.ChunkRecord
}

// NewStore creates a store for the named collection, loading a prior snapshot
// from dir if one exists. Returns ErrIntegrity (wrapped) when the snapshot
// pair is inconsistent.
func NewStore(dir, collection string, embedder embedding.Embedder, logger *zap.Logger) (*Store, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		dimensions: embedder.Dimensions(),
		collection: collection,
		dir:        dir,
		embedder:   embedder,
		logger:     logger,
	}
	if s.dimensions <= 0 {
		return nil, fmt.Errorf("embedder dimensions must be positive")
	}
	if err := s.loadSnapshot(); err != nil {
		return nil, fmt.Errorf("load collection %q: %w", collection, err)
	}
	logger.Info("vector store ready",
		zap.String("collection", collection),
		zap.Int("chunks", len(s.records)),
		zap.Int("dimensions", s.dimensions),
	)
	return s, nil
}

// AddDocuments embeds every chunk's text and appends vector and metadata in
// chunk order, then persists the snapshot. Returns the number of chunks added.
// On persistence failure the in-memory append is rolled back so memory and
// disk never diverge.
func (s *Store) AddDocuments(ctx context.Context, chunks []models.Chunk, filename string) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}
	for i, vec := range embeddings {
		if len(vec) != s.dimensions {
			return 0, fmt.Errorf("chunk %d: embedding dimension %d, expected %d", i, len(vec), s.dimensions)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	prev := len(s.records)
	for i, ch := range chunks {
		vec := make([]float32, s.dimensions)
		copy(vec, embeddings[i])
		s.vectors = append(s.vectors, vec)
		s.records = append(s.records, models.ChunkRecord{
			Text:     ch.Text,
			Filename: filename,
			ChunkID:  ch.ChunkID,
			Length:   ch.Length,
		})
	}
	if err := s.persistLocked(); err != nil {
		s.vectors = s.vectors[:prev]
		s.records = s.records[:prev]
		return 0, fmt.Errorf("persist collection %q: %w", s.collection, err)
	}
	s.logger.Debug("chunks indexed",
		zap.String("filename", filename),
		zap.Int("added", len(chunks)),
		zap.Int("total", len(s.records)),
	)
	return len(chunks), nil
}

// Search embeds query and returns up to n records ranked by ascending squared
// L2 distance. When filenames is non-empty, only records from those files are
// returned; candidates are drawn from the full ranking so filtering never
// starves the result set. Ties keep insertion order. An empty index returns
// nil without calling the embedder.
func (s *Store) Search(ctx context.Context, query string, n int, filenames []string) ([]models.SearchResult, error) {
	if n <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	empty := len(s.vectors) == 0
	s.mu.RUnlock()
	if empty {
		return nil, nil
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(queryVec) != s.dimensions {
		return nil, fmt.Errorf("query embedding dimension %d, expected %d", len(queryVec), s.dimensions)
	}

	allowed := make(map[string]bool, len(filenames))
	for _, f := range filenames {
		allowed[f] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		idx  int
		dist float64
	}
	ranked := make([]scored, len(s.vectors))
	for i, vec := range s.vectors {
		var dist float64
		for j := 0; j < s.dimensions; j++ {
			d := float64(queryVec[j] - vec[j])
			dist += d * d
		}
		ranked[i] = scored{idx: i, dist: dist}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].dist < ranked[j].dist })

	results := make([]models.SearchResult, 0, n)
	for _, cand := range ranked {
		rec := s.records[cand.idx]
		if len(allowed) > 0 && !allowed[rec.Filename] {
			continue
		}
		results = append(results, models.SearchResult{ChunkRecord: rec, Distance: cand.dist})
		if len(results) >= n {
			break
		}
	}
	return results, nil
}

// Stats returns the current chunk count and collection name.
func (s *Store) Stats() models.CollectionStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.CollectionStats{
		TotalChunks:    len(s.records),
		CollectionName: s.collection,
	}
}

// UploadedFiles groups metadata by filename in first-seen order.
func (s *Store) UploadedFiles() []models.FileInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	var order []string
	for _, rec := range s.records {
		if _, seen := counts[rec.Filename]; !seen {
			order = append(order, rec.Filename)
		}
		counts[rec.Filename]++
	}
	files := make([]models.FileInfo, 0, len(order))
	for _, name := range order {
		files = append(files, models.FileInfo{Filename: name, ChunkCount: counts[name]})
	}
	return files
}

// Size returns the number of stored vectors.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

// Clear removes all vectors and metadata and persists the empty state.
// This is the only deletion operation; it is all-or-nothing.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prevVectors, prevRecords := s.vectors, s.records
	s.vectors = nil
	s.records = nil
	if err := s.persistLocked(); err != nil {
		s.vectors = prevVectors
		s.records = prevRecords
		return fmt.Errorf("persist cleared collection %q: %w", s.collection, err)
	}
	s.logger.Info("collection cleared", zap.String("collection", s.collection))
	return nil
}
