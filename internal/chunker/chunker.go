// Package chunker splits document text into overlapping passages.
package chunker

import (
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// Chunker splits text into chunks of roughly chunkSize characters, with an
// approximate character overlap carried between consecutive chunks.
type Chunker struct {
	chunkSize int
	overlap   int
}

// New creates a chunker. chunkSize and overlap are in characters; overlap is
// expected to be smaller than chunkSize but larger values are tolerated.
func New(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if overlap < 0 {
		overlap = 0
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}
}

// Chunk splits text on whitespace and accumulates words until the running
// length (len(word)+1 per word, counting the separator) reaches the chunk
// size, then emits a chunk and seeds the next buffer with a suffix of the
// emitted words. The suffix word count is len(buffer)*overlap/chunkSize,
// so the actual character overlap varies with average word length. Any
// trailing words are emitted as a final, possibly short, chunk.
// Empty or whitespace-only text yields no chunks.
func (c *Chunker) Chunk(text string) []models.Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []models.Chunk
	var current []string
	currentLen := 0
	chunkID := 0

	for _, word := range words {
		current = append(current, word)
		currentLen += len(word) + 1

		if currentLen >= c.chunkSize {
			chunks = append(chunks, c.emit(current, chunkID))
			chunkID++

			keep := len(current) * c.overlap / c.chunkSize
			if keep > len(current) {
				keep = len(current)
			}
			if keep > 0 {
				carry := make([]string, keep)
				copy(carry, current[len(current)-keep:])
				current = carry
			} else {
				current = nil
			}
			currentLen = 0
			for _, w := range current {
				currentLen += len(w) + 1
			}
		}
	}

	if len(current) > 0 {
		chunks = append(chunks, c.emit(current, chunkID))
	}
	return chunks
}

func (c *Chunker) emit(words []string, chunkID int) models.Chunk {
	text := strings.Join(words, " ")
	return models.Chunk{
		Text:    text,
		ChunkID: chunkID,
		Length:  len(text),
	}
}
