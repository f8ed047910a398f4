// Package models defines core data structures for chunks, search results, and API shapes.
package models

import "time"

// Chunk is one passage produced by the chunker from a single document's text.
// ChunkID is monotonic per document, starting at 0.
type Chunk struct {
	Text    string `json:"text"`
	ChunkID int    `json:"chunk_id"`
	Length  int    `json:"length"`
}

// ChunkRecord is a chunk as stored in the vector index, tied to its source file.
// The Nth record in the metadata sequence corresponds exactly to the Nth vector
// in the vector sequence; that positional correspondence is the index's only
// link between a vector and its metadata.
type ChunkRecord struct {
	Text     string `json:"text"`
	Filename string `json:"filename"`
	ChunkID  int    `json:"chunk_id"`
	Length   int    `json:"length"`
}

// SearchResult is a retrieved record with its squared L2 distance to the query.
type SearchResult struct {
	ChunkRecord
	Distance float64 `json:"distance"`
}

// CollectionStats describes the current state of a collection.
type CollectionStats struct {
	TotalChunks    int    `json:"total_chunks"`
	CollectionName string `json:"collection_name"`
}

// FileInfo is one uploaded file with its chunk count, derived from index metadata.
type FileInfo struct {
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
}

// UploadedDocument is one row of the upload registry.
type UploadedDocument struct {
	Filename   string    `json:"filename"`
	TextLength int       `json:"text_length"`
	NumChunks  int       `json:"num_chunks"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// ChatRequest is the chat use-case input. UseRAG defaults to true when unset.
type ChatRequest struct {
	Message       string   `json:"message"`
	UseRAG        *bool    `json:"use_rag,omitempty"`
	SelectedFiles []string `json:"selected_files,omitempty"`
	SessionID     string   `json:"session_id,omitempty"`
}

// RAGEnabled reports whether retrieval is requested (default true).
func (r *ChatRequest) RAGEnabled() bool {
	if r.UseRAG == nil {
		return true
	}
	return *r.UseRAG
}

// ChatResponse is the chat use-case output.
type ChatResponse struct {
	Reply           string `json:"reply"`
	RetrievedChunks int    `json:"retrieved_chunks"`
	UsedRAG         bool   `json:"used_rag"`
}

// UploadResponse is returned after a document upload is indexed.
type UploadResponse struct {
	Filename   string          `json:"filename"`
	TextLength int             `json:"text_length"`
	NumChunks  int             `json:"num_chunks"`
	Stats      CollectionStats `json:"stats"`
}
