package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/kotae/internal/chat"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/pkg/utils"
	"go.uber.org/zap"
)

const maxUploadBytes = 32 << 20

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("chat request",
		zap.String("message", utils.Truncate(req.Message, 120)),
		zap.Bool("use_rag", req.RAGEnabled()),
		zap.String("session_id", req.SessionID),
	)
	resp, err := s.chat.Chat(r.Context(), &req)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) {
			s.respondError(w, http.StatusBadRequest, "message must not be empty")
			return
		}
		s.logger.Error("chat failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read file")
		return
	}
	s.logger.Debug("upload request",
		zap.String("filename", header.Filename),
		zap.Int("size", len(content)),
	)
	resp, err := s.indexer.IngestBytes(r.Context(), content, header.Filename)
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrUnsupportedFormat):
			s.respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, extract.ErrExtractionEmpty):
			s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			s.logger.Error("upload failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.respondJSON(w, http.StatusCreated, resp)
}

// handleListDocuments reports files from index metadata; chunk counts come
// from the collection itself, not the upload registry.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	files := s.store.UploadedFiles()
	if files == nil {
		files = []models.FileInfo{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"documents": files})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	doc, err := s.registry.GetUpload(r.Context(), filename)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("clear collection request")
	if err := s.indexer.Clear(r.Context()); err != nil {
		s.logger.Error("clear failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.store.Stats())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	uploads, err := s.registry.CountUploads(r.Context())
	if err != nil {
		s.logger.Error("status: count uploads failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"documents":    uploads,
		"total_chunks": s.store.Size(),
		"collection":   s.config.Storage.CollectionName,
		"config": map[string]interface{}{
			"embedding_dimensions": s.config.Embedding.Dimensions,
			"chunk_size":           s.config.Chat.ChunkSize,
			"chunk_overlap":        s.config.Chat.ChunkOverlap,
			"n_results":            s.config.Chat.NResults,
			"generation_provider":  s.config.Generation.Provider,
		},
	}
	diskBytes, err := storage.DiskUsageBytes(
		s.config.Storage.PersistDir,
		s.config.Storage.UploadDir,
		s.config.Storage.DatabasePath,
	)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.chat.ResetSession(id)
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
