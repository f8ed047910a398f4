// Package chat implements the retrieval-augmented chat use case: retrieve
// relevant chunks, assemble a grounded prompt from history and context, and
// invoke the generator.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperjump/kotae/internal/conversation"
	"github.com/hyperjump/kotae/internal/generate"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
	"go.uber.org/zap"
)

// ErrEmptyMessage rejects chat requests with no message before any state is
// touched.
var ErrEmptyMessage = errors.New("message is required")

const contextHeader = "Use the following context to answer the question:\n\n"

// Service orchestrates one chat request end to end.
type Service struct {
	store     *vector.Store
	generator generate.Generator
	logger    *zap.Logger
	nResults  int
	sessions  *Sessions
}

// NewService creates the chat service. nResults bounds retrieval per request;
// maxHistory bounds each session's turn buffer.
func NewService(store *vector.Store, generator generate.Generator, nResults, maxHistory int, logger *zap.Logger) *Service {
	if nResults <= 0 {
		nResults = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		generator: generator,
		logger:    logger,
		nResults:  nResults,
		sessions:  NewSessions(maxHistory),
	}
}

// Chat runs the chat use case. Retrieval happens when RAG is enabled and the
// index is non-empty; the retrieved context is folded into the stored user
// turn so later prompts keep the citations. Generator failure is converted
// into a textual error reply, never an error return.
func (s *Service) Chat(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	var retrieved []models.SearchResult
	if req.RAGEnabled() && s.store.Size() > 0 {
		results, err := s.store.Search(ctx, message, s.nResults, req.SelectedFiles)
		if err != nil {
			return nil, fmt.Errorf("retrieve context: %w", err)
		}
		retrieved = results
	}

	session := s.sessions.Get(req.SessionID)
	session.AppendUser(composeUserContent(message, retrieved))
	prompt := session.RenderPrompt()

	// The generator can take seconds; no history lock is held here.
	reply, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		s.logger.Warn("generation failed, replying with error text", zap.Error(err))
		reply = fmt.Sprintf("Error generating response: %v", err)
	}
	session.AppendAI(reply)

	s.logger.Debug("chat handled",
		zap.String("session", s.sessions.Key(req.SessionID)),
		zap.Int("retrieved_chunks", len(retrieved)),
		zap.Bool("used_rag", len(retrieved) > 0),
	)
	return &models.ChatResponse{
		Reply:           reply,
		RetrievedChunks: len(retrieved),
		UsedRAG:         len(retrieved) > 0,
	}, nil
}

// History returns the turn buffer of a session (read-only copy).
func (s *Service) History(sessionID string) []conversation.Turn {
	return s.sessions.Get(sessionID).Turns()
}

// ResetSession drops one session's history.
func (s *Service) ResetSession(sessionID string) {
	s.sessions.Reset(sessionID)
}

// composeUserContent builds the content stored as the user turn. With
// retrieved chunks it is a labeled context block, a grounding directive, and
// the question; without, the question plus a concision directive.
func composeUserContent(message string, retrieved []models.SearchResult) string {
	if len(retrieved) == 0 {
		return message + "\n\nPlease answer as concisely as possible."
	}
	var b strings.Builder
	b.WriteString(contextHeader)
	for i, r := range retrieved {
		fmt.Fprintf(&b, "[Context %d] (from %s):\n%s\n\n", i+1, r.Filename, r.Text)
	}
	b.WriteString("Based on the context above, answer the following question as concisely as possible. If the context does not contain the answer, say so.\n\n")
	b.WriteString(message)
	return b.String()
}
