package chat

import (
	"sync"

	"github.com/hyperjump/kotae/internal/conversation"
)

// DefaultSession is the session used when a request carries no session ID.
const DefaultSession = "default"

// Sessions maps session IDs to their conversation histories. Histories are
// created on first use and live for the process lifetime unless reset.
type Sessions struct {
	mu         sync.Mutex
	maxHistory int
	byID       map[string]*conversation.History
}

// NewSessions creates a session registry whose histories are bounded to
// maxHistory turns.
func NewSessions(maxHistory int) *Sessions {
	return &Sessions{
		maxHistory: maxHistory,
		byID:       make(map[string]*conversation.History),
	}
}

// Key normalizes a session ID; empty means DefaultSession.
func (s *Sessions) Key(id string) string {
	if id == "" {
		return DefaultSession
	}
	return id
}

// Get returns the history for id, creating it if needed.
func (s *Sessions) Get(id string) *conversation.History {
	key := s.Key(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.byID[key]
	if !ok {
		h = conversation.NewHistory(s.maxHistory)
		s.byID[key] = h
	}
	return h
}

// Reset drops the history for id if it exists.
func (s *Sessions) Reset(id string) {
	key := s.Key(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.byID[key]; ok {
		h.Reset()
	}
}
