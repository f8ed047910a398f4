// Package conversation maintains bounded rolling dialogue history and renders
// the generation prompt.
package conversation

import (
	"strings"
	"sync"
)

// Turn roles. Rendering maps "user" to "User" and "ai" to "AI".
const (
	RoleUser = "user"
	RoleAI   = "ai"
)

// Turn is one utterance of a conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// DefaultMaxTurns bounds history to 5 user/AI exchanges.
const DefaultMaxTurns = 10

// History is a bounded FIFO buffer of turns. When the bound is exceeded the
// oldest turns are dropped, so the buffer always holds the most recent turns.
type History struct {
	mu    sync.Mutex
	max   int
	turns []Turn
}

// NewHistory creates a history bounded to max turns (DefaultMaxTurns when
// max is not positive).
func NewHistory(max int) *History {
	if max <= 0 {
		max = DefaultMaxTurns
	}
	return &History{max: max}
}

// AppendUser pushes a user turn and trims to the bound.
func (h *History) AppendUser(content string) {
	h.append(RoleUser, content)
}

// AppendAI pushes an AI turn and trims to the bound.
func (h *History) AppendAI(content string) {
	h.append(RoleAI, content)
}

func (h *History) append(role, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, Turn{Role: role, Content: content})
	h.trimLocked()
}

func (h *History) trimLocked() {
	if excess := len(h.turns) - h.max; excess > 0 {
		h.turns = append(h.turns[:0:0], h.turns[excess:]...)
	}
}

// Len returns the number of buffered turns.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}

// Turns returns a copy of the buffered turns in order.
func (h *History) Turns() []Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Reset drops all turns.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = nil
}

// RenderPrompt concatenates the history as "<Role>: <content>\n" per turn
// followed by a trailing "AI:" cue with no newline, marking where the
// generator should continue.
func (h *History) RenderPrompt() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var b strings.Builder
	for _, t := range h.turns {
		b.WriteString(roleLabel(t.Role))
		b.WriteString(": ")
		b.WriteString(t.Content)
		b.WriteByte('\n')
	}
	b.WriteString("AI:")
	return b.String()
}

func roleLabel(role string) string {
	switch role {
	case RoleUser:
		return "User"
	case RoleAI:
		return "AI"
	default:
		return role
	}
}
