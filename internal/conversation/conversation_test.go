package conversation

import (
	"fmt"
	"strings"
	"testing"
)

func TestHistory_Bound(t *testing.T) {
	h := NewHistory(10)
	for i := 0; i < 15; i++ {
		if i%2 == 0 {
			h.AppendUser(fmt.Sprintf("msg %d", i))
		} else {
			h.AppendAI(fmt.Sprintf("msg %d", i))
		}
	}
	if h.Len() != 10 {
		t.Fatalf("Len=%d, want 10", h.Len())
	}
	turns := h.Turns()
	// The 10 most recent turns, in original relative order.
	for i, turn := range turns {
		want := fmt.Sprintf("msg %d", i+5)
		if turn.Content != want {
			t.Errorf("turn %d content=%q, want %q", i, turn.Content, want)
		}
	}
}

func TestHistory_RenderPrompt(t *testing.T) {
	h := NewHistory(10)
	h.AppendUser("hello")
	h.AppendAI("hi there")
	h.AppendUser("how are you?")

	want := "User: hello\nAI: hi there\nUser: how are you?\nAI:"
	if got := h.RenderPrompt(); got != want {
		t.Errorf("prompt:\ngot  %q\nwant %q", got, want)
	}
}

func TestHistory_RenderPromptEmpty(t *testing.T) {
	h := NewHistory(4)
	if got := h.RenderPrompt(); got != "AI:" {
		t.Errorf("empty prompt=%q", got)
	}
}

func TestHistory_Reset(t *testing.T) {
	h := NewHistory(4)
	h.AppendUser("a")
	h.AppendAI("b")
	h.Reset()
	if h.Len() != 0 {
		t.Errorf("Len=%d after reset", h.Len())
	}
}

func TestHistory_TurnsIsACopy(t *testing.T) {
	h := NewHistory(4)
	h.AppendUser("original")
	turns := h.Turns()
	turns[0].Content = "mutated"
	if h.Turns()[0].Content != "original" {
		t.Error("Turns should return a copy")
	}
}

func TestHistory_DefaultBound(t *testing.T) {
	h := NewHistory(0)
	for i := 0; i < DefaultMaxTurns+5; i++ {
		h.AppendUser(strings.Repeat("x", i+1))
	}
	if h.Len() != DefaultMaxTurns {
		t.Errorf("Len=%d, want %d", h.Len(), DefaultMaxTurns)
	}
}
