package chunker

import (
	"strings"
	"testing"
)

func TestChunk_NoOverlapReconstructsText(t *testing.T) {
	c := New(20, 0)
	text := "the quick brown fox jumps over the lazy dog again and again until it is tired"
	chunks := c.Chunk(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	var words []string
	for _, ch := range chunks {
		words = append(words, strings.Fields(ch.Text)...)
	}
	if got, want := strings.Join(words, " "), strings.Join(strings.Fields(text), " "); got != want {
		t.Errorf("reconstructed text mismatch:\ngot  %q\nwant %q", got, want)
	}
}

func TestChunk_IDsAndLengths(t *testing.T) {
	c := New(30, 10)
	text := strings.Repeat("alpha beta gamma delta epsilon ", 10)
	chunks := c.Chunk(text)
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	for i, ch := range chunks {
		if ch.ChunkID != i {
			t.Errorf("chunk %d: ChunkID=%d", i, ch.ChunkID)
		}
		if ch.Length != len(ch.Text) {
			t.Errorf("chunk %d: Length=%d, len(Text)=%d", i, ch.Length, len(ch.Text))
		}
		if i < len(chunks)-1 && ch.Length < 30-1 {
			t.Errorf("chunk %d shorter than chunk size: %d", i, ch.Length)
		}
	}
}

func TestChunk_OverlapCarriesSuffix(t *testing.T) {
	c := New(30, 15)
	text := strings.Repeat("one two three four five six ", 8)
	chunks := c.Chunk(text)
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	first := strings.Fields(chunks[0].Text)
	second := strings.Fields(chunks[1].Text)
	// Overlap of 15/30 keeps half the emitted words as the next buffer's prefix.
	keep := len(first) * 15 / 30
	if keep == 0 {
		t.Fatal("test expects a non-zero overlap word count")
	}
	for i := 0; i < keep; i++ {
		if first[len(first)-keep+i] != second[i] {
			t.Fatalf("overlap words not carried: %v vs %v", first, second)
		}
	}
}

func TestChunk_EmptyInput(t *testing.T) {
	c := New(500, 50)
	if got := c.Chunk(""); got != nil {
		t.Errorf("empty text should yield no chunks, got %v", got)
	}
	if got := c.Chunk("  \n\t "); got != nil {
		t.Errorf("whitespace text should yield no chunks, got %v", got)
	}
}

func TestChunk_OverlapLargerThanSizeTerminates(t *testing.T) {
	c := New(10, 25)
	chunks := c.Chunk(strings.Repeat("word ", 50))
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	for i, ch := range chunks {
		if ch.ChunkID != i {
			t.Errorf("chunk %d: ChunkID=%d", i, ch.ChunkID)
		}
	}
}

func TestChunk_SingleShortText(t *testing.T) {
	c := New(500, 50)
	chunks := c.Chunk("just a few words")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "just a few words" || chunks[0].ChunkID != 0 {
		t.Errorf("unexpected chunk: %+v", chunks[0])
	}
}
