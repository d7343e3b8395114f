package clean

import (
	"strings"
	"testing"
)

func TestCleanStripsMarkupAndNoise(t *testing.T) {
	raw := "<script>var x = 1;</script>\n" +
		"<style>.a { color: red }</style>\n" +
		"Acme Corp builds <b>industrial</b> robots.\n" +
		"Cookie Policy\n" +
		"Skip to content\n" +
		"Founded in 1928 in Kentucky."

	got := Clean(raw)
	if strings.Contains(got, "var x") || strings.Contains(got, "color: red") {
		t.Fatalf("script/style content survived: %q", got)
	}
	if strings.Contains(got, "<b>") {
		t.Fatalf("tags survived: %q", got)
	}
	if strings.Contains(strings.ToLower(got), "cookie policy") {
		t.Fatalf("boilerplate survived: %q", got)
	}
	if !strings.Contains(got, "industrial") || !strings.Contains(got, "1928") {
		t.Fatalf("real content lost: %q", got)
	}
}

func TestCleanCollapsesWhitespace(t *testing.T) {
	got := Clean("a    b\t\tc\n\n\n\n\nd")
	if strings.Contains(got, "  ") {
		t.Fatalf("runs of spaces survived: %q", got)
	}
	if strings.Contains(got, "\n\n\n") {
		t.Fatalf("runs of blank lines survived: %q", got)
	}
}

func TestChunkerSizesAndOverlap(t *testing.T) {
	words := make([]string, 2500)
	for i := range words {
		words[i] = "w"
	}
	text := strings.Join(words, " ")

	c := NewChunker(1000, 200)
	chunks := c.Chunk("acme", "home", text)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks for 2500 words at 1000/200, got %d", len(chunks))
	}
	if chunks[0].TokenCount != 1000 || chunks[1].TokenCount != 1000 {
		t.Fatalf("full chunks must hold 1000 tokens, got %d and %d", chunks[0].TokenCount, chunks[1].TokenCount)
	}
	// 2500 words: [0,1000) [800,1800) [1600,2500)
	if chunks[2].TokenCount != 900 {
		t.Fatalf("tail chunk should hold 900 tokens, got %d", chunks[2].TokenCount)
	}
	for i, ch := range chunks {
		if ch.CompanyID != "acme" || ch.SourcePage != "home" {
			t.Fatalf("chunk %d missing identity fields: %+v", i, ch)
		}
		if ch.ID == "" {
			t.Fatalf("chunk %d missing id", i)
		}
	}
}

func TestChunkerShortText(t *testing.T) {
	c := NewChunker(1000, 200)
	chunks := c.Chunk("acme", "about", "only a few words here")
	if len(chunks) != 1 {
		t.Fatalf("expected single chunk, got %d", len(chunks))
	}
	if chunks[0].TokenCount != 5 {
		t.Fatalf("expected 5 tokens, got %d", chunks[0].TokenCount)
	}
}

func TestChunkerEmptyText(t *testing.T) {
	c := NewChunker(1000, 200)
	if chunks := c.Chunk("acme", "home", "   "); chunks != nil {
		t.Fatalf("expected nil for empty text, got %d chunks", len(chunks))
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(strings.Repeat("a", 400)); got != 100 {
		t.Fatalf("expected 100 tokens for 400 chars, got %d", got)
	}
}
