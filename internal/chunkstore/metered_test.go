package chunkstore

import (
	"context"
	"errors"
	"testing"

	"github.com/thinkbridge/factsheet/internal/budget"
)

// fakeProvider prices embeddings steeply so small calls move the guard
// visibly. Estimated and actual token counts intentionally differ.
type fakeProvider struct {
	fail       bool
	usedTokens int64
}

func (f *fakeProvider) Complete(ctx context.Context, prompt string, model string) (string, int64, int64, error) {
	return "", 0, 0, errors.New("not used")
}

func (f *fakeProvider) Embed(ctx context.Context, model string, texts []string) ([][]float32, int64, error) {
	if f.fail {
		return nil, 0, errors.New("embed backend down")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, f.usedTokens, nil
}

func (f *fakeProvider) CalculateCost(inputTokens, outputTokens int64, model string) float64 {
	return 0
}

func (f *fakeProvider) EmbeddingCost(tokens int64, model string) float64 {
	return float64(tokens) * 0.01
}

func TestMeteredEmbedChargesGuard(t *testing.T) {
	llm := &fakeProvider{usedTokens: 40}
	guard := budget.NewGuard(100)
	store := NewMemoryStore(NewMeteredEmbedder(llm, guard), "emb", 0.25)

	ctx := context.Background()
	if err := store.Index(ctx, "acme", []Chunk{{ID: "1", Text: "about the company"}}); err != nil {
		t.Fatalf("index: %v", err)
	}
	if _, err := store.Query(ctx, "acme", "what does the company do", 6); err != nil {
		t.Fatalf("query: %v", err)
	}

	u := guard.Usage()
	// Two embedding calls at 40 billed tokens each, $0.01/token.
	if u.SpentUSD != 0.8 {
		t.Fatalf("embedding spend must hit the guard: spent %v, want 0.8", u.SpentUSD)
	}
	if u.Tokens != 80 {
		t.Fatalf("billed tokens must be recorded: got %d, want 80", u.Tokens)
	}
	if u.ReservedUSD != 0 {
		t.Fatalf("settled calls must leave no reservation, got %v", u.ReservedUSD)
	}
}

func TestMeteredEmbedDeniedUnderCeiling(t *testing.T) {
	llm := &fakeProvider{usedTokens: 40}
	guard := budget.NewGuard(0.001)
	store := NewMemoryStore(NewMeteredEmbedder(llm, guard), "emb", 0.25)

	err := store.Index(context.Background(), "acme", []Chunk{{ID: "1", Text: "some chunk text here"}})
	if err == nil {
		t.Fatal("expected denial")
	}
	var exceeded budget.ErrExceeded
	if !errors.As(err, &exceeded) {
		t.Fatalf("expected budget.ErrExceeded, got %T: %v", err, err)
	}
	if !guard.Denied() {
		t.Fatal("denial must stick on the guard")
	}
	if guard.Usage().SpentUSD != 0 {
		t.Fatalf("denied call must not spend, got %v", guard.Usage().SpentUSD)
	}
}

func TestMeteredEmbedReleasesOnFailure(t *testing.T) {
	llm := &fakeProvider{fail: true}
	guard := budget.NewGuard(100)
	me := NewMeteredEmbedder(llm, guard)

	_, _, err := me.Embed(context.Background(), "emb", []string{"some text"})
	if err == nil {
		t.Fatal("expected provider error")
	}
	u := guard.Usage()
	if u.ReservedUSD != 0 || u.SpentUSD != 0 {
		t.Fatalf("failed call must release its reservation, got %+v", u)
	}
}
