package chunkstore

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
)

// fakeEmbedder maps known phrases to fixed vectors so distance ordering
// is deterministic without a network call.
type fakeEmbedder struct {
	vectors map[string][]float32
	fail    bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, model string, texts []string) ([][]float32, int64, error) {
	if f.fail {
		return nil, 0, context.DeadlineExceeded
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := f.vectors[t]; ok {
			out[i] = v
			continue
		}
		// default vector keyed off first rune so unknown texts differ
		r := float32(1)
		if len(t) > 0 {
			r = float32(t[0])
		}
		out[i] = []float32{r, 1, 0}
	}
	return out, int64(len(texts) * 10), nil
}

func TestCosineDistance(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 2},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 1},
		{"length mismatch", []float32{1}, []float32{1, 0}, 1},
	}
	for _, tc := range cases {
		got := CosineDistance(tc.a, tc.b)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("%s: distance = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestQueryFiltersByMaxDistance(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"query":    {1, 0, 0},
		"close":    {1, 0.1, 0},
		"far":      {0, 1, 0},
		"moderate": {1, 1, 0},
	}}
	store := NewMemoryStore(emb, "test-model", 0.25)

	chunks := []Chunk{
		{ID: "1", CompanyID: "acme", Text: "close"},
		{ID: "2", CompanyID: "acme", Text: "far"},
		{ID: "3", CompanyID: "acme", Text: "moderate"},
	}
	if err := store.Index(context.Background(), "acme", chunks); err != nil {
		t.Fatalf("index: %v", err)
	}

	got, err := store.Query(context.Background(), "acme", "query", 6)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	for _, s := range got {
		if s.Distance > 0.25 {
			t.Fatalf("chunk %s returned with distance %v > 0.25", s.Chunk.ID, s.Distance)
		}
	}
	if len(got) != 1 || got[0].Chunk.ID != "1" {
		t.Fatalf("expected only the close chunk, got %+v", got)
	}
}

func TestQueryReturnsFewerThanK(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"query": {1, 0, 0},
		"a":     {1, 0, 0},
		"b":     {1, 0.05, 0},
	}}
	store := NewMemoryStore(emb, "test-model", 0.25)
	_ = store.Index(context.Background(), "acme", []Chunk{
		{ID: "a", Text: "a"}, {ID: "b", Text: "b"},
	})

	got, err := store.Query(context.Background(), "acme", "query", 6)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results (never padded to k), got %d", len(got))
	}
	if got[0].Chunk.ID != "a" {
		t.Fatalf("expected ascending distance order, got %+v", got)
	}
}

func TestQueryIsolatesCompanies(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"query": {1, 0, 0},
		"mine":  {1, 0, 0},
		"other": {1, 0, 0},
	}}
	store := NewMemoryStore(emb, "test-model", 0.25)
	_ = store.Index(context.Background(), "acme", []Chunk{{ID: "1", Text: "mine"}})
	_ = store.Index(context.Background(), "globex", []Chunk{{ID: "2", Text: "other"}})

	got, err := store.Query(context.Background(), "acme", "query", 6)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0].Chunk.ID != "1" {
		t.Fatalf("expected only acme's chunk, got %+v", got)
	}
}

func TestIndexWrapsEmbeddingError(t *testing.T) {
	store := NewMemoryStore(&fakeEmbedder{fail: true}, "test-model", 0.25)
	err := store.Index(context.Background(), "acme", []Chunk{{ID: "1", Text: "x"}})
	if err == nil {
		t.Fatal("expected error")
	}
	var ee *EmbeddingError
	if !errors.As(err, &ee) {
		t.Fatalf("expected EmbeddingError, got %T: %v", err, err)
	}
	if ee.CompanyID != "acme" {
		t.Fatalf("expected company id in error, got %q", ee.CompanyID)
	}
	if !strings.Contains(ee.Error(), "acme") {
		t.Fatalf("error message should name the company: %q", ee.Error())
	}
}

func TestPurgeDropsCompany(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{"x": {1, 0, 0}}}
	store := NewMemoryStore(emb, "test-model", 0.25)
	_ = store.Index(context.Background(), "acme", []Chunk{{ID: "1", Text: "x"}})
	if store.Count("acme") != 1 {
		t.Fatalf("expected 1 chunk before purge")
	}
	_ = store.Purge(context.Background(), "acme")
	if store.Count("acme") != 0 {
		t.Fatalf("expected 0 chunks after purge")
	}
}
