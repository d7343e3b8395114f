package chunkstore

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryStore keeps chunks and embeddings in process memory. It is the
// default backend and the reference for the distance filter contract.
type MemoryStore struct {
	embedder    Embedder
	model       string
	maxDistance float64

	mu     sync.RWMutex
	chunks map[string][]Chunk // companyID -> chunks in insertion order
}

// NewMemoryStore creates an in-memory store. maxDistance bounds the
// cosine distance of any returned result.
func NewMemoryStore(embedder Embedder, model string, maxDistance float64) *MemoryStore {
	return &MemoryStore{
		embedder:    embedder,
		model:       model,
		maxDistance: maxDistance,
		chunks:      make(map[string][]Chunk),
	}
}

// Index embeds and stores the given chunks for a company. Chunks that
// already carry an embedding are stored as-is.
func (s *MemoryStore) Index(ctx context.Context, companyID string, chunks []Chunk) error {
	var texts []string
	var missing []int
	for i, c := range chunks {
		if len(c.Embedding) == 0 {
			texts = append(texts, c.Text)
			missing = append(missing, i)
		}
	}
	if len(texts) > 0 {
		vecs, _, err := s.embedder.Embed(ctx, s.model, texts)
		if err != nil {
			return &EmbeddingError{CompanyID: companyID, Err: err}
		}
		for j, i := range missing {
			chunks[i].Embedding = vecs[j]
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks[companyID] = append(s.chunks[companyID], chunks...)
	return nil
}

// Query returns the k nearest chunks of a company to the query text,
// dropping any result with distance above the configured maximum. Ties
// keep original chunk order for determinism.
func (s *MemoryStore) Query(ctx context.Context, companyID string, queryText string, k int) ([]Scored, error) {
	vecs, _, err := s.embedder.Embed(ctx, s.model, []string{queryText})
	if err != nil {
		return nil, &EmbeddingError{CompanyID: companyID, Err: err}
	}
	qv := vecs[0]

	s.mu.RLock()
	chunks := s.chunks[companyID]
	s.mu.RUnlock()

	scored := make([]Scored, 0, len(chunks))
	for _, c := range chunks {
		d := CosineDistance(qv, c.Embedding)
		if d > s.maxDistance {
			continue
		}
		scored = append(scored, Scored{Chunk: c, Distance: d})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Distance < scored[j].Distance })
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// Purge drops all chunks of a company.
func (s *MemoryStore) Purge(ctx context.Context, companyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chunks, companyID)
	return nil
}

// Count returns the number of indexed chunks for a company.
func (s *MemoryStore) Count(companyID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks[companyID])
}

// CosineDistance computes 1 - cosine similarity between two vectors.
// Mismatched or zero vectors are maximally distant.
func CosineDistance(a, b []float32) float64 {
	return 1 - CosineSimilarity(a, b)
}

// CosineSimilarity computes the cosine of the angle between two vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
