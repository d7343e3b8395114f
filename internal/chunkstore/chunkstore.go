package chunkstore

import (
	"context"
	"fmt"
)

// SourcePage identifies which scraped page a chunk came from.
type SourcePage string

const (
	PageHome  SourcePage = "home"
	PageAbout SourcePage = "about"
)

// Chunk is a bounded slice of cleaned source text. The embedding is
// attached during indexing; chunks are immutable afterwards.
type Chunk struct {
	ID         string
	CompanyID  string
	SourcePage SourcePage
	Text       string
	TokenCount int
	Embedding  []float32
}

// Scored pairs a chunk with its cosine distance from a query.
type Scored struct {
	Chunk    Chunk
	Distance float64
}

// Store indexes company chunks and answers nearest-neighbor queries.
// Query returns at most k chunks ordered by ascending cosine distance,
// never including a chunk whose distance exceeds the store's maximum.
type Store interface {
	Index(ctx context.Context, companyID string, chunks []Chunk) error
	Query(ctx context.Context, companyID string, queryText string, k int) ([]Scored, error)
	Purge(ctx context.Context, companyID string) error
}

// Embedder is the slice of the LLM provider the store needs. The second
// return value is the token usage billed for the call.
type Embedder interface {
	Embed(ctx context.Context, model string, texts []string) ([][]float32, int64, error)
}

// EmbeddingError wraps a failure to embed chunk or query text. Callers
// may retry or skip the company.
type EmbeddingError struct {
	CompanyID string
	Err       error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed for company %s: %v", e.CompanyID, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }
