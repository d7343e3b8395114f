package chunkstore

import (
	"context"

	"github.com/thinkbridge/factsheet/internal/budget"
	"github.com/thinkbridge/factsheet/provider"
)

// MeteredEmbedder wraps an LLM provider so that every embedding call a
// store makes is authorized against the budget guard and settled with
// the tokens the API actually billed. Stores never talk to the provider
// directly; without this wrapper their embedding spend would be
// invisible to the ceiling.
type MeteredEmbedder struct {
	llm   provider.Provider
	guard *budget.Guard
}

// NewMeteredEmbedder wraps llm with budget authorization.
func NewMeteredEmbedder(llm provider.Provider, guard *budget.Guard) *MeteredEmbedder {
	return &MeteredEmbedder{llm: llm, guard: guard}
}

// Embed authorizes the estimated cost, forwards to the provider, and
// records the actual cost. A denied authorization surfaces as
// budget.ErrExceeded without calling the provider.
func (m *MeteredEmbedder) Embed(ctx context.Context, model string, texts []string) ([][]float32, int64, error) {
	var estTokens int64
	for _, t := range texts {
		estTokens += provider.EstimateTokens(t)
	}
	estCost := m.llm.EmbeddingCost(estTokens, model)
	if !m.guard.Authorize(estCost) {
		return nil, 0, budget.ErrExceeded{EstimatedUSD: estCost, Usage: m.guard.Usage()}
	}

	vecs, usedTokens, err := m.llm.Embed(ctx, model, texts)
	if err != nil {
		m.guard.Release(estCost)
		return nil, 0, err
	}
	m.guard.Record(estCost, m.llm.EmbeddingCost(usedTokens, model), usedTokens)
	return vecs, usedTokens, nil
}
