package provider

import (
	"context"
	"errors"

	"github.com/thinkbridge/factsheet/config"
	openai_provider "github.com/thinkbridge/factsheet/provider/openai"
)

// Client represents different LLM providers.
type Client string

const (
	OpenAI    Client = "openai"
	Anthropic Client = "anthropic"
)

// Provider is the interface every LLM backend must satisfy. Completion
// and embedding calls report token usage so callers can settle the
// actual cost with the budget guard.
type Provider interface {
	Complete(ctx context.Context, prompt string, model string) (text string, inputTokens int64, outputTokens int64, err error)
	Embed(ctx context.Context, model string, texts []string) (vectors [][]float32, usedTokens int64, err error)
	CalculateCost(inputTokens, outputTokens int64, model string) float64
	EmbeddingCost(tokens int64, model string) float64
}

// NewProvider creates an LLM client from configuration.
func NewProvider(client Client, cfg config.LLMConfig) (Provider, error) {
	switch client {
	case OpenAI:
		if cfg.APIKey == "" {
			return nil, errors.New("OPENAI_API_KEY not set")
		}
		return openai_provider.NewClient(cfg), nil
	case Anthropic:
		return nil, errors.New("anthropic client not implemented yet")
	default:
		return nil, errors.New("unsupported LLM provider")
	}
}

// EstimateTokens approximates token usage for budgeting before a call is
// made. Four characters per token tracks the tokenizer closely enough for
// authorization purposes.
func EstimateTokens(text string) int64 {
	return int64(len(text) / 4)
}
