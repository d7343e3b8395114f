package openai_provider

import (
	"testing"

	"github.com/thinkbridge/factsheet/config"
)

func TestCalculateCostDefaults(t *testing.T) {
	c := NewClient(config.LLMConfig{APIKey: "k"})
	got := c.CalculateCost(1000, 1000, "gpt-4")
	want := 0.03 + 0.06
	if got != want {
		t.Fatalf("cost = %v, want %v", got, want)
	}
}

func TestCalculateCostModelOverride(t *testing.T) {
	cfg := config.LLMConfig{
		APIKey: "k",
		Models: map[string]config.LLMModel{
			"cheap": {CostPer1K: 0.001, CostPer1KOutput: 0.002},
		},
	}
	c := NewClient(cfg)
	got := c.CalculateCost(2000, 500, "cheap")
	want := 2*0.001 + 0.5*0.002
	if got != want {
		t.Fatalf("cost = %v, want %v", got, want)
	}
	// Unknown model falls back to defaults.
	if c.CalculateCost(1000, 0, "unknown") != 0.03 {
		t.Fatalf("unknown model should use default input pricing")
	}
}

func TestEmbeddingCost(t *testing.T) {
	c := NewClient(config.LLMConfig{APIKey: "k"})
	got := c.EmbeddingCost(500000, "text-embedding-3-small")
	want := 500.0 * 0.00002
	if got != want {
		t.Fatalf("embedding cost = %v, want %v", got, want)
	}
}

func TestAPINameMapping(t *testing.T) {
	cfg := config.LLMConfig{
		APIKey: "k",
		Models: map[string]config.LLMModel{
			"primary": {APIName: "gpt-4-0613"},
		},
	}
	c := NewClient(cfg)
	if got := c.apiName("primary"); got != "gpt-4-0613" {
		t.Fatalf("apiName = %q", got)
	}
	if got := c.apiName("gpt-4"); got != "gpt-4" {
		t.Fatalf("unmapped model should pass through, got %q", got)
	}
}
