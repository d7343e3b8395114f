package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Fatalf("explicit missing config file should error")
	}

	// No path: defaults plus env are enough.
	cfg, err = LoadConfig("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	if cfg.Retrieval.TopK != 6 {
		t.Fatalf("default top_k = %d, want 6", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.MaxDistance != 0.25 {
		t.Fatalf("default max_distance = %v, want 0.25", cfg.Retrieval.MaxDistance)
	}
	if cfg.Generation.MinWords != 600 || cfg.Generation.MaxWords != 1000 {
		t.Fatalf("default word bounds = [%d, %d], want [600, 1000]", cfg.Generation.MinWords, cfg.Generation.MaxWords)
	}
	if cfg.Generation.MaxRegenerates != 2 {
		t.Fatalf("default max_regenerates = %d, want 2", cfg.Generation.MaxRegenerates)
	}
	if cfg.Validation.MinQuestions != 50 {
		t.Fatalf("default min_questions = %d, want 50", cfg.Validation.MinQuestions)
	}
	if cfg.Validation.PassThreshold != 0.80 {
		t.Fatalf("default pass_threshold = %v, want 0.80", cfg.Validation.PassThreshold)
	}
	if cfg.Pipeline.Workers != 8 {
		t.Fatalf("default workers = %d, want 8", cfg.Pipeline.Workers)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{
  "llm": {"chat_model": "gpt-4o", "api_key": "k"},
  "budget": {"ceiling_usd": 12.5},
  "retrieval": {"backend": "qdrant", "qdrant_addr": "localhost:6334"}
}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	if cfg.LLM.ChatModel != "gpt-4o" {
		t.Fatalf("chat_model = %q", cfg.LLM.ChatModel)
	}
	if cfg.Budget.CeilingUSD != 12.5 {
		t.Fatalf("ceiling_usd = %v", cfg.Budget.CeilingUSD)
	}
	// Defaults still apply to untouched sections.
	if cfg.Chunking.ChunkTokens != 1000 || cfg.Chunking.OverlapTokens != 200 {
		t.Fatalf("chunking defaults = %d/%d", cfg.Chunking.ChunkTokens, cfg.Chunking.OverlapTokens)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"bad word bounds", `{"generation": {"min_words": 1000, "max_words": 600}}`},
		{"bad overlap", `{"chunking": {"chunk_tokens": 100, "overlap_tokens": 100}}`},
		{"bad distance", `{"retrieval": {"max_distance": 3.0}}`},
		{"qdrant without addr", `{"retrieval": {"backend": "qdrant"}}`},
		{"zero budget", `{"budget": {"ceiling_usd": 0}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			if err := os.WriteFile(path, []byte(tc.body), 0o644); err != nil {
				t.Fatalf("writing config: %v", err)
			}
			if _, err := LoadConfig(path); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestOverrideFromEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/f?sslmode=disable")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Fatalf("OPENAI_API_KEY not applied")
	}
	dsn, err := cfg.Storage.Postgres.DSN()
	if err != nil || dsn != "postgres://u:p@localhost:5432/f?sslmode=disable" {
		t.Fatalf("DATABASE_URL not applied: %q %v", dsn, err)
	}
}

func TestPostgresDSNFromParts(t *testing.T) {
	p := PostgresConfig{Host: "db", User: "u", Password: "p", DBName: "facts"}
	dsn, err := p.DSN()
	if err != nil {
		t.Fatalf("dsn: %v", err)
	}
	want := "postgres://u:p@db:5432/facts?sslmode=disable"
	if dsn != want {
		t.Fatalf("dsn = %q, want %q", dsn, want)
	}

	if _, err := (PostgresConfig{}).DSN(); err == nil {
		t.Fatalf("empty postgres config should error")
	}
}
