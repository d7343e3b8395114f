package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/thinkbridge/factsheet/config"
	"github.com/thinkbridge/factsheet/internal/budget"
	"github.com/thinkbridge/factsheet/internal/checkpoint"
	"github.com/thinkbridge/factsheet/internal/chunkstore"
	"github.com/thinkbridge/factsheet/internal/clean"
	"github.com/thinkbridge/factsheet/internal/generate"
	"github.com/thinkbridge/factsheet/internal/output"
	"github.com/thinkbridge/factsheet/internal/pipeline"
	"github.com/thinkbridge/factsheet/internal/scrape"
	"github.com/thinkbridge/factsheet/internal/store"
	"github.com/thinkbridge/factsheet/internal/telemetry"
	"github.com/thinkbridge/factsheet/internal/validate"
	"github.com/thinkbridge/factsheet/provider"
)

// app bundles the wired components a command needs. Close releases
// whatever backends were actually opened.
type app struct {
	cfg      *config.Config
	llm      provider.Provider
	guard    *budget.Guard
	chunks   chunkstore.Store
	runner   *pipeline.Runner
	metrics  *telemetry.Metrics
	store    *store.Store
	closeFns []func() error
}

func (a *app) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		if err := a.closeFns[i](); err != nil {
			log.Printf("close: %v", err)
		}
	}
}

// buildApp assembles the pipeline from config. withStore controls
// whether a Postgres connection is attempted; commands that only touch
// local output skip it.
func buildApp(ctx context.Context, cfg *config.Config, withStore bool) (*app, error) {
	a := &app{cfg: cfg}

	llm, err := provider.NewProvider(provider.Client(cfg.LLM.Provider), cfg.LLM)
	if err != nil {
		return nil, err
	}
	a.llm = llm
	a.guard = budget.NewGuard(cfg.Budget.CeilingUSD)

	// Stores embed through the guard so chunk and query embeddings
	// count against the ceiling like every other billed call.
	embedder := chunkstore.NewMeteredEmbedder(llm, a.guard)
	switch cfg.Retrieval.Backend {
	case "qdrant":
		qs, err := chunkstore.NewQdrantStore(cfg.Retrieval.QdrantAddr, cfg.Retrieval.Collection,
			embedder, cfg.LLM.EmbeddingModel, cfg.Retrieval.MaxDistance)
		if err != nil {
			return nil, fmt.Errorf("connecting to qdrant: %w", err)
		}
		a.closeFns = append(a.closeFns, qs.Close)
		a.chunks = qs
	default:
		a.chunks = chunkstore.NewMemoryStore(embedder, cfg.LLM.EmbeddingModel, cfg.Retrieval.MaxDistance)
	}

	if cfg.Telemetry.Enabled {
		a.metrics = telemetry.New()
	}

	if withStore {
		if dsn, err := cfg.Storage.Postgres.DSN(); err == nil {
			st, err := store.NewWithDSN(ctx, dsn)
			if err != nil {
				return nil, err
			}
			a.store = st
			a.closeFns = append(a.closeFns, st.Close)
		}
	}

	cp, err := buildCheckpoint(cfg)
	if err != nil {
		return nil, err
	}

	fetcher := scrape.ChromeFetcher{
		Timeout:   cfg.Scrape.Timeout,
		MaxChars:  cfg.Scrape.MaxChars,
		UserAgent: cfg.Scrape.UserAgent,
	}

	gen := generate.NewGenerator(a.chunks, llm, a.guard, generate.Config{
		ChatModel:      cfg.LLM.ChatModel,
		TopK:           cfg.Retrieval.TopK,
		MinWords:       cfg.Generation.MinWords,
		MaxWords:       cfg.Generation.MaxWords,
		MaxRegenerates: cfg.Generation.MaxRegenerates,
	}, nil)

	val := validate.NewValidator(llm, a.guard, validate.Config{
		ChatModel:      cfg.LLM.ChatModel,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		MinQuestions:   cfg.Validation.MinQuestions,
		PassThreshold:  cfg.Validation.PassThreshold,
		StageRetries:   cfg.Validation.StageRetries,
	}, nil)

	a.runner = &pipeline.Runner{
		Scraper:    scrape.NewScraper(fetcher, nil),
		Chunker:    clean.NewChunker(cfg.Chunking.ChunkTokens, cfg.Chunking.OverlapTokens),
		Chunks:     a.chunks,
		Generator:  gen,
		Validator:  val,
		Writer:     output.NewWriter(cfg.Output.Dir, cfg.Output.SkipExisting, nil),
		Guard:      a.guard,
		Checkpoint: cp,
		Metrics:    a.metrics,
		Workers:    cfg.Pipeline.Workers,
	}
	if a.store != nil {
		a.runner.Sink = &store.Sink{Store: a.store}
	}
	return a, nil
}

func buildCheckpoint(cfg *config.Config) (checkpoint.Manager, error) {
	switch cfg.Output.CheckpointBackend {
	case "", "file":
		return checkpoint.NewFileManager(cfg.Output.CheckpointFile), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Addr(),
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		return checkpoint.NewRedisManager(client, "default"), nil
	case "none":
		return checkpoint.NewNoop(), nil
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q", cfg.Output.CheckpointBackend)
	}
}

// serveMetrics exposes prometheus metrics on the configured port while
// a batch runs.
func serveMetrics(m *telemetry.Metrics, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	go func() {
		addr := fmt.Sprintf(":%d", port)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("metrics server: %v", err)
		}
	}()
}
