package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thinkbridge/factsheet/internal/budget"
	"github.com/thinkbridge/factsheet/internal/checkpoint"
	"github.com/thinkbridge/factsheet/internal/chunkstore"
	"github.com/thinkbridge/factsheet/internal/clean"
	"github.com/thinkbridge/factsheet/internal/generate"
	"github.com/thinkbridge/factsheet/internal/ingest"
	"github.com/thinkbridge/factsheet/internal/output"
	"github.com/thinkbridge/factsheet/internal/scrape"
	"github.com/thinkbridge/factsheet/internal/validate"
)

const kentuckyText = "Founded in 1928 in Kentucky. The company has 500+ employees and $500M+ revenue. " +
	"It builds commercial and industrial projects across the southeastern United States. " +
	"Safety certifications include OSHA compliance and state contractor licenses."

type fakeFetcher struct {
	pages map[string]string
}

func (f *fakeFetcher) FetchText(ctx context.Context, url string) (string, error) {
	text, ok := f.pages[url]
	if !ok {
		return "", errors.New("404")
	}
	return text, nil
}

// fakeLLM serves generation, question, and answer prompts with canned
// material, and embeds equal texts to equal vectors.
type fakeLLM struct {
	costUSD float64
}

func pad(n int) string { return strings.TrimSpace(strings.Repeat("word ", n)) }

func (f *fakeLLM) Complete(ctx context.Context, prompt, model string) (string, int64, int64, error) {
	switch {
	case strings.Contains(prompt, "fact-checkable"):
		cats := []validate.Category{
			validate.CategoryFactual, validate.CategoryQuantitative,
			validate.CategoryCategorical, validate.CategoryRelational,
		}
		qs := make([]validate.Question, 52)
		for i := range qs {
			qs[i] = validate.Question{Category: cats[i%4], Text: fmt.Sprintf("question %d?", i+1)}
		}
		b, _ := json.Marshal(qs)
		return string(b), 100, 500, nil
	case strings.Contains(prompt, "SOURCE TEXT:") || strings.Contains(prompt, "FACTSHEET:"):
		answers := make([]string, 52)
		for i := range answers {
			answers[i] = "1928"
		}
		b, _ := json.Marshal(map[string][]string{"answers": answers})
		return string(b), 100, 500, nil
	case strings.Contains(prompt, "company factsheet"):
		var facts []string
		if strings.Contains(prompt, "1928") {
			facts = append(facts, "The company was founded in 1928 in Kentucky.")
		}
		return strings.Join(facts, " ") + " " + pad(110), 100, 200, nil
	}
	return pad(110), 100, 200, nil
}

// Embed returns the same unit vector for every text: retrieval always
// passes the distance filter and equal answers always score 1, which
// keeps these tests about pipeline mechanics, not embedding geometry.
func (f *fakeLLM) Embed(ctx context.Context, model string, texts []string) ([][]float32, int64, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, int64(len(texts)), nil
}

func (f *fakeLLM) CalculateCost(in, out int64, model string) float64 { return f.costUSD }

func (f *fakeLLM) EmbeddingCost(tokens int64, model string) float64 { return 0.0001 }

func newRunner(t *testing.T, fetcher scrape.Fetcher, guard *budget.Guard, cp checkpoint.Manager, workers int) (*Runner, string) {
	t.Helper()
	dir := t.TempDir()
	llm := &fakeLLM{costUSD: 0.01}
	chunks := chunkstore.NewMemoryStore(chunkstore.NewMeteredEmbedder(llm, guard), "emb", 0.25)
	gen := generate.NewGenerator(chunks, llm, guard, generate.Config{
		ChatModel: "gpt-4", TopK: 6, MinWords: 600, MaxWords: 1000, MaxRegenerates: 2,
	}, nil)
	val := validate.NewValidator(llm, guard, validate.Config{
		ChatModel: "gpt-4", EmbeddingModel: "emb", MinQuestions: 50, PassThreshold: 0.80, StageRetries: 1,
	}, nil)
	return &Runner{
		Scraper:    scrape.NewScraper(fetcher, nil),
		Chunker:    clean.NewChunker(1000, 200),
		Chunks:     chunks,
		Generator:  gen,
		Validator:  val,
		Writer:     output.NewWriter(dir, true, nil),
		Guard:      guard,
		Checkpoint: cp,
		Workers:    workers,
	}, dir
}

func TestRunEndToEnd(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://acme.com":       kentuckyText + " " + pad(300),
		"https://acme.com/about": kentuckyText + " " + pad(300),
	}}
	r, dir := newRunner(t, fetcher, budget.NewGuard(100), nil, 2)

	summary, err := r.Run(context.Background(), []ingest.Company{
		{URL: "acme.com", Industry: "Construction"},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(summary.Statuses) != 1 {
		t.Fatalf("expected 1 status, got %d", len(summary.Statuses))
	}
	st := summary.Statuses[0]
	if st.Status != "processed" {
		t.Fatalf("expected processed, got %s (%v)", st.Status, st.Err)
	}
	if st.FactsheetPath != filepath.Join(dir, "acme-com.md") {
		t.Fatalf("unexpected factsheet path %q", st.FactsheetPath)
	}
	if st.ReportStage != validate.StageDone {
		t.Fatalf("expected validation DONE, got %s", st.ReportStage)
	}
	if st.OverallScore < 0.9 {
		t.Fatalf("matching answers should score high, got %v", st.OverallScore)
	}
	if summary.Usage.SpentUSD <= 0 {
		t.Fatalf("expected recorded spend, got %v", summary.Usage.SpentUSD)
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://good.com": kentuckyText + " " + pad(300),
	}}
	r, _ := newRunner(t, fetcher, budget.NewGuard(100), nil, 2)

	summary, err := r.Run(context.Background(), []ingest.Company{
		{URL: "bad.com", Industry: "construction"},
		{URL: "good.com", Industry: "construction"},
	})
	if err != nil {
		t.Fatalf("one failing company must not abort the batch: %v", err)
	}

	byURL := map[string]CompanyStatus{}
	for _, st := range summary.Statuses {
		byURL[st.Company.URL] = st
	}
	if byURL["bad.com"].Status != "failed" || byURL["bad.com"].FailureKind != FailScrape {
		t.Fatalf("bad.com should fail with scrape kind: %+v", byURL["bad.com"])
	}
	if byURL["good.com"].Status != "processed" {
		t.Fatalf("good.com should succeed: %+v", byURL["good.com"])
	}
}

func TestRunHaltsOnBudgetDenial(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://first.com":  kentuckyText + " " + pad(300),
		"https://second.com": kentuckyText + " " + pad(300),
	}}
	guard := budget.NewGuard(0.001) // denies the first completion
	r, _ := newRunner(t, fetcher, guard, nil, 1)

	summary, err := r.Run(context.Background(), []ingest.Company{
		{URL: "first.com", Industry: "construction"},
		{URL: "second.com", Industry: "construction"},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	byURL := map[string]CompanyStatus{}
	for _, st := range summary.Statuses {
		byURL[st.Company.URL] = st
	}
	if byURL["first.com"].FailureKind != FailBudget {
		t.Fatalf("first company should hit the budget ceiling: %+v", byURL["first.com"])
	}
	if byURL["second.com"].Status != "skipped" || byURL["second.com"].FailureKind != FailBudget {
		t.Fatalf("second company must not start after denial: %+v", byURL["second.com"])
	}
}

func TestRunSkipsCheckpointedCompanies(t *testing.T) {
	cpPath := filepath.Join(t.TempDir(), "checkpoint.json")
	cp := checkpoint.NewFileManager(cpPath)
	_ = cp.MarkProcessed(context.Background(), "acme-com")

	fetcher := &fakeFetcher{pages: map[string]string{}}
	r, _ := newRunner(t, fetcher, budget.NewGuard(100), cp, 1)

	summary, err := r.Run(context.Background(), []ingest.Company{
		{URL: "acme.com", Industry: "construction"},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Statuses[0].Status != "skipped" {
		t.Fatalf("checkpointed company must be skipped: %+v", summary.Statuses[0])
	}
}

func TestClassifyFailure(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&scrape.Error{URL: "x"}, FailScrape},
		{&chunkstore.EmbeddingError{CompanyID: "x"}, FailEmbedding},
		{&generate.EmptyEvidenceError{CompanyID: "x"}, FailEvidence},
		{&generate.WordCountViolation{CompanyID: "x"}, FailWordCount},
		{budget.ErrExceeded{}, FailBudget},
		{&chunkstore.EmbeddingError{CompanyID: "x", Err: budget.ErrExceeded{}}, FailBudget},
		{&validate.StageFailure{CompanyID: "x", Err: errors.New("boom")}, FailValidation},
		{errors.New("misc"), FailOther},
	}
	for _, tc := range cases {
		if got := ClassifyFailure(tc.err); got != tc.want {
			t.Fatalf("ClassifyFailure(%T) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
