package pipeline

import (
	"errors"

	"github.com/thinkbridge/factsheet/internal/budget"
	"github.com/thinkbridge/factsheet/internal/chunkstore"
	"github.com/thinkbridge/factsheet/internal/generate"
	"github.com/thinkbridge/factsheet/internal/scrape"
	"github.com/thinkbridge/factsheet/internal/validate"
)

// Failure kinds reported per company in the batch summary.
const (
	FailScrape     = "scrape"
	FailEmbedding  = "embedding"
	FailEvidence   = "empty_evidence"
	FailWordCount  = "word_count"
	FailBudget     = "budget_exceeded"
	FailValidation = "validation"
	FailOther      = "other"
)

// ClassifyFailure maps a pipeline error onto its failure kind. Budget
// denials win over embedding errors: a store surfaces a denied
// embedding call wrapped in an EmbeddingError, and that company failed
// for budget reasons, not because the embedding backend broke.
func ClassifyFailure(err error) string {
	var budErr budget.ErrExceeded
	if errors.As(err, &budErr) {
		return FailBudget
	}
	var scrapeErr *scrape.Error
	if errors.As(err, &scrapeErr) {
		return FailScrape
	}
	var embErr *chunkstore.EmbeddingError
	if errors.As(err, &embErr) {
		return FailEmbedding
	}
	var evErr *generate.EmptyEvidenceError
	if errors.As(err, &evErr) {
		return FailEvidence
	}
	var wcErr *generate.WordCountViolation
	if errors.As(err, &wcErr) {
		return FailWordCount
	}
	var valErr *validate.StageFailure
	if errors.As(err, &valErr) {
		return FailValidation
	}
	return FailOther
}
