package store

import (
	"context"

	"github.com/thinkbridge/factsheet/internal/pipeline"
	"github.com/thinkbridge/factsheet/internal/validate"
)

// Sink adapts the Postgres store to the pipeline's result sink.
type Sink struct {
	Store *Store
}

// RecordResult persists one company's terminal status.
func (s *Sink) RecordResult(ctx context.Context, runID string, status pipeline.CompanyStatus) error {
	r := CompanyResult{
		RunID:         runID,
		CompanyURL:    status.Company.URL,
		Industry:      status.Company.Industry,
		Status:        status.Status,
		FailureKind:   status.FailureKind,
		FactsheetPath: status.FactsheetPath,
		ReportPath:    status.ReportPath,
		WordCount:     status.WordCount,
	}
	if status.Err != nil {
		r.FailureDetail = status.Err.Error()
	}
	// Scores only exist once validation ran to completion.
	if status.ReportStage == validate.StageDone {
		score := status.OverallScore
		passed := status.Passed
		r.OverallScore = &score
		r.Passed = &passed
	}
	return s.Store.UpsertCompanyResult(ctx, r)
}
