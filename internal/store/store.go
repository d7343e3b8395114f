package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Company result statuses persisted per batch run.
const (
	StatusProcessed = "processed"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// Store persists batch runs and per-company results in Postgres.
type Store struct {
	DB *sql.DB
}

// NewWithDSN opens a connection and ensures the schema exists.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	s := &Store{DB: db}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.DB.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS runs (
    id           UUID PRIMARY KEY,
    started_at   TIMESTAMPTZ NOT NULL,
    finished_at  TIMESTAMPTZ,
    companies    INT NOT NULL DEFAULT 0,
    processed    INT NOT NULL DEFAULT 0,
    failed       INT NOT NULL DEFAULT 0,
    spent_usd    DOUBLE PRECISION NOT NULL DEFAULT 0,
    tokens       BIGINT NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS company_results (
    run_id         UUID NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    company_url    TEXT NOT NULL,
    industry       TEXT NOT NULL DEFAULT '',
    status         TEXT NOT NULL,
    failure_kind   TEXT NOT NULL DEFAULT '',
    failure_detail TEXT NOT NULL DEFAULT '',
    factsheet_path TEXT NOT NULL DEFAULT '',
    report_path    TEXT NOT NULL DEFAULT '',
    word_count     INT NOT NULL DEFAULT 0,
    overall_score  DOUBLE PRECISION,
    passed         BOOLEAN,
    updated_at     TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (run_id, company_url)
);
`)
	if err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}

// Run is one batch execution.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	Companies  int
	Processed  int
	Failed     int
	SpentUSD   float64
	Tokens     int64
}

// CompanyResult is the terminal status of one company within a run.
type CompanyResult struct {
	RunID         string
	CompanyURL    string
	Industry      string
	Status        string
	FailureKind   string
	FailureDetail string
	FactsheetPath string
	ReportPath    string
	WordCount     int
	OverallScore  *float64
	Passed        *bool
	UpdatedAt     time.Time
}

// StartRun records the beginning of a batch.
func (s *Store) StartRun(ctx context.Context, runID string, companies int) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, companies) VALUES ($1, $2, $3)`,
		runID, time.Now().UTC(), companies)
	if err != nil {
		return fmt.Errorf("starting run: %w", err)
	}
	return nil
}

// FinishRun records batch totals at completion.
func (s *Store) FinishRun(ctx context.Context, runID string, processed, failed int, spentUSD float64, tokens int64) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE runs SET finished_at = $2, processed = $3, failed = $4, spent_usd = $5, tokens = $6 WHERE id = $1`,
		runID, time.Now().UTC(), processed, failed, spentUSD, tokens)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	return nil
}

// UpsertCompanyResult writes or replaces one company's outcome.
func (s *Store) UpsertCompanyResult(ctx context.Context, r CompanyResult) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO company_results
    (run_id, company_url, industry, status, failure_kind, failure_detail,
     factsheet_path, report_path, word_count, overall_score, passed, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (run_id, company_url) DO UPDATE SET
    industry = EXCLUDED.industry,
    status = EXCLUDED.status,
    failure_kind = EXCLUDED.failure_kind,
    failure_detail = EXCLUDED.failure_detail,
    factsheet_path = EXCLUDED.factsheet_path,
    report_path = EXCLUDED.report_path,
    word_count = EXCLUDED.word_count,
    overall_score = EXCLUDED.overall_score,
    passed = EXCLUDED.passed,
    updated_at = EXCLUDED.updated_at`,
		r.RunID, r.CompanyURL, r.Industry, r.Status, r.FailureKind, r.FailureDetail,
		r.FactsheetPath, r.ReportPath, r.WordCount, r.OverallScore, r.Passed, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upserting company result: %w", err)
	}
	return nil
}

// ListRuns returns recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, started_at, finished_at, companies, processed, failed, spent_usd, tokens
FROM runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.StartedAt, &finished, &r.Companies, &r.Processed, &r.Failed, &r.SpentUSD, &r.Tokens); err != nil {
			return nil, err
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListCompanyResults returns all company outcomes for a run.
func (s *Store) ListCompanyResults(ctx context.Context, runID string) ([]CompanyResult, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT run_id, company_url, industry, status, failure_kind, failure_detail,
       factsheet_path, report_path, word_count, overall_score, passed, updated_at
FROM company_results WHERE run_id = $1 ORDER BY company_url`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing company results: %w", err)
	}
	defer rows.Close()

	var results []CompanyResult
	for rows.Next() {
		var r CompanyResult
		var score sql.NullFloat64
		var passed sql.NullBool
		if err := rows.Scan(&r.RunID, &r.CompanyURL, &r.Industry, &r.Status, &r.FailureKind, &r.FailureDetail,
			&r.FactsheetPath, &r.ReportPath, &r.WordCount, &score, &passed, &r.UpdatedAt); err != nil {
			return nil, err
		}
		if score.Valid {
			v := score.Float64
			r.OverallScore = &v
		}
		if passed.Valid {
			v := passed.Bool
			r.Passed = &v
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error { return s.DB.Close() }
