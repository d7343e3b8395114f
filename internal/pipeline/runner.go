package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thinkbridge/factsheet/internal/budget"
	"github.com/thinkbridge/factsheet/internal/checkpoint"
	"github.com/thinkbridge/factsheet/internal/chunkstore"
	"github.com/thinkbridge/factsheet/internal/clean"
	"github.com/thinkbridge/factsheet/internal/generate"
	"github.com/thinkbridge/factsheet/internal/ingest"
	"github.com/thinkbridge/factsheet/internal/output"
	"github.com/thinkbridge/factsheet/internal/scrape"
	"github.com/thinkbridge/factsheet/internal/telemetry"
	"github.com/thinkbridge/factsheet/internal/template"
	"github.com/thinkbridge/factsheet/internal/validate"
)

// CompanyStatus is the per-company outcome reported at batch end.
type CompanyStatus struct {
	Company       ingest.Company
	Status        string // processed, failed, skipped
	FailureKind   string
	Err           error
	FactsheetPath string
	ReportPath    string
	WordCount     int
	WordCountOK   bool
	ReportStage   validate.Stage
	OverallScore  float64
	Passed        bool
}

// Summary is the batch result.
type Summary struct {
	RunID    string
	Statuses []CompanyStatus
	Usage    budget.Usage
}

// ResultSink receives per-company outcomes as they settle. Optional.
type ResultSink interface {
	RecordResult(ctx context.Context, runID string, status CompanyStatus) error
}

// Runner executes the scrape -> clean -> index -> generate -> validate
// pipeline for a batch of companies. Companies run concurrently up to
// Workers; stages within one company are strictly sequential. A budget
// denial stops new companies from starting while in-flight ones finish.
type Runner struct {
	Scraper    *scrape.Scraper
	Chunker    clean.Chunker
	Chunks     chunkstore.Store
	Generator  *generate.Generator
	Validator  *validate.Validator
	Writer     *output.Writer
	Guard      *budget.Guard
	Checkpoint checkpoint.Manager
	Sink       ResultSink
	Metrics    *telemetry.Metrics
	Workers    int
	Logger     *log.Logger

	// RunID, when set, names the batch; otherwise one is generated.
	RunID string
}

// Run processes the batch and returns a per-company status list. The
// only batch-wide failure is checkpoint loading; everything else is
// isolated per company.
func (r *Runner) Run(ctx context.Context, companies []ingest.Company) (Summary, error) {
	if r.Logger == nil {
		r.Logger = log.New(log.Writer(), "[PIPELINE] ", log.LstdFlags)
	}
	if r.Checkpoint == nil {
		r.Checkpoint = checkpoint.NewNoop()
	}
	workers := r.Workers
	if workers <= 0 {
		workers = 8
	}

	state, err := r.Checkpoint.Load(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("loading checkpoint: %w", err)
	}

	runID := r.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	summary := Summary{RunID: runID}

	jobs := make(chan ingest.Company)
	results := make(chan CompanyStatus)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for company := range jobs {
				results <- r.runCompany(ctx, runID, company, state)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, company := range companies {
			select {
			case jobs <- company:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for status := range results {
		summary.Statuses = append(summary.Statuses, status)
	}
	summary.Usage = r.Guard.Usage()
	r.logSummary(summary)
	return summary, nil
}

// runCompany executes all stages for one company. Errors are captured
// in the status, never propagated to other companies.
func (r *Runner) runCompany(ctx context.Context, runID string, company ingest.Company, state checkpoint.State) CompanyStatus {
	status := CompanyStatus{Company: company}
	companyID := output.Slugify(company.URL)

	switch {
	case state.Contains(companyID):
		status.Status = "skipped"
		r.Logger.Printf("%s: already processed, skipping", companyID)
		return status
	case r.Guard.Denied():
		status.Status = "skipped"
		status.FailureKind = FailBudget
		r.Logger.Printf("%s: budget exhausted before start, skipping", companyID)
		return status
	}

	err := r.process(ctx, company, companyID, &status)
	if err != nil {
		status.Status = "failed"
		status.FailureKind = ClassifyFailure(err)
		status.Err = err
		r.Logger.Printf("%s: failed (%s): %v", companyID, status.FailureKind, err)
		if r.Metrics != nil {
			r.Metrics.CompaniesFailed.WithLabelValues(status.FailureKind).Inc()
			if status.FailureKind == FailBudget {
				r.Metrics.BudgetDenials.Inc()
			}
		}
		if cerr := r.Checkpoint.MarkFailed(ctx, companyID); cerr != nil {
			r.Logger.Printf("%s: checkpoint mark failed: %v", companyID, cerr)
		}
	} else {
		status.Status = "processed"
		if r.Metrics != nil {
			r.Metrics.CompaniesProcessed.Inc()
		}
		if cerr := r.Checkpoint.MarkProcessed(ctx, companyID); cerr != nil {
			r.Logger.Printf("%s: checkpoint mark processed: %v", companyID, cerr)
		}
	}

	if r.Sink != nil {
		if serr := r.Sink.RecordResult(ctx, runID, status); serr != nil {
			r.Logger.Printf("%s: recording result: %v", companyID, serr)
		}
	}
	return status
}

func (r *Runner) process(ctx context.Context, company ingest.Company, companyID string, status *CompanyStatus) error {
	// Scrape
	start := time.Now()
	scraped, err := r.Scraper.Scrape(ctx, company.URL)
	if err != nil {
		return err
	}
	r.observeStage("scrape", start)

	// Clean + chunk
	start = time.Now()
	var chunks []chunkstore.Chunk
	chunks = append(chunks, r.Chunker.Chunk(companyID, chunkstore.PageHome, clean.Clean(scraped.HomeText))...)
	if scraped.AboutText != "" {
		chunks = append(chunks, r.Chunker.Chunk(companyID, chunkstore.PageAbout, clean.Clean(scraped.AboutText))...)
	}
	if len(chunks) == 0 {
		return &generate.EmptyEvidenceError{CompanyID: companyID}
	}
	r.observeStage("clean", start)

	// Index
	start = time.Now()
	if err := r.Chunks.Index(ctx, companyID, chunks); err != nil {
		return err
	}
	r.observeStage("index", start)

	// Generate
	tpl, fellBack := template.Resolve(company.Industry)
	if fellBack {
		r.Logger.Printf("%s: industry %q unknown, using generic template", companyID, company.Industry)
	}
	start = time.Now()
	fs, genErr := r.Generator.Generate(ctx, companyID, tpl)
	r.observeStage("generate", start)

	var wcv *generate.WordCountViolation
	if genErr != nil && !errors.As(genErr, &wcv) {
		return genErr
	}

	path, skipped, err := r.Writer.WriteFactsheet(company.URL, fs)
	if err != nil {
		return err
	}
	status.FactsheetPath = path
	status.WordCount = fs.WordCount
	status.WordCountOK = fs.WordCountOK
	if skipped {
		r.Logger.Printf("%s: factsheet already on disk", companyID)
	}

	// Validate (advisory; a failure here does not undo the factsheet)
	sourceText := assembleSource(chunks)
	start = time.Now()
	report, valErr := r.Validator.Validate(ctx, companyID, sourceText, output.RenderFactsheet(company.URL, fs))
	r.observeStage("validate", start)
	status.ReportStage = report.Stage
	status.OverallScore = report.OverallScore
	status.Passed = report.Passed
	if r.Metrics != nil && report.Stage == validate.StageDone {
		r.Metrics.ValidationScore.Observe(report.OverallScore)
	}

	if rpath, _, err := r.Writer.WriteReport(company.URL, report); err != nil {
		r.Logger.Printf("%s: writing accuracy report: %v", companyID, err)
	} else {
		status.ReportPath = rpath
	}
	if valErr != nil {
		r.Logger.Printf("%s: validation incomplete: %v", companyID, valErr)
	}

	// Word-count violations deliver the flagged factsheet but still count
	// as failures in the batch summary.
	if genErr != nil {
		return genErr
	}
	return nil
}

func (r *Runner) observeStage(stage string, start time.Time) {
	if r.Metrics != nil {
		r.Metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}

func (r *Runner) logSummary(s Summary) {
	processed, failed, skipped := 0, 0, 0
	for _, st := range s.Statuses {
		switch st.Status {
		case "processed":
			processed++
		case "failed":
			failed++
		case "skipped":
			skipped++
		}
	}
	r.Logger.Printf("run %s: %d processed, %d failed, %d skipped; spent $%.4f (%d tokens)",
		s.RunID, processed, failed, skipped, s.Usage.SpentUSD, s.Usage.Tokens)
	if r.Metrics != nil {
		r.Metrics.SpendUSD.Add(s.Usage.SpentUSD)
		r.Metrics.TokensUsed.Add(float64(s.Usage.Tokens))
	}
}

func assembleSource(chunks []chunkstore.Chunk) string {
	var sb strings.Builder
	for _, c := range chunks {
		sb.WriteString(c.Text)
		sb.WriteString("\n\n")
	}
	return sb.String()
}
