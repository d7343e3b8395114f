package output

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/thinkbridge/factsheet/internal/generate"
	"github.com/thinkbridge/factsheet/internal/validate"
)

// Writer persists factsheets and accuracy reports as Markdown files
// under a single output directory. Re-runs are idempotent: with
// SkipExisting set, files already on disk are left untouched.
type Writer struct {
	Dir          string
	SkipExisting bool
	Logger       *log.Logger
}

// NewWriter creates a writer rooted at dir.
func NewWriter(dir string, skipExisting bool, logger *log.Logger) *Writer {
	if logger == nil {
		logger = log.New(log.Writer(), "[OUTPUT] ", log.LstdFlags)
	}
	return &Writer{Dir: dir, SkipExisting: skipExisting, Logger: logger}
}

// FactsheetPath returns the output path for a company's factsheet.
func (w *Writer) FactsheetPath(companyURL string) string {
	return filepath.Join(w.Dir, Slugify(companyURL)+".md")
}

// ReportPath returns the output path for a company's accuracy report.
func (w *Writer) ReportPath(companyURL string) string {
	return filepath.Join(w.Dir, Slugify(companyURL)+"_accuracy.md")
}

// WriteFactsheet renders and writes the factsheet. Returns the path and
// whether the write was skipped because the file already exists.
func (w *Writer) WriteFactsheet(companyURL string, fs generate.Factsheet) (string, bool, error) {
	path := w.FactsheetPath(companyURL)
	if w.skip(path) {
		return path, true, nil
	}
	if err := w.write(path, RenderFactsheet(companyURL, fs)); err != nil {
		return "", false, err
	}
	return path, false, nil
}

// WriteReport renders and writes the accuracy report.
func (w *Writer) WriteReport(companyURL string, report validate.Report) (string, bool, error) {
	path := w.ReportPath(companyURL)
	if w.skip(path) {
		return path, true, nil
	}
	if err := w.write(path, RenderReport(companyURL, report)); err != nil {
		return "", false, err
	}
	return path, false, nil
}

func (w *Writer) skip(path string) bool {
	if !w.SkipExisting {
		return false
	}
	if _, err := os.Stat(path); err == nil {
		w.Logger.Printf("skipping existing %s", path)
		return true
	}
	return false
}

func (w *Writer) write(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// RenderFactsheet produces the factsheet Markdown. Section headers come
// from the resolved template, in template order.
func RenderFactsheet(companyURL string, fs generate.Factsheet) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Company Factsheet: %s\n\n", displayName(companyURL))
	fmt.Fprintf(&sb, "*Industry template: %s*\n\n", fs.Industry)
	if !fs.WordCountOK {
		fmt.Fprintf(&sb, "> **Note:** this factsheet is %d words, outside the required range; it is delivered best-effort.\n\n", fs.WordCount)
	}
	for _, s := range fs.Sections {
		fmt.Fprintf(&sb, "## %s\n\n%s\n\n", s.Name, s.Text)
	}
	return sb.String()
}

// RenderReport produces the accuracy report Markdown with the fixed
// section headers: Executive Summary, Detailed Analysis, Failed
// Validations, Recommendations.
func RenderReport(companyURL string, report validate.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Accuracy Report: %s\n\n", displayName(companyURL))

	sb.WriteString("## Executive Summary\n\n")
	if report.Stage == validate.StageFailed {
		fmt.Fprintf(&sb, "Validation did not complete: stage %s failed (%s). The factsheet was still delivered; validation is advisory.\n\n",
			report.FailureStage, report.FailureError)
	} else {
		status := "FAILED"
		if report.Passed {
			status = "PASSED"
		}
		fmt.Fprintf(&sb, "Overall accuracy: **%.1f%%** across %d questions — **%s** (threshold 80%%).\n\n",
			report.OverallScore*100, len(report.Pairs), status)
	}

	sb.WriteString("## Detailed Analysis\n\n")
	sb.WriteString("| Category | Questions | Accuracy | Notes |\n")
	sb.WriteString("|----------|-----------|----------|-------|\n")
	for _, cat := range []validate.Category{
		validate.CategoryFactual, validate.CategoryQuantitative,
		validate.CategoryCategorical, validate.CategoryRelational,
	} {
		cs, ok := report.Categories[cat]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "| %s | %d | %.1f%% | %s |\n", cat, cs.Questions, cs.Accuracy*100, categoryNote(cs.Accuracy))
	}
	sb.WriteString("\n")

	sb.WriteString("## Failed Validations\n\n")
	failed := 0
	for _, p := range report.Pairs {
		if p.Score >= 0.5 {
			continue
		}
		failed++
		fmt.Fprintf(&sb, "- **Question:** %s\n  - Source answer: %s\n  - Factsheet answer: %s\n  - Issue: %s\n  - Severity: %s\n",
			p.Question, p.SourceAnswer, p.FactsheetAnswer, issueFor(p), severityFor(p.Score))
	}
	if failed == 0 {
		sb.WriteString("None.\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Recommendations\n\n")
	for _, r := range recommendations(report) {
		fmt.Fprintf(&sb, "- %s\n", r)
	}
	return sb.String()
}

func categoryNote(accuracy float64) string {
	switch {
	case accuracy >= 0.9:
		return "strong"
	case accuracy >= 0.7:
		return "acceptable"
	default:
		return "needs attention"
	}
}

func issueFor(p validate.QAPair) string {
	srcNF := strings.EqualFold(strings.TrimSpace(p.SourceAnswer), validate.NotFound)
	factNF := strings.EqualFold(strings.TrimSpace(p.FactsheetAnswer), validate.NotFound)
	switch {
	case !srcNF && factNF:
		return "fact present in source but missing from factsheet"
	case srcNF && !factNF:
		return "factsheet asserts a fact absent from the source"
	default:
		return "answers diverge"
	}
}

func severityFor(score float64) string {
	if score == 0 {
		return "high"
	}
	if score < 0.25 {
		return "medium"
	}
	return "low"
}

func recommendations(report validate.Report) []string {
	if report.Stage == validate.StageFailed {
		return []string{"Re-run validation once the failing stage is resolved."}
	}
	var recs []string
	for cat, cs := range report.Categories {
		if cs.Accuracy < 0.7 {
			recs = append(recs, fmt.Sprintf("Review %s coverage: accuracy %.1f%% is below 70%%.", cat, cs.Accuracy*100))
		}
	}
	if !report.Passed {
		recs = append(recs, "Regenerate the factsheet with broader evidence retrieval before publishing.")
	}
	if len(recs) == 0 {
		recs = append(recs, "No corrective action required.")
	}
	return recs
}

var slugRE = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a filesystem-safe name from a company URL: host
// without the www prefix, non-alphanumerics collapsed to dashes.
func Slugify(companyURL string) string {
	host := companyURL
	if u, err := url.Parse(normalizeForParse(companyURL)); err == nil && u.Host != "" {
		host = u.Host
	}
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	slug := slugRE.ReplaceAllString(host, "-")
	return strings.Trim(slug, "-")
}

func displayName(companyURL string) string {
	if u, err := url.Parse(normalizeForParse(companyURL)); err == nil && u.Host != "" {
		return strings.TrimPrefix(u.Host, "www.")
	}
	return companyURL
}

func normalizeForParse(raw string) string {
	if !strings.Contains(raw, "://") {
		return "https://" + raw
	}
	return raw
}
