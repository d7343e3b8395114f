package generate

import "fmt"

// EmptyEvidenceError means retrieval produced no chunks for any section;
// no factsheet can be written for the company.
type EmptyEvidenceError struct {
	CompanyID string
}

func (e *EmptyEvidenceError) Error() string {
	return fmt.Sprintf("no evidence chunks available for company %s", e.CompanyID)
}

// WordCountViolation means the word-count gate failed after the retry
// budget was spent. The accompanying factsheet is best-effort and must
// be flagged as non-compliant, not discarded.
type WordCountViolation struct {
	CompanyID string
	WordCount int
	MinWords  int
	MaxWords  int
	Attempts  int
}

func (e *WordCountViolation) Error() string {
	return fmt.Sprintf("factsheet for %s has %d words after %d attempts, want [%d, %d]",
		e.CompanyID, e.WordCount, e.Attempts, e.MinWords, e.MaxWords)
}
