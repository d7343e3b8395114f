package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Company is one row of the input list.
type Company struct {
	URL      string
	Industry string
}

// RowError describes a malformed CSV row that was skipped.
type RowError struct {
	Line   int
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Line, e.Reason)
}

// ReadCompanies parses a CSV with url and industry columns. The header
// row is required; column order is free. Blank rows are skipped and
// malformed rows are collected rather than failing the whole file.
func ReadCompanies(r io.Reader) ([]Company, []RowError, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("reading csv header: %w", err)
	}
	urlIdx, industryIdx := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "url":
			urlIdx = i
		case "industry":
			industryIdx = i
		}
	}
	if urlIdx == -1 {
		return nil, nil, fmt.Errorf("csv missing required column %q", "url")
	}

	var companies []Company
	var rowErrs []RowError
	line := 1
	for {
		record, err := cr.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Reason: err.Error()})
			continue
		}
		if isBlank(record) {
			continue
		}
		if urlIdx >= len(record) {
			rowErrs = append(rowErrs, RowError{Line: line, Reason: "missing url field"})
			continue
		}
		url := strings.TrimSpace(record[urlIdx])
		if url == "" {
			rowErrs = append(rowErrs, RowError{Line: line, Reason: "empty url"})
			continue
		}
		industry := ""
		if industryIdx != -1 && industryIdx < len(record) {
			industry = strings.TrimSpace(record[industryIdx])
		}
		companies = append(companies, Company{URL: url, Industry: industry})
	}
	return companies, rowErrs, nil
}

// ReadCompaniesFile opens and parses a CSV file.
func ReadCompaniesFile(path string) ([]Company, []RowError, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return ReadCompanies(f)
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
