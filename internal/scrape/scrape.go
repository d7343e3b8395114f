package scrape

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
)

// Result holds the text of a company's home page and, when one is found,
// its about page.
type Result struct {
	URL       string
	HomeText  string
	AboutURL  string
	AboutText string
}

// Error marks a scrape failure. Recoverable: the caller may retry or
// skip the company.
type Error struct {
	URL string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("scrape failed for %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Fetcher retrieves the readable text of a single page.
type Fetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// Candidate paths probed when looking for a company's about page.
var aboutPaths = []string{
	"about",
	"about-us",
	"aboutus",
	"company",
	"our-story",
	"who-we-are",
	"whoweare",
	"about-company",
}

// minAboutChars filters out stub pages and soft 404s.
const minAboutChars = 200

// Scraper fetches a company's home page and discovers its about page by
// probing conventional paths.
type Scraper struct {
	fetcher Fetcher
	logger  *log.Logger
}

// NewScraper creates a scraper around the given fetcher.
func NewScraper(fetcher Fetcher, logger *log.Logger) *Scraper {
	if logger == nil {
		logger = log.New(log.Writer(), "[SCRAPE] ", log.LstdFlags)
	}
	return &Scraper{fetcher: fetcher, logger: logger}
}

// Scrape fetches the home page and probes for an about page. A missing
// about page is not an error; a missing or empty home page is.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (Result, error) {
	base, err := normalizeURL(rawURL)
	if err != nil {
		return Result{}, &Error{URL: rawURL, Err: err}
	}

	home, err := s.fetcher.FetchText(ctx, base.String())
	if err != nil {
		return Result{}, &Error{URL: base.String(), Err: err}
	}
	if strings.TrimSpace(home) == "" {
		return Result{}, &Error{URL: base.String(), Err: fmt.Errorf("empty page text")}
	}

	res := Result{URL: base.String(), HomeText: home}
	for _, p := range aboutPaths {
		candidate := base.JoinPath(p).String()
		text, err := s.fetcher.FetchText(ctx, candidate)
		if err != nil {
			continue
		}
		if len(strings.TrimSpace(text)) < minAboutChars {
			continue
		}
		s.logger.Printf("about page found at %s", candidate)
		res.AboutURL = candidate
		res.AboutText = text
		break
	}
	return res, nil
}

// normalizeURL parses a company URL, defaulting the scheme to https.
func normalizeURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty url")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, fmt.Errorf("url has no host: %s", raw)
	}
	return u, nil
}
