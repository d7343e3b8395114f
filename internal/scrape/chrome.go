package scrape

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-shiori/go-readability"
)

// ChromeFetcher renders pages in headless Chrome and extracts the
// readable article text. JS-heavy company sites often serve nothing
// useful to a plain HTTP client.
type ChromeFetcher struct {
	Timeout   time.Duration
	MaxChars  int
	UserAgent string
}

// FetchText navigates to the URL, waits for the body, and runs
// readability extraction over the rendered HTML.
func (f ChromeFetcher) FetchText(ctx context.Context, pageURL string) (string, error) {
	if strings.TrimSpace(pageURL) == "" {
		return "", errors.New("invalid url")
	}

	timeout := f.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	html, err := f.fetchHTML(ctx, pageURL)
	if err != nil {
		return "", err
	}

	article, err := readability.FromReader(strings.NewReader(html), mustParseURL(pageURL))
	if err != nil {
		return "", err
	}
	text := article.TextContent
	if f.MaxChars > 0 && len(text) > f.MaxChars {
		text = text[:f.MaxChars]
	}
	return strings.TrimSpace(text), nil
}

func (f ChromeFetcher) fetchHTML(ctx context.Context, pageURL string) (string, error) {
	ua := f.UserAgent
	if ua == "" {
		ua = "FactsheetBot/1.0 (+contact@thinkbridge.example)"
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent(ua),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(bctx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	return html, err
}

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return &url.URL{}
	}
	return u
}
