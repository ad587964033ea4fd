// Package fetch extracts readable article content from web pages.
//
// The analysis stage of the research workflow fetches top-ranked source
// URLs and feeds their extracted text to the model alongside search
// snippets.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"
)

var reSpaces = regexp.MustCompile(`\s+`)

// Article is the readable content extracted from a page.
type Article struct {
	URL   string
	Title string

	// Text is the whitespace-normalized article body, truncated to the
	// fetcher's MaxChars.
	Text string
}

// Fetcher downloads pages and extracts their main content.
//
// Navigation, scripts, and boilerplate are stripped via readability
// extraction. A zero Fetcher is not usable; call NewFetcher.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxChars  int
	maxBody   int64
}

const (
	defaultUserAgent = "Mozilla/5.0 (compatible; FinanceResearchBot/1.0)"
	defaultMaxChars  = 8000
	defaultMaxBody   = 2 << 20 // 2 MiB of raw HTML
)

// NewFetcher creates a content fetcher.
//
// Parameters:
//   - timeout: Per-request bound (0 selects 10s)
//   - maxChars: Extracted text truncation limit (0 selects 8000)
func NewFetcher(timeout time.Duration, maxChars int) *Fetcher {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	if maxChars == 0 {
		maxChars = defaultMaxChars
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: defaultUserAgent,
		maxChars:  maxChars,
		maxBody:   defaultMaxBody,
	}
}

// Fetch downloads the URL and returns its readable content.
//
// Returns an error for network failures, non-2xx responses, or pages
// where no article content could be extracted. Callers treat fetch
// failures as degraded input, not fatal: the workflow falls back to the
// search snippet.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (Article, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return Article{}, fmt.Errorf("invalid URL %q: %w", pageURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return Article{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return Article{}, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Article{}, fmt.Errorf("fetch returned status %d for %s", resp.StatusCode, pageURL)
	}

	body := io.LimitReader(resp.Body, f.maxBody)
	article, err := readability.FromReader(body, parsed)
	if err != nil {
		return Article{}, fmt.Errorf("failed to extract content: %w", err)
	}

	text := strings.TrimSpace(reSpaces.ReplaceAllString(article.TextContent, " "))
	if len(text) > f.maxChars {
		// Back the cut up to a rune start so truncation never leaves a
		// partial UTF-8 sequence
		cut := f.maxChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	if text == "" {
		return Article{}, fmt.Errorf("no readable content at %s", pageURL)
	}

	return Article{
		URL:   pageURL,
		Title: strings.TrimSpace(article.Title),
		Text:  text,
	}, nil
}
