// Package search provides web search clients for the research workflow.
//
// Three providers are supported (Tavily, Brave, Serper), normalized to
// a single Result shape so the workflow never depends on a provider's
// response format.
package search

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Result is one normalized web search hit.
type Result struct {
	// URL is the result's location. Used for deduplication downstream.
	URL string `json:"url"`

	// Title is the page title.
	Title string `json:"title"`

	// Snippet is the provider's content summary.
	Snippet string `json:"snippet"`

	// Score is the provider's relevance score, 0 when not reported.
	Score float64 `json:"score"`

	// PublishedDate is the provider-reported publication date, empty
	// when unknown.
	PublishedDate string `json:"published_date"`
}

// Searcher performs a web search and returns normalized results.
type Searcher interface {
	// Search returns up to maxResults hits for the query.
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)

	// Name returns the provider identifier ("tavily", "brave", "serper").
	Name() string
}

// Config selects and configures a search provider.
type Config struct {
	// Provider is one of "tavily", "brave", "serper".
	Provider string

	// APIKey authenticates with the provider.
	APIKey string

	// Timeout bounds each search request. Zero selects a 15s default.
	Timeout time.Duration
}

// New creates the search provider selected by cfg.Provider.
func New(cfg Config) (Searcher, error) {
	client := &http.Client{Timeout: cfg.Timeout}
	if cfg.Timeout == 0 {
		client.Timeout = 15 * time.Second
	}

	switch cfg.Provider {
	case "tavily":
		return &TavilySearcher{APIKey: cfg.APIKey, Client: client}, nil
	case "brave":
		return &BraveSearcher{APIKey: cfg.APIKey, Client: client}, nil
	case "serper":
		return &SerperSearcher{APIKey: cfg.APIKey, Client: client}, nil
	default:
		return nil, fmt.Errorf("unsupported search provider: %q", cfg.Provider)
	}
}
