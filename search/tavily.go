package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// TavilySearcher queries the Tavily search API.
//
// Tavily is the default provider: its "advanced" search depth returns
// content summaries tuned for LLM consumption.
type TavilySearcher struct {
	APIKey string
	Client *http.Client

	// BaseURL overrides the API endpoint, for tests.
	BaseURL string
}

const tavilyEndpoint = "https://api.tavily.com/search"

// Name returns "tavily".
func (t *TavilySearcher) Name() string { return "tavily" }

// Search performs a Tavily advanced search.
func (t *TavilySearcher) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	endpoint := t.BaseURL
	if endpoint == "" {
		endpoint = tavilyEndpoint
	}

	payload, err := json.Marshal(map[string]interface{}{
		"api_key":             t.APIKey,
		"query":               query,
		"max_results":         maxResults,
		"search_depth":        "advanced",
		"include_raw_content": true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tavily request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build tavily request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily returned status %d", resp.StatusCode)
	}

	var raw struct {
		Results []struct {
			URL           string  `json:"url"`
			Title         string  `json:"title"`
			Content       string  `json:"content"`
			Score         float64 `json:"score"`
			PublishedDate string  `json:"published_date"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode tavily response: %w", err)
	}

	results := make([]Result, 0, len(raw.Results))
	for _, r := range raw.Results {
		results = append(results, Result{
			URL:           r.URL,
			Title:         r.Title,
			Snippet:       r.Content,
			Score:         r.Score,
			PublishedDate: r.PublishedDate,
		})
	}
	return results, nil
}
