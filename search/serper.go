package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// SerperSearcher queries the Serper Google search API.
//
// Serper reports result position rather than a relevance score; Score
// carries the position so callers can still rank.
type SerperSearcher struct {
	APIKey string
	Client *http.Client

	// BaseURL overrides the API endpoint, for tests.
	BaseURL string
}

const serperEndpoint = "https://google.serper.dev/search"

// Name returns "serper".
func (s *SerperSearcher) Name() string { return "serper" }

// Search performs a Serper search.
func (s *SerperSearcher) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	endpoint := s.BaseURL
	if endpoint == "" {
		endpoint = serperEndpoint
	}

	payload, err := json.Marshal(map[string]interface{}{
		"q":   query,
		"num": maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal serper request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build serper request: %w", err)
	}
	req.Header.Set("X-API-KEY", s.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serper request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serper returned status %d", resp.StatusCode)
	}

	var raw struct {
		Organic []struct {
			Link     string `json:"link"`
			Title    string `json:"title"`
			Snippet  string `json:"snippet"`
			Position int    `json:"position"`
			Date     string `json:"date"`
		} `json:"organic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode serper response: %w", err)
	}

	results := make([]Result, 0, len(raw.Organic))
	for i, r := range raw.Organic {
		if i >= maxResults {
			break
		}
		results = append(results, Result{
			URL:           r.Link,
			Title:         r.Title,
			Snippet:       r.Snippet,
			Score:         float64(r.Position),
			PublishedDate: r.Date,
		})
	}
	return results, nil
}
