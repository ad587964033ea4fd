package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// BraveSearcher queries the Brave web search API.
//
// Brave reports result age instead of a publication date and has no
// relevance score; Score is always zero.
type BraveSearcher struct {
	APIKey string
	Client *http.Client

	// BaseURL overrides the API endpoint, for tests.
	BaseURL string
}

const braveEndpoint = "https://api.search.brave.com/res/v1/web/search"

// Name returns "brave".
func (b *BraveSearcher) Name() string { return "brave" }

// Search performs a Brave web search.
func (b *BraveSearcher) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	endpoint := b.BaseURL
	if endpoint == "" {
		endpoint = braveEndpoint
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build brave request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.APIKey)

	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("brave request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave returned status %d", resp.StatusCode)
	}

	var raw struct {
		Web struct {
			Results []struct {
				URL         string `json:"url"`
				Title       string `json:"title"`
				Description string `json:"description"`
				Age         string `json:"age"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode brave response: %w", err)
	}

	results := make([]Result, 0, len(raw.Web.Results))
	for i, r := range raw.Web.Results {
		if i >= maxResults {
			break
		}
		results = append(results, Result{
			URL:           r.URL,
			Title:         r.Title,
			Snippet:       r.Description,
			PublishedDate: r.Age,
		})
	}
	return results, nil
}
