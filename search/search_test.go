package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTavilySearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}

		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["query"] != "hdfc home loan rates" {
			t.Errorf("query = %v", req["query"])
		}
		if req["api_key"] != "tv-key" {
			t.Errorf("api_key = %v", req["api_key"])
		}
		if req["search_depth"] != "advanced" {
			t.Errorf("search_depth = %v", req["search_depth"])
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{
				{"url": "https://a.example", "title": "A", "content": "snippet a", "score": 0.9, "published_date": "2026-01-02"},
				{"url": "https://b.example", "title": "B", "content": "snippet b", "score": 0.5},
			},
		})
	}))
	defer srv.Close()

	searcher := &TavilySearcher{APIKey: "tv-key", Client: srv.Client(), BaseURL: srv.URL}

	results, err := searcher.Search(context.Background(), "hdfc home loan rates", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].URL != "https://a.example" || results[0].Snippet != "snippet a" {
		t.Errorf("results[0] = %+v", results[0])
	}
	if results[0].Score != 0.9 {
		t.Errorf("Score = %v, want 0.9", results[0].Score)
	}
}

func TestBraveSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Subscription-Token"); got != "br-key" {
			t.Errorf("token = %q, want br-key", got)
		}
		if got := r.URL.Query().Get("q"); got != "query" {
			t.Errorf("q = %q, want query", got)
		}
		if got := r.URL.Query().Get("count"); got != "5" {
			t.Errorf("count = %q, want 5", got)
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"web": map[string]interface{}{
				"results": []map[string]interface{}{
					{"url": "https://a.example", "title": "A", "description": "desc a", "age": "2 days ago"},
				},
			},
		})
	}))
	defer srv.Close()

	searcher := &BraveSearcher{APIKey: "br-key", Client: srv.Client(), BaseURL: srv.URL}

	results, err := searcher.Search(context.Background(), "query", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].Snippet != "desc a" || results[0].PublishedDate != "2 days ago" {
		t.Errorf("results[0] = %+v", results[0])
	}
}

func TestSerperSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-API-KEY"); got != "sp-key" {
			t.Errorf("key = %q, want sp-key", got)
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"organic": []map[string]interface{}{
				{"link": "https://a.example", "title": "A", "snippet": "snip a", "position": 1},
				{"link": "https://b.example", "title": "B", "snippet": "snip b", "position": 2},
				{"link": "https://c.example", "title": "C", "snippet": "snip c", "position": 3},
			},
		})
	}))
	defer srv.Close()

	searcher := &SerperSearcher{APIKey: "sp-key", Client: srv.Client(), BaseURL: srv.URL}

	// maxResults caps the returned slice even when the provider over-delivers
	results, err := searcher.Search(context.Background(), "query", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[1].URL != "https://b.example" || results[1].Score != 2 {
		t.Errorf("results[1] = %+v", results[1])
	}
}

func TestSearchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	searchers := []Searcher{
		&TavilySearcher{APIKey: "k", Client: srv.Client(), BaseURL: srv.URL},
		&BraveSearcher{APIKey: "k", Client: srv.Client(), BaseURL: srv.URL},
		&SerperSearcher{APIKey: "k", Client: srv.Client(), BaseURL: srv.URL},
	}
	for _, s := range searchers {
		t.Run(s.Name(), func(t *testing.T) {
			if _, err := s.Search(context.Background(), "q", 3); err == nil {
				t.Error("expected error on 429 status")
			}
		})
	}
}

func TestSearchContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	searcher := &TavilySearcher{APIKey: "k", Client: srv.Client(), BaseURL: srv.URL}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := searcher.Search(ctx, "q", 3); err == nil {
		t.Error("expected error when context times out")
	}
}

func TestNewSearcher(t *testing.T) {
	for _, provider := range []string{"tavily", "brave", "serper"} {
		t.Run(provider, func(t *testing.T) {
			s, err := New(Config{Provider: provider, APIKey: "k"})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if s.Name() != provider {
				t.Errorf("Name = %q, want %q", s.Name(), provider)
			}
		})
	}

	t.Run("unsupported", func(t *testing.T) {
		if _, err := New(Config{Provider: "duckduckgo"}); err == nil {
			t.Error("expected error for unsupported provider")
		}
	})
}
