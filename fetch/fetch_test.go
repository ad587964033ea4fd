package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Loan Rate Update</title></head>
<body>
<nav>Home | About | Contact</nav>
<article>
<h1>Loan Rate Update</h1>
<p>Banks revised their floating home loan rates this week following the
central bank policy announcement. The revision affects both new and
existing borrowers across all tenure brackets.</p>
<p>Analysts expect the change to reduce monthly payments for borrowers
who switch to the new benchmark regime before the end of the quarter.</p>
</article>
<footer>Copyright 2026</footer>
</body>
</html>`

func TestFetchExtractsArticle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "FinanceResearchBot") {
			t.Errorf("User-Agent = %q, want bot UA", ua)
		}
		fmt.Fprint(w, samplePage)
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, 0)

	article, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if article.Title != "Loan Rate Update" {
		t.Errorf("Title = %q, want 'Loan Rate Update'", article.Title)
	}
	if !strings.Contains(article.Text, "floating home loan rates") {
		t.Errorf("Text missing article body: %q", article.Text)
	}
}

func TestFetchTruncatesLongContent(t *testing.T) {
	long := strings.Repeat("word ", 2000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, "<html><head><title>T</title></head><body><article><p>%s</p></article></body></html>", long)
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, 100)

	article, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(article.Text) > 100 {
		t.Errorf("len(Text) = %d, want <= 100", len(article.Text))
	}
}

func TestFetchTruncationKeepsRunesWhole(t *testing.T) {
	// Every rune is 3 bytes, so a 100-byte cut would land mid-rune
	long := strings.Repeat("₹", 200)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, "<html><head><title>T</title></head><body><article><p>%s</p></article></body></html>", long)
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, 100)

	article, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(article.Text) > 100 {
		t.Errorf("len(Text) = %d, want <= 100", len(article.Text))
	}
	if !utf8.ValidString(article.Text) {
		t.Errorf("truncated text is not valid UTF-8: %q", article.Text)
	}
	if !strings.HasSuffix(article.Text, "₹") {
		t.Errorf("text ends mid-rune: %q", article.Text)
	}
}

func TestFetchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, 0)

	if _, err := f.Fetch(context.Background(), srv.URL); err == nil {
		t.Error("expected error on 404")
	}
}

func TestFetchInvalidURL(t *testing.T) {
	f := NewFetcher(time.Second, 0)

	if _, err := f.Fetch(context.Background(), "http://\x00bad"); err == nil {
		t.Error("expected error for invalid URL")
	}
}

func TestFetchContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	f := NewFetcher(time.Minute, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := f.Fetch(ctx, srv.URL); err == nil {
		t.Error("expected error when context times out")
	}
}
