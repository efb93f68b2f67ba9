package scraper_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Stepanishin/telepublisher-be/internal/scraper"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
	<title>Go 1.24 Release Notes</title>
	<meta name="description" content="What is new in Go 1.24.">
	<meta name="author" content="The Go Team">
	<meta property="article:published_time" content="2025-02-11">
</head>
<body>
	<article>
		<p>Generic type aliases are now fully supported.</p>
		<p>The runtime reduces allocation overhead in small maps.</p>
	</article>
</body>
</html>`

func TestFetch_ExtractsPageFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	f := scraper.NewFetcher(slog.Default())
	pages, err := f.Fetch(context.Background(), []string{srv.URL})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}

	page := pages[0]
	if page.Title != "Go 1.24 Release Notes" {
		t.Fatalf("unexpected title %q", page.Title)
	}
	if page.Description != "What is new in Go 1.24." {
		t.Fatalf("unexpected description %q", page.Description)
	}
	if page.Author != "The Go Team" {
		t.Fatalf("unexpected author %q", page.Author)
	}
	if page.PublishDate != "2025-02-11" {
		t.Fatalf("unexpected publish date %q", page.PublishDate)
	}
	if !strings.Contains(page.Content, "Generic type aliases") {
		t.Fatalf("expected paragraph text, got %q", page.Content)
	}
}

func TestFetch_PartialFailureReturnsSubset(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(samplePage))
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	f := scraper.NewFetcher(slog.Default())
	pages, err := f.Fetch(context.Background(), []string{bad.URL, good.URL})
	if err != nil {
		t.Fatalf("partial failure must not error: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected the surviving page only, got %d", len(pages))
	}
}

func TestFetch_TotalFailure(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer bad.Close()

	f := scraper.NewFetcher(slog.Default())
	_, err := f.Fetch(context.Background(), []string{bad.URL})
	if err == nil {
		t.Fatal("expected error when every source fails")
	}
}

func TestFetch_NoURLs(t *testing.T) {
	f := scraper.NewFetcher(slog.Default())
	pages, err := f.Fetch(context.Background(), nil)
	if err != nil {
		t.Fatalf("expected nil error for empty url list, got %v", err)
	}
	if len(pages) != 0 {
		t.Fatalf("expected no pages, got %d", len(pages))
	}
}
