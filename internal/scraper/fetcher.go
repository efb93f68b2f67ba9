// Package scraper supplies scraped page context for content generation.
// Fetching is best-effort: unreachable or unparsable pages are skipped
// and whatever subset succeeded is returned.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/Stepanishin/telepublisher-be/internal/domain"
)

const (
	fetchTimeout    = 15 * time.Second
	maxContentChars = 2000
)

var ErrAllSourcesFailed = errors.New("all source URLs failed to fetch")

type Fetcher struct {
	client *http.Client
	logger *slog.Logger
}

func NewFetcher(logger *slog.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{},
		logger: logger.With("component", "source_fetcher"),
	}
}

// Fetch scrapes each URL and returns the pages that succeeded. It
// returns ErrAllSourcesFailed only when every URL failed; a partial
// result comes back with a nil error.
func (f *Fetcher) Fetch(ctx context.Context, urls []string) ([]domain.SourceContent, error) {
	var results []domain.SourceContent
	for _, url := range urls {
		page, err := f.fetchOne(ctx, url)
		if err != nil {
			f.logger.Warn("source fetch failed", "url", url, "error", err)
			continue
		}
		results = append(results, page)
	}

	if len(results) == 0 && len(urls) > 0 {
		return nil, ErrAllSourcesFailed
	}
	return results, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, url string) (domain.SourceContent, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.SourceContent{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "telepublisher-bot/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return domain.SourceContent{}, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return domain.SourceContent{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return domain.SourceContent{}, fmt.Errorf("parse html: %w", err)
	}

	return domain.SourceContent{
		URL:         url,
		Title:       strings.TrimSpace(doc.Find("title").First().Text()),
		Description: metaContent(doc, "description"),
		Content:     pageText(doc),
		Author:      metaContent(doc, "author"),
		PublishDate: metaProperty(doc, "article:published_time"),
	}, nil
}

// pageText collects paragraph text, capped so a long article cannot
// blow up the generation prompt.
func pageText(doc *goquery.Document) string {
	var b strings.Builder
	doc.Find("article p, main p, p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return true
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(text)
		return b.Len() < maxContentChars
	})

	text := b.String()
	if len(text) > maxContentChars {
		text = text[:maxContentChars]
	}
	return text
}

func metaContent(doc *goquery.Document, name string) string {
	content, _ := doc.Find(fmt.Sprintf(`meta[name=%q]`, name)).Attr("content")
	return strings.TrimSpace(content)
}

func metaProperty(doc *goquery.Document, property string) string {
	content, _ := doc.Find(fmt.Sprintf(`meta[property=%q]`, property)).Attr("content")
	return strings.TrimSpace(content)
}
