package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	nurl "net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"
)

const (
	maxTextLength = 15000
	// Pages returning less than this are likely login walls, cookie walls, or empty pages.
	minTextLength = 100
	maxBodySize   = 5 * 1024 * 1024
)

// Some sites block clients that do not look like a browser.
var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
}

// HTTPExtractor fetches web pages and extracts readable content using go-readability.
type HTTPExtractor struct {
	client *http.Client
}

// NewHTTPExtractor creates a new HTTP-based content extractor. A nil client gets the default timeout.
func NewHTTPExtractor(client *http.Client) *HTTPExtractor {
	if client == nil {
		client = NewHTTPClient(DefaultTimeout, nil)
	}
	return &HTTPExtractor{client: client}
}

// Extract fetches url once and returns its main content. Non-HTML responses and pages with
// fewer than minTextLength characters of text are rejected.
func (e *HTTPExtractor) Extract(ctx context.Context, url string) (*ExtractedContent, error) {
	pageURL, err := nurl.Parse(url)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return nil, fmt.Errorf("unsupported content type %q for %s", ct, url)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxBodySize), pageURL)
	if err != nil {
		return nil, fmt.Errorf("readability: %w", err)
	}

	text := normalizeText(article.TextContent)
	n := utf8.RuneCountInString(text)
	if n < minTextLength {
		return nil, fmt.Errorf("extracted content too short (%d chars), possibly blocked or empty page", n)
	}
	if n > maxTextLength {
		text = TruncateRunes(text, maxTextLength) + "\n... [truncated]"
	}

	meta := ContentMeta{Author: article.Byline, WordCount: len(strings.Fields(text))}
	if article.PublishedTime != nil && !article.PublishedTime.IsZero() {
		meta.PublishDate = article.PublishedTime.Format(time.RFC3339)
	}
	return &ExtractedContent{
		Title:          strings.TrimSpace(article.Title),
		NormalizedText: text,
		Meta:           meta,
	}, nil
}

var multiSpace = regexp.MustCompile(`[ \t]+`)
var multiNewline = regexp.MustCompile(`\n{3,}`)

func normalizeText(s string) string {
	s = strings.TrimSpace(s)
	s = multiSpace.ReplaceAllString(s, " ")
	s = multiNewline.ReplaceAllString(s, "\n\n")
	return s
}
