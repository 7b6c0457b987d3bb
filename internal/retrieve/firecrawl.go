package retrieve

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/yangwenmai/autoblog/internal/chain"
	"github.com/yangwenmai/autoblog/internal/engine"
	"github.com/yangwenmai/autoblog/internal/model"
)

// FirecrawlBaseURL is the Firecrawl v1 API root.
const FirecrawlBaseURL = "https://api.firecrawl.dev/v1"

// FirecrawlProvider searches for pages about the topic and scrapes them as markdown.
type FirecrawlProvider struct {
	apiKey     string
	baseURL    string
	maxPages   int
	httpClient *http.Client
}

// NewFirecrawlProvider creates the provider. A nil client uses the default timeout.
func NewFirecrawlProvider(apiKey string, httpClient *http.Client) *FirecrawlProvider {
	if httpClient == nil {
		httpClient = engine.NewHTTPClient(engine.DefaultTimeout, nil)
	}
	return &FirecrawlProvider{
		apiKey:     apiKey,
		baseURL:    FirecrawlBaseURL,
		maxPages:   3,
		httpClient: httpClient,
	}
}

// WithBaseURL returns a copy pointed at a different endpoint.
func (p *FirecrawlProvider) WithBaseURL(u string) *FirecrawlProvider {
	cp := *p
	cp.baseURL = strings.TrimRight(u, "/")
	return &cp
}

func (p *FirecrawlProvider) Name() string { return "firecrawl" }

func (p *FirecrawlProvider) Produce(ctx context.Context, topic model.Topic) ([]model.SourceSnippet, error) {
	if p.apiKey == "" {
		return nil, chain.ErrMissingCredentials
	}

	urls, err := p.search(ctx, topic.Title)
	if err != nil {
		return nil, err
	}

	var (
		snippets []model.SourceSnippet
		errs     []error
	)
	for _, u := range urls {
		s, err := p.scrape(ctx, u)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		snippets = append(snippets, s)
	}
	if len(snippets) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return snippets, nil
}

func (p *FirecrawlProvider) search(ctx context.Context, query string) ([]string, error) {
	var resp struct {
		Data []struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := p.post(ctx, "/search", map[string]any{"query": query, "limit": p.maxPages}, &resp); err != nil {
		return nil, fmt.Errorf("firecrawl search: %w", err)
	}
	urls := make([]string, 0, p.maxPages)
	for _, d := range resp.Data {
		if d.URL == "" {
			continue
		}
		urls = append(urls, d.URL)
		if len(urls) == p.maxPages {
			break
		}
	}
	return urls, nil
}

func (p *FirecrawlProvider) scrape(ctx context.Context, url string) (model.SourceSnippet, error) {
	var resp struct {
		Data struct {
			Markdown string `json:"markdown"`
			Metadata struct {
				Title string `json:"title"`
			} `json:"metadata"`
		} `json:"data"`
	}
	if err := p.post(ctx, "/scrape", map[string]any{"url": url, "formats": []string{"markdown"}}, &resp); err != nil {
		return model.SourceSnippet{}, fmt.Errorf("firecrawl scrape %s: %w", url, err)
	}
	return model.SourceSnippet{
		URL:   url,
		Title: resp.Data.Metadata.Title,
		Text:  engine.TruncateRunes(strings.TrimSpace(resp.Data.Markdown), model.MaxSnippetRunes),
	}, nil
}

func (p *FirecrawlProvider) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, engine.TruncateRunes(string(respBody), 300))
	}
	return json.Unmarshal(respBody, out)
}
