package engine

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/yangwenmai/autoblog/internal/chain"
)

// GoogleSearchBaseURL is the Custom Search JSON API endpoint.
const GoogleSearchBaseURL = "https://www.googleapis.com/customsearch/v1"

// SearchResult is one Custom Search hit.
type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// GoogleSearch calls the Custom Search JSON API.
type GoogleSearch struct {
	apiKey     string
	engineID   string
	baseURL    string
	httpClient *http.Client
}

// NewGoogleSearch creates a search client. A nil httpClient uses the default timeout.
func NewGoogleSearch(apiKey, engineID string, httpClient *http.Client) *GoogleSearch {
	if httpClient == nil {
		httpClient = NewHTTPClient(DefaultTimeout, nil)
	}
	return &GoogleSearch{
		apiKey:     apiKey,
		engineID:   engineID,
		baseURL:    GoogleSearchBaseURL,
		httpClient: httpClient,
	}
}

// WithBaseURL returns a copy pointed at a different endpoint.
func (g *GoogleSearch) WithBaseURL(u string) *GoogleSearch {
	cp := *g
	cp.baseURL = strings.TrimRight(u, "/")
	return &cp
}

// Search returns up to num results for query. byDate sorts newest first.
func (g *GoogleSearch) Search(ctx context.Context, query string, num int, byDate bool) ([]SearchResult, error) {
	if g.apiKey == "" {
		return nil, chain.ErrMissingCredentials
	}

	params := url.Values{}
	params.Set("key", g.apiKey)
	params.Set("cx", g.engineID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(num))
	if byDate {
		params.Set("sort", "date")
	}

	var out struct {
		Items []SearchResult `json:"items"`
	}
	if err := doJSON(ctx, g.httpClient, http.MethodGet, g.baseURL+"?"+params.Encode(), nil, nil, &out); err != nil {
		return nil, fmt.Errorf("google search: %w", err)
	}
	return out.Items, nil
}
