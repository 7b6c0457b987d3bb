package retrieve

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yangwenmai/autoblog/internal/cache"
	"github.com/yangwenmai/autoblog/internal/chain"
	"github.com/yangwenmai/autoblog/internal/engine"
	"github.com/yangwenmai/autoblog/internal/events"
	"github.com/yangwenmai/autoblog/internal/model"
)

type fakeProvider struct {
	name     string
	snippets []model.SourceSnippet
	err      error
	calls    int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Produce(context.Context, model.Topic) ([]model.SourceSnippet, error) {
	f.calls++
	return f.snippets, f.err
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "best_ai_tools_2024", CacheKey("Best AI tools 2024"))
	assert.Len(t, []rune(CacheKey(strings.Repeat("long title ", 20))), 50)
}

func TestRetrieve_FirstSuccessWinsAndIsCached(t *testing.T) {
	empty := &fakeProvider{name: "firecrawl", snippets: []model.SourceSnippet{{URL: "u", Text: "  "}}}
	good := &fakeProvider{name: "perplexity", snippets: []model.SourceSnippet{{URL: "https://a", Text: "fact"}, {Text: ""}}}
	never := &fakeProvider{name: "google", snippets: []model.SourceSnippet{{Text: "x"}}}

	store := cache.NewFileStore(t.TempDir())
	r := New([]Provider{empty, good, never}, store, nil, nil)

	topic := model.NewTopic("Sodium batteries", model.SourceRSSFeed, "")
	got, err := r.Retrieve(context.Background(), topic)
	require.NoError(t, err)
	assert.Equal(t, "perplexity", got.Method)
	assert.Equal(t, []model.SourceSnippet{{URL: "https://a", Text: "fact"}}, got.Snippets)
	assert.Equal(t, 0, never.calls)

	// Second call is served from the cache without touching providers.
	got, err = r.Retrieve(context.Background(), topic)
	require.NoError(t, err)
	assert.Equal(t, "cache:perplexity", got.Method)
	assert.Equal(t, 1, good.calls)
}

func TestRetrieve_ExhaustionReturnsEmpty(t *testing.T) {
	var fallbacks int
	reporter := events.ReporterFunc(func(e events.Event) {
		if e.Kind == events.FallbackUsed {
			fallbacks++
		}
	})
	r := New([]Provider{
		&fakeProvider{name: "firecrawl", err: chain.ErrMissingCredentials},
		&fakeProvider{name: "google", err: errors.New("quota")},
	}, nil, nil, reporter)

	got, err := r.Retrieve(context.Background(), model.NewTopic("t", model.SourcePerplexity, ""))
	require.NoError(t, err)
	assert.True(t, got.Empty())
	assert.Equal(t, MethodNone, got.Method)
	assert.Equal(t, 1, fallbacks)
}

func TestParseSourcePairs(t *testing.T) {
	text := "1. https://example.com/a\nChips doubled in speed.\n\n2. https://example.com/b\n3.5 million units shipped.\nOrphan line"
	got := ParseSourcePairs(text, 3)
	require.Len(t, got, 2)
	assert.Equal(t, "https://example.com/a", got[0].URL)
	assert.Equal(t, "Chips doubled in speed.", got[0].Text)
	assert.Equal(t, "3.5 million units shipped.", got[1].Text)

	got = ParseSourcePairs("Reuters report\nA fact", 3)
	require.Len(t, got, 1)
	assert.Equal(t, "Reuters report", got[0].Title)
	assert.Empty(t, got[0].URL)
}

func TestPerplexitySourcesProvider(t *testing.T) {
	p := NewPerplexitySourcesProvider(&engine.StubModelClient{})
	got, err := p.Produce(context.Background(), model.NewTopic("Passkeys", model.SourcePerplexity, ""))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, strings.HasPrefix(got[0].URL, "https://"))
}

type fakeExtractor struct {
	text string
	err  error
}

func (f fakeExtractor) Extract(context.Context, string) (*engine.ExtractedContent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &engine.ExtractedContent{Title: "Page", NormalizedText: f.text}, nil
}

func TestTopicLinkProvider(t *testing.T) {
	p := NewTopicLinkProvider(fakeExtractor{text: strings.Repeat("a", 1500)})

	_, err := p.Produce(context.Background(), model.NewTopic("No link", model.SourcePerplexity, ""))
	assert.Error(t, err)

	got, err := p.Produce(context.Background(), model.NewTopic("Linked", model.SourceGoogleNews, "https://n.example/x"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Len(t, got[0].Text, model.MaxSnippetRunes)
	assert.Equal(t, "Page", got[0].Title)
}

type fakeSearcher struct{ results []engine.SearchResult }

func (f fakeSearcher) Search(context.Context, string, int, bool) ([]engine.SearchResult, error) {
	return f.results, nil
}

func TestGoogleSourcesProvider_UpgradesWithPageText(t *testing.T) {
	s := fakeSearcher{results: []engine.SearchResult{{Title: "T", Link: "https://x", Snippet: "short"}}}

	got, err := NewGoogleSourcesProvider(s, fakeExtractor{text: "full page text"}).Produce(context.Background(), model.Topic{Title: "q"})
	require.NoError(t, err)
	assert.Equal(t, "full page text", got[0].Text)

	got, err = NewGoogleSourcesProvider(s, fakeExtractor{err: errors.New("blocked")}).Produce(context.Background(), model.Topic{Title: "q"})
	require.NoError(t, err)
	assert.Equal(t, "short", got[0].Text)
}

func TestFirecrawlProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer fc-key", r.Header.Get("Authorization"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		switch r.URL.Path {
		case "/search":
			assert.Equal(t, "Sodium batteries", body["query"])
			w.Write([]byte(`{"data":[{"url":"https://a"},{"url":"https://b"},{"url":"https://c"},{"url":"https://d"}]}`))
		case "/scrape":
			if body["url"] == "https://b" {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Write([]byte(`{"data":{"markdown":"# Heading\n` + strings.Repeat("x", 1200) + `","metadata":{"title":"Page"}}}`))
		}
	}))
	defer srv.Close()

	p := NewFirecrawlProvider("fc-key", nil).WithBaseURL(srv.URL)
	got, err := p.Produce(context.Background(), model.Topic{Title: "Sodium batteries"})
	require.NoError(t, err)
	require.Len(t, got, 2, "b failed, d is beyond the page limit")
	assert.Equal(t, "https://a", got[0].URL)
	assert.Len(t, []rune(got[0].Text), model.MaxSnippetRunes)

	_, err = NewFirecrawlProvider("", nil).Produce(context.Background(), model.Topic{Title: "x"})
	assert.ErrorIs(t, err, chain.ErrMissingCredentials)
}
