package discover

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yangwenmai/autoblog/internal/chain"
	"github.com/yangwenmai/autoblog/internal/engine"
	"github.com/yangwenmai/autoblog/internal/model"
)

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>Example Tech</title>
<link>https://example.com</link>
<item><title><![CDATA[Chips get faster & cheaper]]></title><link>https://example.com/1</link></item>
<item><title>Rust 2.0 &amp; you</title></item>
<item><title>Third</title></item>
<item><title>Fourth</title></item>
<item><title>Fifth</title></item>
<item><title>Sixth</title></item>
</channel></rss>`

const atomFeed = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
<title>Atom Site</title>
<entry><title>Atom entry one</title><link href="https://example.com/a"/></entry>
<entry><title type="html">Atom entry two</title></entry>
</feed>`

func TestParseFeedTitles(t *testing.T) {
	titles, err := ParseFeedTitles(strings.NewReader(rssFeed))
	require.NoError(t, err)
	require.Len(t, titles, 6)
	assert.Equal(t, "Chips get faster & cheaper", titles[0])
	assert.Equal(t, "Rust 2.0 & you", titles[1])

	titles, err = ParseFeedTitles(strings.NewReader(atomFeed))
	require.NoError(t, err)
	assert.Equal(t, []string{"Atom entry one", "Atom entry two"}, titles)

	titles, err = ParseFeedTitles(strings.NewReader(`<rss><channel><title>Only channel</title></channel></rss>`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Only channel"}, titles)
}

func TestFeedProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rss":
			w.Write([]byte(rssFeed))
		case "/atom":
			w.Write([]byte(atomFeed))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := NewFeedProvider([]string{srv.URL + "/rss", srv.URL + "/missing", srv.URL + "/atom"}, nil)
	topics, err := p.Produce(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, topics, 7, "5 from rss, 2 from atom")
	assert.Equal(t, model.SourceRSSFeed, topics[0].Source)
	assert.Equal(t, "Atom entry one", topics[5].Title)

	topics, err = p.Produce(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, topics, 3)

	_, err = NewFeedProvider([]string{srv.URL + "/missing"}, nil).Produce(context.Background(), 5)
	assert.Error(t, err)
}

type fakeSearcher struct {
	queries []string
	err     error
	results []engine.SearchResult
}

func (f *fakeSearcher) Search(_ context.Context, q string, num int, byDate bool) ([]engine.SearchResult, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func TestGoogleNewsProvider(t *testing.T) {
	s := &fakeSearcher{results: []engine.SearchResult{{Title: "Headline", Link: "https://news.example/x"}, {Title: ""}}}
	p := NewGoogleNewsProvider(s)
	p.now = func() time.Time { return time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC) }

	topics, err := p.Produce(context.Background(), 20)
	require.NoError(t, err)
	assert.Len(t, topics, len(DefaultNewsCategories))
	assert.Equal(t, "AI news 2026-10", s.queries[0])
	assert.Equal(t, "https://news.example/x", topics[0].URL)
	assert.Equal(t, model.SourceGoogleNews, topics[0].Source)
}

func TestGoogleNewsProvider_Errors(t *testing.T) {
	_, err := NewGoogleNewsProvider(&fakeSearcher{err: chain.ErrMissingCredentials}).Produce(context.Background(), 5)
	assert.ErrorIs(t, err, chain.ErrMissingCredentials)

	boom := errors.New("quota exceeded")
	_, err = NewGoogleNewsProvider(&fakeSearcher{err: boom}).Produce(context.Background(), 5)
	assert.ErrorIs(t, err, boom)
}

func TestPerplexityProvider(t *testing.T) {
	p := NewPerplexityProvider(&engine.StubModelClient{})
	topics, err := p.Produce(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, topics, 3)
	assert.Equal(t, model.SourcePerplexity, topics[0].Source)
	assert.Equal(t, "How small language models run on laptops", CleanTitle(topics[0].Title))
}

func TestCleanTitle(t *testing.T) {
	tests := map[string]string{
		"1. First topic":        "First topic",
		"12) Twelfth":           "Twelfth",
		"- dashed":              "dashed",
		"* **Bold title**":      "Bold title",
		"5G networks explained": "5G networks explained",
		"Tom &amp; Jerry":       "Tom & Jerry",
		`"Quoted"`:              "Quoted",
		"   ":                   "",
	}
	for in, want := range tests {
		assert.Equal(t, want, CleanTitle(in), in)
	}
}
