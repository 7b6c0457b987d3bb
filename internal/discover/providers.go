package discover

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/yangwenmai/autoblog/internal/chain"
	"github.com/yangwenmai/autoblog/internal/engine"
	"github.com/yangwenmai/autoblog/internal/model"
)

// Provider lists up to n raw candidate topics.
type Provider = chain.Provider[int, []model.Topic]

var listMarker = regexp.MustCompile(`^(?:[-*•]+|\d+[.)])\s+`)

// CleanTitle trims a raw title, strips a leading list marker and unescapes HTML entities.
func CleanTitle(raw string) string {
	s := strings.TrimSpace(raw)
	s = listMarker.ReplaceAllString(s, "")
	s = strings.Trim(s, "*\"` ")
	return strings.TrimSpace(html.UnescapeString(s))
}

// PerplexityProvider asks an online model for trending titles, one per line.
type PerplexityProvider struct {
	client engine.ModelClient
}

// NewPerplexityProvider wraps an OpenAI-compatible client pointed at Perplexity.
func NewPerplexityProvider(client engine.ModelClient) *PerplexityProvider {
	return &PerplexityProvider{client: client}
}

func (p *PerplexityProvider) Name() string { return model.SourcePerplexity }

func (p *PerplexityProvider) Produce(ctx context.Context, n int) ([]model.Topic, error) {
	resp, err := p.client.Complete(ctx, engine.BuildTopicsPrompt(n))
	if err != nil {
		return nil, err
	}
	var topics []model.Topic
	for _, line := range strings.Split(resp, "\n") {
		if len(topics) == n {
			break
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		topics = append(topics, model.NewTopic(line, model.SourcePerplexity, ""))
	}
	return topics, nil
}

// Searcher is the slice of the Custom Search client used here.
type Searcher interface {
	Search(ctx context.Context, query string, num int, byDate bool) ([]engine.SearchResult, error)
}

// DefaultNewsCategories are queried in order by the Google News provider.
var DefaultNewsCategories = []string{
	"AI news",
	"gadget reviews",
	"space exploration",
	"tech tutorials",
	"science breakthroughs",
}

// GoogleNewsProvider searches each category suffixed with the current YYYY-MM.
type GoogleNewsProvider struct {
	search      Searcher
	categories  []string
	perCategory int
	now         func() time.Time
}

// NewGoogleNewsProvider creates the provider with DefaultNewsCategories and 5 results per category.
func NewGoogleNewsProvider(search Searcher) *GoogleNewsProvider {
	return &GoogleNewsProvider{
		search:      search,
		categories:  DefaultNewsCategories,
		perCategory: 5,
		now:         time.Now,
	}
}

func (p *GoogleNewsProvider) Name() string { return model.SourceGoogleNews }

// Produce fails only when every category query failed.
func (p *GoogleNewsProvider) Produce(ctx context.Context, n int) ([]model.Topic, error) {
	month := p.now().Format("2006-01")
	var (
		topics []model.Topic
		errs   []error
	)
	for _, category := range p.categories {
		results, err := p.search.Search(ctx, category+" "+month, p.perCategory, true)
		if err != nil {
			if errors.Is(err, chain.ErrMissingCredentials) {
				return nil, err
			}
			errs = append(errs, fmt.Errorf("%s: %w", category, err))
			continue
		}
		for _, r := range results {
			if r.Title != "" {
				topics = append(topics, model.NewTopic(r.Title, model.SourceGoogleNews, r.Link))
			}
		}
	}
	if len(errs) == len(p.categories) && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if len(topics) > n {
		topics = topics[:n]
	}
	return topics, nil
}

const maxFeedSize = 2 * 1024 * 1024

// FeedProvider reads item titles from RSS and Atom feeds, taking the first few of each feed.
type FeedProvider struct {
	feeds   []string
	perFeed int
	client  *http.Client
}

// NewFeedProvider creates a provider over feeds. A nil client uses a 10 second timeout.
func NewFeedProvider(feeds []string, client *http.Client) *FeedProvider {
	if client == nil {
		client = engine.NewHTTPClient(10*time.Second, nil)
	}
	return &FeedProvider{feeds: feeds, perFeed: 5, client: client}
}

func (p *FeedProvider) Name() string { return model.SourceRSSFeed }

// Produce fails only when no feed could be read.
func (p *FeedProvider) Produce(ctx context.Context, n int) ([]model.Topic, error) {
	var (
		topics []model.Topic
		errs   []error
	)
	for _, feed := range p.feeds {
		titles, err := p.fetch(ctx, feed)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", feed, err))
			continue
		}
		if len(titles) > p.perFeed {
			titles = titles[:p.perFeed]
		}
		for _, t := range titles {
			topics = append(topics, model.NewTopic(t, model.SourceRSSFeed, ""))
		}
	}
	if len(errs) == len(p.feeds) {
		if len(errs) == 0 {
			return nil, errors.New("no feeds configured")
		}
		return nil, errors.Join(errs...)
	}
	if len(topics) > n {
		topics = topics[:n]
	}
	return topics, nil
}

func (p *FeedProvider) fetch(ctx context.Context, feed string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return ParseFeedTitles(io.LimitReader(resp.Body, maxFeedSize))
}

// ParseFeedTitles extracts item (RSS) or entry (Atom) titles in document order. Documents without
// items fall back to every title element.
func ParseFeedTitles(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	sel := doc.Find("item title, entry title")
	if sel.Length() == 0 {
		sel = doc.Find("title")
	}

	var titles []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if t := unwrapCDATA(s.Text()); t != "" {
			titles = append(titles, t)
		}
	})
	return titles, nil
}

// unwrapCDATA strips a CDATA wrapper. The HTML tokenizer reads <title> as raw text, so the
// wrapper survives parsing.
func unwrapCDATA(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "<![CDATA[") && strings.HasSuffix(s, "]]>") {
		s = s[len("<![CDATA[") : len(s)-len("]]>")]
	}
	return strings.TrimSpace(html.UnescapeString(s))
}
