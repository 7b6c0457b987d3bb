package retrieve

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/yangwenmai/autoblog/internal/chain"
	"github.com/yangwenmai/autoblog/internal/engine"
	"github.com/yangwenmai/autoblog/internal/model"
)

// Provider finds source snippets for one topic.
type Provider = chain.Provider[model.Topic, []model.SourceSnippet]

// TopicLinkProvider extracts the page the topic was discovered from, when it has one.
type TopicLinkProvider struct {
	extractor engine.ContentExtractor
}

// NewTopicLinkProvider wraps a readability extractor.
func NewTopicLinkProvider(extractor engine.ContentExtractor) *TopicLinkProvider {
	return &TopicLinkProvider{extractor: extractor}
}

func (p *TopicLinkProvider) Name() string { return "topic_link" }

func (p *TopicLinkProvider) Produce(ctx context.Context, topic model.Topic) ([]model.SourceSnippet, error) {
	if topic.URL == "" {
		return nil, errors.New("topic has no link")
	}
	content, err := p.extractor.Extract(ctx, topic.URL)
	if err != nil {
		return nil, err
	}
	title := content.Title
	if title == "" {
		title = topic.Title
	}
	return []model.SourceSnippet{{
		URL:   topic.URL,
		Title: title,
		Text:  engine.TruncateRunes(content.NormalizedText, model.MaxSnippetRunes),
	}}, nil
}

// PerplexitySourcesProvider asks an online model for URL and fact line pairs.
type PerplexitySourcesProvider struct {
	client engine.ModelClient
}

// NewPerplexitySourcesProvider wraps an OpenAI-compatible client pointed at Perplexity.
func NewPerplexitySourcesProvider(client engine.ModelClient) *PerplexitySourcesProvider {
	return &PerplexitySourcesProvider{client: client}
}

func (p *PerplexitySourcesProvider) Name() string { return "perplexity" }

func (p *PerplexitySourcesProvider) Produce(ctx context.Context, topic model.Topic) ([]model.SourceSnippet, error) {
	resp, err := p.client.Complete(ctx, engine.BuildSourcesPrompt(topic.Title))
	if err != nil {
		return nil, err
	}
	return ParseSourcePairs(resp, 3), nil
}

var linePrefix = regexp.MustCompile(`^(?:[-*•]+|\d+[.)])\s+`)

// ParseSourcePairs reads non-blank lines two at a time: a URL line followed by a fact line. Facts
// are cut to 500 runes. A first line that is not a URL is kept as the snippet title.
func ParseSourcePairs(text string, max int) []model.SourceSnippet {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(linePrefix.ReplaceAllString(strings.TrimSpace(l), ""))
		if l != "" {
			lines = append(lines, l)
		}
	}

	var out []model.SourceSnippet
	for i := 0; i+1 < len(lines) && len(out) < max; i += 2 {
		s := model.SourceSnippet{Text: engine.TruncateRunes(lines[i+1], 500)}
		if strings.HasPrefix(lines[i], "http://") || strings.HasPrefix(lines[i], "https://") {
			s.URL = lines[i]
		} else {
			s.Title = lines[i]
		}
		out = append(out, s)
	}
	return out
}

// Searcher is the slice of the Custom Search client used here.
type Searcher interface {
	Search(ctx context.Context, query string, num int, byDate bool) ([]engine.SearchResult, error)
}

// GoogleSourcesProvider uses search result snippets, upgraded with the page text when the
// extractor can read the page.
type GoogleSourcesProvider struct {
	search    Searcher
	extractor engine.ContentExtractor
}

// NewGoogleSourcesProvider creates the provider. extractor may be nil.
func NewGoogleSourcesProvider(search Searcher, extractor engine.ContentExtractor) *GoogleSourcesProvider {
	return &GoogleSourcesProvider{search: search, extractor: extractor}
}

func (p *GoogleSourcesProvider) Name() string { return "google" }

func (p *GoogleSourcesProvider) Produce(ctx context.Context, topic model.Topic) ([]model.SourceSnippet, error) {
	results, err := p.search.Search(ctx, topic.Title, 3, false)
	if err != nil {
		return nil, err
	}
	out := make([]model.SourceSnippet, 0, len(results))
	for _, r := range results {
		s := model.SourceSnippet{
			URL:   r.Link,
			Title: r.Title,
			Text:  engine.TruncateRunes(r.Snippet, 500),
		}
		if p.extractor != nil && r.Link != "" {
			if content, err := p.extractor.Extract(ctx, r.Link); err == nil {
				s.Text = engine.TruncateRunes(content.NormalizedText, model.MaxSnippetRunes)
			}
		}
		out = append(out, s)
	}
	return out, nil
}
