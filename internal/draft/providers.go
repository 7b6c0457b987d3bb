package draft

import (
	"context"
	"fmt"
	"strings"

	"github.com/yangwenmai/autoblog/internal/chain"
	"github.com/yangwenmai/autoblog/internal/engine"
	"github.com/yangwenmai/autoblog/internal/model"
)

// Request is the input of a generation provider.
type Request struct {
	Topic    string
	Snippets []model.SourceSnippet
}

// RefineRequest is the input of a refinement provider.
type RefineRequest struct {
	Article  model.Article
	Snippets []model.SourceSnippet
}

// Generator produces a structured article.
type Generator = chain.Provider[Request, model.Article]

// Refiner produces a revised body.
type Refiner = chain.Provider[RefineRequest, string]

// NamedClient pairs a model client with the name it is configured under.
type NamedClient struct {
	Name   string
	Client engine.ModelClient
}

// PreferPrimary moves the client named primary to the front, keeping the others in order.
func PreferPrimary(clients []NamedClient, primary string) []NamedClient {
	out := make([]NamedClient, 0, len(clients))
	for _, c := range clients {
		if c.Name == primary {
			out = append(out, c)
		}
	}
	for _, c := range clients {
		if c.Name != primary {
			out = append(out, c)
		}
	}
	return out
}

// ModelGenerator drafts an article with one model client and parses the output.
type ModelGenerator struct {
	name   string
	client engine.ModelClient
}

// NewModelGenerator wraps client under name.
func NewModelGenerator(name string, client engine.ModelClient) *ModelGenerator {
	return &ModelGenerator{name: name, client: client}
}

func (g *ModelGenerator) Name() string { return g.name }

func (g *ModelGenerator) Produce(ctx context.Context, req Request) (model.Article, error) {
	raw, err := g.client.Complete(ctx, engine.BuildArticlePrompt(req.Topic, req.Snippets))
	if err != nil {
		return model.Article{}, err
	}
	return ParseArticle(raw)
}

// ModelRefiner asks one model client for a corrected body.
type ModelRefiner struct {
	name     string
	client   engine.ModelClient
	fraction float64
}

// NewModelRefiner wraps client under name. A refined body must keep at least fraction of the
// draft's words.
func NewModelRefiner(name string, client engine.ModelClient, fraction float64) *ModelRefiner {
	return &ModelRefiner{name: name, client: client, fraction: fraction}
}

func (r *ModelRefiner) Name() string { return r.name }

func (r *ModelRefiner) Produce(ctx context.Context, req RefineRequest) (string, error) {
	raw, err := r.client.Complete(ctx, engine.BuildRefinePrompt(req.Article, req.Snippets))
	if err != nil {
		return "", err
	}
	body := strings.TrimSpace(StripFences(raw))
	if body == "" {
		return "", fmt.Errorf("empty refined body")
	}
	want := int(float64(req.Article.WordCount()) * r.fraction)
	if got := WordCount(body); got < want {
		return "", fmt.Errorf("refined body too short: %d words, want at least %d", got, want)
	}
	return body, nil
}
