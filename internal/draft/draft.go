// Package draft writes an article for a topic in two phases. Generation tries each configured
// model in order and falls back to a fixed template; refinement tries each model again and falls
// back to a deterministic cleanup pass. The result always meets the minimum word count.
package draft

import (
	"context"
	"time"

	"github.com/yangwenmai/autoblog/internal/chain"
	"github.com/yangwenmai/autoblog/internal/events"
	"github.com/yangwenmai/autoblog/internal/logger"
	"github.com/yangwenmai/autoblog/internal/model"
)

// Stage names used in logs and events.
const (
	StageDraft  = "draft"
	StageRefine = "refine"
)

// Provider names reported when the terminal fallback was used.
const (
	ProviderTemplate = "template"
	ProviderCleanup  = "cleanup"
)

// Result is the outcome of Write.
type Result struct {
	Article   model.Article
	Generator string
	Refiner   string
}

// Drafter runs generation and refinement.
type Drafter struct {
	generate *chain.Chain[Request, model.Article]
	refine   *chain.Chain[RefineRequest, string]
	bounds   Bounds
	log      logger.Logger
	reporter events.Reporter
	now      func() time.Time
}

// New creates a Drafter. Generators and refiners are tried in the order given.
func New(generators []Generator, refiners []Refiner, bounds Bounds, log logger.Logger, reporter events.Reporter) *Drafter {
	if log == nil {
		log = logger.NewNop()
	}
	if reporter == nil {
		reporter = events.Nop{}
	}
	log = log.With(logger.Component("drafter"))
	return &Drafter{
		generate: chain.New(StageDraft, generators,
			chain.WithLogger[Request, model.Article](log),
			chain.WithReporter[Request, model.Article](reporter),
		),
		refine: chain.New(StageRefine, refiners,
			chain.WithLogger[RefineRequest, string](log),
			chain.WithReporter[RefineRequest, string](reporter),
		),
		bounds:   bounds,
		log:      log,
		reporter: reporter,
		now:      time.Now,
	}
}

// Draft produces an article, falling back to Template when every generator fails.
func (d *Drafter) Draft(ctx context.Context, topic string, snippets []model.SourceSnippet) (model.Article, string) {
	res, err := d.generate.Attempt(ctx, Request{Topic: topic, Snippets: snippets})
	if err != nil {
		d.fallback(StageDraft, topic, err)
		return Template(topic), ProviderTemplate
	}
	return res.Value, res.Provider
}

// Refine replaces the article body with a refined one, falling back to Cleanup when every refiner
// fails. Other fields are left untouched.
func (d *Drafter) Refine(ctx context.Context, article model.Article, snippets []model.SourceSnippet) (model.Article, string) {
	res, err := d.refine.Attempt(ctx, RefineRequest{Article: article, Snippets: snippets})
	if err != nil {
		d.fallback(StageRefine, article.Title, err)
		article.Body = Cleanup(article.Body, d.bounds)
		return article, ProviderCleanup
	}
	article.Body = res.Value
	return article, res.Provider
}

// Write runs both phases and enforces the minimum word count on the result.
func (d *Drafter) Write(ctx context.Context, topic string, snippets []model.SourceSnippet) Result {
	article, generator := d.Draft(ctx, topic, snippets)
	article, refiner := d.Refine(ctx, article, snippets)
	article.Body = EnsureMinWords(article.Body, d.bounds.MinWords)

	d.log.Info("article written",
		logger.String("topic", topic),
		logger.String("generator", generator),
		logger.String("refiner", refiner),
		logger.Int("words", article.WordCount()),
	)
	return Result{Article: article, Generator: generator, Refiner: refiner}
}

func (d *Drafter) fallback(stage, topic string, err error) {
	d.log.Warn("all providers failed, using fallback",
		logger.String("stage", stage),
		logger.String("topic", topic),
		logger.Error(err),
	)
	d.reporter.Report(events.Event{
		Kind:  events.FallbackUsed,
		Time:  d.now(),
		Stage: stage,
		Topic: topic,
		Err:   err,
	})
}
