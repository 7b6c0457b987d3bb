// Package retrieve gathers source snippets for a topic through an ordered chain of providers and
// caches successful results by topic.
package retrieve

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yangwenmai/autoblog/internal/cache"
	"github.com/yangwenmai/autoblog/internal/chain"
	"github.com/yangwenmai/autoblog/internal/events"
	"github.com/yangwenmai/autoblog/internal/logger"
	"github.com/yangwenmai/autoblog/internal/model"
)

// Stage is the chain name used in logs and events.
const Stage = "retrieve"

// MethodNone marks Sources produced when every provider failed.
const MethodNone = "none"

const cacheKeyRunes = 50

// CacheKey lowercases title, replaces spaces with underscores and keeps 50 runes.
func CacheKey(title string) string {
	k := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(title)), " ", "_")
	if utf8.RuneCountInString(k) > cacheKeyRunes {
		k = string([]rune(k)[:cacheKeyRunes])
	}
	return k
}

// Retriever runs the retrieval chain with a read-through cache.
type Retriever struct {
	chain    *chain.Chain[model.Topic, []model.SourceSnippet]
	cache    cache.Store
	log      logger.Logger
	reporter events.Reporter
	now      func() time.Time
}

// New creates a Retriever over providers in priority order. store may be nil to disable caching.
func New(providers []Provider, store cache.Store, log logger.Logger, reporter events.Reporter) *Retriever {
	if log == nil {
		log = logger.NewNop()
	}
	if reporter == nil {
		reporter = events.Nop{}
	}
	log = log.With(logger.Component(Stage))
	return &Retriever{
		chain: chain.New(Stage, providers,
			chain.WithAccept[model.Topic, []model.SourceSnippet](hasText),
			chain.WithLogger[model.Topic, []model.SourceSnippet](log),
			chain.WithReporter[model.Topic, []model.SourceSnippet](reporter),
		),
		cache:    store,
		log:      log,
		reporter: reporter,
		now:      time.Now,
	}
}

func hasText(snippets []model.SourceSnippet) error {
	if (model.Sources{Snippets: snippets}).Empty() {
		return errors.New("no snippet with text")
	}
	return nil
}

// Providers returns the provider names in priority order.
func (r *Retriever) Providers() []string { return r.chain.Names() }

// Retrieve returns the sources for topic. Exhaustion yields empty Sources with MethodNone and a
// nil error; the caller decides whether empty sources end the topic.
func (r *Retriever) Retrieve(ctx context.Context, topic model.Topic) (model.Sources, error) {
	key := CacheKey(topic.Title)

	if cached, ok := r.lookup(ctx, key); ok {
		r.log.Info("sources served from cache",
			logger.String("topic", topic.Title),
			logger.String("method", cached.Method),
			logger.Int("sources", len(cached.Snippets)),
		)
		cached.Method = "cache:" + cached.Method
		return cached, nil
	}

	res, err := r.chain.Attempt(ctx, topic)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return model.Sources{Method: MethodNone}, ctxErr
		}
		r.log.Warn("no sources found", logger.String("topic", topic.Title), logger.Error(err))
		r.reporter.Report(events.Event{
			Kind:  events.FallbackUsed,
			Time:  r.now(),
			Stage: Stage,
			Topic: topic.Title,
			Err:   err,
		})
		return model.Sources{Method: MethodNone}, nil
	}

	sources := model.Sources{Snippets: clean(res.Value), Method: res.Provider}
	if r.cache != nil && key != "" {
		if err := r.cache.Put(ctx, key, sources); err != nil {
			r.log.Warn("write source cache failed", logger.String("key", key), logger.Error(err))
		}
	}
	r.log.Info("sources retrieved",
		logger.String("topic", topic.Title),
		logger.String("method", sources.Method),
		logger.Int("sources", len(sources.Snippets)),
	)
	return sources, nil
}

func (r *Retriever) lookup(ctx context.Context, key string) (model.Sources, bool) {
	if r.cache == nil || key == "" {
		return model.Sources{}, false
	}
	var s model.Sources
	ok, err := r.cache.Get(ctx, key, &s)
	if err != nil {
		r.log.Warn("read source cache failed", logger.String("key", key), logger.Error(err))
		return model.Sources{}, false
	}
	if !ok || s.Empty() {
		return model.Sources{}, false
	}
	return s, true
}

// clean drops empty snippets and enforces the snippet length bound.
func clean(snippets []model.SourceSnippet) []model.SourceSnippet {
	out := make([]model.SourceSnippet, 0, len(snippets))
	for _, s := range snippets {
		s.Text = strings.TrimSpace(s.Text)
		if s.Text == "" {
			continue
		}
		if utf8.RuneCountInString(s.Text) > model.MaxSnippetRunes {
			s.Text = string([]rune(s.Text)[:model.MaxSnippetRunes])
		}
		out = append(out, s)
	}
	return out
}
