// Package discover finds candidate topics for a run and filters out those that near-match recent
// posts or each other.
package discover

import (
	"context"
	"errors"
	"time"

	"github.com/yangwenmai/autoblog/internal/cache"
	"github.com/yangwenmai/autoblog/internal/chain"
	"github.com/yangwenmai/autoblog/internal/events"
	"github.com/yangwenmai/autoblog/internal/logger"
	"github.com/yangwenmai/autoblog/internal/model"
)

const (
	// Stage is the chain name used in logs and events.
	Stage = "discover"
	// DefaultPerProvider is how many titles each provider is asked for.
	DefaultPerProvider = 20
	// DefaultWindow is how far back recent posts are considered.
	DefaultWindow = 7 * 24 * time.Hour
)

// Discoverer runs the discovery chain.
type Discoverer struct {
	chain       *chain.Chain[int, []model.Topic]
	history     History
	window      time.Duration
	perProvider int
	cache       cache.Store
	log         logger.Logger
	now         func() time.Time
}

// Option configures a Discoverer.
type Option func(*Discoverer)

// WithHistory sets the recent-post source.
func WithHistory(h History) Option {
	return func(d *Discoverer) { d.history = h }
}

// WithWindow sets the recency window.
func WithWindow(w time.Duration) Option {
	return func(d *Discoverer) {
		if w > 0 {
			d.window = w
		}
	}
}

// WithPerProvider sets how many titles are requested from each provider.
func WithPerProvider(n int) Option {
	return func(d *Discoverer) {
		if n > 0 {
			d.perProvider = n
		}
	}
}

// WithCache persists each day's discovered list under "topics_YYYYMMDD".
func WithCache(s cache.Store) Option {
	return func(d *Discoverer) { d.cache = s }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Discoverer) { d.now = now }
}

// New creates a Discoverer over providers in priority order.
func New(providers []Provider, log logger.Logger, reporter events.Reporter, opts ...Option) *Discoverer {
	if log == nil {
		log = logger.NewNop()
	}
	if reporter == nil {
		reporter = events.Nop{}
	}
	d := &Discoverer{
		window:      DefaultWindow,
		perProvider: DefaultPerProvider,
		log:         log.With(logger.Component(Stage)),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.chain = chain.New(Stage, providers,
		chain.WithAccept[int, []model.Topic](nonEmpty),
		chain.WithLogger[int, []model.Topic](d.log),
		chain.WithReporter[int, []model.Topic](reporter),
	)
	return d
}

func nonEmpty(topics []model.Topic) error {
	if len(topics) == 0 {
		return errors.New("no topics returned")
	}
	return nil
}

// Discover returns up to target unique topics. A shortfall is not an error; when every provider
// fails the result is empty. Only context cancellation is returned as an error.
func (d *Discoverer) Discover(ctx context.Context, target int) ([]model.Topic, error) {
	if target <= 0 {
		return nil, nil
	}

	filter := NewFilter(d.recent(ctx))
	topics := make([]model.Topic, 0, target)

	err := d.chain.Gather(ctx, d.perProvider, func(provider string, batch []model.Topic) bool {
		before := len(topics)
		for _, t := range batch {
			t.Title = CleanTitle(t.Title)
			if t.Title == "" || !filter.Accept(t.Title) {
				continue
			}
			topics = append(topics, t)
			if len(topics) >= target {
				break
			}
		}
		d.log.Info("topics discovered",
			logger.String("provider", provider),
			logger.Int("raw", len(batch)),
			logger.Int("accepted", len(topics)-before),
		)
		return len(topics) < target
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return topics, ctxErr
		}
		d.log.Warn("all discovery providers failed", logger.Error(err))
	}

	if len(topics) > target {
		topics = topics[:target]
	}
	d.store(ctx, topics)

	d.log.Info("discovery finished", logger.Int("topics", len(topics)), logger.Int("target", target))
	return topics, nil
}

// Providers returns the provider names in priority order.
func (d *Discoverer) Providers() []string { return d.chain.Names() }

func (d *Discoverer) recent(ctx context.Context) []string {
	if d.history == nil {
		return nil
	}
	slugs, err := d.history.RecentSlugs(ctx, d.now().Add(-d.window))
	if err != nil {
		d.log.Warn("load recent posts failed, continuing without history", logger.Error(err))
		return nil
	}
	return slugs
}

func (d *Discoverer) store(ctx context.Context, topics []model.Topic) {
	if d.cache == nil || len(topics) == 0 {
		return
	}
	key := "topics_" + d.now().Format("20060102")
	if err := d.cache.Put(ctx, key, topics); err != nil {
		d.log.Warn("write topic cache failed", logger.String("key", key), logger.Error(err))
	}
}
