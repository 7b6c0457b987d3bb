package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yangwenmai/autoblog/internal/cache"
	"github.com/yangwenmai/autoblog/internal/config"
	"github.com/yangwenmai/autoblog/internal/discover"
	"github.com/yangwenmai/autoblog/internal/draft"
	"github.com/yangwenmai/autoblog/internal/engine"
	"github.com/yangwenmai/autoblog/internal/events"
	"github.com/yangwenmai/autoblog/internal/logger"
	"github.com/yangwenmai/autoblog/internal/metrics"
	"github.com/yangwenmai/autoblog/internal/publish"
	"github.com/yangwenmai/autoblog/internal/retrieve"
	"github.com/yangwenmai/autoblog/internal/runner"
	"github.com/yangwenmai/autoblog/internal/store"
)

const (
	stubName      = "stub"
	indexFileName = "index.json"
	redisPrefix   = "autoblog:"
)

// App is the fully wired pipeline plus the handles the commands need.
type App struct {
	Config   config.Config
	Log      logger.Logger
	Store    *store.Store
	Index    *publish.Index
	Runner   *runner.BatchScheduler
	Metrics  *metrics.Reporter
	Registry *prometheus.Registry

	closers []func() error
}

// NewApp builds every stage from cfg. The caller must Close the app.
func NewApp(ctx context.Context, cfg config.Config, log logger.Logger) (*App, error) {
	app := &App{
		Config:   cfg,
		Log:      log,
		Registry: prometheus.NewRegistry(),
	}
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.Metrics = metrics.NewReporter(app.Registry)
	reporter := events.Multi{events.NewLogReporter(log), app.Metrics}

	db, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	app.closers = append(app.closers, db.Close)
	app.Store, err = store.New(db)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("init store: %w", err)
	}

	sources, err := app.cacheStore(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	limiter := engine.NewLimiter(cfg.ProviderRPS)
	httpClient := engine.NewHTTPClient(cfg.HTTPTimeout, limiter)

	llms := modelClients(cfg, httpClient)
	var perplexity engine.ModelClient = engine.NewOpenAIClient(cfg.PerplexityKey,
		engine.WithBaseURL(engine.PerplexityBaseURL),
		engine.WithModel(cfg.PerplexityModel),
		engine.WithHTTPClient(httpClient),
	)
	var extractor engine.ContentExtractor = engine.NewHTTPExtractor(httpClient)
	if cfg.UseStubs {
		log.Warn("use_stubs is set, every model and page extractor answers with canned text")
		perplexity = &engine.StubModelClient{}
		extractor = &engine.StubExtractor{}
	}
	search := engine.NewGoogleSearch(cfg.GoogleAPIKey, cfg.GoogleCSEID, httpClient)

	discoverer := discover.New(discoverProviders(cfg, perplexity, search, httpClient), log, reporter,
		discover.WithHistory(discover.UnionHistory{
			discover.PostsDirHistory{Dir: cfg.ContentDir},
			app.Store,
		}),
		discover.WithWindow(cfg.DedupWindow),
		discover.WithCache(sources),
	)
	retriever := retrieve.New(retrieveProviders(cfg, perplexity, search, extractor, httpClient),
		sources, log, reporter)
	log.Info("pipeline ready",
		logger.Strings("discover", discoverer.Providers()),
		logger.Strings("retrieve", retriever.Providers()),
		logger.Bool("stubs", cfg.UseStubs),
	)

	bounds := draft.DefaultBounds
	bounds.MinWords, bounds.MaxWords = cfg.MinWords, cfg.MaxWords
	var generators []draft.Generator
	var refiners []draft.Refiner
	for _, c := range draft.PreferPrimary(llms, cfg.PrimaryLLM) {
		generators = append(generators, draft.NewModelGenerator(c.Name, c.Client))
		refiners = append(refiners, draft.NewModelRefiner(c.Name, c.Client, bounds.MinRefinedFraction))
	}
	drafter := draft.New(generators, refiners, bounds, log, reporter)

	imageClient := engine.NewHTTPClient(publish.ImageTimeout, limiter)
	images := publish.NewImageFinder(
		[]publish.ImageProvider{
			publish.NewUnsplashProvider(cfg.UnsplashKey, imageClient),
			publish.NewPexelsProvider(cfg.PexelsKey, imageClient),
		},
		publish.NewDownloader(cfg.ImageDir, cfg.ImagePublicPath, imageClient),
		log, reporter,
	)
	publisher, err := newPublisher(cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Index = publish.NewIndex(filepath.Join(cfg.ContentDir, indexFileName))
	finalizer := publish.NewFinalizer(
		publish.NewSEO(publish.Site{Name: cfg.SiteName, URL: cfg.SiteURL, Author: cfg.Author}),
		images, publisher, log,
		publish.WithIndex(app.Index),
		publish.WithRecorder(app.Store),
	)

	app.Runner = runner.New(discoverer, retriever, drafter, finalizer, log, reporter,
		runner.WithDelays(runner.NewRandomDelays(
			runner.Range{Min: cfg.ItemDelayMin, Max: cfg.ItemDelayMax},
			runner.Range{Min: cfg.BatchDelayMin, Max: cfg.BatchDelayMax},
		)),
		runner.WithReportDir(cfg.ReportsDir),
		runner.WithRunRecorder(app.Store),
	)
	return app, nil
}

// MetricsHandler serves the app registry.
func (a *App) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{Registry: a.Registry})
}

// Close releases the database and cache connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) cacheStore(ctx context.Context) (cache.Store, error) {
	if a.Config.CacheBackend != "redis" {
		return cache.NewFileStore(a.Config.CacheDir), nil
	}
	client, err := cache.NewRedisClient(ctx, a.Config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.closers = append(a.closers, client.Close)
	return cache.NewRedisStore(client, redisPrefix), nil
}

func discoverProviders(cfg config.Config, perplexity engine.ModelClient, search *engine.GoogleSearch, hc *http.Client) []discover.Provider {
	return []discover.Provider{
		discover.NewPerplexityProvider(perplexity),
		discover.NewGoogleNewsProvider(search),
		discover.NewFeedProvider(cfg.Feeds, hc),
	}
}

// retrieveProviders orders retrieval from the cheapest source: the topic's own page first, then
// Firecrawl, Perplexity and Google.
func retrieveProviders(cfg config.Config, perplexity engine.ModelClient, search *engine.GoogleSearch,
	extractor engine.ContentExtractor, hc *http.Client) []retrieve.Provider {
	return []retrieve.Provider{
		retrieve.NewTopicLinkProvider(extractor),
		retrieve.NewFirecrawlProvider(cfg.FirecrawlKey, hc),
		retrieve.NewPerplexitySourcesProvider(perplexity),
		retrieve.NewGoogleSourcesProvider(search, extractor),
	}
}

// modelClients lists the configured language models by name. Clients without a key stay in the
// list; the chain skips them as missing credentials. Only use_stubs swaps in the canned client.
func modelClients(cfg config.Config, hc *http.Client) []draft.NamedClient {
	if cfg.UseStubs {
		return []draft.NamedClient{{Name: stubName, Client: &engine.StubModelClient{}}}
	}
	clients := []draft.NamedClient{
		{Name: "claude", Client: engine.NewClaudeClient(cfg.AnthropicKey,
			engine.WithClaudeModel(cfg.AnthropicModel), engine.WithClaudeHTTPClient(hc))},
		{Name: "openai", Client: engine.NewOpenAIClient(cfg.OpenAIKey,
			engine.WithModel(cfg.OpenAIModel), engine.WithHTTPClient(hc))},
		{Name: "gemini", Client: engine.NewGeminiClient(cfg.GeminiKey,
			engine.WithGeminiModel(cfg.GeminiModel), engine.WithGeminiHTTPClient(hc))},
	}
	if cfg.OllamaEnabled {
		clients = append(clients, draft.NamedClient{Name: "ollama", Client: engine.NewOllamaClient(cfg.OllamaURL,
			engine.WithOllamaModel(cfg.OllamaModel), engine.WithOllamaHTTPClient(hc))})
	}
	return clients
}

func newPublisher(cfg config.Config) (publish.Publisher, error) {
	switch cfg.Publisher {
	case "mdx":
		return publish.NewMDXPublisher(cfg.ContentDir, cfg.Author), nil
	case "wordpress":
		return &publish.WordPressPublisher{APIURL: cfg.WordPressURL, APIKey: cfg.WordPressKey}, nil
	case "cms":
		return &publish.HeadlessCMSPublisher{APIURL: cfg.CMSURL, APIKey: cfg.CMSKey}, nil
	}
	return nil, fmt.Errorf("unknown publisher %q", cfg.Publisher)
}
