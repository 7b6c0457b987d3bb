// Package runner drives one pipeline run: discover topics, then process them in paced batches
// until the publish limit is met or the topics run out.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yangwenmai/autoblog/internal/draft"
	"github.com/yangwenmai/autoblog/internal/events"
	"github.com/yangwenmai/autoblog/internal/logger"
	"github.com/yangwenmai/autoblog/internal/model"
)

// Phase is the run state.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseDiscovering Phase = "discovering"
	PhaseProcessing  Phase = "processing"
	PhaseCompleted   Phase = "completed"
)

// Discoverer finds candidate topics.
type Discoverer interface {
	Discover(ctx context.Context, target int) ([]model.Topic, error)
}

// Retriever gathers source snippets for a topic.
type Retriever interface {
	Retrieve(ctx context.Context, topic model.Topic) (model.Sources, error)
}

// Writer drafts and refines an article.
type Writer interface {
	Write(ctx context.Context, topic string, snippets []model.SourceSnippet) draft.Result
}

// Finalizer publishes an article, or previews it in simulation mode.
type Finalizer interface {
	Finalize(ctx context.Context, a model.Article, sourceMethod string) (model.PublishRecord, error)
	Preview(a model.Article) model.PublishMeta
}

// RunRecorder persists a run summary next to the report file.
type RunRecorder interface {
	RecordRun(ctx context.Context, stats model.RunStats, reportPath string) error
}

// Options controls a single run.
type Options struct {
	Limit     int
	BatchSize int
	Overfetch int
	Simulate  bool
}

// DefaultOptions publishes 15 articles in batches of 5.
func DefaultOptions() Options {
	return Options{Limit: 15, BatchSize: 5, Overfetch: 3, Simulate: true}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Limit <= 0 {
		o.Limit = d.Limit
	}
	if o.BatchSize <= 0 {
		o.BatchSize = d.BatchSize
	}
	if o.Overfetch <= 0 {
		o.Overfetch = d.Overfetch
	}
	return o
}

// BatchScheduler runs the pipeline for a batch of topics.
type BatchScheduler struct {
	discover  Discoverer
	retrieve  Retriever
	writer    Writer
	finalize  Finalizer
	delays    DelayPolicy
	reportDir string
	runs      RunRecorder
	log       logger.Logger
	reporter  events.Reporter
	now       func() time.Time
}

// Option configures a BatchScheduler.
type Option func(*BatchScheduler)

// WithDelays overrides the pacing policy.
func WithDelays(p DelayPolicy) Option { return func(s *BatchScheduler) { s.delays = p } }

// WithReportDir sets where run reports are written.
func WithReportDir(dir string) Option { return func(s *BatchScheduler) { s.reportDir = dir } }

// WithRunRecorder stores a summary of every run.
func WithRunRecorder(r RunRecorder) Option { return func(s *BatchScheduler) { s.runs = r } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *BatchScheduler) { s.now = now } }

// New creates a scheduler over the four pipeline stages.
func New(d Discoverer, r Retriever, w Writer, f Finalizer, log logger.Logger, reporter events.Reporter, opts ...Option) *BatchScheduler {
	if log == nil {
		log = logger.NewNop()
	}
	if reporter == nil {
		reporter = events.Nop{}
	}
	s := &BatchScheduler{
		discover:  d,
		retrieve:  r,
		writer:    w,
		finalize:  f,
		delays:    NewRandomDelays(DefaultItemRange, DefaultBatchRange),
		reportDir: "reports",
		log:       log.With(logger.Component("runner")),
		reporter:  reporter,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// run holds the state of one Run call.
type run struct {
	id       string
	opts     Options
	sink     *StatsSink
	reporter events.Reporter
}

func (s *BatchScheduler) emit(r *run, e events.Event) {
	e.RunID = r.id
	if e.Time.IsZero() {
		e.Time = s.now()
	}
	r.reporter.Report(e)
}

func (s *BatchScheduler) phase(r *run, p Phase) {
	s.log.Info("phase changed", logger.String("run_id", r.id), logger.String("phase", string(p)))
	s.emit(r, events.Event{Kind: events.PhaseChanged, Phase: string(p)})
}

// Run executes one run and returns its statistics. The report is written on every return path.
// It returns ErrNoTopics when discovery came back empty and ctx.Err() when cancelled.
func (s *BatchScheduler) Run(ctx context.Context, opts Options) (model.RunStats, error) {
	opts = opts.withDefaults()
	stats := model.NewRunStats(uuid.NewString(), s.now())
	stats.Simulated = opts.Simulate
	sink := NewStatsSink(stats)
	r := &run{id: stats.RunID, opts: opts, sink: sink, reporter: events.Multi{s.reporter, sink}}

	s.log.Info("starting pipeline",
		logger.String("run_id", r.id),
		logger.Int("limit", opts.Limit),
		logger.Int("batch_size", opts.BatchSize),
		logger.Bool("simulate", opts.Simulate),
	)
	s.emit(r, events.Event{Kind: events.RunStarted, Count: opts.Limit})
	s.phase(r, PhaseIdle)

	err := s.process(ctx, r)
	return s.complete(ctx, r, err)
}

func (s *BatchScheduler) process(ctx context.Context, r *run) error {
	s.phase(r, PhaseDiscovering)
	topics, err := s.discover.Discover(ctx, r.opts.Limit*r.opts.Overfetch)
	if err != nil {
		return fmt.Errorf("discover: %w", err)
	}
	s.emit(r, events.Event{Kind: events.TopicsDiscovered, Count: len(topics)})
	if len(topics) == 0 {
		s.log.Error("no topics discovered", logger.String("run_id", r.id))
		return ErrNoTopics
	}

	s.phase(r, PhaseProcessing)
	published := 0
	for start, batchNum := 0, 1; start < len(topics) && published < r.opts.Limit; start, batchNum = start+r.opts.BatchSize, batchNum+1 {
		end := min(start+r.opts.BatchSize, len(topics))
		batch := topics[start:end]
		s.log.Info("processing batch", logger.Int("batch", batchNum), logger.Int("topics", len(batch)))

		for i, topic := range batch {
			if published >= r.opts.Limit {
				break
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if !s.processTopic(ctx, r, topic) {
				continue
			}
			published++
			if i < len(batch)-1 && s.shouldWait(r, published) {
				if err := s.wait(ctx, ItemDelay); err != nil {
					return err
				}
			}
		}

		if end < len(topics) && s.shouldWait(r, published) {
			if err := s.wait(ctx, BatchDelay); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *BatchScheduler) shouldWait(r *run, published int) bool {
	return !r.opts.Simulate && published < r.opts.Limit
}

func (s *BatchScheduler) wait(ctx context.Context, kind DelayKind) error {
	d := s.delays.NextDelay(kind)
	if d > 0 {
		s.log.Info("waiting before next "+kind.String(), logger.Duration("delay", d))
	}
	return sleep(ctx, d)
}

// processTopic runs one topic through the stages and reports whether it counted as published.
func (s *BatchScheduler) processTopic(ctx context.Context, r *run, topic model.Topic) bool {
	s.emit(r, events.Event{Kind: events.TopicStarted, Topic: topic.Title})
	s.log.Info("processing topic", logger.String("topic", topic.Title), logger.String("source", topic.Source))

	slug, err := s.runStages(ctx, r, topic)
	if err != nil {
		stage := "unknown"
		var se *StageError
		if errors.As(err, &se) {
			stage = se.Stage
		}
		s.emit(r, events.Event{Kind: events.TopicFailed, Topic: topic.Title, Stage: stage, Err: err})
		return false
	}
	s.emit(r, events.Event{Kind: events.TopicCompleted, Topic: topic.Title, Slug: slug})
	return true
}

func (s *BatchScheduler) runStages(ctx context.Context, r *run, topic model.Topic) (slug string, err error) {
	stage := StageRetrieve
	defer func() {
		if p := recover(); p != nil {
			err = &StageError{Stage: stage, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	sources, err := s.retrieve.Retrieve(ctx, topic)
	if err != nil {
		return "", &StageError{Stage: stage, Err: err}
	}
	if sources.Empty() {
		s.log.Warn("no sources found", logger.String("topic", topic.Title))
		return "", &StageError{Stage: stage, Err: ErrNoSources}
	}

	stage = StageDraft
	res := s.writer.Write(ctx, topic.Title, sources.Snippets)
	if strings.TrimSpace(res.Article.Body) == "" {
		return "", &StageError{Stage: stage, Err: errors.New("empty article body")}
	}
	s.emit(r, events.Event{Kind: events.ArticleGenerated, Topic: topic.Title, Provider: res.Generator})

	stage = StageFinalize
	if r.opts.Simulate {
		meta := s.finalize.Preview(res.Article)
		s.log.Info("simulation: would publish",
			logger.String("title", res.Article.Title),
			logger.String("slug", meta.Slug),
			logger.Strings("tags", res.Article.Tags),
			logger.Int("words", res.Article.WordCount()),
			logger.String("generator", res.Generator),
			logger.String("refiner", res.Refiner),
		)
		return meta.Slug, nil
	}

	rec, err := s.finalize.Finalize(ctx, res.Article, sources.Method)
	if err != nil {
		return "", &StageError{Stage: stage, Err: err}
	}
	return rec.Slug, nil
}

func (s *BatchScheduler) complete(ctx context.Context, r *run, runErr error) (model.RunStats, error) {
	s.phase(r, PhaseCompleted)
	snap := r.sink.Snapshot()
	s.emit(r, events.Event{Kind: events.RunCompleted, Count: snap.ArticlesPublished, Err: runErr})

	stats := r.sink.Snapshot()
	completedAt := s.now()
	if stats.CompletedAt != nil {
		completedAt = *stats.CompletedAt
	}
	path, err := WriteReport(s.reportDir, stats, completedAt)
	if err != nil {
		s.log.Error("write report failed", logger.Error(err))
	} else {
		s.log.Info("pipeline complete",
			logger.String("run_id", r.id),
			logger.String("report", path),
			logger.Int("topics_found", stats.TopicsFound),
			logger.Int("generated", stats.ArticlesGenerated),
			logger.Int("published", stats.ArticlesPublished),
			logger.Int("errors", len(stats.Errors)),
		)
	}
	if s.runs != nil {
		// Recorded even when the run was cancelled.
		if err := s.runs.RecordRun(context.WithoutCancel(ctx), stats, path); err != nil {
			s.log.Warn("record run failed", logger.Error(err))
		}
	}
	return stats, runErr
}
