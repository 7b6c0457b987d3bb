package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/yangwenmai/autoblog/internal/logger"
	"github.com/yangwenmai/autoblog/internal/model"
	"github.com/yangwenmai/autoblog/internal/runner"
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, opts runner.Options) (model.RunStats, error)
}

// Daemon fires one run per batch of the plan. Runs never overlap: a trigger arriving while a run
// is in progress is skipped.
type Daemon struct {
	plan    Plan
	runner  Runner
	options runner.Options
	log     logger.Logger

	cron    *cron.Cron
	running sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewDaemon creates a daemon. opts supplies everything except Limit, which comes from each batch.
func NewDaemon(plan Plan, r Runner, opts runner.Options, loc *time.Location, log logger.Logger) *Daemon {
	if log == nil {
		log = logger.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Daemon{
		plan:    plan,
		runner:  r,
		options: opts,
		log:     log.With(logger.Component("daemon")),
		cron:    cron.New(cron.WithLocation(loc)),
	}
}

// Start registers the batches and starts the cron scheduler. Runs use a context derived from ctx.
func (d *Daemon) Start(ctx context.Context) error {
	d.ctx, d.cancel = context.WithCancel(ctx)
	for i, batch := range d.plan.Batches {
		batch := batch
		if _, err := d.cron.AddFunc(batch.Cron(), func() { d.Trigger(d.ctx, batch.Size) }); err != nil {
			d.cancel()
			return fmt.Errorf("schedule batch %d: %w", i+1, err)
		}
		d.log.Info("batch scheduled",
			logger.Int("batch", i+1),
			logger.String("cron", batch.Cron()),
			logger.Int("size", batch.Size),
		)
	}
	d.cron.Start()
	return nil
}

// Stop cancels any in-flight run and waits for it to return.
func (d *Daemon) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	<-d.cron.Stop().Done()
}

// Next returns the next fire time, or the zero time when nothing is scheduled.
func (d *Daemon) Next() time.Time {
	var next time.Time
	for _, e := range d.cron.Entries() {
		if next.IsZero() || e.Next.Before(next) {
			next = e.Next
		}
	}
	return next
}

// Trigger runs one batch of size posts now. It reports false when another run was in progress.
func (d *Daemon) Trigger(ctx context.Context, size int) bool {
	if !d.running.TryLock() {
		d.log.Warn("previous run still in progress, skipping batch", logger.Int("size", size))
		return false
	}
	defer d.running.Unlock()

	opts := d.options
	opts.Limit = size
	stats, err := d.runner.Run(ctx, opts)
	if err != nil {
		d.log.Error("scheduled run failed", logger.String("run_id", stats.RunID), logger.Error(err))
		return true
	}
	d.log.Info("scheduled run finished",
		logger.String("run_id", stats.RunID),
		logger.Int("published", stats.ArticlesPublished),
	)
	return true
}
