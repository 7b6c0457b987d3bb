package cli

import (
	"github.com/spf13/cobra"

	"github.com/yangwenmai/autoblog/internal/api"
	"github.com/yangwenmai/autoblog/internal/logger"
	"github.com/yangwenmai/autoblog/internal/runner"
	"github.com/yangwenmai/autoblog/internal/schedule"
)

func newServeCommand(g *globalFlags, version string) *cobra.Command {
	var addr string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the daily schedule and the status API",
		Long: `Fire one pipeline run per batch of the daily plan and serve posts, records, the
latest run, the plan and Prometheus metrics over HTTP. Scheduled runs publish unless --dry-run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := g.load(false)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			if cfg.UseStubs && !dryRun {
				return errStubPublish
			}
			if addr == "" {
				addr = cfg.ServeAddr
			}

			plan, err := dailyPlan(cfg)
			if err != nil {
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}

			app, err := NewApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer app.Close()

			opts := runner.DefaultOptions()
			opts.Simulate = dryRun
			daemon := schedule.NewDaemon(plan, app.Runner, opts, loc, log)
			if err := daemon.Start(cmd.Context()); err != nil {
				return err
			}
			defer daemon.Stop()
			log.Info("daemon started",
				logger.Int("batches", len(plan.Batches)),
				logger.Time("next_run", daemon.Next()),
				logger.Bool("simulate", dryRun),
			)

			srv := api.New(api.Deps{
				Index:      app.Index,
				Ledger:     app.Store,
				ReportsDir: cfg.ReportsDir,
				Metrics:    app.MetricsHandler(),
				Plan:       &plan,
				NextRun:    daemon.Next,
				Version:    version,
			}, log)
			return srv.Run(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from serve_addr)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "simulate scheduled runs instead of publishing")
	return cmd
}
