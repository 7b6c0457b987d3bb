package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/yangwenmai/autoblog/internal/model"
	"github.com/yangwenmai/autoblog/internal/runner"
)

var errStubPublish = errors.New("use_stubs only serves previews, refusing to publish canned articles")

func newRunCommand(g *globalFlags) *cobra.Command {
	opts := runner.DefaultOptions()
	var publish, dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once",
		Long: `Discover topics and process them in batches until the limit is reached.
Without --publish nothing is written: each article is drafted and previewed only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := g.load(true)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			if publish && cfg.UseStubs {
				return errStubPublish
			}

			app, err := NewApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer app.Close()

			opts.Simulate = !publish
			stats, err := app.Runner.Run(cmd.Context(), opts)
			printStats(cmd.OutOrStdout(), stats)
			return err
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", opts.Limit, "maximum number of articles to produce")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", opts.BatchSize, "topics per batch")
	cmd.Flags().BoolVar(&publish, "publish", false, "write posts, images and the index")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "preview articles without writing anything (default)")
	cmd.MarkFlagsMutuallyExclusive("publish", "dry-run")
	return cmd
}

func printStats(w io.Writer, stats model.RunStats) {
	mode := "publish"
	if stats.Simulated {
		mode = "simulate"
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Run " + stats.RunID)
	t.AppendRows([]table.Row{
		{"Mode", mode},
		{"Topics found", stats.TopicsFound},
		{"Articles generated", stats.ArticlesGenerated},
		{"Articles published", stats.ArticlesPublished},
		{"Errors", len(stats.Errors)},
	})
	if stats.CompletedAt != nil {
		t.AppendRow(table.Row{"Duration", stats.CompletedAt.Sub(stats.StartedAt).Round(time.Second).String()})
	}
	t.Render()
	for _, e := range stats.Errors {
		fmt.Fprintf(w, "  %s: %s\n", e.Topic, e.Error)
	}
}
