// Package cli implements the autoblog command line: run, schedule, serve and version.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yangwenmai/autoblog/internal/config"
	"github.com/yangwenmai/autoblog/internal/logger"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configFile string
	envFile    string
	logLevel   string
}

// load reads the configuration and builds the logger. console selects the human-readable
// encoder; serve logs JSON.
func (g *globalFlags) load(console bool) (config.Config, logger.Logger, error) {
	cfg, err := config.Load(config.Options{ConfigFile: g.configFile, EnvFile: g.envFile})
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Console: console})
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, log, nil
}

// NewRootCommand builds the command tree.
func NewRootCommand(version string) *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "autoblog",
		Short:         "Discover trending topics and publish articles about them",
		Long:          `autoblog discovers trending topics, gathers sources, drafts articles with language models and publishes them as MDX posts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&g.configFile, "config", "",
		"config file (default is ./"+config.DefaultConfigFile+" when present)")
	root.PersistentFlags().StringVar(&g.envFile, "env-file", ".env", "dotenv file loaded before the environment")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		newRunCommand(g),
		newScheduleCommand(g),
		newServeCommand(g, version),
		newVersionCommand(version),
	)
	return root
}

// Execute runs the command line until it finishes or the process is interrupted.
func Execute(version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCommand(version).ExecuteContext(ctx)
}
