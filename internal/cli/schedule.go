package cli

import (
	"github.com/spf13/cobra"

	"github.com/yangwenmai/autoblog/internal/config"
	"github.com/yangwenmai/autoblog/internal/schedule"
)

func newScheduleCommand(g *globalFlags) *cobra.Command {
	var command string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print the daily publishing plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := g.load(true)
			if err != nil {
				return err
			}
			plan, err := dailyPlan(cfg)
			if err != nil {
				return err
			}
			schedule.Render(cmd.OutOrStdout(), plan, command)
			return nil
		},
	}
	cmd.Flags().StringVar(&command, "command", "autoblog run", "command printed in the cron lines")
	return cmd
}

func dailyPlan(cfg config.Config) (schedule.Plan, error) {
	return schedule.DailyPlan(cfg.PostsPerDay, cfg.ActiveHours, cfg.BatchesPerDay)
}
