package schedule

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Render prints the plan as a table followed by one crontab line per batch running command.
func Render(w io.Writer, plan Plan, command string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Daily Publishing Schedule")
	t.AppendHeader(table.Row{"Batch", "Time", "Articles"})
	for i, b := range plan.Batches {
		t.AppendRow(table.Row{i + 1, fmt.Sprintf("%02d:%02d", b.Hour, b.Minute), b.Size})
	}
	t.AppendFooter(table.Row{"", "Total", plan.PostsPerDay})
	t.Render()

	fmt.Fprintf(w, "Active hours: %s\n\nCron example:\n", plan.ActiveHours)
	for _, b := range plan.Batches {
		fmt.Fprintf(w, "%s %s --limit %d --publish\n", b.Cron(), command, b.Size)
	}
}
