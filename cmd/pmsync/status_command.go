package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"pmsync/internal/preflight"
	"pmsync/internal/progress"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show environment checks and every locally tracked issue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			colorize := shouldColorize(w)

			fmt.Fprintln(w, sectionTitle("Environment", colorize))
			for _, check := range preflight.RunAll(cfg) {
				fmt.Fprintln(w, checkLine(check, colorize))
			}
			fmt.Fprintln(w)

			fmt.Fprintln(w, sectionTitle("Tracked issues", colorize))
			locations, err := preflight.ListTracked(cfg.Paths.EpicsDir)
			if err != nil {
				return fmt.Errorf("list tracked issues: %w", err)
			}
			if len(locations) == 0 {
				fmt.Fprintln(w, "No tracked issues")
				return nil
			}
			rows := make([][]string, 0, len(locations))
			for _, loc := range locations {
				rows = append(rows, statusRow(loc))
			}
			fmt.Fprintln(w, renderTable(statusColumns, rows))
			return nil
		},
	}
}

var statusColumns = []tableColumn{
	{header: "Epic", maxWidth: 32},
	{header: "Issue", align: alignRight},
	{header: "Completion", align: alignRight},
	{header: "Status"},
	{header: "Remote"},
	{header: "Last Sync"},
	{header: "Pending"},
}

func statusRow(loc preflight.Location) []string {
	row := []string{loc.Epic, loc.Issue, "-", "-", "-", "never", "-"}
	rec, err := progress.Load(loc.RecordPath)
	if err != nil {
		row[3] = "unreadable"
		return row
	}
	if pct, ok, err := rec.Completion(); err == nil && ok {
		row[2] = strconv.Itoa(pct) + "%"
	}
	if s := rec.Status(); s != "" {
		row[3] = s
	}
	if s := rec.IssueState(); s != "" {
		row[4] = s
	}
	lastSync, hasLastSync, err := rec.LastSync()
	if err != nil {
		row[5] = "invalid"
		return row
	}
	if hasLastSync {
		row[5] = progress.FormatTime(lastSync)
	}
	if _, pending, _, err := preflight.Pending(loc, lastSync, hasLastSync); err == nil {
		row[6] = yesNo(pending)
	}
	return row
}
