package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"pmsync/internal/history"
	"pmsync/internal/progress"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history [issue]",
		Short: "Show recorded sync runs, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				fmt.Fprintln(cmd.OutOrStdout(), "Sync history is disabled (history.enabled = false)")
				return nil
			}
			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			filter := history.Filter{Limit: limit}
			if len(args) == 1 {
				filter.Issue = args[0]
			}
			runs, err := store.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sync runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, historyRow(run))
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(historyColumns, rows))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit runs as JSON")
	return cmd
}

var historyColumns = []tableColumn{
	{header: "Started"},
	{header: "Epic", maxWidth: 32},
	{header: "Issue", align: alignRight},
	{header: "Outcome"},
	{header: "Completion", align: alignRight},
	{header: "Truncated"},
	{header: "Comment / Error", maxWidth: 72},
}

func historyRow(run history.Run) []string {
	detail := run.CommentURL
	if run.Outcome == history.OutcomeFailed {
		detail = run.Error
	}
	completion := strconv.Itoa(run.Completion) + "%"
	if run.CompletionSync {
		completion += " (final)"
	}
	return []string{
		progress.FormatTime(run.StartedAt),
		run.Epic,
		run.Issue,
		string(run.Outcome),
		completion,
		yesNo(run.Truncated),
		detail,
	}
}
