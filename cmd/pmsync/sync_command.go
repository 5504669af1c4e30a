package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pmsync/internal/history"
	"pmsync/internal/pipeline"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var completion bool

	cmd := &cobra.Command{
		Use:   "sync <issue>",
		Short: "Post a progress update for an issue and record the sync",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts := ctx.pipelineOptions(cmd, cfg)
			if store := ctx.openHistory(cfg); store != nil {
				defer store.Close()
				opts.History = store
			}

			out, err := pipeline.New(opts).Sync(cmd.Context(), pipeline.Request{
				Issue:      args[0],
				Completion: completion,
			})
			if err != nil {
				return err
			}
			printOutcome(cmd, out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&completion, "completion", false, "Post a completion summary and mark the record completed")
	return cmd
}

func printOutcome(cmd *cobra.Command, out pipeline.Outcome) {
	w := cmd.OutOrStdout()
	switch out.Status {
	case history.OutcomeNoop:
		fmt.Fprintf(w, "Nothing to sync for issue #%s: %s\n", out.Run.Issue, out.Reason)
		return
	case history.OutcomeDryRun:
		fmt.Fprintf(w, "Dry run for issue #%s: comment not posted, progress record unchanged\n", out.Run.Issue)
	default:
		fmt.Fprintf(w, "Posted update to issue #%s\n", out.Run.Issue)
	}
	fmt.Fprintf(w, "  Comment:    %s\n", out.CommentURL)
	if !out.Verified && out.Status == history.OutcomeSynced {
		fmt.Fprintln(w, "  Warning:    comment could not be confirmed on the tracker")
	}
	if out.Truncated {
		fmt.Fprintf(w, "  Truncated:  yes, full content in %s\n", out.Run.UpdateDir)
	}
	fmt.Fprintf(w, "  Completion: %d%%\n", out.Percent)
	fmt.Fprintf(w, "  Workspace:  %s\n", out.Run.WorkspaceDir)
	if out.BackupPath != "" {
		fmt.Fprintf(w, "  Backup:     %s\n", out.BackupPath)
	}
}
