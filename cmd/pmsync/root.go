package main

import "github.com/spf13/cobra"

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}
	ctx := newCommandContext(flags)

	root := &cobra.Command{
		Use:   "pmsync",
		Short: "Post local issue progress to the remote tracker",
		Long: `pmsync gathers the progress notes kept under an epic's updates/<issue>/ directory,
formats them into a single tracker comment, and posts it. Every run re-reads
the full fragments; the comment is labelled with the window since the last
sync. The sync time is recorded in progress.md, and a run with no fragment
changed since then is skipped.`,
		Example: `  pmsync sync 42
  pmsync sync 42 --completion
  pmsync --dry-run sync 42
  pmsync history 42`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			return ctx.setupLogging(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "", "Configuration file path")
	pf.BoolVar(&flags.dryRun, "dry-run", false, "Preview the comment without posting or touching the progress record")
	pf.BoolVar(&flags.force, "force", false, "Skip interactive confirmations")
	pf.StringVar(&flags.logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")

	root.AddCommand(
		newSyncCommand(ctx),
		newStageCommand(ctx),
		newStatusCommand(ctx),
		newHistoryCommand(ctx),
		newConfigCommand(ctx),
	)
	return root
}
