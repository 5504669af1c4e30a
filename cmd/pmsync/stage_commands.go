package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"pmsync/internal/format"
	"pmsync/internal/gather"
	"pmsync/internal/pipeline"
	"pmsync/internal/preflight"
	"pmsync/internal/progress"
	"pmsync/internal/services"
	"pmsync/internal/stateupdate"
	"pmsync/internal/workspace"
)

func newStageCommand(ctx *commandContext) *cobra.Command {
	stageCmd := &cobra.Command{
		Use:   "stage",
		Short: "Run a single pipeline stage",
	}

	stageCmd.AddCommand(newStagePreflightCommand(ctx))
	stageCmd.AddCommand(newStageGatherCommand(ctx))
	stageCmd.AddCommand(newStageFormatCommand(ctx))
	stageCmd.AddCommand(newStagePostCommand(ctx))
	stageCmd.AddCommand(newStageUpdateStateCommand(ctx))

	return stageCmd
}

func newStagePreflightCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight <issue>",
		Short: "Validate that an issue can and should be synced",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target, err := pipeline.NewValidator(ctx.pipelineOptions(cmd, cfg)).Validate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Epic:        %s\n", target.Epic)
			fmt.Fprintf(w, "Update dir:  %s\n", target.UpdateDir)
			fmt.Fprintf(w, "Record:      %s\n", target.RecordPath)
			fmt.Fprintf(w, "Issue state: %s\n", target.IssueState)
			fmt.Fprintf(w, "Last sync:   %s\n", lastSyncLabel(target))
			fmt.Fprintf(w, "Fragments:   %d\n", len(target.Fragments))
			if target.NothingToSync {
				fmt.Fprintf(w, "Nothing to sync: %s\n", target.Reason)
			} else {
				fmt.Fprintln(w, "Ready to sync")
			}
			return nil
		},
	}
}

func newStageGatherCommand(ctx *commandContext) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "gather <issue>",
		Short: "Consolidate update fragments into one document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			loc, _, err := preflight.Resolve(cfg.Paths.EpicsDir, args[0])
			if err != nil {
				return err
			}
			rec, err := progress.Load(loc.RecordPath)
			if err != nil {
				return services.Wrap(services.ErrValidation, "gather", "read progress record", loc.RecordPath, err)
			}
			lastSync, _, err := rec.LastSync()
			if err != nil {
				return services.Wrap(services.ErrValidation, "gather", "read progress record", "last_sync is not a timestamp", err)
			}
			ws, err := stageWorkspace(cfg.Paths.WorkspaceDir, args[0], outDir)
			if err != nil {
				return err
			}
			result, err := pipeline.NewGatherer(ctx.pipelineOptions(cmd, cfg)).Gather(cmd.Context(), gather.Input{
				Issue:     loc.Issue,
				Epic:      loc.Epic,
				UpdateDir: loc.UpdateDir,
				LastSync:  lastSync,
			}, ws)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Path)
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "", "Directory to write the consolidated document into")
	return cmd
}

func newStageFormatCommand(ctx *commandContext) *cobra.Command {
	var docPath, recordPath string
	var completion bool

	cmd := &cobra.Command{
		Use:   "format",
		Short: "Render a consolidated document as a tracker comment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := requireFile(docPath, "doc"); err != nil {
				return err
			}
			ws, err := workspace.Open(filepath.Dir(docPath))
			if err != nil {
				return err
			}
			localRef := ""
			if recordPath != "" {
				localRef = pipeline.LocalRef(cfg, filepath.Dir(recordPath))
			}
			result, err := pipeline.NewFormatter(ctx.pipelineOptions(cmd, cfg)).Format(cmd.Context(), format.Input{
				DocPath:    docPath,
				RecordPath: recordPath,
				Completion: completion,
				LocalRef:   localRef,
			}, ws)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Path)
			return nil
		},
	}

	cmd.Flags().StringVar(&docPath, "doc", "", "Consolidated document produced by the gather stage")
	cmd.Flags().StringVar(&recordPath, "record", "", "Progress record supplying the completion figure")
	cmd.Flags().BoolVar(&completion, "completion", false, "Render the completion summary layout")
	return cmd
}

func newStagePostCommand(ctx *commandContext) *cobra.Command {
	var bodyPath string

	cmd := &cobra.Command{
		Use:   "post <issue>",
		Short: "Post a formatted comment to the tracker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := preflight.ValidateIssueID(args[0]); err != nil {
				return err
			}
			if err := requireFile(bodyPath, "body"); err != nil {
				return err
			}
			result, err := pipeline.NewPoster(ctx.pipelineOptions(cmd, cfg)).Post(cmd.Context(), args[0], bodyPath)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.URL)
			return nil
		},
	}

	cmd.Flags().StringVar(&bodyPath, "body", "", "Comment body file produced by the format stage")
	return cmd
}

func newStageUpdateStateCommand(ctx *commandContext) *cobra.Command {
	var recordPath, commentURL, issue string
	var completion bool

	cmd := &cobra.Command{
		Use:   "update-state",
		Short: "Record a sync in the progress record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := requireFile(recordPath, "record"); err != nil {
				return err
			}
			if strings.TrimSpace(issue) == "" {
				issue = filepath.Base(filepath.Dir(recordPath))
			}
			if err := preflight.ValidateIssueID(issue); err != nil {
				return err
			}
			if cfg.Sync.DryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "Dry run: %s not updated\n", recordPath)
				return nil
			}
			result, err := pipeline.NewUpdater(ctx.pipelineOptions(cmd, cfg)).Update(cmd.Context(), stateupdate.Input{
				Issue:      issue,
				RecordPath: recordPath,
				CommentURL: commentURL,
				Completion: completion,
			})
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Updated %s\n", recordPath)
			fmt.Fprintf(w, "  Last sync: %s\n", progress.FormatTime(result.LastSync))
			fmt.Fprintf(w, "  Backup:    %s\n", result.BackupPath)
			if result.StateChanged {
				fmt.Fprintf(w, "  Issue state: %s\n", result.IssueState)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&recordPath, "record", "", "Progress record to update")
	cmd.Flags().StringVar(&commentURL, "url", "", "URL of the posted comment")
	cmd.Flags().StringVar(&issue, "issue", "", "Issue number (defaults to the record's directory name)")
	cmd.Flags().BoolVar(&completion, "completion", false, "Mark the record completed")
	return cmd
}

func stageWorkspace(root, issue, outDir string) (*workspace.Workspace, error) {
	var (
		ws  *workspace.Workspace
		err error
	)
	if strings.TrimSpace(outDir) != "" {
		ws, err = workspace.Open(outDir)
	} else {
		ws, err = workspace.New(root, issue, "")
	}
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "gather", "create workspace", "", err)
	}
	return ws, nil
}

func lastSyncLabel(target preflight.Target) string {
	if !target.HasLastSync {
		return "never"
	}
	return progress.FormatTime(target.LastSync)
}
