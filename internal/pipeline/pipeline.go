package pipeline

import (
	"context"
	"log/slog"
	"time"

	"pmsync/internal/format"
	"pmsync/internal/gather"
	"pmsync/internal/history"
	"pmsync/internal/logging"
	"pmsync/internal/poster"
	"pmsync/internal/preflight"
	"pmsync/internal/progress"
	"pmsync/internal/services"
	"pmsync/internal/stateupdate"
	"pmsync/internal/workspace"
)

// Request identifies one sync.
type Request struct {
	Issue      string
	Completion bool
}

// Pipeline runs sync requests end to end.
type Pipeline struct {
	opts Options

	validator *preflight.Validator
	gatherer  *gather.Gatherer
	formatter *format.Formatter
	poster    *poster.Poster
	updater   *stateupdate.Updater
}

// New builds a Pipeline with every stage configured from opts.
func New(opts Options) *Pipeline {
	opts.defaults()
	return &Pipeline{
		opts:      opts,
		validator: NewValidator(opts),
		gatherer:  NewGatherer(opts),
		formatter: NewFormatter(opts),
		poster:    NewPoster(opts),
		updater:   NewUpdater(opts),
	}
}

// Sync runs all stages for req. A run with nothing to sync returns an
// Outcome with Status noop and a nil error. On failure the Outcome still
// carries whatever the completed stages produced.
func (p *Pipeline) Sync(ctx context.Context, req Request) (out Outcome, err error) {
	runID := workspace.NewRunID()
	ctx = services.WithRunID(services.WithIssue(ctx, req.Issue), runID)
	started := p.opts.Now()
	cfg := p.opts.Config

	target, err := p.validator.Validate(services.WithStage(ctx, "preflight"), req.Issue)
	if target.Epic == "" {
		// Unresolved issues never reach the ledger.
		if err == nil {
			err = services.Wrap(services.ErrNotFound, "preflight", "resolve issue", req.Issue, nil)
		}
		return out, err
	}

	ctx = services.WithEpic(ctx, target.Epic)
	logger := logging.WithContext(ctx, p.opts.Logger)
	out.Run = Run{
		ID:         runID,
		Issue:      req.Issue,
		Epic:       target.Epic,
		UpdateDir:  target.UpdateDir,
		RecordPath: target.RecordPath,
		LastSync:   target.LastSync,
		Completion: req.Completion,
		DryRun:     cfg.Sync.DryRun,
		StartedAt:  started,
	}
	defer func() {
		if err != nil {
			out.Status = history.OutcomeFailed
		}
		p.record(ctx, logger, out, err)
	}()
	if err != nil {
		return out, err
	}

	lock, err := acquireIssueLock(cfg.Paths.WorkspaceDir, target.Epic, req.Issue, logger)
	if err != nil {
		return out, services.Wrap(services.ErrExternalTool, "sync", "lock issue", "", err)
	}
	defer lock.release()

	if target.NothingToSync {
		out.Status = history.OutcomeNoop
		out.Reason = target.Reason
		return out, nil
	}

	ws, err := workspace.New(cfg.Paths.WorkspaceDir, req.Issue, runID)
	if err != nil {
		return out, services.Wrap(services.ErrExternalTool, "sync", "create workspace", "", err)
	}
	out.Run.WorkspaceDir = ws.Dir
	run := out.Run
	logger.Info("sync started",
		logging.String(logging.FieldEventType, "sync_started"),
		logging.String("workspace", ws.Dir),
		logging.Bool("dry_run", run.DryRun),
		logging.Bool("completion", run.Completion),
	)

	gathered, err := p.gatherer.Gather(services.WithStage(ctx, "gather"), gather.Input{
		Issue:     run.Issue,
		Epic:      run.Epic,
		UpdateDir: run.UpdateDir,
		LastSync:  run.LastSync,
	}, ws)
	if err != nil {
		return out, err
	}
	out.DocumentPath = gathered.Path

	formatted, err := p.formatter.Format(services.WithStage(ctx, "format"), format.Input{
		DocPath:    gathered.Path,
		RecordPath: run.RecordPath,
		Completion: run.Completion,
		LocalRef:   LocalRef(cfg, run.UpdateDir),
	}, ws)
	if err != nil {
		return out, err
	}
	out.CommentPath = formatted.Path
	out.Truncated = formatted.Truncated
	out.Percent = formatted.Percent

	posted, err := p.poster.Post(services.WithStage(ctx, "post"), run.Issue, formatted.Path)
	if err != nil {
		return out, err
	}
	out.CommentURL = posted.URL
	out.Verified = posted.Verified

	if posted.DryRun {
		out.Status = history.OutcomeDryRun
		logger.Info("dry run complete",
			logging.String(logging.FieldEventType, "sync_dry_run"),
			logging.String("comment_path", formatted.Path),
		)
		return out, nil
	}

	updated, err := p.updater.Update(services.WithStage(ctx, "update-state"), stateupdate.Input{
		Issue:      run.Issue,
		RecordPath: run.RecordPath,
		CommentURL: posted.URL,
		Completion: run.Completion,
	})
	if err != nil {
		return out, err
	}
	out.BackupPath = updated.BackupPath
	if run.Completion {
		out.Percent = 100
	}
	out.Status = history.OutcomeSynced
	logger.Info("sync complete",
		logging.String(logging.FieldEventType, "sync_complete"),
		logging.String("comment_url", posted.URL),
		logging.String("last_sync", progress.FormatTime(updated.LastSync)),
		logging.Bool("truncated", out.Truncated),
	)
	return out, nil
}

func (p *Pipeline) record(ctx context.Context, logger *slog.Logger, out Outcome, runErr error) {
	if p.opts.History == nil {
		return
	}
	row := history.Run{
		RunID:          out.Run.ID,
		Epic:           out.Run.Epic,
		Issue:          out.Run.Issue,
		Outcome:        out.Status,
		CommentURL:     out.CommentURL,
		Truncated:      out.Truncated,
		Completion:     out.Percent,
		CompletionSync: out.Run.Completion,
		Workspace:      out.Run.WorkspaceDir,
		StartedAt:      out.Run.StartedAt,
		FinishedAt:     p.opts.Now(),
	}
	if runErr != nil {
		row.Error = runErr.Error()
	}
	// The ledger write must not inherit a cancelled run context.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.opts.History.Record(recordCtx, row); err != nil {
		logging.WarnWithContext(logger, "failed to record sync history", "history_record_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run is missing from pmsync history"),
		)
	}
}
