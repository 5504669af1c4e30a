package stateupdate

import (
	"context"
	"log/slog"
	"os"
	"time"

	"pmsync/internal/fileutil"
	"pmsync/internal/logging"
	"pmsync/internal/progress"
	"pmsync/internal/services"
	"pmsync/internal/tracker"
)

// DefaultBackupKeep is how many backups survive pruning.
const DefaultBackupKeep = 5

// Input describes the sync being recorded.
type Input struct {
	Issue      string
	RecordPath string
	CommentURL string
	Completion bool
}

// Result reports what the updater did.
type Result struct {
	BackupPath string
	LastSync   time.Time
	IssueState string
	// StateChanged is set when issue_state was rewritten.
	StateChanged bool
	Pruned       int
}

// Options configures an Updater.
type Options struct {
	Tracker    tracker.Tracker
	BackupKeep int
	Logger     *slog.Logger
	Now        func() time.Time
	// Validate checks the bytes read back after the write. Defaults to
	// progress.Validate.
	Validate func([]byte) error
}

// Updater is the only writer of Progress Records.
type Updater struct {
	opts Options
}

// New builds an Updater.
func New(opts Options) *Updater {
	if opts.BackupKeep <= 0 {
		opts.BackupKeep = DefaultBackupKeep
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Validate == nil {
		opts.Validate = progress.Validate
	}
	return &Updater{opts: opts}
}

// Update records the sync described by in.
func (u *Updater) Update(ctx context.Context, in Input) (Result, error) {
	logger := logging.WithContext(ctx, u.opts.Logger)
	now := u.opts.Now().UTC().Truncate(time.Second)
	result := Result{LastSync: now}

	info, err := os.Stat(in.RecordPath)
	if err != nil {
		return result, services.Wrap(services.ErrNotFound, "update-state", "stat record", in.RecordPath, err)
	}
	// Only a record that was valid before the write can be reported as
	// corrupted by it.
	rec, err := progress.LoadValid(in.RecordPath)
	if err != nil {
		return result, services.Wrap(services.ErrValidation, "update-state", "validate record", "record was invalid before update", err)
	}
	backup, err := Backup(in.RecordPath, u.opts.Now())
	if err != nil {
		return result, services.Wrap(services.ErrExternalTool, "update-state", "backup record", in.RecordPath, err)
	}
	result.BackupPath = backup

	rec.SetTime(progress.FieldLastSync, now)
	if in.CommentURL != "" {
		rec.Set(progress.FieldLastCommentURL, in.CommentURL)
	}
	if in.Completion {
		rec.SetCompletion(100)
		rec.Set(progress.FieldStatus, progress.StatusCompleted)
		rec.SetTime(progress.FieldCompletedAt, now)
	}
	result.IssueState = rec.IssueState()
	if state, ok := u.remoteState(ctx, logger, in.Issue); ok && state != rec.IssueState() {
		rec.Set(progress.FieldIssueState, state)
		result.IssueState = state
		result.StateChanged = true
	}

	data, err := rec.Render()
	if err != nil {
		return result, services.Wrap(services.ErrValidation, "update-state", "render record", in.RecordPath, err)
	}
	if err := fileutil.WriteFileAtomic(in.RecordPath, data, info.Mode().Perm()); err != nil {
		return result, services.Wrap(services.ErrExternalTool, "update-state", "write record", in.RecordPath, err)
	}

	if err := u.verify(in.RecordPath); err != nil {
		if restoreErr := fileutil.RestoreFile(backup, in.RecordPath); restoreErr != nil {
			logging.ErrorWithContext(logger, "restore from backup failed", "state_restore_failed",
				logging.String("backup", backup),
				logging.Error(restoreErr),
				logging.String(logging.FieldErrorHint, "copy "+backup+" over "+in.RecordPath+" by hand"),
			)
			return result, services.Wrap(services.ErrCorruption, "update-state", "validate record",
				"record invalid after write and restore failed; backup kept at "+backup, restoreErr)
		}
		return result, services.Wrap(services.ErrCorruption, "update-state", "validate record",
			"record invalid after write; restored from "+backup, err)
	}

	if err := os.Chtimes(in.RecordPath, now, now); err != nil {
		logging.WarnWithContext(logger, "could not pin record mtime", "state_mtime_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the next sync will not be skipped as a no-op"),
		)
	}

	pruned, err := PruneBackups(in.RecordPath, u.opts.BackupKeep)
	result.Pruned = pruned
	if err != nil {
		logging.WarnWithContext(logger, "backup pruning incomplete", "state_prune_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "old backups remain next to the record"),
			logging.String(logging.FieldErrorHint, "remove stale "+progress.FileName+backupInfix+"* files by hand"),
		)
	}

	logger.Info("progress record updated",
		logging.String(logging.FieldEventType, "state_updated"),
		logging.String("last_sync", progress.FormatTime(now)),
		logging.String("issue_state", result.IssueState),
		logging.Bool("completion", in.Completion),
		logging.Int("backups_pruned", pruned),
	)
	return result, nil
}

func (u *Updater) verify(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return u.opts.Validate(data)
}

func (u *Updater) remoteState(ctx context.Context, logger *slog.Logger, issue string) (string, bool) {
	if u.opts.Tracker == nil || issue == "" {
		return "", false
	}
	state, err := u.opts.Tracker.GetIssueState(ctx, issue)
	if err != nil {
		logging.WarnWithContext(logger, "could not refresh issue state", "state_remote_lookup_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "issue_state keeps its previous value"),
		)
		return "", false
	}
	return state, true
}
