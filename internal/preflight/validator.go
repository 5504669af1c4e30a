package preflight

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"pmsync/internal/logging"
	"pmsync/internal/progress"
	"pmsync/internal/prompt"
	"pmsync/internal/services"
	"pmsync/internal/tracker"
)

// DefaultStaleWindow is how soon after a sync another one counts as a
// possible duplicate.
const DefaultStaleWindow = 5 * time.Minute

// Options configures a Validator.
type Options struct {
	Tracker  tracker.Tracker
	EpicsDir string
	// StaleWindow of zero means DefaultStaleWindow; negative turns the
	// recent-sync confirmation off.
	StaleWindow time.Duration
	// Force suppresses every confirmation.
	Force bool
	// Interactive enables confirmations through Confirmer.
	Interactive bool
	Confirmer   prompt.Confirmer
	Logger      *slog.Logger
	Now         func() time.Time
}

// Target is the preflight output handed to later stages.
type Target struct {
	Location
	IssueState  string
	LastSync    time.Time
	HasLastSync bool
	// Fragments lists update fragments other than the Progress Record.
	Fragments []string
	// NothingToSync is set when the change guard found no local changes.
	NothingToSync bool
	Reason        string
}

// Validator runs the preflight checks for one issue at a time.
type Validator struct {
	opts Options
}

// NewValidator builds a Validator, filling unset options with defaults.
func NewValidator(opts Options) *Validator {
	if opts.StaleWindow == 0 {
		opts.StaleWindow = DefaultStaleWindow
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Validator{opts: opts}
}

// Validate checks that syncing issue is safe and necessary. The returned
// Target carries the resolved Location whenever resolution succeeded, even
// if a later check failed.
func (v *Validator) Validate(ctx context.Context, issue string) (Target, error) {
	logger := logging.WithContext(ctx, v.opts.Logger)

	loc, others, err := Resolve(v.opts.EpicsDir, issue)
	target := Target{Location: loc}
	if err != nil {
		return target, err
	}
	if len(others) > 0 {
		logging.WarnWithContext(logger, "issue tracked by several epics", "preflight_ambiguous_epic",
			logging.String(logging.FieldEpic, loc.Epic),
			logging.String("ignored_epics", strings.Join(others, ", ")),
			logging.String(logging.FieldImpact, "only the first epic in lexical order is synced"),
			logging.String(logging.FieldErrorHint, "remove the duplicate update directories"),
		)
	}

	rec, err := progress.LoadValid(loc.RecordPath)
	if err != nil {
		return target, services.Wrap(services.ErrValidation, "preflight", "validate progress record", loc.RecordPath, err)
	}
	lastSync, hasLastSync, _ := rec.LastSync()
	target.LastSync = lastSync
	target.HasLastSync = hasLastSync

	if v.opts.Tracker == nil {
		return target, services.Wrap(services.ErrExternalTool, "preflight", "check tracker", "no tracker configured", nil)
	}
	if err := v.opts.Tracker.AuthStatus(ctx); err != nil {
		return target, err
	}
	state, err := v.opts.Tracker.GetIssueState(ctx, issue)
	if err != nil {
		return target, err
	}
	target.IssueState = state

	if state == tracker.StateClosed {
		logging.WarnWithContext(logger, "remote issue is closed", "preflight_issue_closed",
			logging.String(logging.FieldImpact, "the update will be posted to a closed issue"),
			logging.String(logging.FieldErrorHint, "reopen the issue or pass --force to skip this prompt"),
		)
		if err := v.confirm(fmt.Sprintf("Issue #%s is closed. Post the update anyway?", issue)); err != nil {
			return target, err
		}
	}

	if hasLastSync && v.opts.StaleWindow > 0 {
		since := v.opts.Now().Sub(lastSync)
		if since < v.opts.StaleWindow {
			logging.WarnWithContext(logger, "issue synced recently", "preflight_recent_sync",
				logging.String("last_sync", progress.FormatTime(lastSync)),
				logging.Duration("since", since.Round(time.Second)),
				logging.String(logging.FieldImpact, "this may be a duplicate invocation"),
				logging.String(logging.FieldErrorHint, "wait for the window to pass or pass --force"),
			)
			if err := v.confirm(fmt.Sprintf("Issue #%s was synced %s ago. Sync again?", issue, since.Round(time.Second))); err != nil {
				return target, err
			}
		}
	}

	fragments, pending, reason, err := Pending(loc, lastSync, hasLastSync)
	if err != nil {
		return target, services.Wrap(services.ErrValidation, "preflight", "change guard", loc.UpdateDir, err)
	}
	target.Fragments = fragments
	if !pending {
		target.NothingToSync = true
		target.Reason = reason
		logger.Info("nothing to sync", logging.String("reason", reason))
		return target, nil
	}

	logger.Debug("preflight passed",
		logging.String("update_dir", loc.UpdateDir),
		logging.String("issue_state", state),
		logging.Int("fragments", len(fragments)),
	)
	return target, nil
}

// Pending applies the change guard: an issue with a last sync, an unmodified
// Progress Record, and no further fragments has nothing to sync.
func Pending(loc Location, lastSync time.Time, hasLastSync bool) ([]string, bool, string, error) {
	fragments, err := progress.ListFragments(loc.UpdateDir)
	if err != nil {
		return nil, false, "", err
	}
	if !hasLastSync {
		return fragments, true, "never synced", nil
	}
	info, err := os.Stat(loc.RecordPath)
	if err != nil {
		return fragments, false, "", err
	}
	if info.ModTime().After(lastSync) {
		return fragments, true, "progress record modified since last sync", nil
	}
	if len(fragments) > 0 {
		return fragments, true, fmt.Sprintf("%d update fragment(s) present", len(fragments)), nil
	}
	return fragments, false, "no local changes since last sync", nil
}

func (v *Validator) confirm(question string) error {
	if v.opts.Force || !v.opts.Interactive || v.opts.Confirmer == nil {
		return nil
	}
	ok, err := v.opts.Confirmer.Confirm(question)
	if err != nil {
		return services.Wrap(services.ErrAborted, "preflight", "confirm", "could not read confirmation", err)
	}
	if !ok {
		return services.Wrap(services.ErrAborted, "preflight", "confirm", "declined by operator", nil)
	}
	return nil
}
