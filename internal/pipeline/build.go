package pipeline

import (
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"pmsync/internal/config"
	"pmsync/internal/format"
	"pmsync/internal/gather"
	"pmsync/internal/history"
	"pmsync/internal/logging"
	"pmsync/internal/poster"
	"pmsync/internal/preflight"
	"pmsync/internal/prompt"
	"pmsync/internal/stateupdate"
	"pmsync/internal/tracker"
)

// Options wires a Pipeline.
type Options struct {
	Config  *config.Config
	Tracker tracker.Tracker
	// History is optional.
	History     *history.Store
	Confirmer   prompt.Confirmer
	Interactive bool
	// Preview receives dry-run comment previews.
	Preview io.Writer
	Logger  *slog.Logger
	Now     func() time.Time
}

func (o *Options) defaults() {
	if o.Config == nil {
		cfg := config.Default()
		o.Config = &cfg
	}
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Preview == nil {
		o.Preview = io.Discard
	}
}

// NewValidator builds the preflight stage from opts.
func NewValidator(opts Options) *preflight.Validator {
	opts.defaults()
	return preflight.NewValidator(preflight.Options{
		Tracker:     opts.Tracker,
		EpicsDir:    opts.Config.Paths.EpicsDir,
		StaleWindow: staleWindow(opts.Config.Sync.StaleWindowSeconds),
		Force:       opts.Config.Sync.Force,
		Interactive: opts.Interactive,
		Confirmer:   opts.Confirmer,
		Logger:      logging.NewComponentLogger(opts.Logger, "preflight"),
		Now:         opts.Now,
	})
}

// NewGatherer builds the gather stage from opts.
func NewGatherer(opts Options) *gather.Gatherer {
	opts.defaults()
	return gather.New(gather.Options{
		RepoDir:     opts.Config.Paths.ProjectRoot,
		CommitLimit: disabledAsNegative(opts.Config.Sync.CommitLimit),
		Logger:      logging.NewComponentLogger(opts.Logger, "gather"),
		Now:         opts.Now,
	})
}

// NewFormatter builds the format stage from opts.
func NewFormatter(opts Options) *format.Formatter {
	opts.defaults()
	return format.New(format.Options{
		Limit:  opts.Config.Tracker.CommentLimit,
		Budget: opts.Config.Sync.TruncateBudget,
		Logger: logging.NewComponentLogger(opts.Logger, "format"),
		Now:    opts.Now,
	})
}

// NewPoster builds the post stage from opts.
func NewPoster(opts Options) *poster.Poster {
	opts.defaults()
	return poster.New(poster.Options{
		Tracker: opts.Tracker,
		DryRun:  opts.Config.Sync.DryRun,
		Preview: opts.Preview,
		Logger:  logging.NewComponentLogger(opts.Logger, "post"),
	})
}

// NewUpdater builds the update-state stage from opts.
func NewUpdater(opts Options) *stateupdate.Updater {
	opts.defaults()
	return stateupdate.New(stateupdate.Options{
		Tracker:    opts.Tracker,
		BackupKeep: opts.Config.Sync.BackupKeep,
		Logger:     logging.NewComponentLogger(opts.Logger, "update-state"),
		Now:        opts.Now,
	})
}

// LocalRef renders dir relative to the project root for comment trailers.
func LocalRef(cfg *config.Config, dir string) string {
	if cfg == nil {
		return dir
	}
	rel, err := filepath.Rel(cfg.Paths.ProjectRoot, dir)
	if err != nil || strings.HasPrefix(rel, "..") {
		return dir
	}
	return filepath.ToSlash(rel) + "/"
}

// A configured zero turns a feature off, while the stage options read zero
// as "use the default". Negative is their off switch.
func disabledAsNegative(v int) int {
	if v == 0 {
		return -1
	}
	return v
}

func staleWindow(seconds int) time.Duration {
	return time.Duration(disabledAsNegative(seconds)) * time.Second
}
