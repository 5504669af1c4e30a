package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"pmsync/internal/config"
	"pmsync/internal/history"
	"pmsync/internal/logging"
	"pmsync/internal/pipeline"
	"pmsync/internal/prompt"
	"pmsync/internal/services"
	"pmsync/internal/tracker"
	"pmsync/internal/workspace"
)

// newTracker builds the remote tracker client. Tests replace it.
var newTracker = func(cfg *config.Config) tracker.Tracker {
	return tracker.NewGH(
		tracker.WithBinary(cfg.TrackerBinary()),
		tracker.WithRepo(cfg.Tracker.Repo),
		tracker.WithDir(cfg.Paths.ProjectRoot),
	)
}

type globalFlags struct {
	config   string
	dryRun   bool
	force    bool
	logLevel string
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error

	logger *slog.Logger
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		if c.flags.dryRun {
			cfg.Sync.DryRun = true
		}
		if c.flags.force {
			cfg.Sync.Force = true
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// setupLogging builds the process logger and prunes expired logs and run
// workspaces.
func (c *commandContext) setupLogging(cmd *cobra.Command) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := logging.NewFromConfig(cfg, c.flags.logLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	c.logger = logger
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, logging.RetentionTarget{
		Dir:     cfg.Paths.LogDir,
		Pattern: "*.log",
		Exclude: []string{filepath.Join(cfg.Paths.LogDir, logging.LogFileName)},
	})
	if cfg.Logging.RetentionDays > 0 {
		maxAge := time.Duration(cfg.Logging.RetentionDays) * 24 * time.Hour
		workspace.CleanStale(cmd.Context(), cfg.Paths.WorkspaceDir, maxAge, logging.NewComponentLogger(logger, "workspace"))
	}
	return nil
}

func (c *commandContext) loggerValue() *slog.Logger {
	if c.logger == nil {
		return logging.NewNop()
	}
	return c.logger
}

// openHistory opens the sync ledger when enabled. A ledger that cannot be
// opened is logged and skipped.
func (c *commandContext) openHistory(cfg *config.Config) *history.Store {
	if !cfg.History.Enabled {
		return nil
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		logging.WarnWithContext(c.loggerValue(), "sync history unavailable", "history_open_failed",
			logging.String("path", cfg.History.Path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run will not be recorded"),
			logging.String(logging.FieldErrorHint, "check history.path in the configuration"),
		)
		return nil
	}
	return store
}

// pipelineOptions wires stage options for cmd. Confirmations read from the
// command's input only when it is a terminal.
func (c *commandContext) pipelineOptions(cmd *cobra.Command, cfg *config.Config) pipeline.Options {
	in := cmd.InOrStdin()
	return pipeline.Options{
		Config:      cfg,
		Tracker:     newTracker(cfg),
		Confirmer:   &prompt.Terminal{In: in, Out: cmd.ErrOrStderr()},
		Interactive: prompt.IsInteractive(in),
		Preview:     cmd.OutOrStdout(),
		Logger:      c.loggerValue(),
	}
}

// skipConfigAnnotation marks commands that must run without a loadable config.
const skipConfigAnnotation = "pmsync/skip-config"

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipConfigAnnotation] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func requireFile(path, flag string) error {
	if strings.TrimSpace(path) == "" {
		return services.Wrap(services.ErrValidation, "cli", "--"+flag, "flag is required", nil)
	}
	if _, err := os.Stat(path); err != nil {
		return services.Wrap(services.ErrValidation, "cli", "--"+flag, path, err)
	}
	return nil
}
