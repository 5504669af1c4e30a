package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTracker()
	c.normalizeSync()
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ProjectRoot) == "" {
		c.Paths.ProjectRoot = defaultProjectRoot
	}
	if c.Paths.ProjectRoot, err = expandPath(c.Paths.ProjectRoot); err != nil {
		return fmt.Errorf("paths.project_root: %w", err)
	}
	if strings.TrimSpace(c.Paths.EpicsDir) == "" {
		c.Paths.EpicsDir = defaultEpicsDir
	}
	epics := strings.TrimSpace(c.Paths.EpicsDir)
	if !filepath.IsAbs(epics) && !strings.HasPrefix(epics, "~") {
		epics = filepath.Join(c.Paths.ProjectRoot, epics)
	}
	if c.Paths.EpicsDir, err = expandPath(epics); err != nil {
		return fmt.Errorf("paths.epics_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkspaceDir) == "" {
		c.Paths.WorkspaceDir = defaultWorkspaceDir()
	}
	if c.Paths.WorkspaceDir, err = expandPath(c.Paths.WorkspaceDir); err != nil {
		return fmt.Errorf("paths.workspace_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTracker() {
	c.Tracker.Binary = strings.TrimSpace(c.Tracker.Binary)
	if c.Tracker.Binary == "" {
		c.Tracker.Binary = defaultTrackerBinary
	}
	c.Tracker.Repo = strings.TrimSpace(c.Tracker.Repo)
	if c.Tracker.Repo == "" {
		if value, ok := os.LookupEnv("PMSYNC_REPO"); ok {
			c.Tracker.Repo = strings.TrimSpace(value)
		}
	}
	if c.Tracker.CommentLimit == 0 {
		c.Tracker.CommentLimit = MaxCommentBytes
	}
}

func (c *Config) normalizeSync() {
	if c.Sync.BackupKeep == 0 {
		c.Sync.BackupKeep = defaultBackupKeep
	}
	if c.Sync.TruncateBudget == 0 {
		c.Sync.TruncateBudget = defaultTruncateBudget
	}
	if value, ok := os.LookupEnv("PMSYNC_DRY_RUN"); ok && truthy(value) {
		c.Sync.DryRun = true
	}
	if value, ok := os.LookupEnv("PMSYNC_FORCE"); ok && truthy(value) {
		c.Sync.Force = true
	}
}

func (c *Config) normalizeHistory() error {
	var err error
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = defaultHistoryPath
	}
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func truthy(value string) bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return strings.EqualFold(strings.TrimSpace(value), "yes")
	}
	return parsed
}
