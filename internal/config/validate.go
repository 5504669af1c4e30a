package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTracker(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTracker() error {
	if c.Tracker.CommentLimit < MinCommentBytes || c.Tracker.CommentLimit > MaxCommentBytes {
		return fmt.Errorf("tracker.comment_limit must be between %d and %d", MinCommentBytes, MaxCommentBytes)
	}
	if repo := c.Tracker.Repo; repo != "" {
		parts := strings.Split(repo, "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return fmt.Errorf("tracker.repo must be in owner/name form, got %q", repo)
		}
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.StaleWindowSeconds < 0 {
		return errors.New("sync.stale_window_seconds must be zero (disabled) or positive")
	}
	if c.Sync.BackupKeep < 1 {
		return errors.New("sync.backup_keep must be at least 1")
	}
	if c.Sync.CommitLimit < 0 {
		return errors.New("sync.commit_limit must be zero (disabled) or positive")
	}
	if c.Sync.TruncateBudget <= 0 || c.Sync.TruncateBudget >= c.Tracker.CommentLimit {
		return fmt.Errorf("sync.truncate_budget must be positive and below tracker.comment_limit (%d)", c.Tracker.CommentLimit)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (want console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
