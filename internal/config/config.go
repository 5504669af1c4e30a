package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	ProjectRoot  string `toml:"project_root"`
	EpicsDir     string `toml:"epics_dir"`
	WorkspaceDir string `toml:"workspace_dir"`
	LogDir       string `toml:"log_dir"`
}

// Tracker contains configuration for the remote issue tracker client.
type Tracker struct {
	Binary       string `toml:"binary"`
	Repo         string `toml:"repo"`
	CommentLimit int    `toml:"comment_limit"`
}

// Sync contains configuration for the sync pipeline guards and limits.
type Sync struct {
	StaleWindowSeconds int  `toml:"stale_window_seconds"`
	BackupKeep         int  `toml:"backup_keep"`
	CommitLimit        int  `toml:"commit_limit"`
	TruncateBudget     int  `toml:"truncate_budget"`
	DryRun             bool `toml:"dry_run"`
	Force              bool `toml:"force"`
}

// History contains configuration for the sync history ledger.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config is the full pmsync configuration as read from TOML.
type Config struct {
	Paths   Paths   `toml:"paths"`
	Tracker Tracker `toml:"tracker"`
	Sync    Sync    `toml:"sync"`
	History History `toml:"history"`
	Logging Logging `toml:"logging"`
}

// EnsureDirectories creates the directories pmsync writes into: the run
// workspace root, the log directory and the history ledger's parent. The
// epics tree is left alone so a missing tree fails preflight instead.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.WorkspaceDir, c.Paths.LogDir}
	if c.History.Enabled && strings.TrimSpace(c.History.Path) != "" {
		dirs = append(dirs, filepath.Dir(c.History.Path))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// TrackerBinary returns the tracker client executable name.
func (c *Config) TrackerBinary() string {
	if strings.TrimSpace(c.Tracker.Binary) == "" {
		return defaultTrackerBinary
	}
	return c.Tracker.Binary
}

// CreateSample writes the commented sample configuration to path, creating
// parent directories.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() (string, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(data), nil
}
