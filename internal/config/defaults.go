package config

import (
	"os"
	"path/filepath"
)

const (
	defaultConfigPath         = "~/.config/pmsync/config.toml"
	defaultProjectRoot        = "."
	defaultEpicsDir           = ".claude/epics"
	defaultLogDir             = "~/.local/share/pmsync/logs"
	defaultHistoryPath        = "~/.local/share/pmsync/history.db"
	defaultTrackerBinary      = "gh"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLogRetentionDays   = 30
	defaultStaleWindowSeconds = 300
	defaultBackupKeep         = 5
	defaultCommitLimit        = 10

	// MaxCommentBytes is the remote platform's hard comment body ceiling.
	MaxCommentBytes = 65536
	// MinCommentBytes keeps room for the truncation trailer and a useful body.
	MinCommentBytes       = 4096
	defaultTruncateBudget = 65000
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ProjectRoot:  defaultProjectRoot,
			EpicsDir:     defaultEpicsDir,
			WorkspaceDir: defaultWorkspaceDir(),
			LogDir:       defaultLogDir,
		},
		Tracker: Tracker{
			Binary:       defaultTrackerBinary,
			CommentLimit: MaxCommentBytes,
		},
		Sync: Sync{
			StaleWindowSeconds: defaultStaleWindowSeconds,
			BackupKeep:         defaultBackupKeep,
			CommitLimit:        defaultCommitLimit,
			TruncateBudget:     defaultTruncateBudget,
		},
		History: History{
			Enabled: true,
			Path:    defaultHistoryPath,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

func defaultWorkspaceDir() string {
	return filepath.Join(os.TempDir(), "pmsync")
}
