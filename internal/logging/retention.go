package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RetentionTarget is a directory whose entries matching Pattern expire.
// Exclude lists paths that are never removed, such as the active log file.
type RetentionTarget struct {
	Dir     string
	Pattern string
	Exclude []string
}

// CleanupOldLogs removes entries older than retentionDays from each target.
// Zero or negative retention keeps everything. Failures are logged, not
// returned, because pruning never blocks a sync.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) {
	if retentionDays <= 0 {
		return
	}
	if logger == nil {
		logger = NewNop()
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	keep := make(map[string]bool)
	for _, target := range targets {
		for _, path := range target.Exclude {
			keep[absPath(path)] = true
		}
	}
	for _, target := range targets {
		pruneTarget(logger, target, cutoff, keep)
	}
}

func pruneTarget(logger *slog.Logger, target RetentionTarget, cutoff time.Time, keep map[string]bool) {
	dir := strings.TrimSpace(target.Dir)
	if dir == "" {
		return
	}
	pattern := strings.TrimSpace(target.Pattern)
	if pattern == "" {
		pattern = "*"
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return
	}
	for _, path := range matches {
		path = absPath(path)
		if keep[path] {
			continue
		}
		info, err := os.Lstat(path)
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			WarnWithContext(logger, "could not prune expired log entry", "retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check ownership of the log directory"),
				String(FieldImpact, "expired entry stays on disk"),
			)
			continue
		}
		logger.Debug("pruned expired log entry", String("path", path), String(FieldEventType, "retention_pruned"))
	}
}

func absPath(path string) string {
	path = strings.TrimSpace(path)
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
