package workspace

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pmsync/internal/logging"
)

// CleanStaleResult lists the run workspaces CleanStale removed and the ones
// it could not.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

func (r *CleanStaleResult) fail(path string, err error) {
	r.Errors = append(r.Errors, CleanupError{Path: path, Error: err})
}

// CleanStale removes run workspaces under root whose directory was last
// modified more than maxAge ago. Lock files are left alone. A blank root, a
// non-positive maxAge or a missing runs directory is a no-op.
func CleanStale(ctx context.Context, root string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	var result CleanStaleResult
	if root = strings.TrimSpace(root); root == "" || maxAge <= 0 {
		return result
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	runs := RunsDir(root)
	entries, err := os.ReadDir(runs)
	if errors.Is(err, fs.ErrNotExist) {
		return result
	}
	if err != nil {
		result.fail(runs, err)
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(runs, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.fail(path, err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			result.fail(path, err)
			logging.WarnWithContext(logger, "stale run workspace not removed", "workspace_cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on workspace_dir"),
				logging.String(logging.FieldImpact, "old consolidated documents stay on disk"),
			)
			continue
		}
		result.Removed = append(result.Removed, path)
		logger.Debug("removed stale run workspace",
			logging.String("path", path),
			logging.Duration("age", time.Since(info.ModTime())),
			logging.String(logging.FieldEventType, "workspace_cleanup"),
		)
	}
	return result
}
