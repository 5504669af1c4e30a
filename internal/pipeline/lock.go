package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"pmsync/internal/logging"
	"pmsync/internal/workspace"
)

// issueLock is an advisory per-issue lock. A held lock is reported and the
// run continues; concurrent syncs of one issue are the operator's call.
type issueLock struct {
	lock   *flock.Flock
	held   bool
	logger *slog.Logger
}

func acquireIssueLock(root, epic, issue string, logger *slog.Logger) (*issueLock, error) {
	path := workspace.LockPath(root, epic, issue)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	l := &issueLock{lock: flock.New(path), logger: logger}
	ok, err := l.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire issue lock: %w", err)
	}
	if !ok {
		logging.WarnWithContext(logger, "another sync of this issue is running", "sync_lock_held",
			logging.String("lock_path", path),
			logging.String(logging.FieldImpact, "the issue may receive duplicate comments"),
			logging.String(logging.FieldErrorHint, "wait for the other run to finish"),
		)
		return l, nil
	}
	l.held = true
	return l, nil
}

func (l *issueLock) release() {
	if l == nil || !l.held {
		return
	}
	if err := l.lock.Unlock(); err != nil {
		logging.WarnWithContext(l.logger, "failed to release issue lock", "sync_lock_release_failed",
			logging.String("lock_path", l.lock.Path()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the lock file if no other sync is running"),
			logging.String(logging.FieldImpact, "the next sync of this issue may warn about a held lock"),
		)
	}
	l.held = false
}
