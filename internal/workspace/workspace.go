// Package workspace manages the per-run scratch directories a sync writes its
// intermediate artifacts into.
//
// A workspace belongs to exactly one pipeline run and is left on disk after
// the run finishes so an operator can inspect what was consolidated and
// posted. CleanStale prunes old workspaces by age.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	runsDir  = "runs"
	locksDir = "locks"
)

// Artifact names written into a workspace.
const (
	ConsolidatedFile = "consolidated.md"
	CommentFile      = "comment.md"
	SectionsDir      = "sections"
)

// Workspace is one run's scratch directory.
type Workspace struct {
	RunID string
	Dir   string
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// New creates <root>/runs/<issue>-<timestamp>-<runid prefix>. An empty runID
// gets a generated one.
func New(root, issue, runID string) (*Workspace, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("workspace root required")
	}
	if runID == "" {
		runID = NewRunID()
	}
	short := runID
	if len(short) > 8 {
		short = short[:8]
	}
	name := fmt.Sprintf("%s-%s-%s", sanitize(issue), time.Now().UTC().Format("20060102T150405Z"), short)
	dir := filepath.Join(root, runsDir, name)
	if err := os.MkdirAll(filepath.Join(dir, SectionsDir), 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{RunID: runID, Dir: dir}, nil
}

// Open wraps an existing directory as a workspace, creating it if needed.
func Open(dir string) (*Workspace, error) {
	if err := os.MkdirAll(filepath.Join(dir, SectionsDir), 0o755); err != nil {
		return nil, fmt.Errorf("open workspace: %w", err)
	}
	return &Workspace{RunID: filepath.Base(dir), Dir: dir}, nil
}

// Path joins name onto the workspace directory.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Dir, name)
}

// SectionPath returns the extract path for a named fragment section.
func (w *Workspace) SectionPath(section string) string {
	return filepath.Join(w.Dir, SectionsDir, sanitize(section)+".md")
}

// WriteFile writes data under the workspace and returns the full path.
func (w *Workspace) WriteFile(name string, data []byte) (string, error) {
	path := w.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}

// LockPath returns the advisory lock file path for one issue.
func LockPath(root, epic, issue string) string {
	return filepath.Join(root, locksDir, sanitize(epic)+"-"+sanitize(issue)+".lock")
}

// RunsDir returns the directory holding every run workspace under root.
func RunsDir(root string) string {
	return filepath.Join(root, runsDir)
}

func sanitize(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, value)
}
