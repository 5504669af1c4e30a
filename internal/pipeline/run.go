package pipeline

import (
	"time"

	"pmsync/internal/history"
)

// Run is the context shared by every stage of one sync. It is built once
// after preflight and passed by value.
type Run struct {
	ID           string
	Issue        string
	Epic         string
	UpdateDir    string
	RecordPath   string
	WorkspaceDir string
	LastSync     time.Time
	Completion   bool
	DryRun       bool
	StartedAt    time.Time
}

// Outcome is the result of Sync.
type Outcome struct {
	Status       history.Outcome
	Run          Run
	Reason       string
	DocumentPath string
	CommentPath  string
	CommentURL   string
	Verified     bool
	Truncated    bool
	Percent      int
	BackupPath   string
}
