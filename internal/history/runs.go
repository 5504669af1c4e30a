package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Outcome is the terminal result of one sync run.
type Outcome string

const (
	OutcomeSynced Outcome = "synced"
	OutcomeNoop   Outcome = "noop"
	OutcomeDryRun Outcome = "dry_run"
	OutcomeFailed Outcome = "failed"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one ledger row.
type Run struct {
	ID             int64     `json:"id"`
	RunID          string    `json:"run_id"`
	Epic           string    `json:"epic"`
	Issue          string    `json:"issue"`
	Outcome        Outcome   `json:"outcome"`
	CommentURL     string    `json:"comment_url,omitempty"`
	Truncated      bool      `json:"truncated"`
	Completion     int       `json:"completion"`
	CompletionSync bool      `json:"completion_sync"`
	Error          string    `json:"error,omitempty"`
	Workspace      string    `json:"workspace,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

// Filter narrows List results. A zero Limit returns every row.
type Filter struct {
	Issue string
	Limit int
}

// Record inserts run.
func (s *Store) Record(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.RunID) == "" {
		return fmt.Errorf("run id required")
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = run.FinishedAt
	}
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `INSERT INTO sync_runs
			(run_id, epic, issue, outcome, comment_url, truncated, completion, completion_sync,
			 error_message, workspace, started_at, finished_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, run.Epic, run.Issue, string(run.Outcome), run.CommentURL,
			boolToInt(run.Truncated), run.Completion, boolToInt(run.CompletionSync),
			run.Error, run.Workspace,
			run.StartedAt.UTC().Format(timeLayout), run.FinishedAt.UTC().Format(timeLayout),
		)
		return err
	})
}

// List returns runs newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Run, error) {
	query := `SELECT id, run_id, epic, issue, outcome, comment_url, truncated, completion,
		completion_sync, error_message, workspace, started_at, finished_at FROM sync_runs`
	var args []any
	if f.Issue != "" {
		query += " WHERE issue = ?"
		args = append(args, f.Issue)
	}
	query += " ORDER BY started_at DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	var runs []Run
	err := retryOnBusy(ctx, func() error {
		runs = nil
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			run, err := scanRun(rows)
			if err != nil {
				return err
			}
			runs = append(runs, run)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Latest returns the newest run for issue.
func (s *Store) Latest(ctx context.Context, issue string) (Run, bool, error) {
	runs, err := s.List(ctx, Filter{Issue: issue, Limit: 1})
	if err != nil || len(runs) == 0 {
		return Run{}, false, err
	}
	return runs[0], true, nil
}

func scanRun(rows *sql.Rows) (Run, error) {
	var (
		run                   Run
		outcome               string
		truncated, completion int
		startedAt, finishedAt string
	)
	if err := rows.Scan(&run.ID, &run.RunID, &run.Epic, &run.Issue, &outcome, &run.CommentURL,
		&truncated, &run.Completion, &completion, &run.Error, &run.Workspace, &startedAt, &finishedAt); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Outcome = Outcome(outcome)
	run.Truncated = truncated != 0
	run.CompletionSync = completion != 0
	run.StartedAt, _ = time.Parse(timeLayout, startedAt)
	run.FinishedAt, _ = time.Parse(timeLayout, finishedAt)
	return run, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
