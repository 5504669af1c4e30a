package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"pmsync/internal/config"
	"pmsync/internal/history"
	"pmsync/internal/progress"
	"pmsync/internal/services"
	"pmsync/internal/testsupport"
	"pmsync/internal/tracker/trackertest"
	"pmsync/internal/workspace"
)

var fixedNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type fixture struct {
	cfg     *config.Config
	fake    *trackertest.Fake
	store   *history.Store
	preview *bytes.Buffer
	record  string
}

func newFixture(t *testing.T, header string, fragments map[string]string, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	record := testsupport.AddIssue(t, cfg.Paths.EpicsDir, testsupport.Issue{
		Epic:      "auth-epic",
		Issue:     "42",
		Header:    header,
		Body:      "\n## Progress\n\n✅ Token refresh wired\n🔄 Session store migration\n",
		Fragments: fragments,
	})
	return &fixture{
		cfg:     cfg,
		fake:    trackertest.New("42"),
		store:   store,
		preview: &bytes.Buffer{},
		record:  record,
	}
}

func (f *fixture) pipeline() *Pipeline {
	return New(Options{
		Config:  f.cfg,
		Tracker: f.fake,
		History: f.store,
		Preview: f.preview,
		Now:     func() time.Time { return fixedNow },
	})
}

func (f *fixture) runs(t *testing.T) []history.Run {
	t.Helper()
	runs, err := f.store.List(context.Background(), history.Filter{Issue: "42"})
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	return runs
}

func TestSyncDryRunLeavesRecordUntouched(t *testing.T) {
	f := newFixture(t, "completion: 40%\nstatus: in-progress",
		map[string]string{"notes.md": "Refactored auth module"},
		testsupport.WithDryRun(),
	)
	before := testsupport.ReadFile(t, f.record)

	out, err := f.pipeline().Sync(context.Background(), Request{Issue: "42"})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if out.Status != history.OutcomeDryRun {
		t.Fatalf("expected dry_run outcome, got %q", out.Status)
	}
	if out.CommentURL != "dry-run://issues/42/comments/preview" {
		t.Fatalf("unexpected dry-run url %q", out.CommentURL)
	}
	if n := f.fake.CallCount("PostComment"); n != 0 {
		t.Fatalf("dry run posted %d comments", n)
	}
	if got := testsupport.ReadFile(t, f.record); got != before {
		t.Fatalf("dry run modified the progress record:\n%s", got)
	}

	comment := testsupport.ReadFile(t, out.CommentPath)
	for _, want := range []string{"Refactored auth module", "Progress: 40%", "Token refresh wired"} {
		if !strings.Contains(comment, want) {
			t.Fatalf("comment missing %q:\n%s", want, comment)
		}
	}
	if !strings.Contains(f.preview.String(), "Refactored auth module") {
		t.Fatalf("preview missing fragment content:\n%s", f.preview.String())
	}
	if _, err := os.Stat(out.DocumentPath); err != nil {
		t.Fatalf("consolidated document not preserved: %v", err)
	}

	runs := f.runs(t)
	if len(runs) != 1 || runs[0].Outcome != history.OutcomeDryRun {
		t.Fatalf("unexpected history %+v", runs)
	}
}

func TestSyncPostsAndUpdatesRecord(t *testing.T) {
	f := newFixture(t, "completion: 40%\nstatus: in-progress",
		map[string]string{"blockers.md": "Waiting on security review"},
	)

	out, err := f.pipeline().Sync(context.Background(), Request{Issue: "42"})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if out.Status != history.OutcomeSynced {
		t.Fatalf("expected synced outcome, got %q", out.Status)
	}
	if n := f.fake.CallCount("PostComment"); n != 1 {
		t.Fatalf("expected one comment, got %d", n)
	}
	if !strings.HasPrefix(out.CommentURL, "https://github.com/acme/widgets/issues/42#issuecomment-") {
		t.Fatalf("unexpected comment url %q", out.CommentURL)
	}
	if out.BackupPath == "" {
		t.Fatal("expected a backup path")
	}

	rec, err := progress.Load(f.record)
	if err != nil {
		t.Fatalf("reload record: %v", err)
	}
	if rec.LastCommentURL() != out.CommentURL {
		t.Fatalf("record url %q, outcome url %q", rec.LastCommentURL(), out.CommentURL)
	}
	lastSync, ok, err := rec.LastSync()
	if err != nil || !ok || !lastSync.Equal(fixedNow) {
		t.Fatalf("unexpected last_sync %v %v %v", lastSync, ok, err)
	}

	runs := f.runs(t)
	if len(runs) != 1 || runs[0].Outcome != history.OutcomeSynced || runs[0].CommentURL != out.CommentURL {
		t.Fatalf("unexpected history %+v", runs)
	}
}

func TestSyncCompletionMarksRecordComplete(t *testing.T) {
	f := newFixture(t, "completion: 80%\nstatus: in-progress",
		map[string]string{"acceptance-criteria.md": "[ ] Login works\n[x] Logout works"},
	)

	out, err := f.pipeline().Sync(context.Background(), Request{Issue: "42", Completion: true})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if out.Percent != 100 {
		t.Fatalf("expected 100%% after completion, got %d", out.Percent)
	}
	comment := f.fake.Comments["42"]
	if len(comment) != 1 || !strings.Contains(comment[0].Body, "✅ Login works") {
		t.Fatalf("expected all criteria marked complete, got %+v", comment)
	}
	rec, err := progress.Load(f.record)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status() != "completed" {
		t.Fatalf("expected completed status, got %q", rec.Status())
	}
}

func TestSyncNothingToSync(t *testing.T) {
	lastSync := fixedNow.Add(-time.Hour)
	f := newFixture(t, "completion: 40%\nlast_sync: "+progress.FormatTime(lastSync), nil)
	testsupport.SetModTime(t, f.record, lastSync.Add(-time.Minute))

	out, err := f.pipeline().Sync(context.Background(), Request{Issue: "42"})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if out.Status != history.OutcomeNoop || out.Reason == "" {
		t.Fatalf("expected noop with reason, got %+v", out)
	}
	if out.Run.WorkspaceDir != "" {
		t.Fatalf("noop run created a workspace: %s", out.Run.WorkspaceDir)
	}
	if f.fake.CallCount("PostComment") != 0 {
		t.Fatal("noop run posted a comment")
	}
	runs := f.runs(t)
	if len(runs) != 1 || runs[0].Outcome != history.OutcomeNoop {
		t.Fatalf("unexpected history %+v", runs)
	}
}

func TestSyncPostFailureKeepsRecordAndRecordsHistory(t *testing.T) {
	f := newFixture(t, "completion: 40%", map[string]string{"notes.md": "Partial work"})
	f.fake.PostErr = errors.New("HTTP 422: body is too long")
	before := testsupport.ReadFile(t, f.record)

	out, err := f.pipeline().Sync(context.Background(), Request{Issue: "42"})
	if !errors.Is(err, services.ErrPostFailed) {
		t.Fatalf("expected ErrPostFailed, got %v", err)
	}
	var postErr *services.PostFailedError
	if !errors.As(err, &postErr) || postErr.BodyPath != out.CommentPath {
		t.Fatalf("expected body path %q in error, got %v", out.CommentPath, err)
	}
	if _, statErr := os.Stat(out.CommentPath); statErr != nil {
		t.Fatalf("comment body not preserved: %v", statErr)
	}
	if got := testsupport.ReadFile(t, f.record); got != before {
		t.Fatal("failed post modified the progress record")
	}

	runs := f.runs(t)
	if len(runs) != 1 || runs[0].Outcome != history.OutcomeFailed || runs[0].Error == "" {
		t.Fatalf("unexpected history %+v", runs)
	}
}

func TestSyncMalformedCompletionNeverPosts(t *testing.T) {
	for _, header := range []string{"completion: 40.5%", "completion: 140", "completion: in progress"} {
		t.Run(header, func(t *testing.T) {
			f := newFixture(t, header, map[string]string{"notes.md": "Some work"})
			before := testsupport.ReadFile(t, f.record)

			for attempt := 0; attempt < 2; attempt++ {
				out, err := f.pipeline().Sync(context.Background(), Request{Issue: "42"})
				if !errors.Is(err, services.ErrValidation) {
					t.Fatalf("attempt %d: expected ErrValidation, got %v", attempt, err)
				}
				if errors.Is(err, services.ErrCorruption) {
					t.Fatalf("attempt %d: reported corruption for a record that was already invalid", attempt)
				}
				if out.CommentPath != "" {
					t.Fatalf("attempt %d: formatted a comment: %s", attempt, out.CommentPath)
				}
			}
			if n := f.fake.CallCount("PostComment"); n != 0 {
				t.Fatalf("posted %d comments for an invalid record", n)
			}
			if n := f.fake.CallCount("AuthStatus"); n != 0 {
				t.Fatalf("checked auth %d times before rejecting the record", n)
			}
			if got := testsupport.ReadFile(t, f.record); got != before {
				t.Fatal("invalid record was modified")
			}
		})
	}
}

func TestSyncUnknownIssueSkipsHistory(t *testing.T) {
	f := newFixture(t, "completion: 10%", nil)

	_, err := f.pipeline().Sync(context.Background(), Request{Issue: "999"})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	runs, listErr := f.store.List(context.Background(), history.Filter{})
	if listErr != nil {
		t.Fatal(listErr)
	}
	if len(runs) != 0 {
		t.Fatalf("unresolved issue reached history: %+v", runs)
	}
}

func TestSyncAuthFailureStopsBeforeWorkspace(t *testing.T) {
	f := newFixture(t, "completion: 10%", map[string]string{"notes.md": "x"})
	f.fake.AuthErr = services.Wrap(services.ErrAuth, "tracker", "auth status", "not logged in", nil)

	out, err := f.pipeline().Sync(context.Background(), Request{Issue: "42"})
	if !errors.Is(err, services.ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
	if out.Run.WorkspaceDir != "" || out.CommentPath != "" {
		t.Fatalf("auth failure progressed past preflight: %+v", out)
	}
	if runs := f.runs(t); len(runs) != 1 || runs[0].Outcome != history.OutcomeFailed {
		t.Fatalf("unexpected history %+v", runs)
	}
}

func TestSyncProceedsWhenLockHeld(t *testing.T) {
	f := newFixture(t, "completion: 40%", map[string]string{"notes.md": "Concurrent run"})
	lockPath := workspace.LockPath(f.cfg.Paths.WorkspaceDir, "auth-epic", "42")
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		t.Fatal(err)
	}
	other := flock.New(lockPath)
	ok, err := other.TryLock()
	if err != nil || !ok {
		t.Fatalf("hold lock: %v %v", ok, err)
	}
	defer other.Unlock()

	out, err := f.pipeline().Sync(context.Background(), Request{Issue: "42"})
	if err != nil {
		t.Fatalf("Sync with held lock: %v", err)
	}
	if out.Status != history.OutcomeSynced {
		t.Fatalf("expected synced outcome, got %q", out.Status)
	}
}

func TestSyncReleasesLock(t *testing.T) {
	f := newFixture(t, "completion: 40%", map[string]string{"notes.md": "Done"})
	if _, err := f.pipeline().Sync(context.Background(), Request{Issue: "42"}); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	lock := flock.New(workspace.LockPath(f.cfg.Paths.WorkspaceDir, "auth-epic", "42"))
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("lock still held after sync: %v %v", ok, err)
	}
	_ = lock.Unlock()
}

func TestLocalRef(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.ProjectRoot = "/work/app"
	if got := LocalRef(&cfg, "/work/app/.claude/epics/auth/updates/42"); got != ".claude/epics/auth/updates/42/" {
		t.Fatalf("unexpected ref %q", got)
	}
	if got := LocalRef(&cfg, "/elsewhere/42"); got != "/elsewhere/42" {
		t.Fatalf("paths outside the project are kept, got %q", got)
	}
}

func TestStageOptionsTreatConfiguredZeroAsDisabled(t *testing.T) {
	if got := staleWindow(0); got >= 0 {
		t.Fatalf("expected a negative window for 0, got %v", got)
	}
	if got := staleWindow(120); got != 2*time.Minute {
		t.Fatalf("unexpected window %v", got)
	}
	if got := disabledAsNegative(0); got != -1 {
		t.Fatalf("expected -1 for 0, got %d", got)
	}
	if got := disabledAsNegative(25); got != 25 {
		t.Fatalf("expected positive values to pass through, got %d", got)
	}
}
