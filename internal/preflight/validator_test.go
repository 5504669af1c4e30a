package preflight

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"pmsync/internal/progress"
	"pmsync/internal/prompt"
	"pmsync/internal/services"
	"pmsync/internal/testsupport"
	"pmsync/internal/tracker"
	"pmsync/internal/tracker/trackertest"
)

var fixedNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newValidator(epicsDir string, fake *trackertest.Fake, mutate ...func(*Options)) *Validator {
	opts := Options{
		Tracker:  fake,
		EpicsDir: epicsDir,
		Now:      func() time.Time { return fixedNow },
	}
	for _, fn := range mutate {
		fn(&opts)
	}
	return NewValidator(opts)
}

func TestResolveFindsEpic(t *testing.T) {
	epics := t.TempDir()
	record := testsupport.AddIssue(t, epics, testsupport.Issue{Epic: "auth-epic", Issue: "42", Header: "completion: 40"})

	loc, others, err := Resolve(epics, "42")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if loc.Epic != "auth-epic" || loc.RecordPath != record {
		t.Fatalf("unexpected location %+v", loc)
	}
	if len(others) != 0 {
		t.Fatalf("expected no other epics, got %v", others)
	}
}

func TestResolvePicksFirstEpicLexically(t *testing.T) {
	epics := t.TempDir()
	testsupport.AddIssue(t, epics, testsupport.Issue{Epic: "zeta", Issue: "7"})
	testsupport.AddIssue(t, epics, testsupport.Issue{Epic: "alpha", Issue: "7"})

	loc, others, err := Resolve(epics, "7")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if loc.Epic != "alpha" {
		t.Fatalf("expected alpha, got %q", loc.Epic)
	}
	if len(others) != 1 || others[0] != "zeta" {
		t.Fatalf("expected zeta reported, got %v", others)
	}
}

func TestResolveNotFound(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, epics string)
	}{
		{"no epic", func(*testing.T, string) {}},
		{"missing record", func(t *testing.T, epics string) {
			testsupport.WriteText(t, filepath.Join(progress.UpdateDir(epics, "auth-epic", "42"), "notes.md"), "x")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			epics := t.TempDir()
			tt.setup(t, epics)
			if _, _, err := Resolve(epics, "42"); !errors.Is(err, services.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestResolveMissingEpicsDir(t *testing.T) {
	if _, _, err := Resolve(filepath.Join(t.TempDir(), "nope"), "42"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestValidateIssueID(t *testing.T) {
	for _, bad := range []string{"", " 42", "../42", "a/b", ".."} {
		if err := ValidateIssueID(bad); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("expected ErrValidation for %q, got %v", bad, err)
		}
	}
	if err := ValidateIssueID("42"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateNeverSyncedProceeds(t *testing.T) {
	epics := t.TempDir()
	testsupport.AddIssue(t, epics, testsupport.Issue{Epic: "auth-epic", Issue: "42", Header: "completion: 40"})

	target, err := newValidator(epics, trackertest.New("42")).Validate(context.Background(), "42")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if target.NothingToSync {
		t.Fatal("expected sync to proceed")
	}
	if target.IssueState != tracker.StateOpen || target.HasLastSync {
		t.Fatalf("unexpected target %+v", target)
	}
}

func TestValidateAuthError(t *testing.T) {
	epics := t.TempDir()
	testsupport.AddIssue(t, epics, testsupport.Issue{Epic: "auth-epic", Issue: "42"})
	fake := trackertest.New("42")
	fake.AuthErr = services.Wrap(services.ErrAuth, "preflight", "auth status", "not logged in", nil)

	target, err := newValidator(epics, fake).Validate(context.Background(), "42")
	if !errors.Is(err, services.ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
	if target.Epic != "auth-epic" {
		t.Fatalf("expected resolved location on failure, got %+v", target.Location)
	}
}

func TestValidateRemoteNotFound(t *testing.T) {
	epics := t.TempDir()
	testsupport.AddIssue(t, epics, testsupport.Issue{Epic: "auth-epic", Issue: "42"})

	_, err := newValidator(epics, trackertest.New()).Validate(context.Background(), "42")
	if !errors.Is(err, services.ErrRemoteNotFound) {
		t.Fatalf("expected ErrRemoteNotFound, got %v", err)
	}
}

func TestValidateClosedIssueConfirmation(t *testing.T) {
	tests := []struct {
		name    string
		opts    func(*Options)
		aborted bool
	}{
		{"non-interactive proceeds", func(o *Options) { o.Confirmer = prompt.Fixed(false) }, false},
		{"interactive declined", func(o *Options) { o.Interactive = true; o.Confirmer = prompt.Fixed(false) }, true},
		{"interactive accepted", func(o *Options) { o.Interactive = true; o.Confirmer = prompt.Fixed(true) }, false},
		{"force skips prompt", func(o *Options) { o.Interactive = true; o.Force = true; o.Confirmer = prompt.Fixed(false) }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			epics := t.TempDir()
			testsupport.AddIssue(t, epics, testsupport.Issue{Epic: "auth-epic", Issue: "42"})
			fake := trackertest.New()
			fake.Issues["42"] = tracker.StateClosed

			target, err := newValidator(epics, fake, tt.opts).Validate(context.Background(), "42")
			if tt.aborted {
				if !errors.Is(err, services.ErrAborted) {
					t.Fatalf("expected ErrAborted, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if target.IssueState != tracker.StateClosed {
				t.Fatalf("expected closed state, got %q", target.IssueState)
			}
		})
	}
}

func TestValidateStalenessGuard(t *testing.T) {
	epics := t.TempDir()
	header := "completion: 40\nlast_sync: " + progress.FormatTime(fixedNow.Add(-2*time.Minute))
	testsupport.AddIssue(t, epics, testsupport.Issue{
		Epic:      "auth-epic",
		Issue:     "42",
		Header:    header,
		Fragments: map[string]string{"notes.md": "more"},
	})

	interactive := func(o *Options) { o.Interactive = true; o.Confirmer = prompt.Fixed(false) }
	if _, err := newValidator(epics, trackertest.New("42"), interactive).Validate(context.Background(), "42"); !errors.Is(err, services.ErrAborted) {
		t.Fatalf("expected ErrAborted inside the stale window, got %v", err)
	}

	target, err := newValidator(epics, trackertest.New("42")).Validate(context.Background(), "42")
	if err != nil {
		t.Fatalf("expected non-interactive run to proceed, got %v", err)
	}
	if target.NothingToSync {
		t.Fatal("expected pending sync with a notes fragment")
	}
}

func TestValidateNegativeStaleWindowSkipsConfirmation(t *testing.T) {
	epics := t.TempDir()
	header := "completion: 40\nlast_sync: " + progress.FormatTime(fixedNow.Add(-10*time.Second))
	testsupport.AddIssue(t, epics, testsupport.Issue{
		Epic:      "auth-epic",
		Issue:     "42",
		Header:    header,
		Fragments: map[string]string{"notes.md": "more"},
	})

	// A declining confirmer would abort if the recent-sync prompt fired.
	disabled := func(o *Options) {
		o.Interactive = true
		o.Confirmer = prompt.Fixed(false)
		o.StaleWindow = -1
	}
	if _, err := newValidator(epics, trackertest.New("42"), disabled).Validate(context.Background(), "42"); err != nil {
		t.Fatalf("expected disabled window to proceed, got %v", err)
	}
}

func TestValidateChangeGuard(t *testing.T) {
	lastSync := fixedNow.Add(-time.Hour)
	header := "completion: 40\nlast_sync: " + progress.FormatTime(lastSync)

	tests := []struct {
		name      string
		fragments map[string]string
		mtime     time.Time
		noop      bool
	}{
		{"unchanged record", nil, lastSync, true},
		{"older record", nil, lastSync.Add(-time.Minute), true},
		{"modified record", nil, lastSync.Add(time.Minute), false},
		{"extra fragment", map[string]string{"notes.md": "x"}, lastSync, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			epics := t.TempDir()
			record := testsupport.AddIssue(t, epics, testsupport.Issue{
				Epic: "auth-epic", Issue: "42", Header: header, Fragments: tt.fragments,
			})
			testsupport.SetModTime(t, record, tt.mtime)
			fake := trackertest.New("42")

			target, err := newValidator(epics, fake).Validate(context.Background(), "42")
			if err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if target.NothingToSync != tt.noop {
				t.Fatalf("NothingToSync = %v, want %v (reason %q)", target.NothingToSync, tt.noop, target.Reason)
			}
			if fake.CallCount("PostComment") != 0 {
				t.Fatal("preflight must never post")
			}
		})
	}
}

func TestValidateRejectsCorruptRecord(t *testing.T) {
	epics := t.TempDir()
	record := progress.RecordPath(progress.UpdateDir(epics, "auth-epic", "42"))
	testsupport.WriteText(t, record, "no header here\n")

	if _, err := newValidator(epics, trackertest.New("42")).Validate(context.Background(), "42"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
