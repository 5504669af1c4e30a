package preflight

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pmsync/internal/testsupport"
)

func TestCheckDirectoryAccess(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name   string
		path   string
		passed bool
		detail string
	}{
		{"writable dir", t.TempDir(), true, "read/write ok"},
		{"missing", filepath.Join(t.TempDir(), "nope"), false, "does not exist"},
		{"regular file", file, false, "is not a directory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckDirectoryAccess("dir", tt.path)
			if got.Passed != tt.passed || !strings.Contains(got.Detail, tt.detail) {
				t.Fatalf("got %+v, want passed=%v detail containing %q", got, tt.passed, tt.detail)
			}
		})
	}
}

func resultsByName(results []Result) map[string]Result {
	out := make(map[string]Result, len(results))
	for _, r := range results {
		out[r.Name] = r
	}
	return out
}

func TestRunAllReportsMissingTracker(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Tracker.Binary = "pmsync-test-no-such-gh"

	byName := resultsByName(RunAll(cfg))
	if r := byName["Epics directory"]; !r.Passed {
		t.Fatalf("epics directory failed: %q", r.Detail)
	}
	if byName["Tracker client"].Passed {
		t.Fatal("expected missing tracker client to fail")
	}
	if r := byName["History ledger"]; !r.Passed || r.Detail != "disabled" {
		t.Fatalf("history check with ledger off: %+v", r)
	}
}

func TestRunAllPassesWithStubbedTrackerAndHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("gh"), testsupport.WithHistory())

	results := RunAll(cfg)
	for _, r := range results {
		if !r.Passed {
			t.Errorf("%s failed: %q", r.Name, r.Detail)
		}
	}
	if got := resultsByName(results)["History ledger"].Detail; got != cfg.History.Path {
		t.Fatalf("history detail = %q, want %q", got, cfg.History.Path)
	}
}
