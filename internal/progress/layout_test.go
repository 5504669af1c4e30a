package progress

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestListFragmentsSkipsRecordAndBackups(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"progress.md",
		"progress.md.backup.20260101T000000Z",
		"notes.md",
		"design-review.md",
		".scratch.md",
		"image.png",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "drafts.md"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := ListFragments(dir)
	if err != nil {
		t.Fatalf("ListFragments: %v", err)
	}
	want := []string{"design-review.md", "notes.md"}
	if !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestUpdateDirLayout(t *testing.T) {
	got := RecordPath(UpdateDir("/p/.claude/epics", "auth-epic", "42"))
	if got != "/p/.claude/epics/auth-epic/updates/42/progress.md" {
		t.Fatalf("unexpected record path %q", got)
	}
}
