package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pmsync/internal/progress"
)

// WriteFile fills the target path with the requested number of bytes using a
// repeating line of text. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	line := "- still working through the migration backlog\n"
	var b strings.Builder
	for int64(b.Len()) < size {
		b.WriteString(line)
	}
	WriteText(t, path, b.String()[:size])
}

// WriteText writes content to path, creating parent directories.
func WriteText(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// Issue describes one tracked issue for AddIssue.
type Issue struct {
	Epic   string
	Issue  string
	Header string
	Body   string
	// Fragments maps fragment file names (with .md) to content.
	Fragments map[string]string
}

// AddIssue creates <epicsDir>/<epic>/updates/<issue>/ with a Progress Record
// built from Header and Body plus any fragments. It returns the record path.
func AddIssue(t testing.TB, epicsDir string, issue Issue) string {
	t.Helper()

	dir := progress.UpdateDir(epicsDir, issue.Epic, issue.Issue)
	record := progress.RecordPath(dir)
	header := strings.TrimSpace(issue.Header)
	if header != "" {
		header += "\n"
	}
	WriteText(t, record, "---\n"+header+"---\n"+issue.Body)
	for name, content := range issue.Fragments {
		WriteText(t, filepath.Join(dir, name), content)
	}
	return record
}

// SetModTime pins path's modification time.
func SetModTime(t testing.TB, path string, ts time.Time) {
	t.Helper()

	if err := os.Chtimes(path, ts, ts); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

// ReadFile returns the content of path or fails the test.
func ReadFile(t testing.TB, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}
