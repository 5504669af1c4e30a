package format

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"pmsync/internal/config"
	"pmsync/internal/gather"
	"pmsync/internal/testsupport"
	"pmsync/internal/workspace"
)

var fixedNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func docWith(sections ...gather.Section) *gather.Document {
	return &gather.Document{Issue: "42", Epic: "auth-epic", Until: fixedNow, Sections: sections}
}

const mixedCriteria = "- ✅ done thing\n- 🔄 working on thing\n- ⏸️ blocked thing"

func TestCompletionModeRewritesEveryCriterion(t *testing.T) {
	doc := docWith(gather.Section{Key: gather.KeyAcceptanceCriteria, Title: "Acceptance Criteria", Content: mixedCriteria})

	out := Render(doc, ModeCompletion, 100, fixedNow)
	for _, want := range []string{"- ✅ done thing", "- ✅ working on thing", "- ✅ blocked thing"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in completion output:\n%s", want, out)
		}
	}
	if strings.Contains(out, MarkerInProgress+" working") || strings.Contains(out, MarkerBlocked+" blocked") {
		t.Fatalf("expected prior markers replaced:\n%s", out)
	}
	for _, title := range []string{"### Deliverables", "### Testing", "### Documentation"} {
		if !strings.Contains(out, title) {
			t.Fatalf("expected %s section", title)
		}
	}
	if !strings.Contains(out, defaultTesting) {
		t.Fatal("expected positive testing default")
	}
}

func TestProgressModePreservesMarkers(t *testing.T) {
	doc := docWith(gather.Section{Key: gather.KeyAcceptanceCriteria, Title: "Acceptance Criteria", Content: mixedCriteria + "\n- untagged thing\n- [x] boxed thing"})

	out := Render(doc, ModeProgress, 40, fixedNow)
	for _, want := range []string{
		"- ✅ done thing",
		"- 🔄 working on thing",
		"- ⏸️ blocked thing",
		"- □ untagged thing",
		"- ✅ boxed thing",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in progress output:\n%s", want, out)
		}
	}
}

func TestFragmentFallbackRendersEverySection(t *testing.T) {
	out := Render(docWith(), ModeProgress, 10, fixedNow)

	for _, title := range []string{
		"Completed Work", "In Progress", "Technical Notes", "Acceptance Criteria Status",
		"Next Steps", "Blockers", "Recent Commits",
	} {
		if !strings.Contains(out, "### "+title+"\n") {
			t.Fatalf("missing section %q:\n%s", title, out)
		}
	}
	for _, cat := range gather.Categories() {
		if !strings.Contains(out, cat.Default) {
			t.Fatalf("expected default %q:\n%s", cat.Default, out)
		}
	}
	if !strings.Contains(out, "Progress: 10%") {
		t.Fatalf("expected metadata line:\n%s", out)
	}
}

func TestProgressSplitsCompletedWork(t *testing.T) {
	doc := docWith(gather.Section{Key: gather.KeyProgress, Title: "Progress", Content: "- ✅ schema migrated\nWorking on token refresh."})

	out := Render(doc, ModeProgress, 50, fixedNow)
	completed := out[strings.Index(out, "### Completed Work"):strings.Index(out, "### In Progress")]
	if !strings.Contains(completed, "- ✅ schema migrated") {
		t.Fatalf("expected completed item under Completed Work:\n%s", completed)
	}
	if !strings.Contains(out, "### In Progress\n\nWorking on token refresh.") {
		t.Fatalf("expected remaining narrative under In Progress:\n%s", out)
	}
}

func TestProgressDropsRecordHeadings(t *testing.T) {
	body := "## Progress\n\n✅ Token refresh wired\n🔄 Session store migration\n\n### Details\n\n```sh\n# keep this comment\n```"
	doc := docWith(gather.Section{Key: gather.KeyProgress, Title: "Progress", Content: body})

	out := Render(doc, ModeProgress, 50, fixedNow)
	start := strings.Index(out, "### In Progress")
	end := strings.Index(out, "### Technical Notes")
	if start < 0 || end < start {
		t.Fatalf("expected In Progress before Technical Notes:\n%s", out)
	}
	inProgress := out[start+len("### In Progress") : end]
	if strings.Contains(inProgress, "## Progress") || strings.Contains(inProgress, "### Details") {
		t.Fatalf("expected record headings dropped from In Progress:\n%s", inProgress)
	}
	if !strings.Contains(inProgress, "🔄 Session store migration") {
		t.Fatalf("expected remaining work kept:\n%s", inProgress)
	}
	if !strings.Contains(inProgress, "# keep this comment") {
		t.Fatalf("expected fenced lines untouched:\n%s", inProgress)
	}
}

func TestRenderAppendsExtraSections(t *testing.T) {
	doc := docWith(gather.Section{Key: "design-review", Title: "Design Review", Content: "Approved."})
	out := Render(doc, ModeProgress, 0, fixedNow)
	if !strings.Contains(out, "### Design Review\n\nApproved.") {
		t.Fatalf("expected extra section:\n%s", out)
	}
	if strings.Index(out, "### Design Review") < strings.Index(out, "### Recent Commits") {
		t.Fatal("expected extras after the known sections")
	}
}

func TestEnforceSizeInvariant(t *testing.T) {
	huge := strings.Repeat("- 🔄 in-progress work item that keeps going\n", 200000/44+1)
	doc := docWith(gather.Section{Key: gather.KeyProgress, Title: "Progress", Content: huge})
	body := Render(doc, ModeProgress, 40, fixedNow)
	if len(body) <= config.MaxCommentBytes {
		t.Fatalf("expected natural rendering above the ceiling, got %d bytes", len(body))
	}

	ref := ".claude/epics/auth-epic/updates/42/"
	out, truncated := Enforce(body, config.MaxCommentBytes, 65000, ref)
	if !truncated {
		t.Fatal("expected truncation")
	}
	if len(out) > config.MaxCommentBytes {
		t.Fatalf("payload %d bytes exceeds ceiling", len(out))
	}
	if !strings.HasSuffix(out, Trailer(ref)) {
		t.Fatal("expected payload to end with the truncation trailer")
	}
	if !utf8.ValidString(out) {
		t.Fatal("expected truncation on a rune boundary")
	}
}

func TestEnforceLeavesSmallBodies(t *testing.T) {
	out, truncated := Enforce("short", config.MaxCommentBytes, 65000, "x")
	if truncated || out != "short" {
		t.Fatalf("unexpected %q %v", out, truncated)
	}
}

func TestEnforceBudgetBelowTrailerRoom(t *testing.T) {
	body := strings.Repeat("é", 6000)
	out, truncated := Enforce(body, 4096, 5000, "ref")
	if !truncated || len(out) > 4096 || !utf8.ValidString(out) {
		t.Fatalf("unexpected result len=%d truncated=%v", len(out), truncated)
	}
}

func TestParseItem(t *testing.T) {
	tests := []struct {
		line   string
		status Status
		tagged bool
		text   string
	}{
		{"- ✅ done", StatusComplete, true, "done"},
		{"* [ ] todo", StatusUnchecked, true, "todo"},
		{"1. ⏸ waiting", StatusBlocked, true, "waiting"},
		{"plain line", StatusUnchecked, false, "plain line"},
	}
	for _, tt := range tests {
		item, ok := ParseItem(tt.line)
		if !ok {
			t.Fatalf("ParseItem(%q) not an item", tt.line)
		}
		if item.Status != tt.status || item.Tagged != tt.tagged || item.Text != tt.text {
			t.Fatalf("ParseItem(%q) = %+v", tt.line, item)
		}
	}
	if _, ok := ParseItem("### Phase 1"); ok {
		t.Fatal("headings are not items")
	}
}

func TestFormatterWritesComment(t *testing.T) {
	epics := t.TempDir()
	record := testsupport.AddIssue(t, epics, testsupport.Issue{Epic: "auth-epic", Issue: "42", Header: "completion: 40%"})
	ws, err := workspace.New(t.TempDir(), "42", "")
	if err != nil {
		t.Fatal(err)
	}
	docPath, err := ws.WriteFile(workspace.ConsolidatedFile, docWith(
		gather.Section{Key: gather.KeyNotes, Title: "Technical Notes", Content: "Refactored auth module"},
	).Render())
	if err != nil {
		t.Fatal(err)
	}

	f := New(Options{Now: func() time.Time { return fixedNow }})
	result, err := f.Format(context.Background(), Input{DocPath: docPath, RecordPath: record, LocalRef: filepath.Dir(record)}, ws)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if result.Percent != 40 || result.Truncated {
		t.Fatalf("unexpected result %+v", result)
	}
	body, err := os.ReadFile(result.Path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "Progress: 40%") || !strings.Contains(string(body), "Refactored auth module") {
		t.Fatalf("unexpected body:\n%s", body)
	}

	result, err = f.Format(context.Background(), Input{DocPath: docPath, RecordPath: record, Completion: true}, ws)
	if err != nil {
		t.Fatalf("Format completion: %v", err)
	}
	if result.Percent != 100 || result.Mode != ModeCompletion {
		t.Fatalf("unexpected completion result %+v", result)
	}
}

func TestFormatterRejectsNonDocument(t *testing.T) {
	ws, err := workspace.New(t.TempDir(), "42", "")
	if err != nil {
		t.Fatal(err)
	}
	path, _ := ws.WriteFile("random.md", []byte("# not ours\n"))
	if _, err := New(Options{}).Format(context.Background(), Input{DocPath: path}, ws); err == nil {
		t.Fatal("expected error for a non-document input")
	}
}
