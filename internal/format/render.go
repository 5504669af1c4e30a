package format

import (
	"fmt"
	"strings"
	"time"

	"pmsync/internal/gather"
	"pmsync/internal/progress"
)

// Mode selects the comment layout.
type Mode int

const (
	ModeProgress Mode = iota
	ModeCompletion
)

func (m Mode) String() string {
	if m == ModeCompletion {
		return "completion"
	}
	return "progress"
}

// Fragments that override completion-mode defaults.
const (
	KeyDeliverables  = "deliverables"
	KeyTesting       = "testing"
	KeyDocumentation = "documentation"
)

const (
	defaultCompleted     = "No completed items reported."
	defaultCriteriaMet   = "All acceptance criteria met."
	defaultDeliverables  = "All planned deliverables implemented."
	defaultTesting       = "Tests added and passing."
	defaultDocumentation = "Documentation updated."
)

// Render lays out doc in the given mode. percent is the completion figure
// written into the metadata line.
func Render(doc *gather.Document, mode Mode, percent int, generated time.Time) string {
	var b strings.Builder
	used := make(map[string]struct{})
	section := func(title, content string) {
		fmt.Fprintf(&b, "\n### %s\n\n%s\n", title, strings.TrimSpace(content))
	}
	take := func(key, fallback string) string {
		used[key] = struct{}{}
		if s, ok := doc.Section(key); ok && strings.TrimSpace(s.Content) != "" {
			return s.Content
		}
		return fallback
	}
	fallback := func(key string) string {
		cat, _ := gather.LookupCategory(key)
		return cat.Default
	}

	switch mode {
	case ModeCompletion:
		b.WriteString("## ✅ Task Completed\n\n")
		fmt.Fprintf(&b, "_Window: %s_\n", doc.Window())
		criteria := take(gather.KeyAcceptanceCriteria, "")
		if criteria == "" {
			section("Acceptance Criteria Met", "- "+MarkerComplete+" "+defaultCriteriaMet)
		} else {
			section("Acceptance Criteria Met", NormalizeChecklist(criteria, true))
		}
		section("Deliverables", take(KeyDeliverables, defaultDeliverables))
		section("Testing", take(KeyTesting, defaultTesting))
		section("Documentation", take(KeyDocumentation, defaultDocumentation))
	default:
		b.WriteString("## 🔄 Progress Update\n\n")
		fmt.Fprintf(&b, "_Window: %s_\n", doc.Window())
		completed, remaining := splitCompleted(take(gather.KeyProgress, ""))
		if len(completed) == 0 {
			section("Completed Work", defaultCompleted)
		} else {
			section("Completed Work", strings.Join(completed, "\n"))
		}
		if remaining == "" {
			remaining = fallback(gather.KeyProgress)
		}
		section("In Progress", remaining)
		section("Technical Notes", take(gather.KeyNotes, fallback(gather.KeyNotes)))
		criteria := take(gather.KeyAcceptanceCriteria, "")
		if criteria == "" {
			section("Acceptance Criteria Status", fallback(gather.KeyAcceptanceCriteria))
		} else {
			section("Acceptance Criteria Status", NormalizeChecklist(criteria, false))
		}
		section("Next Steps", take(gather.KeyNextSteps, fallback(gather.KeyNextSteps)))
		section("Blockers", take(gather.KeyBlockers, fallback(gather.KeyBlockers)))
		section("Recent Commits", take(gather.KeyCommits, fallback(gather.KeyCommits)))
	}

	for _, s := range doc.Sections {
		if _, done := used[s.Key]; done {
			continue
		}
		if _, known := gather.LookupCategory(s.Key); known && mode == ModeCompletion {
			continue
		}
		section(s.Title, s.Content)
	}

	b.WriteString("\n---\n")
	b.WriteString(MetadataLine(percent, generated))
	b.WriteString("\n")
	return b.String()
}

// MetadataLine is the trailing line carrying completion and generation time.
func MetadataLine(percent int, generated time.Time) string {
	return fmt.Sprintf("_Progress: %d%% · Generated %s by pmsync_", percent, progress.FormatTime(generated))
}
