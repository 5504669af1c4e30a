package gather

// Known fragment categories, in document order.
const (
	KeyProgress           = "progress"
	KeyNotes              = "notes"
	KeyCommits            = "commits"
	KeyAcceptanceCriteria = "acceptance-criteria"
	KeyNextSteps          = "next-steps"
	KeyBlockers           = "blockers"
)

// Category describes a known fragment.
type Category struct {
	Key     string
	Title   string
	Default string
}

var categories = []Category{
	{Key: KeyProgress, Title: "Progress", Default: "No progress notes recorded."},
	{Key: KeyNotes, Title: "Technical Notes", Default: "No technical notes for this update."},
	{Key: KeyCommits, Title: "Recent Commits", Default: "No recent commits."},
	{Key: KeyAcceptanceCriteria, Title: "Acceptance Criteria", Default: "No acceptance criteria updates."},
	{Key: KeyNextSteps, Title: "Next Steps", Default: "No next steps recorded."},
	{Key: KeyBlockers, Title: "Blockers", Default: "No current blockers."},
}

// Categories returns the known fragment categories in document order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// LookupCategory returns the known category for key.
func LookupCategory(key string) (Category, bool) {
	for _, c := range categories {
		if c.Key == key {
			return c, true
		}
	}
	return Category{}, false
}

func isKnown(key string) bool {
	_, ok := LookupCategory(key)
	return ok
}
