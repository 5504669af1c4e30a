package format

import (
	"regexp"
	"strings"
)

// Status is an acceptance-criterion state.
type Status int

const (
	StatusUnchecked Status = iota
	StatusComplete
	StatusInProgress
	StatusBlocked
)

// Canonical markers written into comments.
const (
	MarkerComplete   = "✅"
	MarkerInProgress = "🔄"
	MarkerBlocked    = "⏸️"
	MarkerUnchecked  = "□"
)

// Marker returns the canonical glyph for s.
func (s Status) Marker() string {
	switch s {
	case StatusComplete:
		return MarkerComplete
	case StatusInProgress:
		return MarkerInProgress
	case StatusBlocked:
		return MarkerBlocked
	default:
		return MarkerUnchecked
	}
}

// Longer spellings come before their prefixes.
var markerSpellings = []struct {
	token  string
	status Status
}{
	{"[x]", StatusComplete},
	{"[X]", StatusComplete},
	{"[ ]", StatusUnchecked},
	{"[~]", StatusInProgress},
	{"[-]", StatusBlocked},
	{"✅", StatusComplete},
	{"✔️", StatusComplete},
	{"✔", StatusComplete},
	{"☑️", StatusComplete},
	{"☑", StatusComplete},
	{"🔄", StatusInProgress},
	{"🚧", StatusInProgress},
	{"⏳", StatusInProgress},
	{"⏸️", StatusBlocked},
	{"⏸", StatusBlocked},
	{"🚫", StatusBlocked},
	{"⛔", StatusBlocked},
	{"□", StatusUnchecked},
	{"☐", StatusUnchecked},
	{"⬜", StatusUnchecked},
}

var orderedBullet = regexp.MustCompile(`^\d+[.)]\s+`)

// Item is one parsed checklist line.
type Item struct {
	Indent string
	Bullet string
	Text   string
	Status Status
	Tagged bool
}

// String renders the item with its canonical marker.
func (it Item) String() string {
	return it.Indent + it.Bullet + " " + it.Status.Marker() + " " + it.Text
}

// ParseItem splits a checklist line. Blank lines and markdown headings are
// not items.
func ParseItem(line string) (Item, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	if strings.TrimSpace(trimmed) == "" || strings.HasPrefix(trimmed, "#") {
		return Item{}, false
	}
	item := Item{Indent: line[:len(line)-len(trimmed)], Bullet: "-"}
	rest := trimmed
	switch {
	case len(rest) > 1 && strings.ContainsRune("-*+", rune(rest[0])) && (rest[1] == ' ' || rest[1] == '\t'):
		item.Bullet = rest[:1]
		rest = strings.TrimLeft(rest[1:], " \t")
	case orderedBullet.MatchString(rest):
		loc := orderedBullet.FindStringIndex(rest)
		item.Bullet = strings.TrimSpace(rest[:loc[1]])
		rest = rest[loc[1]:]
	}
	for _, sp := range markerSpellings {
		if strings.HasPrefix(rest, sp.token) {
			item.Status = sp.status
			item.Tagged = true
			rest = strings.TrimLeft(strings.TrimPrefix(rest, sp.token), " \t\ufe0f")
			break
		}
	}
	item.Text = strings.TrimRight(rest, " \t\r")
	return item, true
}

// NormalizeChecklist rewrites each criterion line with a canonical marker.
// Untagged criteria become unchecked; with allComplete every criterion
// becomes complete.
func NormalizeChecklist(content string, allComplete bool) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		item, ok := ParseItem(line)
		if !ok {
			continue
		}
		if allComplete {
			item.Status = StatusComplete
		}
		lines[i] = item.String()
	}
	return strings.Join(lines, "\n")
}

// splitCompleted separates completed checklist lines from the rest of a
// progress narrative.
func splitCompleted(content string) (completed []string, remaining string) {
	var (
		rest    []string
		fenced  bool
		dropped bool
	)
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			fenced = !fenced
		}
		if fenced {
			rest = append(rest, line)
			continue
		}
		if item, ok := ParseItem(line); ok && item.Tagged && item.Status == StatusComplete {
			item.Indent = ""
			completed = append(completed, item.String())
			continue
		}
		// The record's own headings would nest under "In Progress".
		if atxHeading.MatchString(line) {
			dropped = true
			continue
		}
		if dropped && strings.TrimSpace(line) == "" && (len(rest) == 0 || strings.TrimSpace(rest[len(rest)-1]) == "") {
			continue
		}
		dropped = false
		rest = append(rest, line)
	}
	return completed, strings.TrimSpace(strings.Join(rest, "\n"))
}

var atxHeading = regexp.MustCompile(`^ {0,3}#{1,6}(\s|$)`)
