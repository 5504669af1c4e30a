package gather

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"pmsync/internal/progress"
)

const (
	markerPrefix = "<!-- pmsync:"
	markerSuffix = " -->"
)

// ErrNotDocument reports input that is not a Consolidated Update Document.
var ErrNotDocument = errors.New("not a consolidated update document")

// Section is one named part of the consolidated document.
type Section struct {
	Key     string
	Title   string
	Content string
}

// Document is the Consolidated Update Document. Since is zero when the
// issue has never been synced.
type Document struct {
	Issue    string
	Epic     string
	Since    time.Time
	Until    time.Time
	Sections []Section
}

// Section returns the section stored under key.
func (d *Document) Section(key string) (Section, bool) {
	for _, s := range d.Sections {
		if s.Key == key {
			return s, true
		}
	}
	return Section{}, false
}

// Window renders the since/until annotation.
func (d *Document) Window() string {
	since := "start of tracking"
	if !d.Since.IsZero() {
		since = progress.FormatTime(d.Since)
	}
	return since + " → " + progress.FormatTime(d.Until)
}

// Render encodes the document with machine-readable markers ahead of each
// human-readable header so ParseDocument can recover the sections.
func (d *Document) Render() []byte {
	var b bytes.Buffer
	writeMarker(&b, "issue", d.Issue)
	writeMarker(&b, "epic", d.Epic)
	if !d.Since.IsZero() {
		writeMarker(&b, "since", progress.FormatTime(d.Since))
	}
	writeMarker(&b, "until", progress.FormatTime(d.Until))
	fmt.Fprintf(&b, "# Issue #%s update\n\n", d.Issue)
	fmt.Fprintf(&b, "Window: %s\n", d.Window())
	for _, s := range d.Sections {
		b.WriteString("\n")
		writeMarker(&b, "section", s.Key)
		fmt.Fprintf(&b, "## %s\n\n", s.Title)
		for _, line := range strings.Split(strings.TrimSpace(s.Content), "\n") {
			b.WriteString(escapeLine(line))
			b.WriteByte('\n')
		}
	}
	return b.Bytes()
}

func writeMarker(b *bytes.Buffer, name, value string) {
	b.WriteString(markerPrefix + name + " " + value + markerSuffix + "\n")
}

// escapeLine prefixes a backslash to content lines that would otherwise read
// as markers, including lines already escaped that way, so unescapeLine can
// invert it exactly.
func escapeLine(line string) string {
	if strings.HasPrefix(strings.TrimLeft(line, `\`), markerPrefix) {
		return `\` + line
	}
	return line
}

func unescapeLine(line string) string {
	if strings.HasPrefix(line, `\`) && strings.HasPrefix(strings.TrimLeft(line, `\`), markerPrefix) {
		return line[1:]
	}
	return line
}

func parseMarker(line string) (name, value string, ok bool) {
	if !strings.HasPrefix(line, markerPrefix) || !strings.HasSuffix(line, markerSuffix) {
		return "", "", false
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(line, markerPrefix), markerSuffix)
	name, value, _ = strings.Cut(inner, " ")
	return name, strings.TrimSpace(value), name != ""
}

// ParseDocument decodes a rendered document.
func ParseDocument(data []byte) (*Document, error) {
	doc := &Document{}
	var current *Section
	var content []string
	sawIssue := false

	flush := func() {
		if current == nil {
			return
		}
		current.Content = strings.TrimSpace(strings.Join(content, "\n"))
		doc.Sections = append(doc.Sections, *current)
		current = nil
		content = nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if name, value, ok := parseMarker(strings.TrimRight(line, "\r")); ok {
			switch name {
			case "issue":
				doc.Issue = value
				sawIssue = true
			case "epic":
				doc.Epic = value
			case "since", "until":
				ts, err := progress.ParseTime(value)
				if err != nil {
					return nil, fmt.Errorf("%w: %s: %v", ErrNotDocument, name, err)
				}
				if name == "since" {
					doc.Since = ts
				} else {
					doc.Until = ts
				}
			case "section":
				flush()
				current = &Section{Key: value}
			}
			continue
		}
		if current == nil {
			continue
		}
		if current.Title == "" && len(content) == 0 && strings.HasPrefix(line, "## ") {
			current.Title = strings.TrimSpace(strings.TrimPrefix(line, "## "))
			continue
		}
		content = append(content, unescapeLine(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	flush()
	if !sawIssue {
		return nil, ErrNotDocument
	}
	return doc, nil
}
