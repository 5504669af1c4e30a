package preflight

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pmsync/internal/progress"
	"pmsync/internal/services"
)

// Location identifies where an issue's tracking lives on disk.
type Location struct {
	Issue      string
	Epic       string
	UpdateDir  string
	RecordPath string
}

// ValidateIssueID rejects identifiers that cannot name an update directory.
func ValidateIssueID(issue string) error {
	trimmed := strings.TrimSpace(issue)
	switch {
	case trimmed == "":
		return services.Wrap(services.ErrValidation, "preflight", "validate issue", "issue id required", nil)
	case trimmed != issue,
		strings.ContainsAny(issue, `/\`),
		issue == "." || issue == "..":
		return services.Wrap(services.ErrValidation, "preflight", "validate issue", fmt.Sprintf("invalid issue id %q", issue), nil)
	}
	return nil
}

// Resolve finds the epic owning issue. When several epics carry an update
// directory for the same issue the lexically first wins and the others are
// returned so the caller can warn.
func Resolve(epicsDir, issue string) (Location, []string, error) {
	if err := ValidateIssueID(issue); err != nil {
		return Location{}, nil, err
	}
	entries, err := os.ReadDir(epicsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Location{}, nil, services.Wrap(services.ErrNotFound, "preflight", "resolve epic",
				fmt.Sprintf("epics directory %s does not exist", epicsDir), nil)
		}
		return Location{}, nil, services.Wrap(services.ErrNotFound, "preflight", "resolve epic", "read epics directory", err)
	}

	var matches []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := progress.UpdateDir(epicsDir, entry.Name(), issue)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			matches = append(matches, entry.Name())
		}
	}
	if len(matches) == 0 {
		return Location{}, nil, services.Wrap(services.ErrNotFound, "preflight", "resolve epic",
			fmt.Sprintf("no local tracking for issue #%s", issue), nil)
	}
	sort.Strings(matches)

	loc := Location{
		Issue:     issue,
		Epic:      matches[0],
		UpdateDir: progress.UpdateDir(epicsDir, matches[0], issue),
	}
	loc.RecordPath = progress.RecordPath(loc.UpdateDir)
	if _, err := os.Stat(loc.RecordPath); err != nil {
		return loc, matches[1:], services.Wrap(services.ErrNotFound, "preflight", "resolve epic",
			fmt.Sprintf("issue #%s has no %s in epic %s", issue, progress.FileName, loc.Epic), nil)
	}
	return loc, matches[1:], nil
}

// ListTracked returns every issue with a Progress Record across all epics,
// ordered by epic then issue.
func ListTracked(epicsDir string) ([]Location, error) {
	pattern := filepath.Join(epicsDir, "*", progress.UpdatesDir, "*", progress.FileName)
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	locations := make([]Location, 0, len(paths))
	for _, path := range paths {
		updateDir := filepath.Dir(path)
		epicDir := filepath.Dir(filepath.Dir(updateDir))
		locations = append(locations, Location{
			Issue:      filepath.Base(updateDir),
			Epic:       filepath.Base(epicDir),
			UpdateDir:  updateDir,
			RecordPath: path,
		})
	}
	return locations, nil
}
