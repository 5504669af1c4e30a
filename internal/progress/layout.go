package progress

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// UpdatesDir is the per-epic directory holding one subdirectory per issue.
	UpdatesDir = "updates"
	// FileName is the Progress Record inside an issue's update directory.
	FileName = "progress.md"
	// FragmentExt marks update fragment files.
	FragmentExt = ".md"
)

// UpdateDir returns <epicsDir>/<epic>/updates/<issue>.
func UpdateDir(epicsDir, epic, issue string) string {
	return filepath.Join(epicsDir, epic, UpdatesDir, issue)
}

// RecordPath returns the Progress Record path inside updateDir.
func RecordPath(updateDir string) string {
	return filepath.Join(updateDir, FileName)
}

// ListFragments returns the base names of every fragment in updateDir other
// than the Progress Record, sorted. Backups never match because they do not
// end in ".md".
func ListFragments(updateDir string) ([]string, error) {
	entries, err := os.ReadDir(updateDir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || name == FileName || strings.HasPrefix(name, ".") {
			continue
		}
		if strings.EqualFold(filepath.Ext(name), FragmentExt) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
