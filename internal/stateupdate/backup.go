package stateupdate

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"pmsync/internal/fileutil"
)

const backupInfix = ".backup."

// backupStampLayout sorts lexically in time order.
const backupStampLayout = "20060102T150405.000Z"

// Backup copies recordPath to <recordPath>.backup.<timestamp> and returns the
// backup path.
func Backup(recordPath string, now time.Time) (string, error) {
	base := recordPath + backupInfix + now.UTC().Format(backupStampLayout)
	path := base
	for i := 1; ; i++ {
		if _, err := os.Lstat(path); os.IsNotExist(err) {
			break
		}
		path = fmt.Sprintf("%s-%d", base, i)
	}
	if err := fileutil.CopyFileVerified(recordPath, path); err != nil {
		return "", fmt.Errorf("backup %s: %w", filepath.Base(recordPath), err)
	}
	return path, nil
}

// ListBackups returns the backups of recordPath, oldest first.
func ListBackups(recordPath string) ([]string, error) {
	dir := filepath.Dir(recordPath)
	prefix := filepath.Base(recordPath) + backupInfix
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var backups []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && strings.HasPrefix(entry.Name(), prefix) {
			backups = append(backups, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(backups)
	return backups, nil
}

// PruneBackups deletes all but the newest keep backups of recordPath and
// returns how many were removed. It keeps going past individual failures
// and reports the first one.
func PruneBackups(recordPath string, keep int) (int, error) {
	if keep < 1 {
		keep = 1
	}
	backups, err := ListBackups(recordPath)
	if err != nil {
		return 0, err
	}
	if len(backups) <= keep {
		return 0, nil
	}
	removed := 0
	var firstErr error
	for _, path := range backups[:len(backups)-keep] {
		if err := os.Remove(path); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		removed++
	}
	return removed, firstErr
}
