package preflight

import (
	"path/filepath"

	"pmsync/internal/config"
)

// Result reports the outcome of a single readiness check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll runs the environment checks behind `pmsync status`: the epics tree
// must be listable, the workspace and history directories writable, and the
// tracker client installed.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryReadable("Epics directory", cfg.Paths.EpicsDir),
		CheckDirectoryAccess("Workspace directory", cfg.Paths.WorkspaceDir),
		checkHistory(cfg.History),
	}
	return append(results, CheckTools(cfg.TrackerBinary())...)
}

func checkHistory(h config.History) Result {
	if !h.Enabled {
		return Result{Name: "History ledger", Passed: true, Detail: "disabled"}
	}
	r := CheckDirectoryAccess("History ledger", filepath.Dir(h.Path))
	if r.Passed {
		r.Detail = h.Path
	}
	return r
}
