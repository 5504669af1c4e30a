// Package deps reports whether the external command-line tools pmsync shells
// out to are installed.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement is one executable pmsync may invoke.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is a Requirement after a PATH lookup. Command holds the resolved
// path when the tool was found.
type Status struct {
	Requirement
	Available bool
	Detail    string
}

// Requirements lists the tools a sync needs. Only the tracker client is
// mandatory. gh resolves the repository from the local git remote when
// tracker.repo is unset, so git is reported but optional.
func Requirements(trackerBinary string) []Requirement {
	return []Requirement{
		{Name: "Tracker client", Command: trackerBinary, Description: "reads issue state and posts comments"},
		{Name: "git", Command: "git", Description: "lets the tracker client infer the repository", Optional: true},
	}
}

// CheckBinaries looks up every requirement on PATH.
func CheckBinaries(requirements []Requirement) []Status {
	statuses := make([]Status, len(requirements))
	for i, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		req.Description = strings.TrimSpace(req.Description)
		statuses[i] = lookup(req)
	}
	return statuses
}

func lookup(req Requirement) Status {
	status := Status{Requirement: req}
	if req.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	path, err := exec.LookPath(req.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", req.Command)
		return status
	}
	status.Command = path
	status.Available = true
	return status
}

// MissingRequired names the mandatory tools that were not found.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, s := range statuses {
		if s.Optional || s.Available {
			continue
		}
		missing = append(missing, s.Name)
	}
	return missing
}
