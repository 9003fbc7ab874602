// Package deps locates the external binaries used for frame capture.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement names a binary and whether a run can proceed without it.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is a Requirement after lookup on PATH.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	// Path is the resolved executable when Available.
	Path   string
	Detail string
}

// Check resolves one requirement.
func Check(req Requirement) Status {
	st := Status{
		Name:        req.Name,
		Command:     strings.TrimSpace(req.Command),
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if st.Command == "" {
		st.Detail = "command not configured"
		return st
	}
	path, err := exec.LookPath(st.Command)
	if err != nil {
		st.Detail = fmt.Sprintf("binary %q not found", st.Command)
		return st
	}
	st.Available, st.Path = true, path
	return st
}

// CheckBinaries resolves every requirement, preserving order.
func CheckBinaries(reqs []Requirement) []Status {
	out := make([]Status, len(reqs))
	for i, req := range reqs {
		out[i] = Check(req)
	}
	return out
}

// MissingRequired names the unavailable entries a run cannot skip.
func MissingRequired(statuses []Status) []string {
	var names []string
	for _, st := range statuses {
		if st.Optional || st.Available {
			continue
		}
		names = append(names, st.Name)
	}
	return names
}
