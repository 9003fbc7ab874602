package history

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a recorded run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

var statusSet = map[Status]struct{}{
	StatusRunning:   {},
	StatusSuccess:   {},
	StatusFailed:    {},
	StatusCancelled: {},
}

// ParseStatus converts a stored value into a Status.
func ParseStatus(value string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	_, ok := statusSet[status]
	return status, ok
}

// IsFinal reports whether the run has stopped.
func (s Status) IsFinal() bool {
	return s != StatusRunning
}

// Counts tallies manifest entries by outcome.
type Counts struct {
	Published int `json:"published"`
	LocalOnly int `json:"local_only"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Total returns the number of image sections the run accounted for.
func (c Counts) Total() int {
	return c.Published + c.LocalOnly + c.Skipped + c.Failed
}

// Run is one row of the runs table.
type Run struct {
	ID           string     `json:"id"`
	Status       Status     `json:"status"`
	Title        string     `json:"title,omitempty"`
	Strategy     string     `json:"strategy"`
	SourceVideo  string     `json:"source_video,omitempty"`
	PlanPath     string     `json:"plan_path,omitempty"`
	RunDir       string     `json:"run_dir,omitempty"`
	ArticlePath  string     `json:"article_path,omitempty"`
	ManifestPath string     `json:"manifest_path,omitempty"`
	Counts       Counts     `json:"counts"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// Elapsed returns the run duration, measured to now while it is running.
func (r Run) Elapsed(now time.Time) time.Duration {
	end := now
	if r.FinishedAt != nil {
		end = *r.FinishedAt
	}
	if end.Before(r.CreatedAt) {
		return 0
	}
	return end.Sub(r.CreatedAt)
}

// Outcome is what Finish records for a run.
type Outcome struct {
	Status       Status
	Title        string
	ArticlePath  string
	ManifestPath string
	Counts       Counts
	Err          error
}
