// Package scan runs a full repository scan: acquire a workspace, fan out the
// configured scanners, merge their findings, and assemble the result.
package scan

import (
	"time"

	"github.com/liam-witterick/repoguard/internal/findings"
)

// Repository identifies and describes the scanned repository.
type Repository struct {
	Owner         string `json:"owner"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	URL           string `json:"url"`
	Description   string `json:"description,omitempty"`
	Language      string `json:"language,omitempty"`
	DefaultBranch string `json:"default_branch,omitempty"`
	Ref           string `json:"ref,omitempty"`
	Stars         int    `json:"stars,omitempty"`
	Private       bool   `json:"private,omitempty"`
}

// Result is the complete outcome of one scan run.
type Result struct {
	ScanID     string             `json:"scan_id"`
	Repository Repository         `json:"repository"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Findings   []findings.Finding `json:"findings"`
	Summary    findings.Summary   `json:"summary"`
	Statistics Statistics         `json:"statistics"`
}

// Duration returns the wall-clock time the scan took.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// WithRepository returns a copy of the result carrying the given repository
// metadata. The original result is not modified.
func (r *Result) WithRepository(repo Repository) *Result {
	out := *r
	out.Repository = repo
	return &out
}

// FilterSeverity returns a copy of the result restricted to findings at or
// above min, with the summary recomputed. The original result is not
// modified.
func (r *Result) FilterSeverity(min findings.Severity) *Result {
	out := *r
	out.Findings = findings.FilterBySeverity(r.Findings, min)
	out.Summary = findings.Summarize(out.Findings)
	return &out
}
