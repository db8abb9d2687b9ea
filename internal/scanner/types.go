package scanner

import (
	"context"
	"time"

	"github.com/liam-witterick/repoguard/internal/findings"
	"github.com/liam-witterick/repoguard/internal/workspace"
)

// Scanner is the interface every finding source implements. Run must treat
// the workspace as read-only and return promptly once ctx is done.
type Scanner interface {
	// Name returns the scanner name used for provenance and statistics.
	Name() string

	// Run inspects the workspace and returns raw findings.
	Run(ctx context.Context, ws *workspace.Workspace) ([]findings.RawFinding, error)
}

// Status describes how a scanner run ended.
type Status string

const (
	StatusOK       Status = "ok"
	StatusTimedOut Status = "timed_out"
	StatusFailed   Status = "failed"
)

// Outcome records the result of one scanner run. A failed or timed-out
// scanner degrades statistics but never the scan.
type Outcome struct {
	Scanner  string
	Status   Status
	Findings []findings.RawFinding
	Duration time.Duration
	Err      error
}
