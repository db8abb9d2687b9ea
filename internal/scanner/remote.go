package scanner

import (
	"context"
	"fmt"

	"github.com/liam-witterick/repoguard/internal/analysis"
	"github.com/liam-witterick/repoguard/internal/findings"
	"github.com/liam-witterick/repoguard/internal/workspace"
)

// RemoteScanner delegates analysis to an external service over the stdio
// JSON protocol and maps its results into raw findings.
type RemoteScanner struct {
	Client *analysis.Client
	Query  string
}

func (s *RemoteScanner) Name() string { return s.Client.Name }

func (s *RemoteScanner) Run(ctx context.Context, ws *workspace.Workspace) ([]findings.RawFinding, error) {
	query := s.Query
	if query == "" {
		query = "Identify security vulnerabilities in this repository"
	}

	results, err := s.Client.Analyze(ctx, analysis.Request{
		WorkspaceRoot: ws.Root(),
		Query:         query,
	})
	if err != nil {
		return nil, fmt.Errorf("%s analysis failed: %w", s.Client.Name, err)
	}

	raw := make([]findings.RawFinding, 0, len(results))
	for _, res := range results {
		raw = append(raw, findings.RawFinding{
			RuleID:   res.RuleID,
			Title:    res.RuleID,
			Message:  res.Message,
			File:     res.File,
			Line:     res.Line,
			Severity: res.Severity,
			Category: "delegated",
		})
	}
	return raw, nil
}
