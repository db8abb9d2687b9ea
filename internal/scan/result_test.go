package scan

import (
	"testing"
	"time"

	"github.com/liam-witterick/repoguard/internal/findings"
)

func baseResult() *Result {
	started := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return &Result{
		ScanID: "abc",
		Repository: Repository{
			Owner:    "octocat",
			Name:     "hello-world",
			FullName: "octocat/hello-world",
			URL:      "https://github.com/octocat/hello-world.git",
		},
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
		Findings: []findings.Finding{
			{ID: "1", Severity: findings.SeverityHigh},
			{ID: "2", Severity: findings.SeverityLow},
		},
		Summary: findings.Summary{Total: 2, High: 1, Low: 1},
	}
}

func TestWithRepositoryDoesNotMutate(t *testing.T) {
	original := baseResult()

	meta := original.Repository
	meta.Description = "test repo"
	meta.Language = "Go"
	meta.Stars = 42

	amended := original.WithRepository(meta)

	if amended.Repository.Description != "test repo" {
		t.Errorf("expected amended description, got %q", amended.Repository.Description)
	}
	if amended.Repository.Stars != 42 {
		t.Errorf("expected 42 stars, got %d", amended.Repository.Stars)
	}
	if original.Repository.Description != "" || original.Repository.Stars != 0 {
		t.Error("original result was mutated")
	}
	if amended.ScanID != original.ScanID {
		t.Errorf("expected scan id carried over, got %s", amended.ScanID)
	}
}

func TestFilterSeverityDoesNotMutate(t *testing.T) {
	original := baseResult()

	filtered := original.FilterSeverity(findings.SeverityHigh)

	if len(filtered.Findings) != 1 {
		t.Fatalf("expected 1 finding after filtering, got %d", len(filtered.Findings))
	}
	if filtered.Findings[0].ID != "1" {
		t.Errorf("expected the high finding to survive, got %s", filtered.Findings[0].ID)
	}
	if filtered.Summary.Total != 1 || filtered.Summary.High != 1 || filtered.Summary.Low != 0 {
		t.Errorf("summary not recomputed: %+v", filtered.Summary)
	}

	if len(original.Findings) != 2 {
		t.Errorf("original findings were mutated, got %d", len(original.Findings))
	}
	if original.Summary.Total != 2 {
		t.Errorf("original summary was mutated: %+v", original.Summary)
	}
}

func TestDuration(t *testing.T) {
	if got := baseResult().Duration(); got != 2*time.Second {
		t.Errorf("expected 2s, got %v", got)
	}
}
