package scan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/liam-witterick/repoguard/internal/config"
	"github.com/liam-witterick/repoguard/internal/findings"
	"github.com/liam-witterick/repoguard/internal/github"
	"github.com/liam-witterick/repoguard/internal/scanner"
	"github.com/liam-witterick/repoguard/internal/workspace"
)

type fakeScanner struct {
	name  string
	raw   []findings.RawFinding
	err   error
	delay time.Duration
	panic bool
}

func (f *fakeScanner) Name() string { return f.name }

func (f *fakeScanner) Run(ctx context.Context, ws *workspace.Workspace) ([]findings.RawFinding, error) {
	if f.panic {
		panic("boom")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.raw, f.err
}

type fakeCredentials struct {
	token string
	err   error
}

func (f *fakeCredentials) Get(service string) (string, error) {
	return f.token, f.err
}

func stubAcquire(t *testing.T, files map[string]string) AcquireFunc {
	t.Helper()
	return stubAcquireInto(t, files, nil)
}

// stubAcquireInto records the workspace root in *root so tests can assert
// the directory is released.
func stubAcquireInto(t *testing.T, files map[string]string, root *string) AcquireFunc {
	t.Helper()
	return func(ctx context.Context, repo github.Repo, token, ref string) (*workspace.Workspace, error) {
		dir, err := os.MkdirTemp("", "repoguard-test-")
		if err != nil {
			return nil, err
		}
		for rel, content := range files {
			path := filepath.Join(dir, filepath.FromSlash(rel))
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, err
			}
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return nil, err
			}
		}
		if root != nil {
			*root = dir
		}
		return workspace.Local(dir), nil
	}
}

func assertReleased(t *testing.T, root string) {
	t.Helper()
	if root == "" {
		t.Fatal("acquire stub was never called")
	}
	if _, err := os.Stat(root); !os.IsNotExist(err) {
		t.Errorf("expected workspace %s to be removed", root)
	}
}

func testRepo() github.Repo {
	return github.Repo{Owner: "octocat", Name: "hello-world"}
}

func TestExecuteMergesScannerFindings(t *testing.T) {
	rawA := findings.RawFinding{RuleID: "rule-a", Message: "m", File: "a.go", Line: 1, Severity: "high"}
	rawB := findings.RawFinding{RuleID: "rule-b", Message: "m", File: "b.go", Line: 2, Severity: "low"}

	o := &Orchestrator{
		Scanners: []scanner.Scanner{
			&fakeScanner{name: "first", raw: []findings.RawFinding{rawA}},
			&fakeScanner{name: "second", raw: []findings.RawFinding{rawB}},
		},
		Acquire: stubAcquire(t, map[string]string{"a.go": "package a\n"}),
	}

	result, err := o.Execute(context.Background(), testRepo())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.ScanID == "" {
		t.Error("expected a scan id")
	}
	if result.Repository.FullName != "octocat/hello-world" {
		t.Errorf("unexpected repository: %s", result.Repository.FullName)
	}
	if len(result.Findings) != 2 {
		t.Fatalf("expected 2 findings, got %d", len(result.Findings))
	}
	if result.Findings[0].Severity != findings.SeverityHigh {
		t.Errorf("expected high severity first, got %s", result.Findings[0].Severity)
	}
	if result.Summary.Total != 2 {
		t.Errorf("expected summary total 2, got %d", result.Summary.Total)
	}
}

func TestExecuteDeduplicatesAcrossScanners(t *testing.T) {
	raw := findings.RawFinding{RuleID: "dup", Message: "same", File: "x.go", Line: 3, Severity: "medium"}

	o := &Orchestrator{
		Scanners: []scanner.Scanner{
			&fakeScanner{name: "first", raw: []findings.RawFinding{raw}},
			&fakeScanner{name: "second", raw: []findings.RawFinding{raw}},
		},
		Acquire: stubAcquire(t, nil),
	}

	result, err := o.Execute(context.Background(), testRepo())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Findings) != 1 {
		t.Fatalf("expected 1 finding after dedupe, got %d", len(result.Findings))
	}
	if result.Findings[0].Scanner != "first" {
		t.Errorf("expected first scanner to win, got %s", result.Findings[0].Scanner)
	}
}

func TestExecuteIsolatesScannerFailures(t *testing.T) {
	raw := findings.RawFinding{RuleID: "ok", Message: "m", Severity: "info"}

	var root string
	o := &Orchestrator{
		Scanners: []scanner.Scanner{
			&fakeScanner{name: "broken", err: errors.New("exploded")},
			&fakeScanner{name: "panicky", panic: true},
			&fakeScanner{name: "healthy", raw: []findings.RawFinding{raw}},
		},
		Acquire: stubAcquireInto(t, nil, &root),
	}

	result, err := o.Execute(context.Background(), testRepo())
	if err != nil {
		t.Fatalf("expected scan to survive scanner failures, got %v", err)
	}
	if len(result.Findings) != 1 {
		t.Errorf("expected 1 finding from the healthy scanner, got %d", len(result.Findings))
	}
	if len(result.Statistics.ScannerFailures) != 2 {
		t.Fatalf("expected 2 recorded failures, got %d", len(result.Statistics.ScannerFailures))
	}
	for _, failure := range result.Statistics.ScannerFailures {
		if failure.Status != string(scanner.StatusFailed) {
			t.Errorf("expected failed status for %s, got %s", failure.Scanner, failure.Status)
		}
	}
	assertReleased(t, root)
}

func TestExecuteTimesOutSlowScanner(t *testing.T) {
	var root string
	o := &Orchestrator{
		Scanners: []scanner.Scanner{
			&fakeScanner{name: "slow", delay: time.Second},
		},
		Acquire: stubAcquireInto(t, nil, &root),
		Options: Options{ScannerTimeout: 20 * time.Millisecond},
	}

	result, err := o.Execute(context.Background(), testRepo())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Statistics.ScannerFailures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(result.Statistics.ScannerFailures))
	}
	if result.Statistics.ScannerFailures[0].Status != string(scanner.StatusTimedOut) {
		t.Errorf("expected timed_out status, got %s", result.Statistics.ScannerFailures[0].Status)
	}
	if len(result.Findings) != 0 {
		t.Errorf("expected no findings, got %d", len(result.Findings))
	}
	assertReleased(t, root)
}

func TestExecuteReleasesWorkspace(t *testing.T) {
	var root string
	acquire := func(ctx context.Context, repo github.Repo, token, ref string) (*workspace.Workspace, error) {
		dir, err := os.MkdirTemp("", "repoguard-test-")
		if err != nil {
			return nil, err
		}
		root = dir
		return workspace.Local(dir), nil
	}

	o := &Orchestrator{
		Scanners: []scanner.Scanner{&fakeScanner{name: "noop"}},
		Acquire:  acquire,
	}
	if _, err := o.Execute(context.Background(), testRepo()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := os.Stat(root); !os.IsNotExist(err) {
		t.Errorf("expected workspace %s to be removed", root)
	}
}

func TestExecuteAcquisitionFailureIsFatal(t *testing.T) {
	wantErr := &workspace.AcquisitionError{Kind: workspace.KindNotFound, Repo: "octocat/hello-world"}
	o := &Orchestrator{
		Scanners: []scanner.Scanner{&fakeScanner{name: "noop"}},
		Acquire: func(ctx context.Context, repo github.Repo, token, ref string) (*workspace.Workspace, error) {
			return nil, wantErr
		},
	}

	_, err := o.Execute(context.Background(), testRepo())
	var acqErr *workspace.AcquisitionError
	if !errors.As(err, &acqErr) {
		t.Fatalf("expected an acquisition error, got %v", err)
	}
	if acqErr.Kind != workspace.KindNotFound {
		t.Errorf("expected not_found kind, got %s", acqErr.Kind)
	}
}

func TestExecuteMissingCredentialsIsNotFatal(t *testing.T) {
	o := &Orchestrator{
		Scanners:    []scanner.Scanner{&fakeScanner{name: "noop"}},
		Credentials: &fakeCredentials{err: config.ErrNotConfigured},
		Acquire:     stubAcquire(t, nil),
	}
	if _, err := o.Execute(context.Background(), testRepo()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestExecutePassesTokenToAcquire(t *testing.T) {
	var gotToken string
	o := &Orchestrator{
		Scanners:    []scanner.Scanner{&fakeScanner{name: "noop"}},
		Credentials: &fakeCredentials{token: "ghp_example"},
		Acquire: func(ctx context.Context, repo github.Repo, token, ref string) (*workspace.Workspace, error) {
			gotToken = token
			return workspace.Local(t.TempDir()), nil
		},
	}
	if _, err := o.Execute(context.Background(), testRepo()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotToken != "ghp_example" {
		t.Errorf("expected token to reach acquisition, got %q", gotToken)
	}
}

func TestExecuteNoScanners(t *testing.T) {
	o := &Orchestrator{Acquire: stubAcquire(t, nil)}
	if _, err := o.Execute(context.Background(), testRepo()); err == nil {
		t.Error("expected error for empty scanner list, got nil")
	}
}

func TestExecuteReportsOutcomes(t *testing.T) {
	var seen []string
	o := &Orchestrator{
		Scanners: []scanner.Scanner{
			&fakeScanner{name: "first"},
			&fakeScanner{name: "second"},
		},
		Acquire:   stubAcquire(t, nil),
		OnOutcome: func(outcome scanner.Outcome) { seen = append(seen, outcome.Scanner) },
	}
	if _, err := o.Execute(context.Background(), testRepo()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seen) != 2 {
		t.Errorf("expected 2 outcome callbacks, got %d", len(seen))
	}
}
