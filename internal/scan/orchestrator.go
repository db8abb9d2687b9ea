package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/liam-witterick/repoguard/internal/config"
	"github.com/liam-witterick/repoguard/internal/findings"
	"github.com/liam-witterick/repoguard/internal/github"
	"github.com/liam-witterick/repoguard/internal/scanner"
	"github.com/liam-witterick/repoguard/internal/workspace"
)

const (
	// DefaultScannerTimeout bounds each scanner individually so one stuck
	// scanner cannot hold the whole scan hostage.
	DefaultScannerTimeout = 2 * time.Minute

	// DefaultConcurrency is how many scanners run at once.
	DefaultConcurrency = 4
)

// CredentialSource looks up stored tokens by service name.
type CredentialSource interface {
	Get(service string) (string, error)
}

// AcquireFunc obtains a workspace for a repository.
type AcquireFunc func(ctx context.Context, repo github.Repo, token, ref string) (*workspace.Workspace, error)

// Options tune a single scan run.
type Options struct {
	Ref            string
	ScannerTimeout time.Duration
	Concurrency    int
	IgnorePaths    []string
}

// Orchestrator owns a scan run end to end: workspace acquisition, the
// scanner fan-out, and result assembly. Scanner failures are isolated; only
// a failed acquisition aborts the scan.
type Orchestrator struct {
	Scanners    []scanner.Scanner
	Credentials CredentialSource
	Logger      *zerolog.Logger

	// Acquire defaults to workspace.Acquire.
	Acquire AcquireFunc

	// OnOutcome, when set, is called as each scanner finishes.
	OnOutcome func(scanner.Outcome)

	Options Options
}

// Execute scans the repository and returns the merged result. The returned
// error is non-nil only when no scan could take place at all.
func (o *Orchestrator) Execute(ctx context.Context, repo github.Repo) (*Result, error) {
	if len(o.Scanners) == 0 {
		return nil, errors.New("no scanners configured")
	}

	startedAt := time.Now().UTC()
	scanID := uuid.NewString()
	logger := o.logger()

	token, err := o.lookupToken()
	if err != nil {
		return nil, err
	}

	acquire := o.Acquire
	if acquire == nil {
		acquire = workspace.Acquire
	}

	logger.Info().Str("scan_id", scanID).Str("repo", repo.FullName()).Msg("acquiring workspace")
	ws, err := acquire(ctx, repo, token, o.Options.Ref)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := ws.Release(); releaseErr != nil {
			logger.Warn().Err(releaseErr).Msg("failed to release workspace")
		}
	}()

	outcomes := o.runScanners(ctx, ws)

	var groups []findings.ScannerFindings
	for _, outcome := range outcomes {
		if outcome.Status == scanner.StatusOK {
			groups = append(groups, findings.ScannerFindings{Scanner: outcome.Scanner, Raw: outcome.Findings})
		}
	}
	merged := findings.Merge(groups...)

	stats := collectStatistics(ws.Root(), o.Options.IgnorePaths)
	for _, outcome := range outcomes {
		stats.ScannerDurations[outcome.Scanner] = roundSeconds(outcome.Duration)
		if outcome.Status != scanner.StatusOK {
			failure := ScannerFailure{Scanner: outcome.Scanner, Status: string(outcome.Status)}
			if outcome.Err != nil {
				failure.Error = outcome.Err.Error()
			}
			stats.ScannerFailures = append(stats.ScannerFailures, failure)
		}
	}

	return &Result{
		ScanID: scanID,
		Repository: Repository{
			Owner:    repo.Owner,
			Name:     repo.Name,
			FullName: repo.FullName(),
			URL:      repo.CloneURL(),
			Ref:      o.Options.Ref,
		},
		StartedAt:  startedAt,
		FinishedAt: time.Now().UTC(),
		Findings:   merged,
		Summary:    findings.Summarize(merged),
		Statistics: stats,
	}, nil
}

// runScanners fans the scanners out over a bounded worker pool. Every
// scanner gets its own timeout and its outcome is recorded in registration
// order so downstream merging stays deterministic.
func (o *Orchestrator) runScanners(ctx context.Context, ws *workspace.Workspace) []scanner.Outcome {
	timeout := o.Options.ScannerTimeout
	if timeout <= 0 {
		timeout = DefaultScannerTimeout
	}
	concurrency := o.Options.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	logger := o.logger()
	sem := semaphore.NewWeighted(int64(concurrency))
	outcomes := make([]scanner.Outcome, len(o.Scanners))
	done := make(chan int, len(o.Scanners))

	for i, s := range o.Scanners {
		go func(i int, s scanner.Scanner) {
			defer func() { done <- i }()

			outcome := scanner.Outcome{Scanner: s.Name()}
			if err := sem.Acquire(ctx, 1); err != nil {
				outcome.Status = scanner.StatusFailed
				outcome.Err = err
				outcomes[i] = outcome
				return
			}
			defer sem.Release(1)

			start := time.Now()
			raw, err := runOne(ctx, s, ws, timeout)
			outcome.Duration = time.Since(start)

			switch {
			case err == nil:
				outcome.Status = scanner.StatusOK
				outcome.Findings = raw
				logger.Info().Str("scanner", s.Name()).Int("findings", len(raw)).Dur("took", outcome.Duration).Msg("scanner finished")
			case errors.Is(err, context.DeadlineExceeded):
				outcome.Status = scanner.StatusTimedOut
				outcome.Err = err
				logger.Warn().Str("scanner", s.Name()).Dur("took", outcome.Duration).Msg("scanner timed out")
			default:
				outcome.Status = scanner.StatusFailed
				outcome.Err = err
				logger.Warn().Str("scanner", s.Name()).Err(err).Msg("scanner failed")
			}
			outcomes[i] = outcome
		}(i, s)
	}

	for range o.Scanners {
		i := <-done
		if o.OnOutcome != nil {
			o.OnOutcome(outcomes[i])
		}
	}
	return outcomes
}

// runOne executes a single scanner under its own deadline, converting a
// panic into an error so a misbehaving scanner cannot take the process down.
func runOne(ctx context.Context, s scanner.Scanner, ws *workspace.Workspace, timeout time.Duration) (raw []findings.RawFinding, err error) {
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scanner %s panicked: %v", s.Name(), r)
		}
	}()

	raw, err = s.Run(sctx, ws)
	if err != nil && sctx.Err() != nil {
		err = sctx.Err()
	}
	return raw, err
}

func (o *Orchestrator) lookupToken() (string, error) {
	if o.Credentials == nil {
		return "", nil
	}
	token, err := o.Credentials.Get("github")
	if err != nil {
		if errors.Is(err, config.ErrNotConfigured) {
			return "", nil
		}
		return "", fmt.Errorf("failed to load credentials: %w", err)
	}
	return token, nil
}

func (o *Orchestrator) logger() *zerolog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	nop := zerolog.Nop()
	return &nop
}

func roundSeconds(d time.Duration) float64 {
	return float64(d.Round(time.Millisecond)) / float64(time.Second)
}
