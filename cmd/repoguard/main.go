package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/cli/go-gh/v2/pkg/auth"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/liam-witterick/repoguard/internal/analysis"
	"github.com/liam-witterick/repoguard/internal/config"
	"github.com/liam-witterick/repoguard/internal/findings"
	"github.com/liam-witterick/repoguard/internal/github"
	"github.com/liam-witterick/repoguard/internal/interactive"
	"github.com/liam-witterick/repoguard/internal/progress"
	"github.com/liam-witterick/repoguard/internal/report"
	"github.com/liam-witterick/repoguard/internal/scan"
	"github.com/liam-witterick/repoguard/internal/scanner"
	"github.com/liam-witterick/repoguard/internal/workspace"
)

const version = "1.0.0"

// Exit codes for scripted callers.
const (
	exitFailure      = 1
	exitAuthRequired = 2
	exitNotFound     = 3
	exitNetwork      = 4
	exitTimeout      = 5
)

var (
	flagFormats        []string
	flagOutputDir      string
	flagRef            string
	flagTimeout        time.Duration
	flagScannerTimeout time.Duration
	flagConcurrency    int
	flagMinSeverity    string
	flagNoRemote       bool
	flagNoProgress     bool
	flagVerbose        bool

	flagService string
	flagToken   string
	flagForce   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "repoguard",
		Short:   "RepoGuard - Security scanner for GitHub repositories",
		Version: version,
		Long: `RepoGuard v` + version + ` - Security scanner for GitHub repositories

RepoGuard clones a repository into a disposable workspace, runs a set of
security scanners over it concurrently, and writes deterministic reports.

WORKFLOW:
    1. 📥 ACQUIRE  - Shallow-clone the repository into a temp workspace
    2. 🔍 SCAN     - Run the scanners concurrently, each with its own timeout
    3. 🔗 MERGE    - Normalize, deduplicate, and rank the findings
    4. 📝 REPORT   - Write JSON and Markdown reports`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	scanCmd := &cobra.Command{
		Use:   "scan OWNER/REPO",
		Short: "Scan a repository and write reports",
		Args:  cobra.ExactArgs(1),
		RunE:  runScan,
	}
	scanCmd.Flags().StringSliceVar(&flagFormats, "format", []string{"json", "markdown"}, "Report formats to write (json|markdown)")
	scanCmd.Flags().StringVar(&flagOutputDir, "output-dir", "./reports", "Directory to write reports into")
	scanCmd.Flags().StringVar(&flagRef, "ref", "", "Branch to scan instead of the default branch")
	scanCmd.Flags().DurationVar(&flagTimeout, "timeout", 10*time.Minute, "Overall scan timeout")
	scanCmd.Flags().DurationVar(&flagScannerTimeout, "scanner-timeout", 0, "Per-scanner timeout (0 uses the config or built-in default)")
	scanCmd.Flags().IntVar(&flagConcurrency, "concurrency", 0, "Scanners to run at once (0 uses the config or built-in default)")
	scanCmd.Flags().StringVar(&flagMinSeverity, "min-severity", "", "Only report findings at or above this severity")
	scanCmd.Flags().BoolVar(&flagNoRemote, "no-remote", false, "Skip delegated analysis services")
	scanCmd.Flags().BoolVar(&flagNoProgress, "no-progress", false, "Disable per-scanner progress output")
	scanCmd.Flags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Store a service token",
		RunE:  runConfig,
	}
	configCmd.Flags().StringVar(&flagService, "service", "github", "Service the token belongs to")
	configCmd.Flags().StringVar(&flagToken, "token", "", "Token value (prompted for when omitted)")
	configCmd.Flags().BoolVar(&flagForce, "force", false, "Replace an existing token without asking")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Check credentials and analysis service availability",
		RunE:  runCheck,
	}

	rootCmd.AddCommand(scanCmd, configCmd, checkCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps workspace acquisition failures onto distinct exit codes so
// scripts can tell an auth problem from a missing repository.
func exitCode(err error) int {
	var acqErr *workspace.AcquisitionError
	if errors.As(err, &acqErr) {
		switch acqErr.Kind {
		case workspace.KindAuthRequired:
			return exitAuthRequired
		case workspace.KindNotFound:
			return exitNotFound
		case workspace.KindNetworkFailure:
			return exitNetwork
		case workspace.KindTimeout:
			return exitTimeout
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return exitTimeout
	}
	return exitFailure
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

// credentialChain resolves tokens from the local store first, then falls
// back to gh's own auth for GitHub.
type credentialChain struct {
	store *config.Store
}

func (c credentialChain) Get(service string) (string, error) {
	token, err := c.store.Get(service)
	if err == nil && token != "" {
		return token, nil
	}
	if err != nil && !errors.Is(err, config.ErrNotConfigured) {
		return "", err
	}
	if service == "github" {
		if ghToken, _ := auth.TokenForHost("github.com"); ghToken != "" {
			return ghToken, nil
		}
	}
	return "", config.ErrNotConfigured
}

func runScan(cmd *cobra.Command, args []string) error {
	repo, err := github.ParseRepo(args[0])
	if err != nil {
		return err
	}
	if flagMinSeverity != "" && !findings.ValidateSeverity(flagMinSeverity) {
		return fmt.Errorf("invalid --min-severity: %s (must be critical, high, medium, low, or info)", flagMinSeverity)
	}

	logger := newLogger(flagVerbose)

	store, err := config.NewStore()
	if err != nil {
		return err
	}
	credentials := credentialChain{store: store}

	scanCfg, err := config.LoadScanConfig()
	if err != nil {
		return fmt.Errorf("failed to load scan config: %w", err)
	}

	scanners, err := buildScanners(scanCfg, store, &logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
	defer cancel()

	fmt.Printf("\n🔍 Scanning %s...\n", repo.FullName())

	tracker := progress.NewScannerTracker(len(scanners))
	bar := progress.NewTracker("🔍 Running scanners", len(scanners))
	if flagNoProgress {
		tracker.Disable()
		bar.Disable()
	}

	orchestrator := &scan.Orchestrator{
		Scanners:    scanners,
		Credentials: credentials,
		Logger:      &logger,
		Acquire: func(ctx context.Context, r github.Repo, token, ref string) (*workspace.Workspace, error) {
			spinner := progress.NewSpinner(fmt.Sprintf("📥 Cloning %s...", r.FullName()))
			if flagNoProgress {
				spinner.Disable()
			}
			defer spinner.Clear()
			return workspace.Acquire(ctx, r, token, ref)
		},
		OnOutcome: func(outcome scanner.Outcome) {
			bar.SetDescription(fmt.Sprintf("🔍 Running scanners (%s done)", outcome.Scanner))
			bar.Increment()
			reportOutcome(tracker, outcome)
		},
		Options: scan.Options{
			Ref:            flagRef,
			ScannerTimeout: resolveScannerTimeout(scanCfg),
			Concurrency:    resolveConcurrency(scanCfg),
			IgnorePaths:    scanCfg.IgnorePaths,
		},
	}

	result, err := orchestrator.Execute(ctx, repo)
	if err != nil {
		return err
	}
	bar.Finish()

	result = enrichRepository(ctx, credentials, repo, result)

	if flagMinSeverity != "" {
		result = result.FilterSeverity(findings.Severity(flagMinSeverity))
	}

	displaySummary(result)

	return writeReports(result)
}

func buildScanners(cfg *config.ScanConfig, store *config.Store, logger *zerolog.Logger) ([]scanner.Scanner, error) {
	var scanners []scanner.Scanner

	local := []scanner.Scanner{
		&scanner.PatternScanner{MaxFileSize: cfg.MaxFileSize, IgnorePaths: cfg.IgnorePaths},
		&scanner.DependencyScanner{AdvisoryFeed: cfg.AdvisoryFeed},
		&scanner.ConfigScanner{MaxFileSize: cfg.MaxFileSize, IgnorePaths: cfg.IgnorePaths},
		&scanner.PolicyScanner{},
	}
	for _, s := range local {
		if cfg.IsDisabled(s.Name()) {
			continue
		}
		scanners = append(scanners, s)
	}

	if !flagNoRemote {
		for _, svc := range cfg.Services {
			if cfg.IsDisabled(svc.Name) {
				continue
			}
			secret, err := store.Get(svc.Name)
			if err != nil && !errors.Is(err, config.ErrNotConfigured) {
				return nil, err
			}
			scanners = append(scanners, &scanner.RemoteScanner{
				Client: &analysis.Client{
					Name:    svc.Name,
					Command: svc.Command,
					Args:    svc.Args,
					Secret:  secret,
					Logger:  logger,
				},
				Query: svc.Query,
			})
		}
	}

	if len(scanners) == 0 {
		return nil, fmt.Errorf("all scanners are disabled")
	}
	return scanners, nil
}

func resolveScannerTimeout(cfg *config.ScanConfig) time.Duration {
	if flagScannerTimeout > 0 {
		return flagScannerTimeout
	}
	return cfg.Timeout()
}

func resolveConcurrency(cfg *config.ScanConfig) int {
	if flagConcurrency > 0 {
		return flagConcurrency
	}
	return cfg.Concurrency
}

func reportOutcome(tracker *progress.ScannerTracker, outcome scanner.Outcome) {
	switch outcome.Status {
	case scanner.StatusOK:
		tracker.Complete(outcome.Scanner, len(outcome.Findings))
	case scanner.StatusTimedOut:
		tracker.TimeOut(outcome.Scanner)
	default:
		tracker.Fail(outcome.Scanner, outcome.Err)
	}
}

// enrichRepository returns the result amended with repository metadata from
// the GitHub API. Metadata is decoration; a scan succeeds without it.
func enrichRepository(ctx context.Context, credentials credentialChain, repo github.Repo, result *scan.Result) *scan.Result {
	token, err := credentials.Get("github")
	if err != nil && !errors.Is(err, config.ErrNotConfigured) {
		return result
	}

	client, err := github.NewClient(token)
	if err != nil {
		return result
	}
	info, err := client.FetchInfo(ctx, repo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  Warning: failed to fetch repository metadata: %v\n", err)
		return result
	}

	meta := result.Repository
	meta.Description = info.Description
	meta.Language = info.Language
	meta.DefaultBranch = info.DefaultBranch
	meta.Stars = info.Stars
	meta.Private = info.Private
	return result.WithRepository(meta)
}

func displaySummary(result *scan.Result) {
	fmt.Println()
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("📊 SCAN SUMMARY: %s\n", result.Repository.FullName)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()
	fmt.Printf("   Scan ID:  %s\n", result.ScanID)
	fmt.Printf("   Files:    %d (%d lines)\n", result.Statistics.FileCount, result.Statistics.TotalLines)
	fmt.Printf("   Duration: %s\n", result.Duration().Round(time.Millisecond))
	fmt.Println()

	rows := []struct {
		severity findings.Severity
		count    int
	}{
		{findings.SeverityCritical, result.Summary.Critical},
		{findings.SeverityHigh, result.Summary.High},
		{findings.SeverityMedium, result.Summary.Medium},
		{findings.SeverityLow, result.Summary.Low},
		{findings.SeverityInfo, result.Summary.Info},
	}
	for _, row := range rows {
		fmt.Printf("   %s %-8s %d\n", findings.SeverityEmoji(row.severity), row.severity, row.count)
	}
	fmt.Printf("\n   Total: %d finding(s)\n", result.Summary.Total)

	if len(result.Statistics.ScannerFailures) > 0 {
		fmt.Println()
		fmt.Printf("⚠️  %d scanner(s) did not complete; results are partial:\n", len(result.Statistics.ScannerFailures))
		for _, failure := range result.Statistics.ScannerFailures {
			fmt.Printf("   - %s (%s)\n", failure.Scanner, failure.Status)
		}
	}
}

// writeReports renders and writes each requested format. A failing format is
// reported and skipped so the remaining formats still get written.
func writeReports(result *scan.Result) error {
	fmt.Println()
	wrote := 0
	for _, format := range flagFormats {
		renderer, err := report.RendererFor(format)
		if err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  Warning: %v\n", err)
			continue
		}
		payload, err := renderer.Render(result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  Warning: failed to render %s report: %v\n", format, err)
			continue
		}
		path, err := report.Write(flagOutputDir, result.ScanID, renderer.Extension(), payload)
		if err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  Warning: %v\n", err)
			continue
		}
		fmt.Printf("📝 Report written: %s\n", path)
		wrote++
	}

	if wrote == 0 && len(flagFormats) > 0 {
		return fmt.Errorf("no reports could be written")
	}
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	service := strings.TrimSpace(strings.ToLower(flagService))
	if service == "" {
		return fmt.Errorf("--service must not be empty")
	}

	store, err := config.NewStore()
	if err != nil {
		return err
	}

	if _, err := store.Get(service); err == nil && !flagForce {
		ok, err := interactive.Confirm(fmt.Sprintf("A token for %s is already stored. Replace it?", service))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("❌ Cancelled")
			return nil
		}
	}

	token := flagToken
	if token == "" {
		var err error
		token, err = interactive.PromptSecret(fmt.Sprintf("Enter %s token: ", service))
		if err != nil {
			return err
		}
	}
	if token == "" {
		return fmt.Errorf("no token provided")
	}

	if service == "github" {
		fmt.Println("🔍 Validating token...")
		client, err := github.NewClient(token)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		if err := client.ValidateToken(ctx); err != nil {
			return err
		}
	}

	if err := store.Set(service, token); err != nil {
		return err
	}

	fmt.Printf("✅ Token stored for %s\n", service)
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	fmt.Println("\n🔍 Checking configuration...")
	fmt.Println()

	allOK := true

	store, err := config.NewStore()
	if err != nil {
		return err
	}

	if token, err := (credentialChain{store: store}).Get("github"); err == nil && token != "" {
		fmt.Println("   ✅ github token available")
	} else {
		fmt.Println("   ❌ github token missing (run: repoguard config)")
		allOK = false
	}

	scanCfg, err := config.LoadScanConfig()
	if err != nil {
		fmt.Printf("   ⚠️  Warning: failed to load scan config: %v\n", err)
		scanCfg = &config.ScanConfig{}
	}

	fmt.Println()
	fmt.Println("🔍 Analysis services:")
	if len(scanCfg.Services) == 0 {
		fmt.Println("   ⏭️  none configured")
	}
	for _, svc := range scanCfg.Services {
		if _, err := exec.LookPath(svc.Command); err == nil {
			fmt.Printf("   ✅ %s (%s)\n", svc.Name, svc.Command)
		} else {
			fmt.Printf("   ⏭️  %s (%s not installed - will fail at scan time)\n", svc.Name, svc.Command)
		}
	}

	fmt.Println()
	if !allOK {
		return fmt.Errorf("configuration is incomplete")
	}
	fmt.Println("✅ Ready to scan")
	return nil
}
