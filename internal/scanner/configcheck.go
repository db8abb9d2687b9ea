package scanner

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/liam-witterick/repoguard/internal/findings"
	"github.com/liam-witterick/repoguard/internal/workspace"
)

// configExtensions are the file types the configuration scanner inspects.
var configExtensions = map[string]bool{
	".yaml":       true,
	".yml":        true,
	".json":       true,
	".toml":       true,
	".ini":        true,
	".cfg":        true,
	".conf":       true,
	".env":        true,
	".properties": true,
}

type configRule struct {
	ID             string
	Title          string
	Severity       findings.Severity
	Pattern        *regexp.Regexp
	Recommendation string
}

var defaultConfigRules = []configRule{
	{
		ID:             "tls-verify-disabled",
		Title:          "TLS verification disabled",
		Severity:       findings.SeverityHigh,
		Pattern:        regexp.MustCompile(`(?i)\b(verify[_-]?ssl|ssl[_-]?verify|tls[_-]?verify|verify)\s*[:=]\s*(false|no|0)\b`),
		Recommendation: "Enable certificate verification; disabling it exposes traffic to interception.",
	},
	{
		ID:             "wildcard-cors",
		Title:          "Wildcard CORS origin",
		Severity:       findings.SeverityMedium,
		Pattern:        regexp.MustCompile(`(?i)\b(cors[_-]?origins?|allowed[_-]?origins?|access-control-allow-origin)\s*[:=]\s*["']?\*`),
		Recommendation: "List the origins that actually need access instead of allowing every site.",
	},
	{
		ID:             "debug-enabled",
		Title:          "Debug mode enabled",
		Severity:       findings.SeverityMedium,
		Pattern:        regexp.MustCompile(`(?i)\bdebug\s*[:=]\s*(true|yes|1|on)\b`),
		Recommendation: "Disable debug mode outside local development; it can leak stack traces and secrets.",
	},
	{
		ID:             "bind-all-interfaces",
		Title:          "Service bound to all interfaces",
		Severity:       findings.SeverityLow,
		Pattern:        regexp.MustCompile(`(?i)\b(host|bind|listen|address)\s*[:=]\s*["']?0\.0\.0\.0`),
		Recommendation: "Bind to a specific interface unless the service genuinely needs to be reachable everywhere.",
	},
}

// ConfigScanner applies line rules to configuration files.
type ConfigScanner struct {
	MaxFileSize int64
	IgnorePaths []string
}

func (s *ConfigScanner) Name() string { return "config" }

func (s *ConfigScanner) Run(ctx context.Context, ws *workspace.Workspace) ([]findings.RawFinding, error) {
	maxSize := s.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	ignore := NewIgnore(s.IgnorePaths...)

	var raw []findings.RawFinding
	err := WalkFiles(ws.Root(), ignore, func(path, rel string, size int64) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if size > maxSize {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(rel))
		if !configExtensions[ext] && filepath.Base(rel) != ".env" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil || looksBinary(data) {
			return nil
		}

		sc := bufio.NewScanner(bytes.NewReader(data))
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		lineNo := 0
		for sc.Scan() {
			lineNo++
			line := sc.Text()
			for _, rule := range defaultConfigRules {
				if !rule.Pattern.MatchString(line) {
					continue
				}
				raw = append(raw, findings.RawFinding{
					RuleID:         rule.ID,
					Title:          rule.Title,
					Message:        fmt.Sprintf("%s in %s", rule.Title, rel),
					File:           rel,
					Line:           lineNo,
					Severity:       string(rule.Severity),
					Category:       "configuration",
					Recommendation: rule.Recommendation,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("configuration scan failed: %w", err)
	}
	return raw, nil
}
