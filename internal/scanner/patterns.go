package scanner

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/liam-witterick/repoguard/internal/findings"
	"github.com/liam-witterick/repoguard/internal/workspace"
)

// DefaultMaxFileSize is the largest file the pattern scanner will read.
const DefaultMaxFileSize = 1 << 20

// PatternRule matches a single class of dangerous content in source files.
type PatternRule struct {
	ID             string
	Title          string
	Severity       findings.Severity
	Category       string
	Pattern        *regexp.Regexp
	Recommendation string
}

var defaultPatternRules = []PatternRule{
	{
		ID:             "aws-access-key-id",
		Title:          "AWS access key ID",
		Severity:       findings.SeverityCritical,
		Category:       "secrets",
		Pattern:        regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),
		Recommendation: "Revoke the key in the AWS console and load credentials from the environment or a secrets manager.",
	},
	{
		ID:             "github-token",
		Title:          "GitHub token",
		Severity:       findings.SeverityCritical,
		Category:       "secrets",
		Pattern:        regexp.MustCompile(`\bgh[pousr]_[0-9A-Za-z]{36}\b`),
		Recommendation: "Revoke the token in GitHub settings and use a credential helper instead of committing it.",
	},
	{
		ID:             "private-key-block",
		Title:          "Private key material",
		Severity:       findings.SeverityCritical,
		Category:       "secrets",
		Pattern:        regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY-----`),
		Recommendation: "Remove the key from the repository, rotate it, and store keys outside version control.",
	},
	{
		ID:             "hardcoded-password",
		Title:          "Hardcoded password",
		Severity:       findings.SeverityHigh,
		Category:       "secrets",
		Pattern:        regexp.MustCompile(`(?i)\b(password|passwd|pwd)["']?\s*[:=]\s*["'][^"']{4,}["']`),
		Recommendation: "Move the credential into an environment variable or a secrets manager and rotate it.",
	},
	{
		ID:             "hardcoded-secret",
		Title:          "Hardcoded secret or API key",
		Severity:       findings.SeverityHigh,
		Category:       "secrets",
		Pattern:        regexp.MustCompile(`(?i)\b(secret|api[_-]?key|auth[_-]?token|access[_-]?token)["']?\s*[:=]\s*["'][^"']{8,}["']`),
		Recommendation: "Move the secret into an environment variable or a secrets manager and rotate it.",
	},
	{
		ID:             "insecure-url",
		Title:          "Unencrypted HTTP URL",
		Severity:       findings.SeverityLow,
		Category:       "transport",
		Pattern:        regexp.MustCompile(`http://[^\s"'<>)]+`),
		Recommendation: "Use https:// for any endpoint reachable outside the local machine.",
	},
	{
		ID:             "weak-hash",
		Title:          "Weak hash algorithm",
		Severity:       findings.SeverityMedium,
		Category:       "crypto",
		Pattern:        regexp.MustCompile(`(?i)\b(md5|sha1)\s*\(`),
		Recommendation: "Use SHA-256 or stronger for anything security sensitive.",
	},
	{
		ID:             "tls-skip-verify",
		Title:          "TLS certificate verification disabled",
		Severity:       findings.SeverityHigh,
		Category:       "transport",
		Pattern:        regexp.MustCompile(`InsecureSkipVerify\s*:\s*true`),
		Recommendation: "Verify server certificates; pin or install the expected CA instead of disabling checks.",
	},
}

// PatternScanner greps source files line by line for secret and insecure
// coding patterns.
type PatternScanner struct {
	Rules       []PatternRule
	MaxFileSize int64
	IgnorePaths []string
}

func (s *PatternScanner) Name() string { return "patterns" }

func (s *PatternScanner) Run(ctx context.Context, ws *workspace.Workspace) ([]findings.RawFinding, error) {
	rules := s.Rules
	if rules == nil {
		rules = defaultPatternRules
	}
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

		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		if looksBinary(data) {
			return nil
		}

		raw = append(raw, scanLines(rules, rel, data)...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pattern scan failed: %w", err)
	}
	return raw, nil
}

func scanLines(rules []PatternRule, rel string, data []byte) []findings.RawFinding {
	var raw []findings.RawFinding
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		for _, rule := range rules {
			match := rule.Pattern.FindString(line)
			if match == "" {
				continue
			}
			if rule.ID == "insecure-url" && isLocalURL(match) {
				continue
			}
			raw = append(raw, findings.RawFinding{
				RuleID:         rule.ID,
				Title:          rule.Title,
				Message:        fmt.Sprintf("%s detected in %s", rule.Title, rel),
				File:           rel,
				Line:           lineNo,
				Severity:       string(rule.Severity),
				Category:       rule.Category,
				Recommendation: rule.Recommendation,
			})
		}
	}
	return raw
}

// isLocalURL reports whether an http:// match points at the local machine.
func isLocalURL(url string) bool {
	host := strings.TrimPrefix(url, "http://")
	return strings.HasPrefix(host, "localhost") ||
		strings.HasPrefix(host, "127.") ||
		strings.HasPrefix(host, "0.0.0.0") ||
		strings.HasPrefix(host, "[::1]")
}

// looksBinary sniffs the first kilobyte for NUL bytes.
func looksBinary(data []byte) bool {
	n := len(data)
	if n > 1024 {
		n = 1024
	}
	return bytes.IndexByte(data[:n], 0) >= 0
}
