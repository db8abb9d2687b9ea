package scanner

import (
	"context"
	"os"
	"path/filepath"

	"github.com/liam-witterick/repoguard/internal/findings"
	"github.com/liam-witterick/repoguard/internal/workspace"
)

// PolicyScanner checks repository hygiene: security policy and automated
// dependency updates.
type PolicyScanner struct{}

func (s *PolicyScanner) Name() string { return "policy" }

func (s *PolicyScanner) Run(ctx context.Context, ws *workspace.Workspace) ([]findings.RawFinding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	root := ws.Root()

	var raw []findings.RawFinding
	if !anyExists(root, "SECURITY.md", "SECURITY", ".github/SECURITY.md", "docs/SECURITY.md") {
		raw = append(raw, findings.RawFinding{
			RuleID:         "missing-security-policy",
			Title:          "No security policy",
			Message:        "Repository has no SECURITY.md describing how to report vulnerabilities",
			Severity:       string(findings.SeverityLow),
			Category:       "policy",
			Recommendation: "Add a SECURITY.md with a disclosure contact and supported versions.",
		})
	}

	hasManifest := anyExists(root, "requirements.txt", "package.json", "go.mod")
	hasDependabot := anyExists(root, ".github/dependabot.yml", ".github/dependabot.yaml")
	if hasManifest && !hasDependabot {
		raw = append(raw, findings.RawFinding{
			RuleID:         "missing-dependabot",
			Title:          "No automated dependency updates",
			Message:        "Dependency manifests exist but no dependabot configuration was found",
			Severity:       string(findings.SeverityInfo),
			Category:       "policy",
			Recommendation: "Add .github/dependabot.yml so vulnerable dependencies get update PRs automatically.",
		})
	}
	return raw, nil
}

func anyExists(root string, paths ...string) bool {
	for _, p := range paths {
		if info, err := os.Stat(filepath.Join(root, filepath.FromSlash(p))); err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}
