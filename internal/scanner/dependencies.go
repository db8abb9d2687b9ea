package scanner

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/liam-witterick/repoguard/internal/findings"
	"github.com/liam-witterick/repoguard/internal/workspace"
)

//go:embed advisories.yaml
var embeddedAdvisories []byte

// Advisory describes a known-vulnerable exact version of a package.
type Advisory struct {
	Ecosystem string `yaml:"ecosystem"`
	Package   string `yaml:"package"`
	Version   string `yaml:"version"`
	ID        string `yaml:"id"`
	Severity  string `yaml:"severity"`
	Summary   string `yaml:"summary"`
}

type advisoryFeed struct {
	Advisories []Advisory `yaml:"advisories"`
}

// LoadAdvisories parses the advisory feed at path, or the embedded feed when
// path is empty.
func LoadAdvisories(path string) ([]Advisory, error) {
	data := embeddedAdvisories
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read advisory feed: %w", err)
		}
	}
	var feed advisoryFeed
	if err := yaml.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("failed to parse advisory feed: %w", err)
	}
	return feed.Advisories, nil
}

// dependency is one declared package pulled out of a manifest.
type dependency struct {
	Name    string
	Version string
	Line    int
}

// DependencyScanner reads dependency manifests and flags versions that match
// the advisory feed.
type DependencyScanner struct {
	// AdvisoryFeed optionally overrides the embedded feed with a local file.
	AdvisoryFeed string
}

func (s *DependencyScanner) Name() string { return "dependencies" }

func (s *DependencyScanner) Run(ctx context.Context, ws *workspace.Workspace) ([]findings.RawFinding, error) {
	advisories, err := LoadAdvisories(s.AdvisoryFeed)
	if err != nil {
		return nil, err
	}

	index := make(map[string]Advisory, len(advisories))
	for _, adv := range advisories {
		index[adv.Ecosystem+"|"+adv.Package+"|"+adv.Version] = adv
	}

	manifests := []struct {
		file      string
		ecosystem string
		parse     func(data []byte) []dependency
	}{
		{"requirements.txt", "pypi", parseRequirements},
		{"package.json", "npm", parsePackageJSON},
		{"go.mod", "gomod", parseGoMod},
	}

	var raw []findings.RawFinding
	for _, m := range manifests {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.Join(ws.Root(), m.file))
		if err != nil {
			continue
		}

		deps := m.parse(data)
		raw = append(raw, findings.RawFinding{
			RuleID:   "ecosystem-" + m.ecosystem,
			Title:    fmt.Sprintf("%s manifest detected", m.file),
			Message:  fmt.Sprintf("%s declares %d dependencies", m.file, len(deps)),
			File:     m.file,
			Severity: string(findings.SeverityInfo),
			Category: "dependencies",
		})

		for _, dep := range deps {
			adv, ok := index[m.ecosystem+"|"+strings.ToLower(dep.Name)+"|"+dep.Version]
			if !ok {
				continue
			}
			raw = append(raw, findings.RawFinding{
				RuleID:         "vulnerable-dependency",
				Title:          fmt.Sprintf("Vulnerable dependency %s %s", dep.Name, dep.Version),
				Message:        fmt.Sprintf("%s: %s", adv.ID, adv.Summary),
				File:           m.file,
				Line:           dep.Line,
				Severity:       adv.Severity,
				Category:       "dependencies",
				Recommendation: fmt.Sprintf("Upgrade %s to a version not affected by %s.", dep.Name, adv.ID),
			})
		}
	}
	return raw, nil
}

// parseRequirements handles pinned "package==version" lines; ranges and
// editable installs are skipped.
func parseRequirements(data []byte) []dependency {
	var deps []dependency
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		name, version, ok := strings.Cut(line, "==")
		if !ok {
			continue
		}
		if idx := strings.IndexAny(version, " ;#"); idx >= 0 {
			version = version[:idx]
		}
		deps = append(deps, dependency{
			Name:    strings.ToLower(strings.TrimSpace(name)),
			Version: strings.TrimSpace(version),
			Line:    i + 1,
		})
	}
	return deps
}

func parsePackageJSON(data []byte) []dependency {
	var manifest struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil
	}

	var deps []dependency
	for _, section := range []map[string]string{manifest.Dependencies, manifest.DevDependencies} {
		for name, version := range section {
			version = strings.TrimLeft(version, "^~=v")
			deps = append(deps, dependency{Name: strings.ToLower(name), Version: version})
		}
	}
	return deps
}

func parseGoMod(data []byte) []dependency {
	var deps []dependency
	inBlock := false
	for i, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "require (":
			inBlock = true
			continue
		case inBlock && trimmed == ")":
			inBlock = false
			continue
		}

		fields := strings.Fields(trimmed)
		if inBlock && len(fields) >= 2 {
			deps = append(deps, dependency{Name: fields[0], Version: fields[1], Line: i + 1})
		} else if len(fields) >= 3 && fields[0] == "require" {
			deps = append(deps, dependency{Name: fields[1], Version: fields[2], Line: i + 1})
		}
	}
	return deps
}
