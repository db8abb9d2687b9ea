// Package report renders scan results into their output formats and writes
// report files. Rendering is pure: the same result always produces the same
// bytes, so reports can be regenerated and diffed.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/liam-witterick/repoguard/internal/findings"
	"github.com/liam-witterick/repoguard/internal/scan"
)

// ErrUnsupportedFormat is returned for output formats this tool cannot
// render.
var ErrUnsupportedFormat = errors.New("unsupported report format")

// Renderer turns a scan result into report bytes.
type Renderer interface {
	Render(result *scan.Result) ([]byte, error)
	Extension() string
}

// RendererFor returns the renderer for a format name.
func RendererFor(format string) (Renderer, error) {
	switch strings.ToLower(format) {
	case "json":
		return &JSONRenderer{}, nil
	case "markdown", "md":
		return &MarkdownRenderer{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// JSONRenderer emits the result as indented JSON.
type JSONRenderer struct{}

func (r *JSONRenderer) Extension() string { return "json" }

func (r *JSONRenderer) Render(result *scan.Result) ([]byte, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return append(data, '\n'), nil
}

// MarkdownRenderer emits a human-readable report.
type MarkdownRenderer struct{}

func (r *MarkdownRenderer) Extension() string { return "md" }

func (r *MarkdownRenderer) Render(result *scan.Result) ([]byte, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "# Security Scan Report: %s\n\n", result.Repository.FullName)
	fmt.Fprintf(&b, "- **Scan ID:** `%s`\n", result.ScanID)
	fmt.Fprintf(&b, "- **Scanned:** %s\n", result.StartedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "- **Duration:** %s\n", result.Duration().Round(time.Millisecond))
	if result.Repository.Ref != "" {
		fmt.Fprintf(&b, "- **Ref:** `%s`\n", result.Repository.Ref)
	}
	if result.Repository.Language != "" {
		fmt.Fprintf(&b, "- **Language:** %s\n", result.Repository.Language)
	}
	if result.Repository.Description != "" {
		fmt.Fprintf(&b, "- **Description:** %s\n", result.Repository.Description)
	}
	b.WriteString("\n")

	writeSummary(&b, result.Summary)
	writeStatistics(&b, result.Statistics)
	writeFindings(&b, result.Findings)
	writeFailures(&b, result.Statistics.ScannerFailures)

	return []byte(b.String()), nil
}

func writeSummary(b *strings.Builder, summary findings.Summary) {
	b.WriteString("## Summary\n\n")
	b.WriteString("| Severity | Count |\n")
	b.WriteString("|----------|-------|\n")
	rows := []struct {
		severity findings.Severity
		count    int
	}{
		{findings.SeverityCritical, summary.Critical},
		{findings.SeverityHigh, summary.High},
		{findings.SeverityMedium, summary.Medium},
		{findings.SeverityLow, summary.Low},
		{findings.SeverityInfo, summary.Info},
	}
	for _, row := range rows {
		fmt.Fprintf(b, "| %s %s | %d |\n", findings.SeverityEmoji(row.severity), row.severity, row.count)
	}
	fmt.Fprintf(b, "| **Total** | **%d** |\n\n", summary.Total)
}

func writeStatistics(b *strings.Builder, stats scan.Statistics) {
	b.WriteString("## Repository Statistics\n\n")
	fmt.Fprintf(b, "- **Files scanned:** %d\n", stats.FileCount)
	fmt.Fprintf(b, "- **Total lines:** %d\n", stats.TotalLines)

	if len(stats.FileTypes) > 0 {
		b.WriteString("\n| File type | Count |\n")
		b.WriteString("|-----------|-------|\n")
		for _, ft := range topFileTypes(stats.FileTypes, 10) {
			fmt.Fprintf(b, "| `%s` | %d |\n", ft.ext, ft.count)
		}
	}
	b.WriteString("\n")
}

type fileTypeCount struct {
	ext   string
	count int
}

// topFileTypes returns the n most common file types, ordered by count then
// extension so the table is stable across runs.
func topFileTypes(types map[string]int, n int) []fileTypeCount {
	counts := make([]fileTypeCount, 0, len(types))
	for ext, count := range types {
		counts = append(counts, fileTypeCount{ext, count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].ext < counts[j].ext
	})
	if len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

func writeFindings(b *strings.Builder, all []findings.Finding) {
	b.WriteString("## Findings\n\n")
	if len(all) == 0 {
		b.WriteString("No findings.\n\n")
		return
	}

	order := []findings.Severity{
		findings.SeverityCritical,
		findings.SeverityHigh,
		findings.SeverityMedium,
		findings.SeverityLow,
		findings.SeverityInfo,
	}
	for _, severity := range order {
		var group []findings.Finding
		for _, f := range all {
			if f.Severity == severity {
				group = append(group, f)
			}
		}
		if len(group) == 0 {
			continue
		}

		fmt.Fprintf(b, "### %s %s (%d)\n\n", findings.SeverityEmoji(severity), strings.ToUpper(string(severity)), len(group))
		for _, f := range group {
			fmt.Fprintf(b, "#### %s\n\n", f.Title)
			fmt.Fprintf(b, "- **ID:** `%s`\n", f.ID)
			fmt.Fprintf(b, "- **Category:** %s\n", f.Category)
			fmt.Fprintf(b, "- **Scanner:** %s\n", f.Scanner)
			if f.FilePath != "" {
				if f.Line > 0 {
					fmt.Fprintf(b, "- **Location:** `%s:%d`\n", f.FilePath, f.Line)
				} else {
					fmt.Fprintf(b, "- **Location:** `%s`\n", f.FilePath)
				}
			}
			fmt.Fprintf(b, "\n%s\n\n", f.Description)
			if f.Recommendation != "" {
				fmt.Fprintf(b, "**Recommendation:** %s\n\n", f.Recommendation)
			} else {
				b.WriteString("_No recommendation provided._\n\n")
			}
		}
	}
}

func writeFailures(b *strings.Builder, failures []scan.ScannerFailure) {
	if len(failures) == 0 {
		return
	}
	b.WriteString("## Scanner Failures\n\n")
	b.WriteString("Results below are partial; these scanners did not complete.\n\n")
	for _, failure := range failures {
		fmt.Fprintf(b, "- **%s** (%s)", failure.Scanner, failure.Status)
		if failure.Error != "" {
			fmt.Fprintf(b, ": %s", failure.Error)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}
