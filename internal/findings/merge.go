package findings

import "sort"

// ScannerFindings is one scanner's raw output, tagged with its name for
// provenance.
type ScannerFindings struct {
	Scanner string
	Raw     []RawFinding
}

// Merge normalizes each scanner's raw findings and combines them into one
// deduplicated, deterministically ordered list. When two scanners report the
// same issue (same fingerprint), the first occurrence wins and keeps its
// scanner for provenance.
func Merge(groups ...ScannerFindings) []Finding {
	seen := make(map[string]bool)
	merged := []Finding{}

	for _, group := range groups {
		for _, raw := range group.Raw {
			finding := Normalize(raw, group.Scanner)
			if seen[finding.ID] {
				continue
			}
			seen[finding.ID] = true
			merged = append(merged, finding)
		}
	}

	Sort(merged)
	return merged
}

// Sort orders findings severity-descending, then by file path, then by line.
// The order is independent of which scanner finished first, so rendered
// reports are byte-identical across repeated runs.
func Sort(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Severity.Weight() != b.Severity.Weight() {
			return a.Severity.Weight() > b.Severity.Weight()
		}
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.ID < b.ID
	})
}

// FilterBySeverity returns only findings at or above the given severity.
func FilterBySeverity(findings []Finding, min Severity) []Finding {
	if min == "" || min == SeverityInfo {
		return findings
	}
	if !ValidateSeverity(string(min)) {
		return findings
	}

	filtered := make([]Finding, 0, len(findings))
	for _, f := range findings {
		if f.Severity.Weight() >= min.Weight() {
			filtered = append(filtered, f)
		}
	}
	return filtered
}
