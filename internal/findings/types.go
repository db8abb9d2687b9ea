package findings

import (
	"crypto/md5"
	"fmt"
	"strings"
)

// Severity is the canonical five-level severity scale.
type Severity string

// Severity levels, highest first.
const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Weight returns a sortable rank for the severity. Higher is more severe.
func (s Severity) Weight() int {
	switch s {
	case SeverityCritical:
		return 5
	case SeverityHigh:
		return 4
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 2
	case SeverityInfo:
		return 1
	}
	return 0
}

// ValidateSeverity checks if a severity string is one of the canonical levels.
func ValidateSeverity(severity string) bool {
	switch Severity(severity) {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return true
	}
	return false
}

// NormalizeSeverity maps a scanner's free-form severity string onto the
// canonical scale. Unrecognized values map to info.
func NormalizeSeverity(raw string) Severity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "critical", "crit", "fatal":
		return SeverityCritical
	case "high", "error", "severe":
		return SeverityHigh
	case "medium", "moderate", "warning", "warn":
		return SeverityMedium
	case "low", "minor":
		return SeverityLow
	default:
		return SeverityInfo
	}
}

// RawFinding is a scanner-local result before normalization. Scanners fill
// whichever fields they have; the merge step does the rest.
type RawFinding struct {
	RuleID         string
	Title          string
	Message        string
	File           string
	Line           int
	Severity       string
	Category       string
	Recommendation string
}

// Finding is a normalized, deduplicated result unit. Findings are immutable
// once created.
type Finding struct {
	ID             string   `json:"id"`
	Severity       Severity `json:"severity"`
	Category       string   `json:"category"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	FilePath       string   `json:"file_path,omitempty"`
	Line           int      `json:"line,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
	Scanner        string   `json:"scanner"`
}

// Fingerprint generates the stable finding ID from the fields that identify
// an issue. The same inputs always produce the same ID, so repeated scans of
// an unchanged repository dedupe to identical findings.
// Note: MD5 is used for short non-cryptographic identifiers only.
func Fingerprint(rule, file string, line int, message string) string {
	hash := md5.Sum([]byte(fmt.Sprintf("%s|%s|%d|%s", rule, file, line, message)))
	return fmt.Sprintf("%x", hash[:6])
}

// Normalize converts a scanner's raw finding into the canonical form,
// recording the scanner name for provenance.
func Normalize(raw RawFinding, scannerName string) Finding {
	title := raw.Title
	if title == "" {
		title = raw.RuleID
	}

	category := raw.Category
	if category == "" {
		category = scannerName
	}

	return Finding{
		ID:             Fingerprint(raw.RuleID, raw.File, raw.Line, raw.Message),
		Severity:       NormalizeSeverity(raw.Severity),
		Category:       category,
		Title:          title,
		Description:    raw.Message,
		FilePath:       raw.File,
		Line:           raw.Line,
		Recommendation: raw.Recommendation,
		Scanner:        scannerName,
	}
}

// Summary holds per-severity finding counts.
type Summary struct {
	Total    int `json:"total"`
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Info     int `json:"info"`
}

// Summarize counts findings per severity level.
func Summarize(findings []Finding) Summary {
	s := Summary{Total: len(findings)}
	for _, f := range findings {
		switch f.Severity {
		case SeverityCritical:
			s.Critical++
		case SeverityHigh:
			s.High++
		case SeverityMedium:
			s.Medium++
		case SeverityLow:
			s.Low++
		case SeverityInfo:
			s.Info++
		}
	}
	return s
}

// SeverityEmoji returns the emoji used when displaying a severity level.
func SeverityEmoji(severity Severity) string {
	switch severity {
	case SeverityCritical:
		return "🟣"
	case SeverityHigh:
		return "🔴"
	case SeverityMedium:
		return "🟡"
	case SeverityLow:
		return "🟢"
	default:
		return "⚪"
	}
}
