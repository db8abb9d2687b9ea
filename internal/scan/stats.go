package scan

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/liam-witterick/repoguard/internal/scanner"
)

// ScannerFailure records a scanner that did not complete.
type ScannerFailure struct {
	Scanner string `json:"scanner"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

// Statistics summarises the scanned tree and how the scanners behaved.
type Statistics struct {
	FileCount        int                `json:"total_files"`
	TotalLines       int                `json:"total_lines"`
	FileTypes        map[string]int     `json:"file_types"`
	ScannerDurations map[string]float64 `json:"scanner_durations_seconds"`
	ScannerFailures  []ScannerFailure   `json:"scanner_failures,omitempty"`
}

// statsMaxFileSize caps how large a file is line-counted; bigger files are
// still counted by type.
const statsMaxFileSize = 4 << 20

// collectStatistics walks the workspace and tallies files, lines, and types.
func collectStatistics(root string, ignorePaths []string) Statistics {
	stats := Statistics{
		FileTypes:        map[string]int{},
		ScannerDurations: map[string]float64{},
	}

	ignore := scanner.NewIgnore(ignorePaths...)
	_ = scanner.WalkFiles(root, ignore, func(path, rel string, size int64) error {
		stats.FileCount++
		stats.FileTypes[fileType(rel)]++

		if size > statsMaxFileSize {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		stats.TotalLines += countLines(data)
		return nil
	})

	return stats
}

// fileType buckets a file by extension; extensionless files bucket by name.
func fileType(rel string) string {
	ext := strings.ToLower(filepath.Ext(rel))
	if ext == "" {
		return strings.ToLower(filepath.Base(rel))
	}
	return ext
}

func countLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	n := bytes.Count(data, []byte{'\n'})
	if data[len(data)-1] != '\n' {
		n++
	}
	return n
}
