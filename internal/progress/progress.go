package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Tracker manages progress display for long-running scan operations
type Tracker struct {
	bar     *progressbar.ProgressBar
	total   int
	current int
	mu      sync.Mutex
	enabled bool
}

// NewTracker creates a new progress tracker
func NewTracker(description string, total int) *Tracker {
	if total <= 0 {
		total = 1
	}

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionEnableColorCodes(true),
	)

	return &Tracker{
		bar:     bar,
		total:   total,
		current: 0,
		enabled: true,
	}
}

// NewSpinner creates a spinner for indeterminate progress
func NewSpinner(description string) *Tracker {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(10),
		progressbar.OptionThrottle(100),
		progressbar.OptionEnableColorCodes(true),
	)

	return &Tracker{
		bar:     bar,
		enabled: true,
	}
}

// Increment increments the progress by one step
func (t *Tracker) Increment() {
	if !t.enabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.current++
	t.bar.Add(1)
}

// SetDescription updates the progress description
func (t *Tracker) SetDescription(desc string) {
	if !t.enabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.bar.Describe(desc)
}

// Finish completes the progress bar
func (t *Tracker) Finish() {
	if !t.enabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current < t.total {
		t.bar.Add(t.total - t.current)
	}
	t.bar.Finish()
	fmt.Fprintln(os.Stderr)
}

// Clear clears the progress bar from the terminal
func (t *Tracker) Clear() {
	if !t.enabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.bar.Clear()
}

// Disable disables progress tracking (useful for testing or non-TTY)
func (t *Tracker) Disable() {
	t.enabled = false
	if t.bar != nil {
		t.bar.Clear()
	}
}

// ScannerTracker tracks completion across the scanners in a scan
type ScannerTracker struct {
	total   int
	done    int
	mu      sync.Mutex
	output  io.Writer
	enabled bool
}

// NewScannerTracker creates a tracker for a scan's scanner fan-out
func NewScannerTracker(total int) *ScannerTracker {
	return &ScannerTracker{
		total:   total,
		output:  os.Stderr,
		enabled: true,
	}
}

// Complete marks a scanner as finished successfully
func (st *ScannerTracker) Complete(name string, count int) {
	if !st.enabled {
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	st.done++
	fmt.Fprintf(st.output, "   ✅ [%d/%d] %s: %d finding(s)\n", st.done, st.total, name, count)
}

// TimeOut marks a scanner as having hit its deadline
func (st *ScannerTracker) TimeOut(name string) {
	if !st.enabled {
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	st.done++
	fmt.Fprintf(st.output, "   ⏱️  [%d/%d] %s: timed out\n", st.done, st.total, name)
}

// Fail marks a scanner as failed
func (st *ScannerTracker) Fail(name string, err error) {
	if !st.enabled {
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	st.done++
	fmt.Fprintf(st.output, "   ❌ [%d/%d] %s: failed (%v)\n", st.done, st.total, name, err)
}

// Disable silences the tracker (useful for testing or non-TTY)
func (st *ScannerTracker) Disable() {
	st.enabled = false
}
