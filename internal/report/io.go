package report

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// WriteErrorKind classifies why a report could not be written.
type WriteErrorKind string

const (
	WriteKindPermission  WriteErrorKind = "permission_denied"
	WriteKindDiskFull    WriteErrorKind = "disk_full"
	WriteKindInvalidPath WriteErrorKind = "invalid_path"
	WriteKindOther       WriteErrorKind = "io_error"
)

// WriteError wraps a failed report write with its classification.
type WriteError struct {
	Kind WriteErrorKind
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write report to %s (%s): %v", e.Path, e.Kind, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Write stores rendered report bytes under dir as {scanID}-report.{ext} and
// returns the path written.
func Write(dir, scanID, ext string, payload []byte) (string, error) {
	if strings.TrimSpace(scanID) == "" {
		return "", &WriteError{Kind: WriteKindInvalidPath, Path: dir, Err: errors.New("empty scan id")}
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", &WriteError{Kind: classifyWrite(err), Path: dir, Err: err}
	}

	path := filepath.Join(dir, fmt.Sprintf("%s-report.%s", scanID, ext))
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return "", &WriteError{Kind: classifyWrite(err), Path: path, Err: err}
	}
	return path, nil
}

func classifyWrite(err error) WriteErrorKind {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return WriteKindPermission
	case errors.Is(err, syscall.ENOSPC):
		return WriteKindDiskFull
	case errors.Is(err, fs.ErrInvalid) || errors.Is(err, syscall.ENOTDIR) || errors.Is(err, syscall.ENAMETOOLONG):
		return WriteKindInvalidPath
	default:
		return WriteKindOther
	}
}
