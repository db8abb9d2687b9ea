package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/liam-witterick/repoguard/internal/github"
)

// ErrorKind classifies why a workspace could not be acquired.
type ErrorKind string

const (
	KindNotFound       ErrorKind = "not_found"
	KindAuthRequired   ErrorKind = "auth_required"
	KindNetworkFailure ErrorKind = "network_failure"
	KindTimeout        ErrorKind = "timeout"
)

// AcquisitionError is the scan-fatal error returned when a repository
// checkout cannot be obtained.
type AcquisitionError struct {
	Kind ErrorKind
	Repo string
	Err  error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("failed to acquire %s (%s): %v", e.Repo, e.Kind, e.Err)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

// Workspace is a disposable checkout of a repository. It is owned by exactly
// one scan and removed when that scan finishes, whatever the outcome.
type Workspace struct {
	root      string
	CreatedAt time.Time

	releaseOnce sync.Once
	releaseErr  error
}

// Root returns the directory holding the checkout. Scanners must treat it as
// read-only.
func (w *Workspace) Root() string {
	return w.root
}

// Release removes the workspace directory. It is safe to call more than
// once; only the first call does work.
func (w *Workspace) Release() error {
	w.releaseOnce.Do(func() {
		w.releaseErr = os.RemoveAll(w.root)
	})
	return w.releaseErr
}

// Local wraps an existing directory as a workspace. Release still removes
// the directory, so callers keep ownership semantics identical to Acquire.
func Local(root string) *Workspace {
	return &Workspace{root: root, CreatedAt: time.Now().UTC()}
}

// Acquire clones the repository's default branch (or ref, when given) into a
// fresh temporary directory. A shallow clone keeps acquisition fast; the
// scan only ever needs the working tree tip. No partial directory is left
// behind on failure.
func Acquire(ctx context.Context, repo github.Repo, token, ref string) (*Workspace, error) {
	dir, err := os.MkdirTemp("", "repoguard-")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace directory: %w", err)
	}

	opts := &git.CloneOptions{
		URL:          repo.CloneURL(),
		Depth:        1,
		SingleBranch: true,
		Tags:         git.NoTags,
	}
	if ref != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(ref)
	}
	if token != "" {
		// GitHub accepts any username when a token is supplied as password.
		opts.Auth = &githttp.BasicAuth{Username: "x-access-token", Password: token}
	}

	if _, err := git.PlainCloneContext(ctx, dir, false, opts); err != nil {
		os.RemoveAll(dir)
		return nil, &AcquisitionError{Kind: classify(ctx, err), Repo: repo.FullName(), Err: err}
	}

	return &Workspace{root: dir, CreatedAt: time.Now().UTC()}, nil
}

func classify(ctx context.Context, err error) ErrorKind {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, transport.ErrAuthenticationRequired) || errors.Is(err, transport.ErrAuthorizationFailed):
		return KindAuthRequired
	case errors.Is(err, transport.ErrRepositoryNotFound):
		return KindNotFound
	default:
		return KindNetworkFailure
	}
}
