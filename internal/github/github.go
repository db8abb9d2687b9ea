package github

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cli/go-gh/v2/pkg/api"
)

// Repo identifies a GitHub repository.
type Repo struct {
	Owner string
	Name  string
}

// FullName returns "owner/name".
func (r Repo) FullName() string {
	return r.Owner + "/" + r.Name
}

// CloneURL returns the HTTPS clone URL for the repository.
func (r Repo) CloneURL() string {
	return fmt.Sprintf("https://github.com/%s/%s.git", r.Owner, r.Name)
}

// ParseRepo extracts owner and name from the supported repository forms:
// owner/repo, https://github.com/owner/repo[.git], git@github.com:owner/repo[.git].
func ParseRepo(spec string) (Repo, error) {
	s := strings.TrimSpace(spec)

	s = strings.TrimPrefix(s, "git@github.com:")
	s = strings.TrimPrefix(s, "https://github.com/")
	s = strings.TrimPrefix(s, "http://github.com/")
	s = strings.TrimSuffix(s, ".git")
	s = strings.Trim(s, "/")

	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Repo{}, fmt.Errorf("invalid repository %q (expected owner/repo or a GitHub URL)", spec)
	}

	return Repo{Owner: parts[0], Name: parts[1]}, nil
}

// Info is the repository metadata shown in report headers.
type Info struct {
	FullName      string `json:"full_name"`
	Description   string `json:"description,omitempty"`
	Language      string `json:"language,omitempty"`
	DefaultBranch string `json:"default_branch,omitempty"`
	CloneURL      string `json:"clone_url"`
	Stars         int    `json:"stars"`
	Forks         int    `json:"forks"`
	Private       bool   `json:"private"`
}

// Client wraps the GitHub REST API for repository metadata.
type Client struct {
	rest *api.RESTClient
}

// NewClient creates a GitHub API client authenticated with the given token.
// An empty token is allowed; public repositories remain accessible.
func NewClient(token string) (*Client, error) {
	opts := api.ClientOptions{
		AuthToken: token,
		Timeout:   30 * time.Second,
	}

	rest, err := api.NewRESTClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub API client: %w", err)
	}

	return &Client{rest: rest}, nil
}

// FetchInfo retrieves repository metadata. Callers treat failure as
// non-fatal: a scan can proceed with an empty header.
func (c *Client) FetchInfo(ctx context.Context, repo Repo) (Info, error) {
	var resp struct {
		FullName      string `json:"full_name"`
		Description   string `json:"description"`
		Language      string `json:"language"`
		DefaultBranch string `json:"default_branch"`
		CloneURL      string `json:"clone_url"`
		Stars         int    `json:"stargazers_count"`
		Forks         int    `json:"forks_count"`
		Private       bool   `json:"private"`
	}

	path := fmt.Sprintf("repos/%s/%s", repo.Owner, repo.Name)
	if err := c.rest.DoWithContext(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return Info{}, fmt.Errorf("failed to fetch repository info: %w", err)
	}

	return Info{
		FullName:      resp.FullName,
		Description:   resp.Description,
		Language:      resp.Language,
		DefaultBranch: resp.DefaultBranch,
		CloneURL:      resp.CloneURL,
		Stars:         resp.Stars,
		Forks:         resp.Forks,
		Private:       resp.Private,
	}, nil
}

// ValidateToken checks that the configured token can authenticate.
func (c *Client) ValidateToken(ctx context.Context) error {
	var user struct {
		Login string `json:"login"`
	}
	if err := c.rest.DoWithContext(ctx, http.MethodGet, "user", nil, &user); err != nil {
		return fmt.Errorf("token validation failed: %w", err)
	}
	return nil
}
