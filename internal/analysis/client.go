// Package analysis speaks the delegated analysis protocol: a scan request is
// written as JSON to an external analyzer process and the findings come back
// as JSON on its stdout. Analyzers are opaque; only the request/response
// contract and a timeout are assumed.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
)

// Request is the payload sent to an analysis service.
type Request struct {
	WorkspaceRoot string `json:"workspace_root"`
	Query         string `json:"query,omitempty"`
}

// Result is one finding reported by an analysis service.
type Result struct {
	RuleID   string `json:"rule_id"`
	Message  string `json:"message"`
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Severity string `json:"severity"`
}

// ServiceError is the explicit error envelope a service may return instead
// of results.
type ServiceError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("analysis service error (%s): %s", e.Kind, e.Message)
}

type response struct {
	Results []Result      `json:"results"`
	Error   *ServiceError `json:"error,omitempty"`
}

const (
	envServiceToken = "REPOGUARD_SERVICE_TOKEN"

	defaultMaxTries = 3
)

// Client invokes one named analysis service. The service command is spawned
// per request; every call is treated as a remote operation that can fail.
type Client struct {
	Name    string
	Command string
	Args    []string
	Secret  string
	Logger  *zerolog.Logger
}

// Analyze sends the request and returns the service's results. Spawn
// failures are retried with capped exponential backoff inside the caller's
// deadline; a missing binary and context cancellation are not retried.
func (c *Client) Analyze(ctx context.Context, req Request) ([]Result, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis request: %w", err)
	}

	op := func() ([]byte, error) {
		out, runErr := c.runOnce(ctx, payload)
		if runErr == nil {
			return out, nil
		}
		if errors.Is(runErr, exec.ErrNotFound) || ctx.Err() != nil {
			return nil, backoff.Permanent(runErr)
		}
		if c.Logger != nil {
			c.Logger.Warn().Str("service", c.Name).Err(runErr).Msg("analysis service call failed, retrying")
		}
		return nil, runErr
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	out, err := backoff.Retry(ctx, op, backoff.WithBackOff(bo), backoff.WithMaxTries(defaultMaxTries))
	if err != nil {
		return nil, fmt.Errorf("analysis service %q unavailable: %w", c.Name, err)
	}

	return ParseResponse(out)
}

// runOnce executes one request/response exchange with the service process.
func (c *Client) runOnce(ctx context.Context, payload []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.Command, c.Args...)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Env = os.Environ()
	if c.Secret != "" {
		cmd.Env = append(cmd.Env, envServiceToken+"="+c.Secret)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%w (stderr: %s)", err, stderr.String())
		}
		return nil, err
	}

	return stdout.Bytes(), nil
}

// ParseResponse decodes a service response, surfacing the service's error
// envelope when present.
func ParseResponse(data []byte) ([]Result, error) {
	var resp response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse analysis response: %w", err)
	}

	if resp.Error != nil {
		return nil, resp.Error
	}

	return resp.Results, nil
}
