// Copyright 2026 The Grounded Git MCP Authors
// SPDX-License-Identifier: Apache-2.0

package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Limits bounds every git invocation made through a Repository.
type Limits struct {
	// ReadTimeout caps read-only query duration.
	ReadTimeout time.Duration

	// WriteTimeout caps approved write command duration. Writes (push,
	// fetch) may legitimately take longer than local queries.
	WriteTimeout time.Duration

	// MaxOutputBytes truncates captured stdout and stderr beyond this
	// size. Truncation is flagged on the Result, never silent.
	MaxOutputBytes int
}

// DefaultLimits are used when a zero Limits is supplied.
var DefaultLimits = Limits{
	ReadTimeout:    3 * time.Second,
	WriteTimeout:   30 * time.Second,
	MaxOutputBytes: 80_000,
}

// Repository represents a git repository at a resolved root directory.
// All operations target this directory via "git -C <root>". There is
// no default directory — callers must always specify which repository
// they mean.
type Repository struct {
	root   string
	limits Limits
}

// Open resolves path to a repository root and returns a Repository
// bounded by the given limits. Zero limit fields fall back to
// DefaultLimits.
func Open(path string, limits Limits) (*Repository, error) {
	root, err := ResolveRoot(path)
	if err != nil {
		return nil, err
	}
	if limits.ReadTimeout <= 0 {
		limits.ReadTimeout = DefaultLimits.ReadTimeout
	}
	if limits.WriteTimeout <= 0 {
		limits.WriteTimeout = DefaultLimits.WriteTimeout
	}
	if limits.MaxOutputBytes <= 0 {
		limits.MaxOutputBytes = DefaultLimits.MaxOutputBytes
	}
	return &Repository{root: root, limits: limits}, nil
}

// Root returns the resolved repository root.
func (r *Repository) Root() string {
	return r.root
}

// Result captures one git invocation. A non-zero ExitCode is data, not
// an error: the command ran and reported failure.
type Result struct {
	Stdout    string `json:"stdout"`
	Stderr    string `json:"stderr"`
	ExitCode  int    `json:"exit_code"`
	Truncated bool   `json:"truncated"`
}

// Run executes a read-only git query and returns stdout. A non-zero
// exit is an error here — queries are expected to succeed, and the
// stderr text is folded into the error message.
func (r *Repository) Run(ctx context.Context, args ...string) (string, error) {
	result, err := r.invoke(ctx, r.limits.ReadTimeout, args)
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("git %s in %s: exit %d (stderr: %s)",
			strings.Join(args, " "), r.root, result.ExitCode, strings.TrimSpace(result.Stderr))
	}
	return result.Stdout, nil
}

// Execute runs an exact argument vector under the write timeout and
// returns the full Result, exit status included. This is the command
// executor behind execute_confirmed: args arrive verbatim from a
// confirmation record and are never re-parsed or re-joined here.
func (r *Repository) Execute(ctx context.Context, args []string) (Result, error) {
	return r.invoke(ctx, r.limits.WriteTimeout, args)
}

// invoke runs git with a deadline and bounded capture buffers. The
// returned error covers spawn failures and timeouts only; command
// failures surface through Result.ExitCode.
func (r *Repository) invoke(ctx context.Context, timeout time.Duration, args []string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fullArgs := append([]string{"-C", r.root}, args...)
	command := exec.CommandContext(ctx, "git", fullArgs...)

	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	err := command.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return Result{}, fmt.Errorf("git %s in %s: timed out after %v",
			strings.Join(args, " "), r.root, timeout)
	}

	result := Result{}
	result.Stdout, result.Truncated = truncate(stdout.String(), r.limits.MaxOutputBytes)
	var stderrTruncated bool
	result.Stderr, stderrTruncated = truncate(stderr.String(), r.limits.MaxOutputBytes)
	result.Truncated = result.Truncated || stderrTruncated

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return Result{}, fmt.Errorf("git %s in %s: %w", strings.Join(args, " "), r.root, err)
	}
	return result, nil
}

// truncate caps s at limit bytes, reporting whether anything was cut.
func truncate(s string, limit int) (string, bool) {
	if len(s) <= limit {
		return s, false
	}
	return s[:limit], true
}
