// Copyright 2026 The Grounded Git MCP Authors
// SPDX-License-Identifier: Apache-2.0

package git

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adina8244/grounded-git-mcp-server/lib/testutil"
)

func TestResolveRoot(t *testing.T) {
	t.Parallel()

	dir := testutil.InitRepo(t)
	root, err := ResolveRoot(dir)
	if err != nil {
		t.Fatalf("ResolveRoot(%s): %v", dir, err)
	}
	if !filepath.IsAbs(root) {
		t.Errorf("resolved root %q is not absolute", root)
	}
}

func TestResolveRootRejectsNonRepo(t *testing.T) {
	t.Parallel()

	if _, err := ResolveRoot(t.TempDir()); err == nil {
		t.Error("ResolveRoot accepted a directory without .git")
	}
}

func TestRun(t *testing.T) {
	t.Parallel()

	repo := openTestRepo(t)
	output, err := repo.Run(context.Background(), "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		t.Fatalf("Run(rev-parse): %v", err)
	}
	if strings.TrimSpace(output) != "main" {
		t.Errorf("branch = %q, want main", strings.TrimSpace(output))
	}
}

func TestRunFailsOnBadRef(t *testing.T) {
	t.Parallel()

	repo := openTestRepo(t)
	if _, err := repo.Run(context.Background(), "rev-parse", "no-such-ref"); err == nil {
		t.Error("Run accepted an unknown ref")
	}
}

func TestExecuteReportsExitCode(t *testing.T) {
	t.Parallel()

	repo := openTestRepo(t)
	result, err := repo.Execute(context.Background(), []string{"rev-parse", "no-such-ref"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.ExitCode == 0 {
		t.Error("Execute of failing command reported exit 0")
	}
	if result.Stderr == "" {
		t.Error("Execute of failing command captured no stderr")
	}
}

func TestOutputTruncation(t *testing.T) {
	t.Parallel()

	dir := testutil.InitRepo(t)
	repo, err := Open(dir, Limits{MaxOutputBytes: 16})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	result, err := repo.Execute(context.Background(), []string{"log", "--pretty=fuller"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Truncated {
		t.Error("oversized output not flagged as truncated")
	}
	if len(result.Stdout) > 16 {
		t.Errorf("stdout length = %d, want <= 16", len(result.Stdout))
	}
}

func openTestRepo(t *testing.T) *Repository {
	t.Helper()

	repo, err := Open(testutil.InitRepo(t), Limits{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return repo
}
