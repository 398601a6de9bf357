// Copyright 2026 The Grounded Git MCP Authors
// SPDX-License-Identifier: Apache-2.0

package git

import (
	"context"
	"testing"

	"github.com/adina8244/grounded-git-mcp-server/lib/testutil"
)

func TestHeadAndBranch(t *testing.T) {
	t.Parallel()

	dir := testutil.InitRepo(t)
	repo, err := Open(dir, Limits{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()

	head, err := repo.Head(ctx)
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if len(head) != 40 {
		t.Errorf("Head = %q, want 40-char commit id", head)
	}
	if want := testutil.Git(t, dir, "rev-parse", "HEAD"); head != want {
		t.Errorf("Head = %q, want %q", head, want)
	}

	branch, err := repo.Branch(ctx)
	if err != nil {
		t.Fatalf("Branch: %v", err)
	}
	if branch != "main" {
		t.Errorf("Branch = %q, want main", branch)
	}
}

func TestIsClean(t *testing.T) {
	t.Parallel()

	dir := testutil.InitRepo(t)
	repo, err := Open(dir, Limits{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()

	clean, err := repo.IsClean(ctx)
	if err != nil {
		t.Fatalf("IsClean: %v", err)
	}
	if !clean {
		t.Error("fresh repository reported dirty")
	}

	testutil.WriteFile(t, dir, "dirty.txt", "pending\n")
	clean, err = repo.IsClean(ctx)
	if err != nil {
		t.Fatalf("IsClean: %v", err)
	}
	if clean {
		t.Error("repository with untracked file reported clean")
	}
}

func TestHasConflicts(t *testing.T) {
	t.Parallel()

	dir := testutil.InitRepo(t)
	repo, err := Open(dir, Limits{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()

	conflicts, err := repo.HasConflicts(ctx)
	if err != nil {
		t.Fatalf("HasConflicts: %v", err)
	}
	if conflicts {
		t.Error("fresh repository reported conflicts")
	}

	// Produce a real merge conflict: diverge the same line on two
	// branches, then merge.
	testutil.Commit(t, dir, "file.txt", "base\n", "base")
	testutil.Git(t, dir, "checkout", "-b", "feature")
	testutil.Commit(t, dir, "file.txt", "feature\n", "feature change")
	testutil.Git(t, dir, "checkout", "main")
	testutil.Commit(t, dir, "file.txt", "main\n", "main change")
	// Merge fails with conflicts; ignore the exit status.
	mergeOutput, _ := repo.Execute(ctx, []string{"merge", "feature"})
	if mergeOutput.ExitCode == 0 {
		t.Fatal("merge unexpectedly succeeded")
	}

	conflicts, err = repo.HasConflicts(ctx)
	if err != nil {
		t.Fatalf("HasConflicts: %v", err)
	}
	if !conflicts {
		t.Error("conflicted repository reported no conflicts")
	}
}

func TestConflictsReport(t *testing.T) {
	t.Parallel()

	dir := testutil.InitRepo(t)
	repo, err := Open(dir, Limits{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()

	testutil.Commit(t, dir, "file.txt", "base\n", "base")
	testutil.Git(t, dir, "checkout", "-b", "feature")
	testutil.Commit(t, dir, "file.txt", "feature\n", "feature change")
	testutil.Git(t, dir, "checkout", "main")
	testutil.Commit(t, dir, "file.txt", "main\n", "main change")
	if result, _ := repo.Execute(ctx, []string{"merge", "feature"}); result.ExitCode == 0 {
		t.Fatal("merge unexpectedly succeeded")
	}

	report, err := repo.Conflicts(ctx)
	if err != nil {
		t.Fatalf("Conflicts: %v", err)
	}
	if !report.Conflicted {
		t.Error("conflicted repository reported Conflicted=false")
	}
	if len(report.UnmergedPaths) != 1 || report.UnmergedPaths[0] != "file.txt" {
		t.Errorf("UnmergedPaths = %v, want [file.txt]", report.UnmergedPaths)
	}
	if len(report.MarkerFiles) != 1 || report.MarkerFiles[0] != "file.txt" {
		t.Errorf("MarkerFiles = %v, want [file.txt]", report.MarkerFiles)
	}
}

func TestGrepFilesHardFailureSurfaces(t *testing.T) {
	t.Parallel()

	dir := testutil.InitRepo(t)
	repo, err := Open(dir, Limits{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	// No matches is not an error.
	paths, err := repo.grepFiles(context.Background(), "^<<<<<<< ")
	if err != nil {
		t.Fatalf("grepFiles: %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("paths = %v, want none", paths)
	}

	// An invalid pattern makes git grep fail hard (exit > 1); that must
	// surface as an error, never as "no matches".
	if _, err := repo.grepFiles(context.Background(), "["); err == nil {
		t.Fatal("grepFiles with invalid pattern returned nil error")
	}
}
