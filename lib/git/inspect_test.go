// Copyright 2026 The Grounded Git MCP Authors
// SPDX-License-Identifier: Apache-2.0

package git

import (
	"context"
	"testing"

	"github.com/adina8244/grounded-git-mcp-server/lib/testutil"
)

func TestRepoInfo(t *testing.T) {
	t.Parallel()

	dir := testutil.InitRepo(t)
	repo, err := Open(dir, Limits{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	info, err := repo.RepoInfo(context.Background())
	if err != nil {
		t.Fatalf("RepoInfo: %v", err)
	}
	if info.Branch != "main" {
		t.Errorf("Branch = %q, want main", info.Branch)
	}
	if !info.Clean {
		t.Error("fresh repository reported dirty")
	}
	if info.Detached {
		t.Error("repository on main reported detached")
	}
}

func TestStatusPorcelain(t *testing.T) {
	t.Parallel()

	dir := testutil.InitRepo(t)
	repo, err := Open(dir, Limits{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()

	status, err := repo.StatusPorcelain(ctx, 10)
	if err != nil {
		t.Fatalf("StatusPorcelain: %v", err)
	}
	if !status.Clean || len(status.Entries) != 0 {
		t.Errorf("fresh repo status = %+v, want clean with no entries", status)
	}

	testutil.WriteFile(t, dir, "a.txt", "a\n")
	testutil.WriteFile(t, dir, "b.txt", "b\n")
	status, err = repo.StatusPorcelain(ctx, 1)
	if err != nil {
		t.Fatalf("StatusPorcelain: %v", err)
	}
	if len(status.Entries) != 1 || !status.Truncated {
		t.Errorf("status with maxEntries=1 = %+v, want 1 entry and truncated", status)
	}
	if status.Entries[0].XY != "??" {
		t.Errorf("entry XY = %q, want ??", status.Entries[0].XY)
	}
}

func TestLogAndShowCommit(t *testing.T) {
	t.Parallel()

	dir := testutil.InitRepo(t)
	repo, err := Open(dir, Limits{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()

	second := testutil.Commit(t, dir, "file.txt", "hello\n", "add file")

	commits, err := repo.Log(ctx, 10)
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(commits) != 2 {
		t.Fatalf("Log returned %d commits, want 2", len(commits))
	}
	if commits[0].Commit != second || commits[0].Subject != "add file" {
		t.Errorf("newest commit = %+v, want %s / add file", commits[0], second)
	}

	shown, err := repo.ShowCommit(ctx, second, true)
	if err != nil {
		t.Fatalf("ShowCommit: %v", err)
	}
	if shown.Commit != second {
		t.Errorf("ShowCommit id = %q, want %q", shown.Commit, second)
	}
	if shown.Patch == "" {
		t.Error("ShowCommit with patch=true returned empty patch")
	}
}

func TestGrep(t *testing.T) {
	t.Parallel()

	dir := testutil.InitRepo(t)
	repo, err := Open(dir, Limits{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()

	testutil.Commit(t, dir, "code.go", "package main\nfunc Needle() {}\n", "add code")

	matches, err := repo.Grep(ctx, "Needle", "", false)
	if err != nil {
		t.Fatalf("Grep: %v", err)
	}
	if len(matches) != 1 || matches[0].Path != "code.go" || matches[0].Line != 2 {
		t.Errorf("Grep = %+v, want one match in code.go line 2", matches)
	}

	matches, err = repo.Grep(ctx, "absent-needle", "", false)
	if err != nil {
		t.Fatalf("Grep(no match): %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("Grep(no match) = %+v, want empty", matches)
	}
}

func TestBlame(t *testing.T) {
	t.Parallel()

	dir := testutil.InitRepo(t)
	repo, err := Open(dir, Limits{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	commit := testutil.Commit(t, dir, "poem.txt", "first\nsecond\nthird\n", "add poem")

	lines, err := repo.Blame(context.Background(), "poem.txt", 2, 3)
	if err != nil {
		t.Fatalf("Blame: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("Blame returned %d lines, want 2", len(lines))
	}
	if lines[0].Commit != commit || lines[0].Text != "second" || lines[0].Line != 2 {
		t.Errorf("blame line = %+v, want commit %s line 2 'second'", lines[0], commit)
	}
	if lines[0].Author != "Test" {
		t.Errorf("blame author = %q, want Test", lines[0].Author)
	}
}

func TestDiffSummaryAndRange(t *testing.T) {
	t.Parallel()

	dir := testutil.InitRepo(t)
	repo, err := Open(dir, Limits{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()

	testutil.Commit(t, dir, "file.txt", "one\n", "add file")
	testutil.WriteFile(t, dir, "file.txt", "one\ntwo\n")

	stats, err := repo.DiffSummary(ctx, false, "")
	if err != nil {
		t.Fatalf("DiffSummary: %v", err)
	}
	if len(stats) != 1 || stats[0].Path != "file.txt" || stats[0].Added != 1 {
		t.Errorf("DiffSummary = %+v, want file.txt +1", stats)
	}

	testutil.Git(t, dir, "add", "file.txt")
	testutil.Git(t, dir, "commit", "-m", "extend file")

	patch, err := repo.DiffRange(ctx, "HEAD~1", "HEAD", false, "")
	if err != nil {
		t.Fatalf("DiffRange: %v", err)
	}
	if patch.Range != "HEAD~1..HEAD" {
		t.Errorf("Range = %q, want HEAD~1..HEAD", patch.Range)
	}
	if patch.Diff == "" {
		t.Error("DiffRange returned empty diff")
	}
}

func TestTreeAndFileAtRef(t *testing.T) {
	t.Parallel()

	dir := testutil.InitRepo(t)
	repo, err := Open(dir, Limits{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()

	testutil.Commit(t, dir, "src/main.go", "package main\n", "add src")

	tree, err := repo.TreeAtRef(ctx, "HEAD", 100)
	if err != nil {
		t.Fatalf("TreeAtRef: %v", err)
	}
	if len(tree.Paths) != 2 {
		t.Errorf("tree paths = %v, want README and src/main.go", tree.Paths)
	}

	content, err := repo.FileAtRef(ctx, "HEAD", "src/main.go")
	if err != nil {
		t.Fatalf("FileAtRef: %v", err)
	}
	if content.Content != "package main\n" {
		t.Errorf("content = %q, want package main", content.Content)
	}

	if _, err := repo.FileAtRef(ctx, "HEAD", "missing.go"); err == nil {
		t.Error("FileAtRef accepted a missing path")
	}
}
