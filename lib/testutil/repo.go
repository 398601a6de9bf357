// Copyright 2026 The Grounded Git MCP Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// InitRepo creates a git repository in a temp directory with one
// initial commit on branch "main" and returns its path. The repository
// is removed when the test completes.
func InitRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	Git(t, dir, "init", "-b", "main")
	Git(t, dir, "config", "user.name", "Test")
	Git(t, dir, "config", "user.email", "test@test.local")

	WriteFile(t, dir, "README", "test\n")
	Git(t, dir, "add", "README")
	Git(t, dir, "commit", "-m", "initial")

	return dir
}

// Git runs a git command in dir and returns trimmed stdout. Fails the
// test on a non-zero exit.
func Git(t *testing.T, dir string, args ...string) string {
	t.Helper()

	command := exec.Command("git", append([]string{"-C", dir}, args...)...)
	command.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Test",
		"GIT_AUTHOR_EMAIL=test@test.local",
		"GIT_COMMITTER_NAME=Test",
		"GIT_COMMITTER_EMAIL=test@test.local",
	)
	output, err := command.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, output)
	}
	return strings.TrimSpace(string(output))
}

// WriteFile writes content to a path relative to the repository root,
// creating parent directories as needed.
func WriteFile(t *testing.T, dir, relative, content string) {
	t.Helper()

	path := filepath.Join(dir, relative)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", relative, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", relative, err)
	}
}

// Commit writes content to a file and commits it with the given message.
// Returns the new HEAD commit id.
func Commit(t *testing.T, dir, relative, content, message string) string {
	t.Helper()

	WriteFile(t, dir, relative, content)
	Git(t, dir, "add", relative)
	Git(t, dir, "commit", "-m", message)
	return Git(t, dir, "rev-parse", "HEAD")
}
