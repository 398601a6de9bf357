// Copyright 2026 The Grounded Git MCP Authors
// SPDX-License-Identifier: Apache-2.0

package git

import (
	"fmt"
	"os"
	"path/filepath"
)

// ResolveRoot resolves path to an absolute repository root with
// symlinks evaluated. The path must exist and contain a .git entry
// (directory for normal repositories, file for worktrees). This is the
// security boundary every tool passes through: confirmations are
// scoped to the resolved root, and a confirmation issued for one root
// can never be exercised against another.
func ResolveRoot(path string) (string, error) {
	if path == "" {
		path = "."
	}

	absolute, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	resolved, err := filepath.EvalSymlinks(absolute)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", resolved, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", resolved)
	}
	if _, err := os.Stat(filepath.Join(resolved, ".git")); err != nil {
		return "", fmt.Errorf("%s is not a git repository root (no .git)", resolved)
	}

	return resolved, nil
}
