// Copyright 2026 The Grounded Git MCP Authors
// SPDX-License-Identifier: Apache-2.0

package git

import (
	"context"
	"fmt"
	"strings"
)

// Head returns the full commit id of HEAD.
func (r *Repository) Head(ctx context.Context) (string, error) {
	output, err := r.Run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// Branch returns the current branch name, or "HEAD" when detached.
func (r *Repository) Branch(ctx context.Context) (string, error) {
	output, err := r.Run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// IsClean reports whether the working tree has no pending changes
// (staged, unstaged, or untracked).
func (r *Repository) IsClean(ctx context.Context) (bool, error) {
	output, err := r.Run(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(output) == "", nil
}

// HasConflicts reports whether the repository has unresolved merge
// conflicts: unmerged index entries, or conflict markers left in
// tracked files.
func (r *Repository) HasConflicts(ctx context.Context) (bool, error) {
	report, err := r.Conflicts(ctx)
	if err != nil {
		return false, err
	}
	return report.Conflicted, nil
}

// ConflictReport describes unresolved merge conflicts in detail:
// paths with unmerged index entries, and tracked files that still
// contain conflict markers.
type ConflictReport struct {
	Conflicted    bool     `json:"conflicted"`
	UnmergedPaths []string `json:"unmerged_paths"`
	MarkerFiles   []string `json:"marker_files"`
}

// Conflicts gathers the full conflict picture for the working tree.
func (r *Repository) Conflicts(ctx context.Context) (*ConflictReport, error) {
	unmerged, err := r.Run(ctx, "ls-files", "-u")
	if err != nil {
		return nil, err
	}

	report := &ConflictReport{}
	seen := map[string]bool{}
	for _, line := range strings.Split(unmerged, "\n") {
		// Each line: "<mode> <object> <stage>\t<path>".
		tab := strings.IndexByte(line, '\t')
		if tab < 0 {
			continue
		}
		path := line[tab+1:]
		if path != "" && !seen[path] {
			seen[path] = true
			report.UnmergedPaths = append(report.UnmergedPaths, path)
		}
	}

	// Marker scan over tracked files.
	report.MarkerFiles, err = r.grepFiles(ctx, "^<<<<<<< ")
	if err != nil {
		return nil, err
	}

	report.Conflicted = len(report.UnmergedPaths) > 0 || len(report.MarkerFiles) > 0
	return report, nil
}

// grepFiles lists tracked files matching pattern (git grep -l). Exit 1
// means no matches; anything above is a real failure and must surface,
// not read as "no matches".
func (r *Repository) grepFiles(ctx context.Context, pattern string) ([]string, error) {
	result, err := r.invoke(ctx, r.limits.ReadTimeout, []string{"grep", "-l", "-e", pattern})
	if err != nil {
		return nil, err
	}
	if result.ExitCode > 1 {
		return nil, fmt.Errorf("git grep: exit %d (stderr: %s)",
			result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	var paths []string
	if result.ExitCode == 0 {
		for _, path := range strings.Split(strings.TrimSpace(result.Stdout), "\n") {
			if path != "" {
				paths = append(paths, path)
			}
		}
	}
	return paths, nil
}
