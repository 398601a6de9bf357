// Copyright 2026 The Grounded Git MCP Authors
// SPDX-License-Identifier: Apache-2.0

package git

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Record and field separators for --pretty parsing. Unit separators
// cannot appear in commit metadata, unlike newlines in subject lines.
const (
	recordSeparator = "\x1e"
	fieldSeparator  = "\x1f"
)

// Info is high-level repository metadata.
type Info struct {
	Root     string   `json:"root"`
	Head     string   `json:"head"`
	Branch   string   `json:"branch"`
	Clean    bool     `json:"clean"`
	Remotes  []string `json:"remotes"`
	Detached bool     `json:"detached"`
}

// RepoInfo returns resolved root, HEAD, current branch, cleanliness,
// and configured remotes.
func (r *Repository) RepoInfo(ctx context.Context) (*Info, error) {
	head, err := r.Head(ctx)
	if err != nil {
		return nil, err
	}
	branch, err := r.Branch(ctx)
	if err != nil {
		return nil, err
	}
	clean, err := r.IsClean(ctx)
	if err != nil {
		return nil, err
	}

	remotesOutput, err := r.Run(ctx, "remote")
	if err != nil {
		return nil, err
	}
	remotes := splitLines(remotesOutput)

	return &Info{
		Root:     r.root,
		Head:     head,
		Branch:   branch,
		Clean:    clean,
		Remotes:  remotes,
		Detached: branch == "HEAD",
	}, nil
}

// StatusEntry is one line of porcelain status output.
type StatusEntry struct {
	// XY is the two-character porcelain status code.
	XY string `json:"xy"`
	// Path is the repository-relative path.
	Path string `json:"path"`
}

// Status is bounded porcelain status output.
type Status struct {
	Entries   []StatusEntry `json:"entries"`
	Clean     bool          `json:"clean"`
	Truncated bool          `json:"truncated"`
}

// StatusPorcelain returns machine-readable working tree status, capped
// at maxEntries lines.
func (r *Repository) StatusPorcelain(ctx context.Context, maxEntries int) (*Status, error) {
	if maxEntries <= 0 {
		maxEntries = 200
	}
	output, err := r.Run(ctx, "status", "--porcelain")
	if err != nil {
		return nil, err
	}

	lines := splitLines(output)
	status := &Status{Clean: len(lines) == 0, Entries: []StatusEntry{}}
	for i, line := range lines {
		if i >= maxEntries {
			status.Truncated = true
			break
		}
		if len(line) < 4 {
			continue
		}
		status.Entries = append(status.Entries, StatusEntry{
			XY:   line[:2],
			Path: line[3:],
		})
	}
	return status, nil
}

// CommitInfo is one log entry.
type CommitInfo struct {
	Commit     string `json:"commit"`
	Author     string `json:"author"`
	AuthorTime int64  `json:"author_time"`
	Subject    string `json:"subject"`
}

// Log returns the n most recent commits reachable from HEAD.
func (r *Repository) Log(ctx context.Context, n int) ([]CommitInfo, error) {
	if n <= 0 {
		n = 20
	}
	format := strings.Join([]string{"%H", "%an", "%at", "%s"}, fieldSeparator) + recordSeparator
	output, err := r.Run(ctx, "log", "-n", strconv.Itoa(n), "--pretty=format:"+format)
	if err != nil {
		return nil, err
	}

	commits := []CommitInfo{}
	for _, record := range strings.Split(output, recordSeparator) {
		record = strings.TrimSpace(record)
		if record == "" {
			continue
		}
		fields := strings.SplitN(record, fieldSeparator, 4)
		if len(fields) != 4 {
			continue
		}
		authorTime, _ := strconv.ParseInt(fields[2], 10, 64)
		commits = append(commits, CommitInfo{
			Commit:     fields[0],
			Author:     fields[1],
			AuthorTime: authorTime,
			Subject:    fields[3],
		})
	}
	return commits, nil
}

// Commit is detailed information about a single commit.
type Commit struct {
	CommitInfo
	Body      string `json:"body,omitempty"`
	Patch     string `json:"patch,omitempty"`
	Truncated bool   `json:"truncated"`
}

// ShowCommit returns metadata for one commit, optionally including its
// patch. The patch is subject to the repository output cap.
func (r *Repository) ShowCommit(ctx context.Context, ref string, patch bool) (*Commit, error) {
	if ref == "" {
		return nil, fmt.Errorf("commit ref is required")
	}
	format := strings.Join([]string{"%H", "%an", "%at", "%s", "%b"}, fieldSeparator)
	output, err := r.Run(ctx, "show", "--no-patch", "--pretty=format:"+format, ref)
	if err != nil {
		return nil, err
	}
	fields := strings.SplitN(output, fieldSeparator, 5)
	if len(fields) != 5 {
		return nil, fmt.Errorf("unexpected git show output for %s", ref)
	}
	authorTime, _ := strconv.ParseInt(fields[2], 10, 64)

	commit := &Commit{
		CommitInfo: CommitInfo{
			Commit:     fields[0],
			Author:     fields[1],
			AuthorTime: authorTime,
			Subject:    fields[3],
		},
		Body: strings.TrimSpace(fields[4]),
	}

	if patch {
		result, err := r.invoke(ctx, r.limits.ReadTimeout, []string{"show", "--pretty=format:", ref})
		if err != nil {
			return nil, err
		}
		if result.ExitCode != 0 {
			return nil, fmt.Errorf("git show %s: exit %d (stderr: %s)",
				ref, result.ExitCode, strings.TrimSpace(result.Stderr))
		}
		commit.Patch = result.Stdout
		commit.Truncated = result.Truncated
	}
	return commit, nil
}

// GrepMatch is one pattern match.
type GrepMatch struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// Grep searches tracked files for a pattern. A nil result with no
// error means no matches. Pathspec narrows the search when non-empty.
func (r *Repository) Grep(ctx context.Context, pattern, pathspec string, ignoreCase bool) ([]GrepMatch, error) {
	if pattern == "" {
		return nil, fmt.Errorf("grep pattern is required")
	}
	args := []string{"grep", "-n"}
	if ignoreCase {
		args = append(args, "-i")
	}
	args = append(args, "-e", pattern)
	if pathspec != "" {
		args = append(args, "--", pathspec)
	}

	result, err := r.invoke(ctx, r.limits.ReadTimeout, args)
	if err != nil {
		return nil, err
	}
	// Exit 1 means no matches; anything above is a real failure.
	if result.ExitCode > 1 {
		return nil, fmt.Errorf("git grep: exit %d (stderr: %s)",
			result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	matches := []GrepMatch{}
	for _, line := range splitLines(result.Stdout) {
		parts := strings.SplitN(line, ":", 3)
		if len(parts) != 3 {
			continue
		}
		lineNumber, err := strconv.Atoi(parts[1])
		if err != nil {
			continue
		}
		matches = append(matches, GrepMatch{Path: parts[0], Line: lineNumber, Text: parts[2]})
	}
	return matches, nil
}

// BlameLine is line-level authorship metadata.
type BlameLine struct {
	Commit     string `json:"commit"`
	Author     string `json:"author"`
	AuthorTime int64  `json:"author_time"`
	Line       int    `json:"line"`
	Text       string `json:"text"`
}

// Blame returns authorship for an inclusive line range of a file.
func (r *Repository) Blame(ctx context.Context, path string, startLine, endLine int) ([]BlameLine, error) {
	if path == "" {
		return nil, fmt.Errorf("blame path is required")
	}
	if startLine <= 0 {
		startLine = 1
	}
	if endLine < startLine {
		endLine = startLine
	}

	output, err := r.Run(ctx, "blame", "--line-porcelain",
		"-L", fmt.Sprintf("%d,%d", startLine, endLine), "--", path)
	if err != nil {
		return nil, err
	}
	return parseLinePorcelain(output), nil
}

// parseLinePorcelain extracts per-line blame records from
// --line-porcelain output. Each record starts with "<sha> <orig> <final>"
// and ends with a tab-prefixed content line.
func parseLinePorcelain(output string) []BlameLine {
	lines := []BlameLine{}
	var current BlameLine
	for _, raw := range strings.Split(output, "\n") {
		switch {
		case strings.HasPrefix(raw, "\t"):
			current.Text = strings.TrimPrefix(raw, "\t")
			lines = append(lines, current)
			current = BlameLine{}
		case strings.HasPrefix(raw, "author "):
			current.Author = strings.TrimPrefix(raw, "author ")
		case strings.HasPrefix(raw, "author-time "):
			current.AuthorTime, _ = strconv.ParseInt(strings.TrimPrefix(raw, "author-time "), 10, 64)
		default:
			fields := strings.Fields(raw)
			if len(fields) >= 3 && len(fields[0]) == 40 {
				current.Commit = fields[0]
				current.Line, _ = strconv.Atoi(fields[2])
			}
		}
	}
	return lines
}

// DiffStat is per-file change counts. Added and Deleted are -1 for
// binary files (numstat reports "-").
type DiffStat struct {
	Path    string `json:"path"`
	Added   int    `json:"added"`
	Deleted int    `json:"deleted"`
}

// DiffSummary lists changed files with lightweight stats. With staged
// set, it summarizes the index; otherwise the working tree. A non-empty
// against compares to that ref instead.
func (r *Repository) DiffSummary(ctx context.Context, staged bool, against string) ([]DiffStat, error) {
	args := []string{"diff", "--numstat"}
	if staged {
		args = append(args, "--cached")
	}
	if against != "" {
		args = append(args, against)
	}

	output, err := r.Run(ctx, args...)
	if err != nil {
		return nil, err
	}

	stats := []DiffStat{}
	for _, line := range splitLines(output) {
		fields := strings.SplitN(line, "\t", 3)
		if len(fields) != 3 {
			continue
		}
		stats = append(stats, DiffStat{
			Path:    fields[2],
			Added:   parseNumstat(fields[0]),
			Deleted: parseNumstat(fields[1]),
		})
	}
	return stats, nil
}

// Patch is a bounded diff between two revspecs.
type Patch struct {
	Range     string `json:"range"`
	Diff      string `json:"diff"`
	Truncated bool   `json:"truncated"`
}

// DiffRange computes the diff between base and head. With tripleDot,
// "base...head" (merge-base) semantics apply instead of "base..head".
func (r *Repository) DiffRange(ctx context.Context, base, head string, tripleDot bool, pathspec string) (*Patch, error) {
	if base == "" || head == "" {
		return nil, fmt.Errorf("diff range requires base and head")
	}
	separator := ".."
	if tripleDot {
		separator = "..."
	}
	revRange := base + separator + head

	args := []string{"diff", revRange}
	if pathspec != "" {
		args = append(args, "--", pathspec)
	}
	result, err := r.invoke(ctx, r.limits.ReadTimeout, args)
	if err != nil {
		return nil, err
	}
	if result.ExitCode != 0 {
		return nil, fmt.Errorf("git diff %s: exit %d (stderr: %s)",
			revRange, result.ExitCode, strings.TrimSpace(result.Stderr))
	}
	return &Patch{Range: revRange, Diff: result.Stdout, Truncated: result.Truncated}, nil
}

// Tree is a bounded recursive listing at a ref.
type Tree struct {
	Ref       string   `json:"ref"`
	Paths     []string `json:"paths"`
	Truncated bool     `json:"truncated"`
}

// TreeAtRef lists tracked paths at the given ref, capped at maxEntries.
func (r *Repository) TreeAtRef(ctx context.Context, ref string, maxEntries int) (*Tree, error) {
	if ref == "" {
		ref = "HEAD"
	}
	if maxEntries <= 0 {
		maxEntries = 2000
	}
	output, err := r.Run(ctx, "ls-tree", "-r", "--name-only", ref)
	if err != nil {
		return nil, err
	}
	paths := splitLines(output)
	tree := &Tree{Ref: ref}
	if len(paths) > maxEntries {
		tree.Paths = paths[:maxEntries]
		tree.Truncated = true
	} else {
		tree.Paths = paths
	}
	return tree, nil
}

// FileContent is file content at a specific ref.
type FileContent struct {
	Ref       string `json:"ref"`
	Path      string `json:"path"`
	Content   string `json:"content"`
	Truncated bool   `json:"truncated"`
}

// FileAtRef reads a file's committed content at the given ref, which
// avoids working-tree ambiguity when reasoning about repository state.
func (r *Repository) FileAtRef(ctx context.Context, ref, path string) (*FileContent, error) {
	if path == "" {
		return nil, fmt.Errorf("file path is required")
	}
	if ref == "" {
		ref = "HEAD"
	}
	result, err := r.invoke(ctx, r.limits.ReadTimeout, []string{"show", ref + ":" + path})
	if err != nil {
		return nil, err
	}
	if result.ExitCode != 0 {
		return nil, fmt.Errorf("git show %s:%s: exit %d (stderr: %s)",
			ref, path, result.ExitCode, strings.TrimSpace(result.Stderr))
	}
	return &FileContent{Ref: ref, Path: path, Content: result.Stdout, Truncated: result.Truncated}, nil
}

// parseNumstat converts one numstat count, mapping "-" (binary) to -1.
func parseNumstat(s string) int {
	if s == "-" {
		return -1
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}

// splitLines splits command output into non-empty lines.
func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
