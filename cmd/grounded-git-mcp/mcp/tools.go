// Copyright 2026 The Grounded Git MCP Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"encoding/json"

	"github.com/adina8244/grounded-git-mcp-server/cmd/grounded-git-mcp/cli"
	"github.com/adina8244/grounded-git-mcp-server/lib/git"
)

// tool is one MCP tool: a name, a hand-declared JSON Schema for its
// parameters, behavioral annotations, and the handler that runs it.
type tool struct {
	name        string
	title       string
	description string
	annotations *toolAnnotations
	inputSchema map[string]any
	handler     func(ctx context.Context, arguments json.RawMessage) (any, error)
}

// decodeArguments unmarshals tool arguments into a params struct.
// Absent or null arguments leave the struct at its zero value.
func decodeArguments(arguments json.RawMessage, params any) error {
	if len(arguments) == 0 || string(arguments) == "null" {
		return nil
	}
	if err := json.Unmarshal(arguments, params); err != nil {
		return cli.Validation("invalid arguments: %v", err)
	}
	return nil
}

// buildTools declares the server's tool catalog. Every tool accepts an
// optional root parameter naming the repository; when omitted the
// server's default repository is used.
func (s *Server) buildTools() []tool {
	rootProperty := stringProperty("absolute path of the git repository (defaults to the server's configured repository)")

	return []tool{
		{
			name:        "repo_info",
			title:       "Repository info",
			description: "Return repository metadata: root, HEAD commit, current branch, cleanliness, and remotes. Call this before any propose/execute flow to bind reasoning to actual repository state.",
			annotations: readOnlyAnnotations(),
			inputSchema: objectSchema(map[string]any{
				"root": rootProperty,
			}),
			handler: func(ctx context.Context, arguments json.RawMessage) (any, error) {
				var params struct {
					Root string `json:"root"`
				}
				if err := decodeArguments(arguments, &params); err != nil {
					return nil, err
				}
				repo, err := s.openRepo(params.Root)
				if err != nil {
					return nil, err
				}
				return repo.RepoInfo(ctx)
			},
		},
		{
			name:        "status_porcelain",
			title:       "Working tree status",
			description: "Return the working tree status in porcelain form, bounded to max_entries entries.",
			annotations: readOnlyAnnotations(),
			inputSchema: objectSchema(map[string]any{
				"root":        rootProperty,
				"max_entries": intProperty("maximum number of status entries to return (0 for the default bound)"),
			}),
			handler: func(ctx context.Context, arguments json.RawMessage) (any, error) {
				var params struct {
					Root       string `json:"root"`
					MaxEntries int    `json:"max_entries"`
				}
				if err := decodeArguments(arguments, &params); err != nil {
					return nil, err
				}
				repo, err := s.openRepo(params.Root)
				if err != nil {
					return nil, err
				}
				return repo.StatusPorcelain(ctx, params.MaxEntries)
			},
		},
		{
			name:        "diff_summary",
			title:       "Diff summary",
			description: "Return per-file added/deleted line counts for pending changes. Set staged for the index diff; set against to diff the working tree against an arbitrary ref.",
			annotations: readOnlyAnnotations(),
			inputSchema: objectSchema(map[string]any{
				"root":    rootProperty,
				"staged":  boolProperty("summarize the staged (index) diff instead of the unstaged one"),
				"against": stringProperty("ref to diff against (overrides staged)"),
			}),
			handler: func(ctx context.Context, arguments json.RawMessage) (any, error) {
				var params struct {
					Root    string `json:"root"`
					Staged  bool   `json:"staged"`
					Against string `json:"against"`
				}
				if err := decodeArguments(arguments, &params); err != nil {
					return nil, err
				}
				repo, err := s.openRepo(params.Root)
				if err != nil {
					return nil, err
				}
				stats, err := repo.DiffSummary(ctx, params.Staged, params.Against)
				if err != nil {
					return nil, err
				}
				if stats == nil {
					stats = []git.DiffStat{}
				}
				return stats, nil
			},
		},
		{
			name:        "log",
			title:       "Commit log",
			description: "Return the most recent commits on HEAD: id, author, time, and subject.",
			annotations: readOnlyAnnotations(),
			inputSchema: objectSchema(map[string]any{
				"root": rootProperty,
				"n":    intProperty("number of commits to return (0 for the default of 20)"),
			}),
			handler: func(ctx context.Context, arguments json.RawMessage) (any, error) {
				var params struct {
					Root string `json:"root"`
					N    int    `json:"n"`
				}
				if err := decodeArguments(arguments, &params); err != nil {
					return nil, err
				}
				repo, err := s.openRepo(params.Root)
				if err != nil {
					return nil, err
				}
				commits, err := repo.Log(ctx, params.N)
				if err != nil {
					return nil, err
				}
				if commits == nil {
					commits = []git.CommitInfo{}
				}
				return commits, nil
			},
		},
		{
			name:        "show_commit",
			title:       "Show commit",
			description: "Return a single commit's metadata and message, optionally with its patch (bounded).",
			annotations: readOnlyAnnotations(),
			inputSchema: objectSchema(map[string]any{
				"root":  rootProperty,
				"ref":   stringProperty("commit ref to show (defaults to HEAD)"),
				"patch": boolProperty("include the commit's patch"),
			}),
			handler: func(ctx context.Context, arguments json.RawMessage) (any, error) {
				var params struct {
					Root  string `json:"root"`
					Ref   string `json:"ref"`
					Patch bool   `json:"patch"`
				}
				if err := decodeArguments(arguments, &params); err != nil {
					return nil, err
				}
				repo, err := s.openRepo(params.Root)
				if err != nil {
					return nil, err
				}
				return repo.ShowCommit(ctx, params.Ref, params.Patch)
			},
		},
		{
			name:        "grep",
			title:       "Search tracked content",
			description: "Search tracked files with git grep, returning path, line number, and line text per match.",
			annotations: readOnlyAnnotations(),
			inputSchema: objectSchema(map[string]any{
				"root":        rootProperty,
				"pattern":     stringProperty("regular expression to search for"),
				"pathspec":    stringProperty("limit the search to a pathspec"),
				"ignore_case": boolProperty("case-insensitive search"),
			}, "pattern"),
			handler: func(ctx context.Context, arguments json.RawMessage) (any, error) {
				var params struct {
					Root       string `json:"root"`
					Pattern    string `json:"pattern"`
					Pathspec   string `json:"pathspec"`
					IgnoreCase bool   `json:"ignore_case"`
				}
				if err := decodeArguments(arguments, &params); err != nil {
					return nil, err
				}
				if params.Pattern == "" {
					return nil, cli.Validation("pattern is required")
				}
				repo, err := s.openRepo(params.Root)
				if err != nil {
					return nil, err
				}
				matches, err := repo.Grep(ctx, params.Pattern, params.Pathspec, params.IgnoreCase)
				if err != nil {
					return nil, err
				}
				if matches == nil {
					matches = []git.GrepMatch{}
				}
				return matches, nil
			},
		},
		{
			name:        "blame",
			title:       "Line attribution",
			description: "Return per-line blame metadata (commit id, author, author time, line text) for a file, optionally restricted to a line range.",
			annotations: readOnlyAnnotations(),
			inputSchema: objectSchema(map[string]any{
				"root":       rootProperty,
				"path":       stringProperty("file path relative to the repository root"),
				"start_line": intProperty("first line of the range (1-based, 0 for the whole file)"),
				"end_line":   intProperty("last line of the range (inclusive)"),
			}, "path"),
			handler: func(ctx context.Context, arguments json.RawMessage) (any, error) {
				var params struct {
					Root      string `json:"root"`
					Path      string `json:"path"`
					StartLine int    `json:"start_line"`
					EndLine   int    `json:"end_line"`
				}
				if err := decodeArguments(arguments, &params); err != nil {
					return nil, err
				}
				if params.Path == "" {
					return nil, cli.Validation("path is required")
				}
				repo, err := s.openRepo(params.Root)
				if err != nil {
					return nil, err
				}
				lines, err := repo.Blame(ctx, params.Path, params.StartLine, params.EndLine)
				if err != nil {
					return nil, err
				}
				if lines == nil {
					lines = []git.BlameLine{}
				}
				return lines, nil
			},
		},
		{
			name:        "detect_conflicts",
			title:       "Detect conflicts",
			description: "Report unresolved merge conflicts: unmerged index entries and tracked files still containing conflict markers. Prefer not to mutate when conflicts are present.",
			annotations: readOnlyAnnotations(),
			inputSchema: objectSchema(map[string]any{
				"root": rootProperty,
			}),
			handler: func(ctx context.Context, arguments json.RawMessage) (any, error) {
				var params struct {
					Root string `json:"root"`
				}
				if err := decodeArguments(arguments, &params); err != nil {
					return nil, err
				}
				repo, err := s.openRepo(params.Root)
				if err != nil {
					return nil, err
				}
				return repo.Conflicts(ctx)
			},
		},
		{
			name:        "propose_git_command",
			title:       "Propose a git command",
			description: "Propose (never execute) a mutating git command. The command is validated against safety policy, classified by risk, fingerprinted, and stored as a single-use confirmation with captured preconditions. Returns the confirmation id to pass to execute_confirmed.",
			annotations: &toolAnnotations{
				ReadOnlyHint:    boolPtr(true),
				DestructiveHint: boolPtr(false),
				IdempotentHint:  boolPtr(false),
				OpenWorldHint:   boolPtr(false),
			},
			inputSchema: objectSchema(map[string]any{
				"root": rootProperty,
				"args": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "git argument vector, without the leading \"git\" (e.g. [\"commit\", \"-m\", \"fix\"])",
				},
				"expected_branch": stringProperty("branch that must be checked out at execution time"),
				"require_clean":   boolProperty("require a clean working tree at execution time"),
			}, "args"),
			handler: func(ctx context.Context, arguments json.RawMessage) (any, error) {
				var params struct {
					Root           string   `json:"root"`
					Args           []string `json:"args"`
					ExpectedBranch string   `json:"expected_branch"`
					RequireClean   bool     `json:"require_clean"`
				}
				if err := decodeArguments(arguments, &params); err != nil {
					return nil, err
				}
				if len(params.Args) == 0 {
					return nil, cli.Validation("args is required and must be non-empty")
				}
				root, err := s.resolveRoot(params.Root)
				if err != nil {
					return nil, err
				}
				return s.service.Propose(ctx, root, params.Args, params.ExpectedBranch, params.RequireClean)
			},
		},
		{
			name:        "execute_confirmed",
			title:       "Execute a confirmed command",
			description: "Execute a previously proposed git command by confirmation id. The stored preconditions are re-checked against current repository state; the token is single-use and is consumed whether or not the command succeeds. The command's own exit code, stdout, and stderr are returned as data.",
			annotations: &toolAnnotations{
				ReadOnlyHint:    boolPtr(false),
				DestructiveHint: boolPtr(true),
				IdempotentHint:  boolPtr(false),
				OpenWorldHint:   boolPtr(true),
			},
			inputSchema: objectSchema(map[string]any{
				"root":              rootProperty,
				"confirmation_id":   stringProperty("confirmation id returned by propose_git_command"),
				"user_confirmation": stringProperty("free-form note recording who or what approved the execution"),
			}, "confirmation_id"),
			handler: func(ctx context.Context, arguments json.RawMessage) (any, error) {
				var params struct {
					Root             string `json:"root"`
					ConfirmationID   string `json:"confirmation_id"`
					UserConfirmation string `json:"user_confirmation"`
				}
				if err := decodeArguments(arguments, &params); err != nil {
					return nil, err
				}
				if params.ConfirmationID == "" {
					return nil, cli.Validation("confirmation_id is required")
				}
				root, err := s.resolveRoot(params.Root)
				if err != nil {
					return nil, err
				}
				return s.service.Execute(ctx, root, params.ConfirmationID, params.UserConfirmation)
			},
		},
	}
}

// resolveRoot applies the default-repository fallback for tools that
// pass the path to the approval service rather than opening the
// repository themselves.
func (s *Server) resolveRoot(path string) (string, error) {
	if path == "" {
		path = s.defaultRoot
	}
	if path == "" {
		return "", cli.Validation("root is required (no default repository configured)")
	}
	return path, nil
}

// --- schema helpers ---

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProperty(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func intProperty(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description}
}

func boolProperty(description string) map[string]any {
	return map[string]any{"type": "boolean", "description": description}
}

// readOnlyAnnotations is the hint set shared by the inspection tools.
func readOnlyAnnotations() *toolAnnotations {
	return &toolAnnotations{
		ReadOnlyHint:    boolPtr(true),
		DestructiveHint: boolPtr(false),
		IdempotentHint:  boolPtr(true),
		OpenWorldHint:   boolPtr(false),
	}
}

func boolPtr(value bool) *bool {
	return &value
}
