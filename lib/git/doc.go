// Copyright 2026 The Grounded Git MCP Authors
// SPDX-License-Identifier: Apache-2.0

// Package git provides typed, bounded access to the git CLI. All
// commands target a specific repository directory via the -C flag,
// which is automatically injected by all Repository methods. Every
// invocation carries a timeout and an output byte cap so a single
// tool call can never run away with the server.
//
// The package has three roles in the approval flow: the command
// executor (Execute runs an exact argv verbatim), the repository-state
// reader (Head, Branch, IsClean, HasConflicts — the precondition
// guards), and the read-only inspection queries behind the MCP tools.
package git
