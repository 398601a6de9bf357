// Copyright 2026 The Grounded Git MCP Authors
// SPDX-License-Identifier: Apache-2.0

// Package safety classifies git argument vectors by risk before they
// are allowed into the propose/execute protocol.
//
// Every command lands in one of four levels: low (read-only
// inspection), medium (ordinary local mutation), high (destructive or
// history-rewriting, worth pinning extra preconditions), and forbidden
// (refused outright, no confirmation is ever created). The levels and
// the forbidden list have built-in defaults; a repository can extend
// them with a .grounded_git_mcp/policy.jsonc override file.
//
// Classification output is a schema-light map so the approval core can
// store it verbatim without depending on this package's vocabulary.
package safety
