// Copyright 2026 The Grounded Git MCP Authors
// SPDX-License-Identifier: Apache-2.0

// Package approval implements the confirmation subsystem that gates
// mutating git commands behind a two-phase propose/execute protocol.
//
// A proposal classifies the command, captures repository-state
// preconditions, and persists a single-use, time-bounded Confirmation
// bound to the exact argument vector by a content fingerprint.
// Execution consumes the token only after re-validating the token
// itself (expiry, usage, repository scope, fingerprint integrity) and
// every captured precondition against the repository's current state.
//
// Durable state lives in a repository-local control directory
// (.grounded_git_mcp/): a JSON map of confirmations replaced
// atomically on every write, and an append-only JSONL audit trail
// recording every proposal and every execution outcome.
package approval
