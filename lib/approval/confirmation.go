// Copyright 2026 The Grounded Git MCP Authors
// SPDX-License-Identifier: Apache-2.0

package approval

import "time"

// Preconditions are repository-state guards captured at proposal time
// and re-evaluated — never trusted — at execution time: the repository
// may have changed between the two calls.
type Preconditions struct {
	// ExpectedHead is the required commit id at execution time.
	// Empty means HEAD is not pinned.
	ExpectedHead string `json:"expected_head,omitempty"`

	// ExpectedBranch is the required current branch name. Empty means
	// any branch.
	ExpectedBranch string `json:"expected_branch,omitempty"`

	// RequireClean requires a working tree with no pending changes.
	RequireClean bool `json:"require_clean"`

	// RequireNoConflicts forbids unresolved merge conflicts. Defaults
	// to true on every proposal.
	RequireNoConflicts bool `json:"require_no_conflicts"`
}

// Confirmation is a one-time approval token produced during proposal
// and consumed during execution. Its security properties: bounded
// lifetime (ExpiresAt), bounded usage (MaxUses, default 1), and
// binding to an exact command (CmdHash) plus repository root.
//
// The store is the record's single owner; Used only ever increases.
type Confirmation struct {
	ConfirmationID string `json:"confirmation_id"`

	// Root is the resolved absolute repository path the approval is
	// scoped to.
	Root string `json:"root"`

	// Args is the exact argument vector to execute. Never a
	// shell-joined string.
	Args []string `json:"args"`

	// Classification is the risk payload from the classifier, stored
	// verbatim and schema-light.
	Classification map[string]any `json:"classification"`

	// CmdHash is Fingerprint(Args), fixed for the record's lifetime.
	// The store never recomputes it on read; the orchestrator
	// recomputes and compares at execution time.
	CmdHash string `json:"cmd_hash"`

	CreatedAt int64 `json:"created_at"`
	ExpiresAt int64 `json:"expires_at"`

	MaxUses int `json:"max_uses"`
	Used    int `json:"used"`

	Preconditions Preconditions `json:"preconditions"`
}

// IsExpired reports whether the confirmation is past its expiration.
// A pure function of the supplied wall-clock time; callers treat
// expiry as terminal regardless of Used.
func (c *Confirmation) IsExpired(now time.Time) bool {
	return now.Unix() > c.ExpiresAt
}

// CanUse is the single combined eligibility predicate the orchestrator
// consults before permitting execution.
func (c *Confirmation) CanUse(now time.Time) bool {
	return !c.IsExpired(now) && c.Used < c.MaxUses
}
