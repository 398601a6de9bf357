// Copyright 2026 The Grounded Git MCP Authors
// SPDX-License-Identifier: Apache-2.0

package approval

import (
	"errors"
	"fmt"
)

// Sentinel errors for token-validity rejections. All are local,
// non-mutating: nothing executes and nothing is consumed, so the
// caller can always re-propose.
var (
	// ErrNotFound: unknown confirmation id.
	ErrNotFound = errors.New("confirmation not found")

	// ErrExpired: the confirmation is past expires_at.
	ErrExpired = errors.New("confirmation expired")

	// ErrExhausted: used >= max_uses.
	ErrExhausted = errors.New("confirmation already used")

	// ErrScopeMismatch: a confirmation may only be exercised against
	// the repository it was issued for.
	ErrScopeMismatch = errors.New("confirmation issued for a different repository")

	// ErrHashMismatch: the stored argument vector no longer matches
	// the fingerprint captured at proposal time.
	ErrHashMismatch = errors.New("confirmation args do not match recorded fingerprint")
)

// PreconditionError reports which repository-state guard failed at
// execution time.
type PreconditionError struct {
	// Guard names the failing check: "branch", "head", "clean",
	// "conflicts".
	Guard string
	Want  string
	Got   string
}

func (e *PreconditionError) Error() string {
	if e.Want == "" && e.Got == "" {
		return fmt.Sprintf("precondition failed: %s", e.Guard)
	}
	return fmt.Sprintf("precondition failed: %s (want %q, got %q)", e.Guard, e.Want, e.Got)
}

// PolicyError is a classifier rejection at proposal time: the command
// is refused outright and no confirmation record is created.
type PolicyError struct {
	Reasons []string
}

func (e *PolicyError) Error() string {
	if len(e.Reasons) == 0 {
		return "command rejected by safety policy"
	}
	return fmt.Sprintf("command rejected by safety policy: %s", e.Reasons[0])
}
