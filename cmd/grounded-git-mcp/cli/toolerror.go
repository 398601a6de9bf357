// Copyright 2026 The Grounded Git MCP Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ErrorCategory classifies tool errors so that MCP clients can make
// programmatic decisions (retry, re-propose, fix input, escalate)
// without parsing error message text.
type ErrorCategory string

const (
	// CategoryValidation indicates the caller provided invalid input:
	// missing required parameters, wrong argument count, unparseable
	// values. The caller should fix the input and retry.
	CategoryValidation ErrorCategory = "validation"

	// CategoryNotFound indicates a referenced resource does not exist:
	// unknown confirmation ID, unresolved ref, path outside the tree.
	// Retrying with the same parameters will not help.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryExpired indicates a confirmation's lifetime elapsed
	// before it was executed. The caller must propose again.
	CategoryExpired ErrorCategory = "expired"

	// CategoryExhausted indicates a confirmation was already consumed.
	// Each approval authorizes exactly one execution; propose again.
	CategoryExhausted ErrorCategory = "exhausted"

	// CategoryScopeMismatch indicates a confirmation was presented
	// against a different repository than the one it was issued for.
	CategoryScopeMismatch ErrorCategory = "scope_mismatch"

	// CategoryPrecondition indicates the repository state changed
	// between propose and execute: wrong branch, moved HEAD, dirty
	// tree, or unresolved conflicts. Re-inspect and propose again.
	CategoryPrecondition ErrorCategory = "precondition"

	// CategoryPolicy indicates the command is refused by safety
	// policy. No confirmation is ever created for it.
	CategoryPolicy ErrorCategory = "policy"

	// CategoryTransient indicates a temporary failure: a timeout or
	// I/O error. The caller should back off and retry.
	CategoryTransient ErrorCategory = "transient"

	// CategoryInternal indicates an unexpected error: bugs, store
	// corruption, parse errors on data the system produced. The
	// caller should report the error rather than retry.
	CategoryInternal ErrorCategory = "internal"
)

// ToolError is a categorized error returned by tool handlers and CLI
// commands. The MCP server inspects the Category to produce structured
// error metadata alongside the human-readable error text, enabling
// agents to make programmatic recovery decisions.
//
// ToolError wraps an inner error, preserving the full error chain for
// debugging while adding category metadata for the MCP layer. Use the
// category-specific constructors (Validation, NotFound, etc.) rather
// than constructing ToolError directly.
type ToolError struct {
	// Category classifies the error for programmatic handling.
	Category ErrorCategory

	// Err is the underlying error with the human-readable message.
	Err error

	// Hint is optional recovery guidance appended to the message,
	// e.g. "propose the command again to obtain a fresh confirmation".
	Hint string
}

// Error returns the underlying error message, with the hint appended
// after a blank line when present. The category is not included in the
// string — it travels separately via the MCP errorInfo field, not in
// the text content block.
func (e *ToolError) Error() string {
	if e.Hint == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + "\n\n" + e.Hint
}

// WithHint attaches recovery guidance and returns the receiver for
// chaining off a constructor.
func (e *ToolError) WithHint(hint string) *ToolError {
	e.Hint = hint
	return e
}

// Unwrap returns the underlying error, allowing errors.Is and
// errors.As to walk the full chain through the ToolError wrapper.
func (e *ToolError) Unwrap() error { return e.Err }

// Retryable reports whether repeating the same call might succeed.
// Only transient errors are retryable.
func (e *ToolError) Retryable() bool { return e.Category == CategoryTransient }

// Validation creates a validation error: the caller provided bad input.
func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound creates a not-found error: a referenced resource does not exist.
func NotFound(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Expired creates an expired error: the confirmation's lifetime elapsed.
func Expired(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryExpired, Err: fmt.Errorf(format, args...)}
}

// Exhausted creates an exhausted error: the confirmation was already consumed.
func Exhausted(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryExhausted, Err: fmt.Errorf(format, args...)}
}

// ScopeMismatch creates a scope-mismatch error: wrong repository for the token.
func ScopeMismatch(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryScopeMismatch, Err: fmt.Errorf(format, args...)}
}

// Precondition creates a precondition error: repository state changed underfoot.
func Precondition(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryPrecondition, Err: fmt.Errorf(format, args...)}
}

// Policy creates a policy error: the command is refused by safety policy.
func Policy(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryPolicy, Err: fmt.Errorf(format, args...)}
}

// Transient creates a transient error: a temporary failure that may succeed on retry.
func Transient(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryTransient, Err: fmt.Errorf(format, args...)}
}

// Internal creates an internal error: an unexpected failure, bug, or I/O error.
func Internal(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}
