// Copyright 2026 The Grounded Git MCP Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestToolError_ErrorWithoutHint(t *testing.T) {
	err := Validation("missing required parameter root")
	if err.Error() != "missing required parameter root" {
		t.Errorf("Error() = %q, want %q", err.Error(), "missing required parameter root")
	}
}

func TestToolError_ErrorWithHint(t *testing.T) {
	err := Expired("confirmation abc123 expired").
		WithHint("Propose the command again to obtain a fresh confirmation.")

	want := "confirmation abc123 expired\n\nPropose the command again to obtain a fresh confirmation."
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestToolError_WithHintReturnsReceiver(t *testing.T) {
	original := Validation("bad input")
	chained := original.WithHint("fix it")
	if original != chained {
		t.Error("WithHint should return the same pointer")
	}
}

func TestToolError_HintSurvivesErrorsAs(t *testing.T) {
	inner := Precondition("branch changed").WithHint("re-run repo_info and propose again")
	wrapped := fmt.Errorf("execute failed: %w", inner)

	var toolErr *ToolError
	if !errors.As(wrapped, &toolErr) {
		t.Fatal("errors.As should find ToolError in wrapped chain")
	}
	if toolErr.Hint != "re-run repo_info and propose again" {
		t.Errorf("Hint = %q after unwrap, want %q", toolErr.Hint, "re-run repo_info and propose again")
	}
}

func TestToolError_EmptyHintNotAppended(t *testing.T) {
	err := Internal("unexpected failure")
	if strings.Contains(err.Error(), "\n\n") {
		t.Error("empty hint should not add blank line to error message")
	}
}

func TestToolError_AllCategories(t *testing.T) {
	tests := []struct {
		name     string
		err      *ToolError
		category ErrorCategory
	}{
		{"Validation", Validation("bad"), CategoryValidation},
		{"NotFound", NotFound("missing"), CategoryNotFound},
		{"Expired", Expired("stale"), CategoryExpired},
		{"Exhausted", Exhausted("consumed"), CategoryExhausted},
		{"ScopeMismatch", ScopeMismatch("wrong repository"), CategoryScopeMismatch},
		{"Precondition", Precondition("state changed"), CategoryPrecondition},
		{"Policy", Policy("refused"), CategoryPolicy},
		{"Transient", Transient("timeout"), CategoryTransient},
		{"Internal", Internal("bug"), CategoryInternal},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if test.err.Category != test.category {
				t.Errorf("Category = %q, want %q", test.err.Category, test.category)
			}
		})
	}
}

func TestToolError_OnlyTransientRetryable(t *testing.T) {
	if !Transient("timeout").Retryable() {
		t.Error("transient errors should be retryable")
	}
	for _, err := range []*ToolError{
		Validation("v"), NotFound("n"), Expired("e"), Exhausted("x"),
		ScopeMismatch("s"), Precondition("p"), Policy("f"), Internal("i"),
	} {
		if err.Retryable() {
			t.Errorf("category %q should not be retryable", err.Category)
		}
	}
}

func TestToolError_Unwrap(t *testing.T) {
	sentinel := errors.New("root cause")
	err := Internal("wrapping: %w", sentinel)
	if !errors.Is(err, sentinel) {
		t.Error("errors.Is should reach the wrapped sentinel")
	}
}
