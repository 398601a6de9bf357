// Copyright 2026 The Grounded Git MCP Authors
// SPDX-License-Identifier: Apache-2.0

package safety

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
)

// PolicyFile is the per-repository override file, relative to the
// repository root. JSONC: // comments, /* block comments */, and
// trailing commas are stripped before parsing.
const PolicyFile = ".grounded_git_mcp/policy.jsonc"

// Policy is the tunable part of classification. The zero value is not
// useful; start from DefaultPolicy and overlay.
type Policy struct {
	// ProtectedBranches are refs that force-pushes and deletions may
	// never target. Matching a protected branch upgrades the command
	// to forbidden.
	ProtectedBranches []string `json:"protected_branches"`

	// ForbiddenSubcommands are git subcommands refused outright, in
	// addition to the built-in list.
	ForbiddenSubcommands []string `json:"forbidden_subcommands"`
}

// DefaultPolicy returns the built-in policy baseline.
func DefaultPolicy() Policy {
	return Policy{
		ProtectedBranches: []string{"main", "master"},
	}
}

// LoadPolicy returns the effective policy for a repository root:
// defaults, plus the repository's policy.jsonc overlay when one
// exists. A missing file is not an error; a malformed one is.
//
// Override lists extend the defaults rather than replacing them, so a
// repository can add protections but never remove the baseline.
func LoadPolicy(root string) (Policy, error) {
	policy := DefaultPolicy()

	path := filepath.Join(root, PolicyFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return policy, nil
	}
	if err != nil {
		return Policy{}, fmt.Errorf("reading %s: %w", path, err)
	}

	var overlay Policy
	if err := json.Unmarshal(jsonc.ToJSON(data), &overlay); err != nil {
		return Policy{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	policy.ProtectedBranches = append(policy.ProtectedBranches, overlay.ProtectedBranches...)
	policy.ForbiddenSubcommands = append(policy.ForbiddenSubcommands, overlay.ForbiddenSubcommands...)
	return policy, nil
}

// protectedBranch reports whether name is on the policy's protected
// list.
func (p Policy) protectedBranch(name string) bool {
	for _, branch := range p.ProtectedBranches {
		if name == branch {
			return true
		}
	}
	return false
}

// forbiddenSubcommand reports whether the policy overlay forbids a
// subcommand outright.
func (p Policy) forbiddenSubcommand(name string) bool {
	for _, subcommand := range p.ForbiddenSubcommands {
		if name == subcommand {
			return true
		}
	}
	return false
}
