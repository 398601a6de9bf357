// Copyright 2026 The Grounded Git MCP Authors
// SPDX-License-Identifier: Apache-2.0

package safety

import (
	"fmt"
	"strings"

	"github.com/adina8244/grounded-git-mcp-server/lib/approval"
)

// Risk levels, ordered. Forbidden never leaves this package as a
// classification: it is converted to a policy refusal.
const (
	LevelLow       = "low"
	LevelMedium    = "medium"
	LevelHigh      = "high"
	LevelForbidden = "forbidden"
)

// readOnlySubcommands never write to the repository or any remote.
var readOnlySubcommands = map[string]string{
	"status":       "reads working tree status",
	"log":          "reads commit history",
	"show":         "reads object content",
	"diff":         "reads differences",
	"grep":         "searches tracked content",
	"blame":        "reads per-line attribution",
	"ls-files":     "lists index content",
	"ls-tree":      "lists tree content",
	"ls-remote":    "lists remote refs",
	"rev-parse":    "resolves revisions",
	"rev-list":     "lists revisions",
	"cat-file":     "reads object content",
	"describe":     "describes a commit",
	"shortlog":     "summarizes commit history",
	"for-each-ref": "lists refs",
	"merge-base":   "computes a merge base",
	"name-rev":     "names revisions",
	"fetch":        "updates remote-tracking refs only",
}

// Classifier assigns a risk level to git argument vectors, consulting
// the per-repository policy override on each call so edits to
// policy.jsonc take effect without a restart.
type Classifier struct{}

// New returns a ready Classifier.
func New() *Classifier {
	return &Classifier{}
}

// Classify implements the approval layer's classifier contract. A
// forbidden vector returns a *approval.PolicyError carrying the
// refusal reasons; everything else returns {level, reasons}.
func (c *Classifier) Classify(root string, args []string) (map[string]any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("classify: empty argument vector")
	}

	policy, err := LoadPolicy(root)
	if err != nil {
		return nil, err
	}

	level, reasons := classify(policy, args)
	if level == LevelForbidden {
		return nil, &approval.PolicyError{Reasons: reasons}
	}
	return map[string]any{"level": level, "reasons": reasons}, nil
}

func classify(policy Policy, args []string) (string, []string) {
	subcommand := args[0]
	rest := args[1:]

	if strings.HasPrefix(subcommand, "-") {
		return LevelHigh, []string{fmt.Sprintf("global flag %q precedes the subcommand; cannot classify precisely", subcommand)}
	}

	if policy.forbiddenSubcommand(subcommand) {
		return LevelForbidden, []string{fmt.Sprintf("%s is forbidden by repository policy", subcommand)}
	}

	switch subcommand {
	case "filter-branch":
		return LevelForbidden, []string{"filter-branch rewrites all history"}
	case "reflog":
		if contains(rest, "expire") {
			return LevelForbidden, []string{"reflog expire discards recovery information"}
		}
		return LevelLow, []string{"reads the reflog"}
	case "gc":
		for _, argument := range rest {
			if argument == "--prune=now" || argument == "--prune=all" {
				return LevelForbidden, []string{"gc with aggressive pruning permanently deletes unreachable objects"}
			}
		}
		return LevelMedium, []string{"repacks repository storage"}
	case "update-ref":
		if hasFlag(rest, "-d", "--delete") {
			return LevelForbidden, []string{"update-ref -d deletes a ref without reflog safety"}
		}
		return LevelHigh, []string{"moves a ref directly"}
	case "push":
		return classifyPush(policy, rest)
	case "branch":
		return classifyBranch(policy, rest)
	case "tag":
		if hasFlag(rest, "-d", "--delete") {
			return LevelHigh, []string{"deletes a tag"}
		}
		if len(rest) == 0 {
			return LevelLow, []string{"lists tags"}
		}
		return LevelMedium, []string{"creates or annotates a tag"}
	case "reset":
		if contains(rest, "--hard") {
			return LevelHigh, []string{"reset --hard discards working tree changes"}
		}
		return LevelMedium, []string{"moves HEAD or unstages changes"}
	case "clean":
		if hasForceCluster(rest) {
			return LevelHigh, []string{"clean -f deletes untracked files"}
		}
		return LevelMedium, []string{"previews untracked file removal"}
	case "rebase":
		return LevelHigh, []string{"rebase rewrites commit history"}
	case "commit":
		if contains(rest, "--amend") {
			return LevelHigh, []string{"commit --amend rewrites the previous commit"}
		}
		return LevelMedium, []string{"records a commit"}
	case "checkout", "switch":
		if hasFlag(rest, "-f", "--force") {
			return LevelHigh, []string{subcommand + " --force discards local changes"}
		}
		return LevelMedium, []string{"changes the checked-out state"}
	case "stash":
		if contains(rest, "drop") || contains(rest, "clear") {
			return LevelHigh, []string{"discards stashed changes"}
		}
		if len(rest) == 0 {
			return LevelLow, []string{"lists stashes"}
		}
		return LevelMedium, []string{"moves changes to or from the stash"}
	case "remote":
		if len(rest) == 0 || rest[0] == "-v" || rest[0] == "show" {
			return LevelLow, []string{"lists remotes"}
		}
		return LevelMedium, []string{"modifies remote configuration"}
	}

	if reason, ok := readOnlySubcommands[subcommand]; ok {
		return LevelLow, []string{reason}
	}
	return LevelMedium, []string{"modifies local repository state"}
}

// classifyPush handles the push-specific escalations: forced or
// deleting pushes are high, and either one aimed at a protected branch
// is forbidden, as is --mirror.
func classifyPush(policy Policy, rest []string) (string, []string) {
	if hasFlag(rest, "--mirror") {
		return LevelForbidden, []string{"push --mirror overwrites every remote ref"}
	}

	forced := hasForce(rest)
	deleting := hasFlag(rest, "-d", "--delete")

	if forced || deleting {
		verb := "force-push"
		if deleting {
			verb = "ref deletion"
		}
		for _, target := range pushTargets(rest) {
			if policy.protectedBranch(target) {
				return LevelForbidden, []string{fmt.Sprintf("%s targets protected branch %q", verb, target)}
			}
		}
		return LevelHigh, []string{verb + " rewrites or removes remote refs"}
	}
	return LevelMedium, []string{"publishes commits to a remote"}
}

func classifyBranch(policy Policy, rest []string) (string, []string) {
	if hasFlag(rest, "-d", "-D", "--delete") {
		for _, target := range positionals(rest) {
			if policy.protectedBranch(target) {
				return LevelForbidden, []string{fmt.Sprintf("deletion targets protected branch %q", target)}
			}
		}
		return LevelHigh, []string{"deletes a branch"}
	}
	if len(rest) == 0 {
		return LevelLow, []string{"lists branches"}
	}
	return LevelMedium, []string{"creates or reconfigures a branch"}
}

// pushTargets extracts the destination ref of every refspec in a push
// argument list. The first positional is the remote; each following
// refspec contributes its destination (the part after ":", or the
// whole spec when no colon is present) with any leading "+" and
// refs/heads/ prefix stripped.
func pushTargets(rest []string) []string {
	var targets []string
	for i, spec := range positionals(rest) {
		if i == 0 {
			continue // remote name
		}
		spec = strings.TrimPrefix(spec, "+")
		if colon := strings.IndexByte(spec, ':'); colon >= 0 {
			spec = spec[colon+1:]
		}
		spec = strings.TrimPrefix(spec, "refs/heads/")
		if spec != "" {
			targets = append(targets, spec)
		}
	}
	return targets
}

func positionals(args []string) []string {
	var out []string
	for _, argument := range args {
		if !strings.HasPrefix(argument, "-") {
			out = append(out, argument)
		}
	}
	return out
}

func contains(args []string, want string) bool {
	for _, argument := range args {
		if argument == want {
			return true
		}
	}
	return false
}

func hasFlag(args []string, flags ...string) bool {
	for _, argument := range args {
		for _, flag := range flags {
			if argument == flag {
				return true
			}
		}
	}
	return false
}

func hasForce(args []string) bool {
	for _, argument := range args {
		if argument == "-f" || argument == "--force" || strings.HasPrefix(argument, "--force-with-lease") || strings.HasPrefix(argument, "--force-if-includes") {
			return true
		}
	}
	return false
}

// hasForceCluster detects -f inside combined short flags, e.g. the
// -fdx spelling of git clean.
func hasForceCluster(args []string) bool {
	for _, argument := range args {
		if argument == "--force" {
			return true
		}
		if strings.HasPrefix(argument, "-") && !strings.HasPrefix(argument, "--") && strings.ContainsRune(argument[1:], 'f') {
			return true
		}
	}
	return false
}
