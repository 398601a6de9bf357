// Copyright 2026 The Grounded Git MCP Authors
// SPDX-License-Identifier: Apache-2.0

package approval

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/adina8244/grounded-git-mcp-server/lib/clock"
	"github.com/adina8244/grounded-git-mcp-server/lib/git"
)

// Classifier maps an argument vector to a risk classification payload
// (stored verbatim on the confirmation), or refuses the command
// outright with a *PolicyError. The resolved repository root is passed
// so the classifier can consult per-repository policy.
type Classifier interface {
	Classify(root string, args []string) (map[string]any, error)
}

// Repo is the repository collaborator the orchestrator needs: the
// state reader behind precondition checks and the executor that runs
// an approved argument vector. *git.Repository satisfies it.
type Repo interface {
	Root() string
	Head(ctx context.Context) (string, error)
	Branch(ctx context.Context) (string, error)
	IsClean(ctx context.Context) (bool, error)
	HasConflicts(ctx context.Context) (bool, error)
	Execute(ctx context.Context, args []string) (git.Result, error)
}

// RepoOpener resolves a caller-supplied path to a Repo. Resolution is
// the security boundary: the returned Root() is the path confirmations
// are scoped to.
type RepoOpener func(path string) (Repo, error)

// Service orchestrates the two-step propose/execute protocol. Each
// confirmation moves Proposed → Consumed or Expired; no transition
// leaves either terminal state.
type Service struct {
	classifier Classifier
	openRepo   RepoOpener
	clock      clock.Clock
	ttl        time.Duration

	mu     sync.Mutex
	stores map[string]*Store
}

// NewService builds an orchestrator. ttl is the fixed proposal
// lifetime applied to every confirmation.
func NewService(classifier Classifier, openRepo RepoOpener, clk clock.Clock, ttl time.Duration) *Service {
	return &Service{
		classifier: classifier,
		openRepo:   openRepo,
		clock:      clk,
		ttl:        ttl,
		stores:     make(map[string]*Store),
	}
}

// Proposal is the payload returned to the caller after a successful
// propose: everything needed to review the pending action and later
// execute it.
type Proposal struct {
	ConfirmationID string         `json:"confirmation_id"`
	Root           string         `json:"root"`
	Args           []string       `json:"args"`
	CmdHash        string         `json:"cmd_hash"`
	Classification map[string]any `json:"classification"`
	Preconditions  Preconditions  `json:"preconditions"`
	ExpiresAt      int64          `json:"expires_at"`
}

// Propose validates and classifies a mutating command, persists a
// single-use confirmation bound to the exact argument vector, and
// returns the proposal payload. No repository mutation occurs here by
// construction: the command is fingerprinted, never run.
//
// A classifier refusal (*PolicyError) creates no record; the refusal
// itself still leaves a "rejected" audit line, so denied proposals are
// never invisible.
func (s *Service) Propose(ctx context.Context, path string, args []string, expectedBranch string, requireClean bool) (*Proposal, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("propose: empty argument vector")
	}

	repo, err := s.openRepo(path)
	if err != nil {
		return nil, err
	}
	root := repo.Root()

	classification, err := s.classifier.Classify(root, args)
	if err != nil {
		var policyErr *PolicyError
		if errors.As(err, &policyErr) {
			if store, storeErr := s.storeFor(root); storeErr == nil {
				_ = store.Audit(ActionRejected, "", map[string]any{
					"reason": "policy",
					"args":   args,
					"detail": policyErr.Reasons,
				})
			}
		}
		return nil, err
	}

	preconditions := Preconditions{
		ExpectedBranch:     expectedBranch,
		RequireClean:       requireClean,
		RequireNoConflicts: true,
	}
	// High-risk commands are additionally pinned to the exact HEAD
	// observed at proposal time: any intervening commit or reset
	// invalidates the token.
	if level, _ := classification["level"].(string); level == "high" {
		head, err := repo.Head(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading HEAD for proposal: %w", err)
		}
		preconditions.ExpectedHead = head
	}

	now := s.clock.Now()
	record := &Confirmation{
		ConfirmationID: NewID(root, now, args),
		Root:           root,
		Args:           args,
		Classification: classification,
		CmdHash:        Fingerprint(args),
		CreatedAt:      now.Unix(),
		ExpiresAt:      now.Add(s.ttl).Unix(),
		MaxUses:        1,
		Preconditions:  preconditions,
	}

	store, err := s.storeFor(root)
	if err != nil {
		return nil, err
	}
	if err := store.Put(record); err != nil {
		return nil, err
	}

	return &Proposal{
		ConfirmationID: record.ConfirmationID,
		Root:           root,
		Args:           record.Args,
		CmdHash:        record.CmdHash,
		Classification: record.Classification,
		Preconditions:  record.Preconditions,
		ExpiresAt:      record.ExpiresAt,
	}, nil
}

// Execution is the payload returned after an execute attempt that made
// it to the command executor. Result carries the command's own
// outcome; a failing exit code still consumes the token.
type Execution struct {
	ConfirmationID   string     `json:"confirmation_id"`
	Result           git.Result `json:"result"`
	Used             int        `json:"used"`
	MaxUses          int        `json:"max_uses"`
	UserConfirmation string     `json:"user_confirmation,omitempty"`
	ExecutedAt       int64      `json:"executed_at"`
}

// Execute consumes a confirmation: re-validates the token and every
// captured precondition against current repository state, runs the
// recorded argument vector verbatim, and marks the token used whether
// or not the command itself succeeded.
//
// All validation failures (unknown id, expired, exhausted, scope
// mismatch, fingerprint mismatch, precondition violation) reject
// without executing or consuming the token; each rejection appends a
// "rejected" audit line. The whole sequence runs under the store's
// exclusive section so concurrent execute attempts on one id
// serialize.
func (s *Service) Execute(ctx context.Context, path, confirmationID, userConfirmation string) (*Execution, error) {
	if confirmationID == "" {
		return nil, ErrNotFound
	}

	repo, err := s.openRepo(path)
	if err != nil {
		return nil, err
	}
	root := repo.Root()

	store, err := s.storeFor(root)
	if err != nil {
		return nil, err
	}
	if err := store.Lock(); err != nil {
		return nil, err
	}
	defer store.Unlock()

	// Rejections leave the token untouched but still leave a durable
	// trace: the trail records denied attempts, not just successes.
	reject := func(reason string, err error) (*Execution, error) {
		_ = store.Audit(ActionRejected, confirmationID, map[string]any{"reason": reason})
		return nil, err
	}

	record, ok, err := store.Get(confirmationID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return reject("not_found", ErrNotFound)
	}

	now := s.clock.Now()
	if !record.CanUse(now) {
		if record.IsExpired(now) {
			return reject("expired", ErrExpired)
		}
		return reject("exhausted", ErrExhausted)
	}

	if record.Root != root {
		return reject("scope_mismatch", ErrScopeMismatch)
	}
	if Fingerprint(record.Args) != record.CmdHash {
		return reject("hash_mismatch", ErrHashMismatch)
	}

	if err := s.checkPreconditions(ctx, repo, record.Preconditions); err != nil {
		var violation *PreconditionError
		if errors.As(err, &violation) {
			return reject("precondition:"+violation.Guard, err)
		}
		return nil, err
	}

	// Point of no return: the command runs and the token is consumed
	// regardless of its exit status. "Used" means "attempted under
	// approval", which keeps a failing command from leaving a live
	// token behind for a retry loop to replay.
	result, runErr := repo.Execute(ctx, record.Args)
	if runErr != nil {
		result = git.Result{ExitCode: -1, Stderr: runErr.Error()}
	}

	resultPayload := map[string]any{
		"stdout":    result.Stdout,
		"stderr":    result.Stderr,
		"exit_code": result.ExitCode,
		"truncated": result.Truncated,
	}
	if userConfirmation != "" {
		resultPayload["user_confirmation"] = userConfirmation
	}
	if err := store.MarkUsed(record, resultPayload); err != nil {
		return nil, err
	}

	return &Execution{
		ConfirmationID:   record.ConfirmationID,
		Result:           result,
		Used:             record.Used,
		MaxUses:          record.MaxUses,
		UserConfirmation: userConfirmation,
		ExecutedAt:       now.Unix(),
	}, nil
}

// checkPreconditions re-evaluates every configured guard against the
// repository's current state. The first violated guard is reported; no
// executor invocation happens after a violation.
func (s *Service) checkPreconditions(ctx context.Context, repo Repo, p Preconditions) error {
	if p.ExpectedBranch != "" {
		branch, err := repo.Branch(ctx)
		if err != nil {
			return fmt.Errorf("reading current branch: %w", err)
		}
		if branch != p.ExpectedBranch {
			return &PreconditionError{Guard: "branch", Want: p.ExpectedBranch, Got: branch}
		}
	}

	if p.ExpectedHead != "" {
		head, err := repo.Head(ctx)
		if err != nil {
			return fmt.Errorf("reading current HEAD: %w", err)
		}
		if head != p.ExpectedHead {
			return &PreconditionError{Guard: "head", Want: p.ExpectedHead, Got: head}
		}
	}

	if p.RequireClean {
		clean, err := repo.IsClean(ctx)
		if err != nil {
			return fmt.Errorf("checking working tree: %w", err)
		}
		if !clean {
			return &PreconditionError{Guard: "clean", Want: "clean working tree", Got: "pending changes"}
		}
	}

	if p.RequireNoConflicts {
		conflicts, err := repo.HasConflicts(ctx)
		if err != nil {
			return fmt.Errorf("checking for conflicts: %w", err)
		}
		if conflicts {
			return &PreconditionError{Guard: "conflicts", Want: "no unresolved conflicts", Got: "conflict markers present"}
		}
	}

	return nil
}

// StoreFor returns the durable store for a repository path, resolving
// it through the opener first. Used by the operator CLI to inspect
// confirmations and the audit trail.
func (s *Service) StoreFor(path string) (*Store, error) {
	repo, err := s.openRepo(path)
	if err != nil {
		return nil, err
	}
	return s.storeFor(repo.Root())
}

// storeFor returns (opening on first use) the store for a resolved
// root. One store per repository root: distinct repositories never
// contend.
func (s *Service) storeFor(root string) (*Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if store, ok := s.stores[root]; ok {
		return store, nil
	}
	store, err := OpenStore(root, s.clock)
	if err != nil {
		return nil, err
	}
	s.stores[root] = store
	return store, nil
}
