// Copyright 2026 The Grounded Git MCP Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/adina8244/grounded-git-mcp-server/lib/approval"
	"github.com/adina8244/grounded-git-mcp-server/lib/testutil"
)

func TestRootCommandTree(t *testing.T) {
	t.Parallel()

	root := Root()
	want := []string{"serve", "confirmations", "audit", "version"}
	if len(root.Subcommands) != len(want) {
		t.Fatalf("subcommand count = %d, want %d", len(root.Subcommands), len(want))
	}
	for i, name := range want {
		if root.Subcommands[i].Name != name {
			t.Errorf("subcommand %d = %q, want %q", i, root.Subcommands[i].Name, name)
		}
	}
}

func storedConfirmation(id string, expiresAt int64, used int) *approval.Confirmation {
	args := []string{"commit", "-m", "checkpoint"}
	return &approval.Confirmation{
		ConfirmationID: id,
		Root:           "/work/repo",
		Args:           args,
		Classification: map[string]any{"level": "medium"},
		CmdHash:        approval.Fingerprint(args),
		CreatedAt:      1_700_000_000,
		ExpiresAt:      expiresAt,
		MaxUses:        1,
		Used:           used,
		Preconditions:  approval.Preconditions{RequireNoConflicts: true},
	}
}

func TestConfirmationViewStatuses(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_100, 0)
	cases := []struct {
		name      string
		expiresAt int64
		used      int
		want      string
	}{
		{"pending", 1_700_000_900, 0, "pending"},
		{"consumed", 1_700_000_900, 1, "consumed"},
		{"expired", 1_700_000_050, 0, "expired"},
		{"expired wins over consumed", 1_700_000_050, 1, "expired"},
	}
	for _, testCase := range cases {
		t.Run(testCase.name, func(t *testing.T) {
			record := storedConfirmation("c0ffee", testCase.expiresAt, testCase.used)
			view := viewOf(record, now)
			if view.Status != testCase.want {
				t.Errorf("status = %q, want %q", view.Status, testCase.want)
			}
		})
	}
}

func TestConfirmationViewFields(t *testing.T) {
	t.Parallel()

	record := storedConfirmation("deadbeef00112233", 1_700_000_900, 0)
	view := viewOf(record, time.Unix(1_700_000_100, 0))

	if view.ConfirmationID != "deadbeef00112233" {
		t.Errorf("id = %q", view.ConfirmationID)
	}
	if view.Level != "medium" {
		t.Errorf("level = %q, want medium", view.Level)
	}
	if view.ExpiresAt != "2023-11-14T22:28:20Z" {
		t.Errorf("expires_at = %q", view.ExpiresAt)
	}
	if view.MaxUses != 1 || view.Used != 0 {
		t.Errorf("uses = %d/%d, want 0/1", view.Used, view.MaxUses)
	}
}

func TestAuditViewCarriesExtra(t *testing.T) {
	t.Parallel()

	record := approval.AuditRecord{
		TS:             1_700_000_000,
		Action:         "execute",
		ConfirmationID: "c0ffee",
		Extra:          map[string]any{"exit_code": float64(0)},
	}
	view := auditViewOf(record)
	if view.TS != "2023-11-14T22:13:20Z" {
		t.Errorf("ts = %q", view.TS)
	}
	if view.Extra["exit_code"] != float64(0) {
		t.Errorf("extra = %v", view.Extra)
	}

	bare := auditViewOf(approval.AuditRecord{TS: 1, Action: "propose"})
	if bare.Extra != nil {
		t.Errorf("empty extra should stay nil, got %v", bare.Extra)
	}
}

func TestOpenRepoStoreResolvesRoot(t *testing.T) {
	t.Parallel()

	root := testutil.InitRepo(t)
	store, err := openRepoStore(root)
	if err != nil {
		t.Fatalf("openRepoStore: %v", err)
	}

	// The store must live inside the repository's control directory,
	// and a second open from a subdirectory must land in the same one.
	if err := store.Put(storedConfirmation("abc123", 1_700_000_900, 0)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	testutil.WriteFile(t, root, "sub/dir/file.txt", "x\n")
	again, err := openRepoStore(filepath.Join(root, "sub", "dir"))
	if err != nil {
		t.Fatalf("openRepoStore from subdirectory: %v", err)
	}
	record, ok, err := again.Get("abc123")
	if err != nil || !ok {
		t.Fatalf("Get = %v, ok=%v", err, ok)
	}
	if record.ConfirmationID != "abc123" {
		t.Errorf("record id = %q", record.ConfirmationID)
	}
}

func TestOpenRepoStoreOutsideRepository(t *testing.T) {
	t.Parallel()

	if _, err := openRepoStore(t.TempDir()); err == nil {
		t.Fatal("expected error outside a repository")
	}
}
