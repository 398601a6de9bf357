// Copyright 2026 The Grounded Git MCP Authors
// SPDX-License-Identifier: Apache-2.0

package approval

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/adina8244/grounded-git-mcp-server/lib/clock"
)

func newTestStore(t *testing.T) (*Store, *clock.FakeClock) {
	t.Helper()

	fake := clock.Fake(time.Unix(1_700_000_000, 0))
	store, err := OpenStore(t.TempDir(), fake)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	return store, fake
}

func testConfirmation(id string) *Confirmation {
	args := []string{"commit", "-m", "fix"}
	return &Confirmation{
		ConfirmationID: id,
		Root:           "/work/repo",
		Args:           args,
		Classification: map[string]any{"level": "medium"},
		CmdHash:        Fingerprint(args),
		CreatedAt:      1_700_000_000,
		ExpiresAt:      1_700_000_900,
		MaxUses:        1,
		Preconditions:  Preconditions{RequireNoConflicts: true},
	}
}

func TestOpenStoreInitializesEmptyMap(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store, err := OpenStore(root, clock.Real())
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(store.Dir(), "confirmations.json"))
	if err != nil {
		t.Fatalf("reading map file: %v", err)
	}
	if string(data) != "{}" {
		t.Errorf("initial map = %q, want {}", data)
	}
}

func TestPutThenGet(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	confirmation := testConfirmation("id-one")
	if err := store.Put(confirmation); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := store.Get("id-one")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("Get did not find a just-put record")
	}
	if got.CmdHash != Fingerprint(got.Args) {
		t.Error("stored cmd_hash does not match fingerprint of stored args")
	}
	if got.Used != 0 {
		t.Errorf("fresh record Used = %d, want 0", got.Used)
	}
	if got.Preconditions != confirmation.Preconditions {
		t.Errorf("preconditions not reconstructed: %+v", got.Preconditions)
	}
}

func TestGetUnknownID(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	_, ok, err := store.Get("no-such-id")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("Get found a record for an unknown id")
	}
}

func TestMarkUsedIncrementsAndPersists(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	confirmation := testConfirmation("id-used")
	if err := store.Put(confirmation); err != nil {
		t.Fatalf("Put: %v", err)
	}

	result := map[string]any{"exit_code": 0, "stdout": "ok"}
	if err := store.MarkUsed(confirmation, result); err != nil {
		t.Fatalf("MarkUsed: %v", err)
	}
	if confirmation.Used != 1 {
		t.Errorf("in-memory Used = %d, want 1", confirmation.Used)
	}

	reloaded, ok, err := store.Get("id-used")
	if err != nil || !ok {
		t.Fatalf("Get after MarkUsed: ok=%v err=%v", ok, err)
	}
	if reloaded.Used != 1 {
		t.Errorf("persisted Used = %d, want 1", reloaded.Used)
	}
}

func TestAuditTrailLength(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)

	// N proposals and M executions produce exactly N+M audit lines.
	first := testConfirmation("id-a")
	second := testConfirmation("id-b")
	if err := store.Put(first); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Put(second); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.MarkUsed(first, map[string]any{"exit_code": 0}); err != nil {
		t.Fatalf("MarkUsed: %v", err)
	}

	records, err := store.ReadAudit(0)
	if err != nil {
		t.Fatalf("ReadAudit: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("audit length = %d, want 3", len(records))
	}
	if records[0].Action != ActionProposed || records[0].ConfirmationID != "id-a" {
		t.Errorf("first audit record = %+v, want proposed id-a", records[0])
	}
	if records[2].Action != ActionExecuted || records[2].ConfirmationID != "id-a" {
		t.Errorf("last audit record = %+v, want executed id-a", records[2])
	}
	if _, ok := records[0].Extra["classification"]; !ok {
		t.Error("proposed audit line missing classification payload")
	}
	if _, ok := records[2].Extra["result"]; !ok {
		t.Error("executed audit line missing result payload")
	}
}

func TestAuditAppendOnly(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	confirmation := testConfirmation("id-x")
	if err := store.Put(confirmation); err != nil {
		t.Fatalf("Put: %v", err)
	}

	before, err := os.ReadFile(filepath.Join(store.Dir(), "audit.jsonl"))
	if err != nil {
		t.Fatalf("reading audit: %v", err)
	}
	if err := store.MarkUsed(confirmation, map[string]any{"exit_code": 1}); err != nil {
		t.Fatalf("MarkUsed: %v", err)
	}
	after, err := os.ReadFile(filepath.Join(store.Dir(), "audit.jsonl"))
	if err != nil {
		t.Fatalf("reading audit: %v", err)
	}

	// Prior content is preserved byte-for-byte; new content only appends.
	if len(after) <= len(before) || string(after[:len(before)]) != string(before) {
		t.Error("audit log was rewritten, not appended")
	}
}

func TestStoreFileIsPrettyPrintedJSON(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	if err := store.Put(testConfirmation("id-pp")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(store.Dir(), "confirmations.json"))
	if err != nil {
		t.Fatalf("reading map file: %v", err)
	}
	var parsed map[string]json.RawMessage
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("map file is not valid JSON: %v", err)
	}
	if _, ok := parsed["id-pp"]; !ok {
		t.Error("map file missing record keyed by confirmation id")
	}
	if !json.Valid(data) || len(data) == 0 || data[0] != '{' {
		t.Error("map file is not a JSON object")
	}
	// Indented output spans multiple lines.
	if string(data) == "" || !containsNewline(data) {
		t.Error("map file is not pretty-printed")
	}
}

func TestListSortedByCreation(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	older := testConfirmation("id-old")
	older.CreatedAt = 100
	newer := testConfirmation("id-new")
	newer.CreatedAt = 200
	if err := store.Put(newer); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Put(older); err != nil {
		t.Fatalf("Put: %v", err)
	}

	listed, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 2 || listed[0].ConfirmationID != "id-old" {
		t.Errorf("List order = %v, want id-old first", ids(listed))
	}
}

func TestLockUnlock(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	// Put takes the exclusive section itself, so it belongs outside it.
	if err := store.Put(testConfirmation("id-locked")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if err := store.Lock(); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	// Reads and usage accounting still work inside the section.
	record, ok, err := store.Get("id-locked")
	if err != nil || !ok {
		t.Fatalf("Get under lock: ok=%v err=%v", ok, err)
	}
	if err := store.MarkUsed(record, map[string]any{"exit_code": 0}); err != nil {
		t.Fatalf("MarkUsed under lock: %v", err)
	}
	store.Unlock()

	// Reacquirable after release.
	if err := store.Lock(); err != nil {
		t.Fatalf("relock: %v", err)
	}
	store.Unlock()
}

func TestConcurrentPutsDropNoRecords(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- store.Put(testConfirmation(fmt.Sprintf("id-%d", i)))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	listed, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != writers {
		t.Errorf("List returned %d records, want %d", len(listed), writers)
	}
}

func containsNewline(data []byte) bool {
	for _, b := range data {
		if b == '\n' {
			return true
		}
	}
	return false
}

func ids(confirmations []*Confirmation) []string {
	result := make([]string, len(confirmations))
	for i, confirmation := range confirmations {
		result[i] = confirmation.ConfirmationID
	}
	return result
}
