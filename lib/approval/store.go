// Copyright 2026 The Grounded Git MCP Authors
// SPDX-License-Identifier: Apache-2.0

package approval

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/adina8244/grounded-git-mcp-server/lib/clock"
)

// ControlDir is the repository-local directory holding durable approval
// state. Keeping it inside the repository scopes approvals per-repo and
// keeps them transparent to the user (plain JSON/JSONL).
const ControlDir = ".grounded_git_mcp"

// Audit actions. The audit trail is strictly append-only: no line is
// ever rewritten or removed.
const (
	ActionProposed = "proposed"
	ActionExecuted = "executed"
	ActionRejected = "rejected"
)

// Store is the single source of truth for confirmation records and the
// audit trail of one repository. It is a dumb ledger: Put and MarkUsed
// perform no eligibility checks — policy enforcement belongs to the
// orchestrator.
//
// Every write to the confirmation map goes through an atomic
// tmp-write-then-rename, so a crash mid-write loses at worst the
// update, never the prior state. The audit append for an operation
// happens only after its map write has returned, so an observer never
// sees a "proposed" audit line without a matching durable record.
type Store struct {
	dir       string
	dbPath    string
	auditPath string
	lockPath  string
	clock     clock.Clock

	// mu serializes the load/modify/save cycle of individual store
	// operations within this process.
	mu sync.Mutex

	// sectionMu plus the flock on lockPath span the orchestrator's
	// execute critical section (get, check, run, mark used) as one
	// mutual-exclusion region, in and across processes.
	sectionMu sync.Mutex
	lockFile  *os.File
}

// OpenStore creates (or opens) the durable approval store under the
// given repository root, initializing an empty confirmation map on
// first use. The clock stamps audit lines; production callers pass
// clock.Real().
func OpenStore(root string, clk clock.Clock) (*Store, error) {
	dir := filepath.Join(root, ControlDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating control directory %s: %w", dir, err)
	}

	store := &Store{
		dir:       dir,
		dbPath:    filepath.Join(dir, "confirmations.json"),
		auditPath: filepath.Join(dir, "audit.jsonl"),
		lockPath:  filepath.Join(dir, "lock"),
		clock:     clk,
	}

	if _, err := os.Stat(store.dbPath); os.IsNotExist(err) {
		if err := os.WriteFile(store.dbPath, []byte("{}"), 0o644); err != nil {
			return nil, fmt.Errorf("initializing %s: %w", store.dbPath, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat %s: %w", store.dbPath, err)
	}

	return store, nil
}

// Dir returns the control directory path.
func (s *Store) Dir() string { return s.dir }

// Put persists a proposed confirmation and appends a "proposed" audit
// line carrying its classification. It runs under the cross-process
// exclusive section: the map write is a full read-modify-write, and
// interleaving with another process's execute section would let the
// losing save drop the other's record.
func (s *Store) Put(c *Confirmation) error {
	if err := s.Lock(); err != nil {
		return err
	}
	defer s.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	records[c.ConfirmationID] = c
	if err := s.save(records); err != nil {
		return err
	}

	return s.appendAudit(ActionProposed, c.ConfirmationID, map[string]any{
		"classification": c.Classification,
	})
}

// Get returns a confirmation by id. The miss case is (nil, false, nil):
// an unknown id is an expected condition, not a store failure.
func (s *Store) Get(confirmationID string) (*Confirmation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, false, err
	}
	record, ok := records[confirmationID]
	if !ok {
		return nil, false, nil
	}
	return record, true, nil
}

// MarkUsed increments the record's usage counter, persists it, and
// appends an "executed" audit line carrying the execution result. It
// performs no eligibility check: callers must have established CanUse
// before invoking it. "Used" means "attempted under approval", not
// "succeeded", so the caller passes the result whether or not the
// executed command reported success.
func (s *Store) MarkUsed(c *Confirmation, result map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	record, ok := records[c.ConfirmationID]
	if !ok {
		return fmt.Errorf("marking %s used: record vanished from store", c.ConfirmationID)
	}

	record.Used++
	if err := s.save(records); err != nil {
		return err
	}
	c.Used = record.Used

	return s.appendAudit(ActionExecuted, c.ConfirmationID, map[string]any{
		"result": result,
	})
}

// List returns all stored confirmations, oldest first.
func (s *Store) List() ([]*Confirmation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}
	confirmations := make([]*Confirmation, 0, len(records))
	for _, record := range records {
		confirmations = append(confirmations, record)
	}
	sort.Slice(confirmations, func(i, j int) bool {
		if confirmations[i].CreatedAt != confirmations[j].CreatedAt {
			return confirmations[i].CreatedAt < confirmations[j].CreatedAt
		}
		return confirmations[i].ConfirmationID < confirmations[j].ConfirmationID
	})
	return confirmations, nil
}

// Audit appends a standalone audit line. Put and MarkUsed append their
// own lines; this is for callers recording events outside the two
// standard actions.
func (s *Store) Audit(action, confirmationID string, extra map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendAudit(action, confirmationID, extra)
}

// AuditRecord is one line of the audit trail.
type AuditRecord struct {
	TS             int64          `json:"ts"`
	Action         string         `json:"action"`
	ConfirmationID string         `json:"confirmation_id"`
	Extra          map[string]any `json:"-"`
}

// ReadAudit returns up to limit of the most recent audit records,
// oldest first. A non-positive limit returns everything.
func (s *Store) ReadAudit(limit int) ([]AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.auditPath)
	if os.IsNotExist(err) {
		return []AuditRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer file.Close()

	records := []AuditRecord{}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var fields map[string]any
		if err := json.Unmarshal(line, &fields); err != nil {
			return nil, fmt.Errorf("parsing audit line: %w", err)
		}
		record := AuditRecord{Extra: fields}
		if ts, ok := fields["ts"].(float64); ok {
			record.TS = int64(ts)
		}
		record.Action, _ = fields["action"].(string)
		record.ConfirmationID, _ = fields["confirmation_id"].(string)
		delete(fields, "ts")
		delete(fields, "action")
		delete(fields, "confirmation_id")
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}

	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	return records, nil
}

// Lock acquires the store's exclusive section: the in-process mutex
// plus an advisory flock on the lock file. The orchestrator holds it
// across "get record, check eligibility, execute, mark used" so two
// concurrent executions can never both pass the eligibility check
// before either increments the usage counter.
func (s *Store) Lock() error {
	s.sectionMu.Lock()

	file, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		s.sectionMu.Unlock()
		return fmt.Errorf("opening lock file: %w", err)
	}
	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX); err != nil {
		file.Close()
		s.sectionMu.Unlock()
		return fmt.Errorf("locking %s: %w", s.lockPath, err)
	}
	s.lockFile = file
	return nil
}

// Unlock releases the exclusive section.
func (s *Store) Unlock() {
	if s.lockFile != nil {
		// Closing the descriptor drops the flock.
		_ = unix.Flock(int(s.lockFile.Fd()), unix.LOCK_UN)
		_ = s.lockFile.Close()
		s.lockFile = nil
	}
	s.sectionMu.Unlock()
}

// load reads the full confirmation map from disk.
func (s *Store) load() (map[string]*Confirmation, error) {
	data, err := os.ReadFile(s.dbPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.dbPath, err)
	}
	if len(data) == 0 {
		return map[string]*Confirmation{}, nil
	}
	records := map[string]*Confirmation{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.dbPath, err)
	}
	return records, nil
}

// save writes the full confirmation map with an atomic replace: write
// a temporary file, then rename over the real one. A crash mid-write
// cannot leave a half-written store.
func (s *Store) save(records map[string]*Confirmation) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding confirmations: %w", err)
	}
	data = append(data, '\n')

	tmpPath := s.dbPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, s.dbPath); err != nil {
		return fmt.Errorf("replacing %s: %w", s.dbPath, err)
	}
	return nil
}

// appendAudit writes one JSONL line {ts, action, confirmation_id,
// ...extra}. Must be called with s.mu held.
func (s *Store) appendAudit(action, confirmationID string, extra map[string]any) error {
	line := map[string]any{
		"ts":              s.clock.Now().Unix(),
		"action":          action,
		"confirmation_id": confirmationID,
	}
	for key, value := range extra {
		line[key] = value
	}
	data, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("encoding audit line: %w", err)
	}
	data = append(data, '\n')

	file, err := os.OpenFile(s.auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer file.Close()
	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("appending audit line: %w", err)
	}
	return nil
}
