// Copyright 2026 The Grounded Git MCP Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	t.Parallel()

	configuration, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if got := configuration.Git.ReadTimeout(); got != 3*time.Second {
		t.Errorf("ReadTimeout = %v, want 3s", got)
	}
	if got := configuration.Git.MaxOutputBytes; got != 80_000 {
		t.Errorf("MaxOutputBytes = %d, want 80000", got)
	}
	if got := configuration.Approval.TTL(); got != 15*time.Minute {
		t.Errorf("TTL = %v, want 15m", got)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "approval:\n  ttl_seconds: 60\ngit:\n  read_timeout_seconds: 5\n  write_timeout_seconds: 30\n  max_output_bytes: 1000\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	configuration, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := configuration.Approval.TTL(); got != time.Minute {
		t.Errorf("TTL = %v, want 1m", got)
	}
	if got := configuration.Git.ReadTimeout(); got != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", got)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		content string
	}{
		{"zero ttl", "approval:\n  ttl_seconds: 0\n"},
		{"negative timeout", "git:\n  read_timeout_seconds: -1\n"},
		{"not yaml", "{{{"},
	}

	for _, testCase := range cases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(testCase.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load accepted invalid config")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load accepted a missing file")
	}
}
