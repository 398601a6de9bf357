// Copyright 2026 The Grounded Git MCP Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestExecuteDispatchesSubcommand(t *testing.T) {
	var ran []string
	root := &Command{
		Name: "tool",
		Subcommands: []*Command{
			{
				Name: "serve",
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					ran = args
					return nil
				},
			},
		},
	}

	if err := root.Execute(context.Background(), []string{"serve", "extra"}, testLogger()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(ran) != 1 || ran[0] != "extra" {
		t.Errorf("subcommand args = %v, want [extra]", ran)
	}
}

func TestExecuteUnknownSubcommandSuggests(t *testing.T) {
	root := &Command{
		Name: "tool",
		Subcommands: []*Command{
			{Name: "audit"},
			{Name: "serve"},
		},
	}

	err := root.Execute(context.Background(), []string{"adit"}, testLogger())
	if err == nil {
		t.Fatal("unknown subcommand did not error")
	}
	if !strings.Contains(err.Error(), `did you mean "audit"`) {
		t.Errorf("error %q does not suggest audit", err)
	}
}

func TestExecuteParsesFlags(t *testing.T) {
	var root string
	command := &Command{
		Name: "confirmations",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("confirmations", pflag.ContinueOnError)
			flagSet.StringVar(&root, "root", "", "repository root")
			return flagSet
		},
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			return nil
		},
	}

	if err := command.Execute(context.Background(), []string{"--root", "/work/repo"}, testLogger()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if root != "/work/repo" {
		t.Errorf("--root = %q, want /work/repo", root)
	}
}

func TestExecuteNoSubcommandShowsError(t *testing.T) {
	root := &Command{
		Name:        "tool",
		Subcommands: []*Command{{Name: "serve"}},
	}
	if err := root.Execute(context.Background(), nil, testLogger()); err == nil {
		t.Fatal("missing subcommand did not error")
	}
}
