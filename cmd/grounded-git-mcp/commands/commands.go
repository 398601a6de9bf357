// Copyright 2026 The Grounded Git MCP Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the grounded-git-mcp CLI command tree. The
// serve subcommand runs the MCP server; the confirmations and audit
// subcommands are operator tooling for inspecting the durable approval
// state a server leaves behind in a repository.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/adina8244/grounded-git-mcp-server/cmd/grounded-git-mcp/cli"
	"github.com/adina8244/grounded-git-mcp-server/lib/version"
)

// Root builds and returns the complete CLI command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "grounded-git-mcp",
		Description: `Grounded git MCP server: read-only git inspection plus a
propose/confirm gate for state-changing commands.

Mutations never run directly. An agent first proposes a command and
receives a short-lived confirmation token; only presenting that token
back executes the command, and every attempt consumes it.`,
		Subcommands: []*cli.Command{
			serveCommand(),
			confirmationsCommand(),
			auditCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					fmt.Printf("grounded-git-mcp %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Serve MCP on stdio for the current repository",
				Command:     "grounded-git-mcp serve --root-dir .",
			},
			{
				Description: "List pending and consumed confirmations",
				Command:     "grounded-git-mcp confirmations --root ~/src/project",
			},
			{
				Description: "Show the last twenty audit records as JSON",
				Command:     "grounded-git-mcp audit --root ~/src/project -n 20 --json",
			},
		},
	}
}
