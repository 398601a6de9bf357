// Copyright 2026 The Grounded Git MCP Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/adina8244/grounded-git-mcp-server/cmd/grounded-git-mcp/cli"
	"github.com/adina8244/grounded-git-mcp-server/cmd/grounded-git-mcp/mcp"
	"github.com/adina8244/grounded-git-mcp-server/lib/approval"
	"github.com/adina8244/grounded-git-mcp-server/lib/clock"
	"github.com/adina8244/grounded-git-mcp-server/lib/config"
	"github.com/adina8244/grounded-git-mcp-server/lib/git"
	"github.com/adina8244/grounded-git-mcp-server/lib/safety"
)

func serveCommand() *cli.Command {
	var (
		rootDir    string
		configPath string
	)

	return &cli.Command{
		Name:    "serve",
		Summary: "Run the MCP server on stdio",
		Description: `Run the MCP server, speaking newline-delimited JSON-RPC on stdin
and stdout. Logs go to stderr so they never corrupt the protocol
stream.

With --root-dir, tools that omit a repository path operate on that
repository. Without it, every tool call must name a path explicitly.`,
		Usage: "grounded-git-mcp serve [--root-dir PATH] [--config FILE]",
		Examples: []cli.Example{
			{
				Description: "Serve the repository in the current directory",
				Command:     "grounded-git-mcp serve --root-dir .",
			},
			{
				Description: "Serve with a custom timeout and TTL configuration",
				Command:     "grounded-git-mcp serve --config ~/.config/grounded-git-mcp.yaml",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("serve", pflag.ContinueOnError)
			flags.StringVar(&rootDir, "root-dir", "", "default repository for tools that omit a path")
			flags.StringVar(&configPath, "config", "", "config file (overrides "+config.EnvVar+")")
			return flags
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("serve takes no positional arguments, got %q", args[0])
			}

			cfg, err := config.FromEnvironment(configPath)
			if err != nil {
				return err
			}
			limits := git.Limits{
				ReadTimeout:    cfg.Git.ReadTimeout(),
				WriteTimeout:   cfg.Git.WriteTimeout(),
				MaxOutputBytes: cfg.Git.MaxOutputBytes,
			}

			// Resolve the default root up front so a bad --root-dir fails
			// at startup rather than on the first tool call.
			if rootDir != "" {
				resolved, err := git.ResolveRoot(rootDir)
				if err != nil {
					return fmt.Errorf("resolving --root-dir: %w", err)
				}
				rootDir = resolved
			}

			opener := func(path string) (approval.Repo, error) {
				return git.Open(path, limits)
			}
			service := approval.NewService(safety.New(), opener, clock.Real(), cfg.Approval.TTL())
			server := mcp.NewServer(service, limits, rootDir, logger)

			logger.Info("serving MCP on stdio",
				"root", rootDir,
				"confirmation_ttl", cfg.Approval.TTL(),
			)
			return server.Serve(ctx)
		},
	}
}
