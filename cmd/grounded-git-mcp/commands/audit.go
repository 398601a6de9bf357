// Copyright 2026 The Grounded Git MCP Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/adina8244/grounded-git-mcp-server/cmd/grounded-git-mcp/cli"
	"github.com/adina8244/grounded-git-mcp-server/lib/approval"
)

// auditView flattens an audit record for output. Extra holds the
// action-specific fields (args, exit code, violation details) verbatim.
type auditView struct {
	TS             string         `json:"ts"`
	Action         string         `json:"action"`
	ConfirmationID string         `json:"confirmation_id,omitempty"`
	Extra          map[string]any `json:"extra,omitempty"`
}

func auditCommand() *cli.Command {
	var (
		rootDir string
		asJSON  bool
		limit   int
	)

	return &cli.Command{
		Name:    "audit",
		Summary: "Show the approval audit trail for a repository",
		Description: `Print the append-only audit trail the approval subsystem keeps
alongside its confirmation store. Every proposal, execution, and
rejected execution attempt appears here, oldest first.`,
		Usage: "grounded-git-mcp audit --root PATH [-n COUNT] [--json]",
		Examples: []cli.Example{
			{
				Description: "Last ten audit records",
				Command:     "grounded-git-mcp audit --root . -n 10",
			},
			{
				Description: "Entire trail as JSON for post-processing",
				Command:     "grounded-git-mcp audit --root . --json",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("audit", pflag.ContinueOnError)
			flags.StringVar(&rootDir, "root", ".", "repository to inspect")
			flags.IntVarP(&limit, "count", "n", 0, "show only the most recent COUNT records")
			flags.BoolVar(&asJSON, "json", false, "emit JSON instead of a table")
			return flags
		},
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("audit takes no positional arguments, got %q", args[0])
			}

			store, err := openRepoStore(rootDir)
			if err != nil {
				return err
			}
			records, err := store.ReadAudit(limit)
			if err != nil {
				return err
			}

			views := make([]auditView, 0, len(records))
			for _, record := range records {
				views = append(views, auditViewOf(record))
			}

			if asJSON {
				return cli.WriteJSON(views)
			}
			if len(views) == 0 {
				fmt.Println("no audit records")
				return nil
			}
			writer := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintln(writer, "TIME\tACTION\tCONFIRMATION")
			for _, view := range views {
				id := view.ConfirmationID
				if id == "" {
					id = "-"
				}
				fmt.Fprintf(writer, "%s\t%s\t%s\n", view.TS, view.Action, id)
			}
			return writer.Flush()
		},
	}
}

func auditViewOf(record approval.AuditRecord) auditView {
	view := auditView{
		TS:             time.Unix(record.TS, 0).UTC().Format(time.RFC3339),
		Action:         record.Action,
		ConfirmationID: record.ConfirmationID,
	}
	if len(record.Extra) > 0 {
		view.Extra = record.Extra
	}
	return view
}
