// Copyright 2026 The Grounded Git MCP Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/adina8244/grounded-git-mcp-server/cmd/grounded-git-mcp/cli"
	"github.com/adina8244/grounded-git-mcp-server/lib/approval"
	"github.com/adina8244/grounded-git-mcp-server/lib/clock"
	"github.com/adina8244/grounded-git-mcp-server/lib/git"
)

// confirmationView is the operator-facing projection of a stored
// confirmation record.
type confirmationView struct {
	ConfirmationID string   `json:"confirmation_id"`
	Status         string   `json:"status"`
	Args           []string `json:"args"`
	Level          string   `json:"level,omitempty"`
	Used           int      `json:"used"`
	MaxUses        int      `json:"max_uses"`
	CreatedAt      string   `json:"created_at"`
	ExpiresAt      string   `json:"expires_at"`
}

func confirmationsCommand() *cli.Command {
	var (
		rootDir string
		asJSON  bool
		showAll bool
	)

	return &cli.Command{
		Name:    "confirmations",
		Summary: "List stored confirmation records for a repository",
		Description: `List the confirmation records in a repository's approval store.

Each record is shown with its current status: pending (still usable),
consumed (its uses are spent), or expired. By default only pending
records are listed; --all includes consumed and expired ones.`,
		Usage: "grounded-git-mcp confirmations --root PATH [--all] [--json]",
		Examples: []cli.Example{
			{
				Description: "Pending confirmations in the current repository",
				Command:     "grounded-git-mcp confirmations --root .",
			},
			{
				Description: "Full history as JSON",
				Command:     "grounded-git-mcp confirmations --root . --all --json",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("confirmations", pflag.ContinueOnError)
			flags.StringVar(&rootDir, "root", ".", "repository to inspect")
			flags.BoolVar(&showAll, "all", false, "include consumed and expired records")
			flags.BoolVar(&asJSON, "json", false, "emit JSON instead of a table")
			return flags
		},
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("confirmations takes no positional arguments, got %q", args[0])
			}

			store, err := openRepoStore(rootDir)
			if err != nil {
				return err
			}
			records, err := store.List()
			if err != nil {
				return err
			}

			now := time.Now()
			views := []confirmationView{}
			for _, record := range records {
				view := viewOf(record, now)
				if !showAll && view.Status != "pending" {
					continue
				}
				views = append(views, view)
			}

			if asJSON {
				return cli.WriteJSON(views)
			}
			if len(views) == 0 {
				fmt.Println("no confirmations")
				return nil
			}
			writer := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintln(writer, "ID\tSTATUS\tLEVEL\tUSES\tEXPIRES\tCOMMAND")
			for _, view := range views {
				fmt.Fprintf(writer, "%s\t%s\t%s\t%d/%d\t%s\tgit %s\n",
					view.ConfirmationID, view.Status, view.Level,
					view.Used, view.MaxUses, view.ExpiresAt,
					strings.Join(view.Args, " "))
			}
			return writer.Flush()
		},
	}
}

// viewOf derives the operator projection, classifying the record's
// status against the supplied wall-clock time.
func viewOf(record *approval.Confirmation, now time.Time) confirmationView {
	status := "pending"
	switch {
	case record.IsExpired(now):
		status = "expired"
	case record.Used >= record.MaxUses:
		status = "consumed"
	}
	level, _ := record.Classification["level"].(string)
	return confirmationView{
		ConfirmationID: record.ConfirmationID,
		Status:         status,
		Args:           record.Args,
		Level:          level,
		Used:           record.Used,
		MaxUses:        record.MaxUses,
		CreatedAt:      time.Unix(record.CreatedAt, 0).UTC().Format(time.RFC3339),
		ExpiresAt:      time.Unix(record.ExpiresAt, 0).UTC().Format(time.RFC3339),
	}
}

// openRepoStore resolves path to a repository root and opens its
// approval store.
func openRepoStore(path string) (*approval.Store, error) {
	root, err := git.ResolveRoot(path)
	if err != nil {
		return nil, err
	}
	return approval.OpenStore(root, clock.Real())
}
