package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/garyellow/admission-lists/internal/storage"
)

func (c *cli) newRunsCmd() *cobra.Command {
	var (
		limit  int
		prune  int
		output string
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored mapping builds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.fail(cmd, c.runRuns(cmd, limit, prune, output))
		},
	}
	f := cmd.Flags()
	f.IntVarP(&limit, "limit", "n", 20, "Number of runs to list")
	f.IntVar(&prune, "prune", 0, "Delete all but the newest N runs before listing (0 disables)")
	f.StringVar(&output, "output", "text", "Output format: text or json")
	return cmd
}

func (c *cli) runRuns(cmd *cobra.Command, limit, prune int, output string) error {
	ctx := cmd.Context()
	db, err := storage.New(ctx, c.cfg.SQLitePath())
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	w := cmd.OutOrStdout()
	if prune > 0 {
		removed, err := db.PruneRuns(ctx, prune)
		if err != nil {
			return err
		}
		c.log.WithField("removed", removed).WithField("kept", prune).Info("Pruned runs")
		if output != "json" {
			_, _ = fmt.Fprintf(w, "🧹 Removed %d run(s)\n", removed)
		}
	}

	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if output == "json" {
		if runs == nil {
			runs = []storage.Run{}
		}
		return writeJSON(w, runs)
	}
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(w, "No runs stored")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tCREATED\tUNIQUE\tDUPLICATES\tCOLLISIONS\tSOURCE")
	for _, r := range runs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
			r.ID, r.CreatedAt.Format(time.RFC3339), r.Unique, r.Duplicates, r.CaseCollisions, r.Source)
	}
	return tw.Flush()
}
