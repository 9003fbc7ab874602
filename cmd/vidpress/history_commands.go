package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vidpress/internal/history"
	"vidpress/internal/workspace"
)

const abandonedReason = "process exited before the run finished"

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				runs, err := listReconciled(cmd.Context(), store, limit)
				if err != nil {
					return err
				}
				if jsonOut {
					if runs == nil {
						runs = []*history.Run{}
					}
					return writeJSON(cmd, runs)
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Status", "Title", "Strategy", "Images", "Started", "Elapsed"},
					historyRows(runs, time.Now()),
					5, 7,
				))
				return nil
			})
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 lists all)")
	historyCmd.Flags().BoolVar(&jsonOut, "json", false, "Print runs as JSON")

	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	return historyCmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run; any unique id prefix works",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				if _, err := reconcileRunning(cmd.Context(), store); err != nil {
					return err
				}
				run, err := store.FindByPrefix(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("run %q not found", args[0])
				}
				if jsonOut {
					return writeJSON(cmd, run)
				}
				printRun(cmd.OutOrStdout(), run, time.Now())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the run as JSON")
	return cmd
}

// reconcileRunning fails runs left in the running state by a process that
// no longer holds their workspace lock.
func reconcileRunning(ctx context.Context, store *history.Store) (int64, error) {
	runs, err := store.List(ctx, 0)
	if err != nil {
		return 0, err
	}
	var stale []string
	for _, run := range runs {
		if run.Status != history.StatusRunning {
			continue
		}
		if run.RunDir != "" && workspace.Active(run.RunDir) {
			continue
		}
		stale = append(stale, run.ID)
	}
	return store.AbandonRunning(ctx, stale, abandonedReason)
}

func listReconciled(ctx context.Context, store *history.Store, limit int) ([]*history.Run, error) {
	if _, err := reconcileRunning(ctx, store); err != nil {
		return nil, err
	}
	return store.List(ctx, limit)
}

func historyRows(runs []*history.Run, now time.Time) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			string(run.Status),
			truncate(run.Title, 40),
			run.Strategy,
			imagesSummary(run.Counts),
			run.CreatedAt.Local().Format("2006-01-02 15:04"),
			run.Elapsed(now).Round(time.Second).String(),
		})
	}
	return rows
}

func printRun(out io.Writer, run *history.Run, now time.Time) {
	fmt.Fprintf(out, "Run %s\n", run.ID)
	fmt.Fprintf(out, "  Status:    %s\n", run.Status)
	fmt.Fprintf(out, "  Title:     %s\n", run.Title)
	fmt.Fprintf(out, "  Strategy:  %s\n", run.Strategy)
	if run.SourceVideo != "" {
		fmt.Fprintf(out, "  Video:     %s\n", run.SourceVideo)
	}
	if run.PlanPath != "" {
		fmt.Fprintf(out, "  Plan:      %s\n", run.PlanPath)
	}
	fmt.Fprintf(out, "  Images:    %d published, %d local only, %d skipped, %d failed\n",
		run.Counts.Published, run.Counts.LocalOnly, run.Counts.Skipped, run.Counts.Failed)
	fmt.Fprintf(out, "  Started:   %s\n", run.CreatedAt.Local().Format(time.RFC3339))
	if run.FinishedAt != nil {
		fmt.Fprintf(out, "  Finished:  %s\n", run.FinishedAt.Local().Format(time.RFC3339))
	}
	fmt.Fprintf(out, "  Elapsed:   %s\n", run.Elapsed(now).Round(time.Second))
	if run.RunDir != "" {
		fmt.Fprintf(out, "  Directory: %s\n", run.RunDir)
	}
	if run.ArticlePath != "" {
		fmt.Fprintf(out, "  Article:   %s\n", run.ArticlePath)
	}
	if run.ManifestPath != "" {
		fmt.Fprintf(out, "  Manifest:  %s\n", run.ManifestPath)
	}
	if msg := strings.TrimSpace(run.ErrorMessage); msg != "" {
		fmt.Fprintf(out, "  Error:     %s\n", msg)
	}
}

func imagesSummary(c history.Counts) string {
	total := c.Total()
	if total == 0 {
		return "-"
	}
	return strconv.Itoa(c.Published+c.LocalOnly) + "/" + strconv.Itoa(total)
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
