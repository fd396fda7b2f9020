package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"recsort/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List runs recorded in the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withJournal(cmd, ctx, func(store *journal.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						shortID(run.ID),
						humanize.Time(run.StartedAt),
						runStatusLabel(run),
						strconv.Itoa(run.Copied),
						strconv.Itoa(run.Skipped),
						strconv.Itoa(run.Failed),
						humanize.IBytes(uint64(run.BytesCopied)),
						run.Destination,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Run", "Started", "Status", "Copied", "Skipped", "Failed", "Size", "Destination"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	historyCmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to show (0 for all)")

	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryPruneCommand(ctx))
	return historyCmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var allFiles bool

	cmd := &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show one run and the files it did not copy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withJournal(cmd, ctx, func(store *journal.Store) error {
				run, err := store.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				entries, err := store.ListEntries(cmd.Context(), run.ID)
				if err != nil {
					return err
				}

				pairs := [][2]string{
					{"Run", run.ID},
					{"Status", runStatusLabel(*run)},
					{"Source", run.Source},
					{"Destination", run.Destination},
					{"Started", run.StartedAt.Local().Format(time.DateTime)},
				}
				if !run.FinishedAt.IsZero() {
					pairs = append(pairs,
						[2]string{"Finished", run.FinishedAt.Local().Format(time.DateTime)},
						[2]string{"Duration", run.Duration().Round(time.Millisecond).String()},
					)
				}
				pairs = append(pairs,
					[2]string{"Files", strconv.Itoa(run.Total)},
					[2]string{"Copied", strconv.Itoa(run.Copied)},
					[2]string{"Already present", strconv.Itoa(run.Skipped)},
					[2]string{"Failed", strconv.Itoa(run.Failed)},
					[2]string{"Bytes copied", humanize.IBytes(uint64(run.BytesCopied))},
					[2]string{"Events", strconv.Itoa(run.Events)},
					[2]string{"Undated images", strconv.Itoa(run.Undated)},
				)
				if run.Error != "" {
					pairs = append(pairs, [2]string{"Error", run.Error})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderKeyValues(pairs))

				var rows [][]string
				for _, e := range entries {
					if !allFiles && e.Status != "failed" {
						continue
					}
					rows = append(rows, []string{e.Status, e.Source, e.Destination, e.Error})
				}
				if len(rows) > 0 {
					fmt.Fprintln(out, renderTable([]string{"Status", "Source", "Destination", "Error"}, rows, nil))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&allFiles, "files", false, "List every file, not just failures")
	return cmd
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the most recent runs from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if keep < 0 {
				return errors.New("--keep must not be negative")
			}
			return withJournal(cmd, ctx, func(store *journal.Store) error {
				removed, err := store.Prune(cmd.Context(), keep)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run(s), kept the latest %d\n", removed, keep)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 50, "Number of most recent runs to keep")
	return cmd
}

// withJournal runs fn against the journal, or reports that nothing has been
// recorded when the database does not exist yet.
func withJournal(cmd *cobra.Command, ctx *commandContext, fn func(*journal.Store) error) error {
	store, err := ctx.openJournal(true)
	if err != nil {
		return err
	}
	if store == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded (enable [journal] or pass --journal to sort)")
		return nil
	}
	defer store.Close()
	return fn(store)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func runStatusLabel(run journal.Run) string {
	label := string(run.Status)
	if run.DryRun {
		label += " (dry run)"
	}
	return label
}
