package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"recsort/internal/config"
	"recsort/internal/journal"
	"recsort/internal/logging"
	"recsort/internal/metadata"
	"recsort/internal/services"
	"recsort/internal/sorter"
)

type sortFlags struct {
	maxPerDir        int
	splitMonths      bool
	keepFilename     bool
	minEventDelta    int
	dateTimeFilename bool
	workers          int
	verify           bool
	dryRun           bool
	journal          bool
	tree             bool
	noProgress       bool
}

func newSortCommand(ctx *commandContext) *cobra.Command {
	var flags sortFlags

	cmd := &cobra.Command{
		Use:   "sort SOURCE DEST",
		Short: "Copy recovered files from SOURCE into a sorted tree under DEST",
		Long: `Copy every file under SOURCE into DEST, grouped by type. Images with a
capture time go to <year>[/<month>]/<event>, images without one go to the
unsorted folder, everything else goes to a folder named after its extension.

Files are copied, never moved. Rerunning the same command resumes an
interrupted run and does nothing after a completed one.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSort(cmd, ctx, flags, args[0], args[1])
		},
	}

	f := cmd.Flags()
	f.IntVarP(&flags.maxPerDir, "max-per-dir", "n", 500, "Maximum files per directory before overflowing into <dir>-2, <dir>-3, ...")
	f.BoolVarP(&flags.splitMonths, "split-months", "m", false, "Add a month level below the year")
	f.BoolVarP(&flags.keepFilename, "keep-filename", "k", false, "Keep the recovered file name instead of renaming")
	f.IntVarP(&flags.minEventDelta, "min-event-delta", "d", 4, "Days without photos that separate two events")
	f.BoolVarP(&flags.dateTimeFilename, "date-time-filename", "j", false, "Name dated images after their capture time")
	f.IntVar(&flags.workers, "workers", 1, "Parallel metadata readers and copiers")
	f.BoolVar(&flags.verify, "verify", false, "Re-hash each copy and compare it with the source")
	f.BoolVar(&flags.dryRun, "dry-run", false, "Plan the layout without creating or copying anything")
	f.BoolVar(&flags.journal, "journal", false, "Record this run in the history journal")
	f.BoolVar(&flags.tree, "tree", false, "Print the planned layout as a tree (requires --dry-run)")
	f.BoolVar(&flags.noProgress, "no-progress", false, "Disable the progress bar")

	return cmd
}

func runSort(cmd *cobra.Command, ctx *commandContext, flags sortFlags, source, dest string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if flags.tree && !flags.dryRun {
		return errors.New("--tree requires --dry-run")
	}

	source, err = config.ExpandPath(source)
	if err != nil {
		return fmt.Errorf("resolve source: %w", err)
	}
	dest, err = config.ExpandPath(dest)
	if err != nil {
		return fmt.Errorf("resolve destination: %w", err)
	}

	opts := sorter.OptionsFromConfig(cfg, source, dest)
	applySortFlags(cmd, flags, &opts)
	opts.RunID = uuid.NewString()

	logger, err := ctx.newLogger(opts.RunID)
	if err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	deps := sorter.Deps{
		Reader: metadata.NewExifReader(metadata.NewPolicy(
			cfg.Metadata.MinYear,
			time.Duration(cfg.Metadata.FutureSlackHours)*time.Hour,
		)),
		Logger: logger,
	}
	if cfg.Journal.Enabled || flags.journal {
		if store := openRunJournal(ctx, logger); store != nil {
			defer store.Close()
			deps.Journal = store
		}
	}

	out := cmd.OutOrStdout()
	if !flags.noProgress && isTerminal(cmd.ErrOrStderr()) {
		deps.Observer = newProgressObserver(cmd.ErrOrStderr(), opts.DryRun)
	}

	report, runErr := sorter.Run(signalCtx, opts, deps)
	if report == nil {
		if errors.Is(runErr, services.ErrConfiguration) || errors.Is(runErr, services.ErrConflict) {
			return fmt.Errorf("%w\nhint: %s", runErr, services.Hint(runErr))
		}
		return runErr
	}

	fmt.Fprintln(out, renderSummary(report))
	if flags.tree {
		fmt.Fprintln(out, renderPlanTree(report.Dest, report.Files))
	}
	if failures := renderFailures(report, 20); failures != "" {
		fmt.Fprintln(out, failures)
	}
	if errors.Is(runErr, context.Canceled) {
		fmt.Fprintln(out, "Run interrupted; rerun the same command to resume.")
	}
	return runErr
}

// applySortFlags overrides config-derived options with flags the user set.
func applySortFlags(cmd *cobra.Command, flags sortFlags, opts *sorter.Options) {
	changed := cmd.Flags().Changed
	if changed("max-per-dir") {
		opts.MaxPerDir = flags.maxPerDir
	}
	if changed("split-months") {
		opts.SplitMonths = flags.splitMonths
	}
	if changed("keep-filename") {
		opts.KeepFilename = flags.keepFilename
	}
	if changed("min-event-delta") {
		opts.MinEventDelta = time.Duration(flags.minEventDelta) * 24 * time.Hour
	}
	if changed("date-time-filename") {
		opts.DateTimeFilename = flags.dateTimeFilename
	}
	if changed("workers") {
		opts.Workers = flags.workers
	}
	if changed("verify") {
		opts.Verify = flags.verify
	}
	opts.DryRun = flags.dryRun
}

// openRunJournal opens the journal for a sort run. History is optional, so
// a journal that cannot be opened only costs the record of this run.
func openRunJournal(ctx *commandContext, logger *slog.Logger) *journal.Store {
	store, err := ctx.openJournal(false)
	if err != nil {
		logging.WarnWithContext(logger, "journal unavailable; run will not be recorded", "journal_error",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check journal.path or delete a damaged journal database"),
			logging.String(logging.FieldImpact, "this run is missing from history"),
		)
		return nil
	}
	return store
}
