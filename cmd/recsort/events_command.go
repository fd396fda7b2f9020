package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"recsort/internal/config"
	"recsort/internal/metadata"
	"recsort/internal/sorter"
)

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var splitMonths bool
	var minEventDelta int
	var workers int

	cmd := &cobra.Command{
		Use:   "events SOURCE",
		Short: "Show how the images under SOURCE group into events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			source, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve source: %w", err)
			}

			opts := sorter.OptionsFromConfig(cfg, source, "")
			if cmd.Flags().Changed("split-months") {
				opts.SplitMonths = splitMonths
			}
			if cmd.Flags().Changed("min-event-delta") {
				opts.MinEventDelta = time.Duration(minEventDelta) * 24 * time.Hour
			}
			if cmd.Flags().Changed("workers") {
				opts.Workers = workers
			}

			logger, err := ctx.newLogger(uuid.NewString())
			if err != nil {
				return err
			}
			report, err := sorter.Events(cmd.Context(), opts, sorter.Deps{
				Reader: metadata.NewExifReader(metadata.NewPolicy(
					cfg.Metadata.MinYear,
					time.Duration(cfg.Metadata.FutureSlackHours)*time.Hour,
				)),
				Logger: logger,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d images, %d with a capture time, %d events\n",
				report.Scan.Images, report.Scan.Dated, len(report.Events))
			if len(report.Events) == 0 {
				return nil
			}
			rows := make([][]string, 0, len(report.Events))
			for _, ev := range report.Events {
				rows = append(rows, []string{
					ev.Label.String(),
					ev.First.Format(time.DateTime),
					ev.Last.Format(time.DateTime),
					formatSpan(ev.Span()),
					strconv.Itoa(ev.Members),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Event", "First capture", "Last capture", "Span", "Images"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&splitMonths, "split-months", "m", false, "Number events per month instead of per year")
	cmd.Flags().IntVarP(&minEventDelta, "min-event-delta", "d", 4, "Days without photos that separate two events")
	cmd.Flags().IntVar(&workers, "workers", 1, "Parallel metadata readers")
	return cmd
}

// formatSpan renders a duration in days and hours.
func formatSpan(d time.Duration) string {
	if d < time.Minute {
		return "0m"
	}
	days := int(d / (24 * time.Hour))
	rest := d % (24 * time.Hour)
	hours := int(rest / time.Hour)
	minutes := int(rest % time.Hour / time.Minute)
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
