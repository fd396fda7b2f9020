package sorter

import (
	"context"
	"time"

	"recsort/internal/events"
	"recsort/internal/filetype"
	"recsort/internal/logging"
	"recsort/internal/scan"
	"recsort/internal/services"
)

// EventSummary describes one event found among the source images.
type EventSummary struct {
	Label   events.Label
	First   time.Time
	Last    time.Time
	Members int
}

// Span is the time between the first and last capture.
func (e EventSummary) Span() time.Duration { return e.Last.Sub(e.First) }

// EventsReport is the result of a scan-and-segment pass.
type EventsReport struct {
	Source string
	Scan   scan.Stats
	Events []EventSummary
}

// Events scans opts.Source and segments its dated images exactly as Run
// would, without touching any destination. Only the source, event, and
// bucket-name options are used.
func Events(ctx context.Context, opts Options, deps Deps) (*EventsReport, error) {
	src, err := checkSource(opts.Source)
	if err != nil {
		return nil, err
	}
	if opts.MinEventDelta < 0 {
		return nil, services.Wrap(services.ErrValidation, "setup", "options", "min event delta must not be negative", nil)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	deps = withDefaults(deps)
	logger := logging.NewComponentLogger(deps.Logger, "events")

	classifier := filetype.NewClassifier(opts.ImageExtensions, opts.NoExtensionDir, opts.UnsortedDir)
	files, stats, err := scan.Walk(services.WithPhase(ctx, "scan"), scan.Options{
		Root:       src,
		Classifier: classifier,
		Reader:     deps.Reader,
		Workers:    opts.Workers,
		Logger:     deps.Logger,
	})
	if err != nil {
		return nil, err
	}

	evs, labels := segmentFiles(files, opts.MinEventDelta, opts.SplitMonths)
	report := &EventsReport{Source: src, Scan: stats, Events: make([]EventSummary, 0, len(evs))}
	for _, ev := range evs {
		report.Events = append(report.Events, EventSummary{
			Label:   labels[ev.Members[0].Index],
			First:   ev.First(),
			Last:    ev.Last(),
			Members: len(ev.Members),
		})
	}
	logger.Info("events segmented",
		logging.String(logging.FieldEventType, "events_segmented"),
		logging.Int("images", stats.Images),
		logging.Int("dated", stats.Dated),
		logging.Int("events", len(evs)),
	)
	return report, nil
}
