package sorter

import (
	"context"
	"log/slog"
	"time"

	"recsort/internal/config"
	"recsort/internal/fileutil"
	"recsort/internal/journal"
	"recsort/internal/metadata"
)

// LockFileName is created at the destination root while a run holds it.
const LockFileName = ".recsort.lock"

// Options describes one run.
type Options struct {
	// RunID identifies the run in logs and the journal; generated when empty.
	RunID  string
	Source string
	Dest   string

	MaxPerDir        int
	SplitMonths      bool
	KeepFilename     bool
	DateTimeFilename bool
	MinEventDelta    time.Duration
	UnsortedDir      string
	NoExtensionDir   string
	ImageExtensions  []string

	Workers int
	Verify  bool
	DryRun  bool
}

// OptionsFromConfig fills sorting and copy options from cfg.
func OptionsFromConfig(cfg *config.Config, source, dest string) Options {
	return Options{
		Source:           source,
		Dest:             dest,
		MaxPerDir:        cfg.Sorting.MaxPerDir,
		SplitMonths:      cfg.Sorting.SplitMonths,
		KeepFilename:     cfg.Sorting.KeepFilename,
		DateTimeFilename: cfg.Sorting.DateTimeFilename,
		MinEventDelta:    time.Duration(cfg.Sorting.MinEventDeltaDays) * 24 * time.Hour,
		UnsortedDir:      cfg.Sorting.UnsortedDir,
		NoExtensionDir:   cfg.Sorting.NoExtensionDir,
		ImageExtensions:  cfg.Sorting.ImageExtensions,
		Workers:          cfg.Copy.Workers,
		Verify:           cfg.Copy.Verify,
	}
}

// CopyFunc copies one file; see fileutil.CopyAtomic.
type CopyFunc func(ctx context.Context, src, dst string, opts fileutil.CopyOptions) (int64, error)

// Deps carries collaborators. Zero values select the defaults.
type Deps struct {
	// Reader defaults to an EXIF reader with the default plausibility policy.
	Reader   metadata.Reader
	Journal  *journal.Store
	Logger   *slog.Logger
	Observer Observer
	// Copy defaults to fileutil.CopyAtomic.
	Copy CopyFunc
}

// Observer receives progress callbacks. Calls are serialised.
type Observer interface {
	// OnStart is called once before the copy phase with the number of files.
	OnStart(total int)
	// OnFile is called after each file is copied, skipped, planned, or failed.
	OnFile(result FileResult)
	// OnPhase is called when a phase completes.
	OnPhase(name string, elapsed time.Duration)
}

// NopObserver ignores all callbacks.
type NopObserver struct{}

func (NopObserver) OnStart(int)                   {}
func (NopObserver) OnFile(FileResult)             {}
func (NopObserver) OnPhase(string, time.Duration) {}
