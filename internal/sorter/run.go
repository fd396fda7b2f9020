package sorter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"recsort/internal/events"
	"recsort/internal/filetype"
	"recsort/internal/fileutil"
	"recsort/internal/journal"
	"recsort/internal/logging"
	"recsort/internal/metadata"
	"recsort/internal/naming"
	"recsort/internal/planner"
	"recsort/internal/preflight"
	"recsort/internal/scan"
	"recsort/internal/services"
)

const defaultMinYear = 1990

// Run sorts opts.Source into opts.Dest. Per-file failures are recorded in the
// report and do not stop the run. A fatal error is returned before any file
// is copied. On cancellation the partial report is returned with ctx.Err().
func Run(ctx context.Context, opts Options, deps Deps) (*Report, error) {
	if err := validate(&opts); err != nil {
		return nil, err
	}
	deps = withDefaults(deps)
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	logger := logging.NewComponentLogger(deps.Logger, "sorter")

	report := &Report{
		RunID:     opts.RunID,
		Source:    opts.Source,
		Dest:      opts.Dest,
		DryRun:    opts.DryRun,
		StartedAt: time.Now(),
	}

	unlock, err := prepareDestination(opts)
	if err != nil {
		return nil, err
	}
	defer unlock()

	r := &runner{
		opts:     opts,
		deps:     deps,
		logger:   logger,
		report:   report,
		progress: logging.NewProgressSampler(10),
	}
	r.beginJournal(ctx)

	runErr := r.run(ctx)
	report.Finalize()
	r.finishJournal(ctx, runErr)

	logger.Info("sort finished",
		logging.String(logging.FieldEventType, "run_finished"),
		logging.Int("copied", report.Copied),
		logging.Int("skipped", report.Skipped),
		logging.Int("failed", report.Failed),
		logging.Int("planned", report.Planned),
		logging.Int("events", report.Events),
		logging.Int64("bytes", report.BytesCopied),
		logging.Duration("elapsed", report.Duration()),
		logging.Bool("cancelled", report.Cancelled),
	)
	if runErr != nil && services.IsFatal(runErr) {
		logging.ErrorWithContext(logger, "sort aborted", "run_aborted",
			logging.Error(runErr),
			logging.String(logging.FieldErrorHint, services.Hint(runErr)),
		)
		return nil, runErr
	}
	return report, runErr
}

func validate(opts *Options) error {
	if opts.Source == "" || opts.Dest == "" {
		return services.Wrap(services.ErrValidation, "setup", "arguments", "source and destination are required", nil)
	}
	src, err := checkSource(opts.Source)
	if err != nil {
		return err
	}
	dest, err := filepath.Abs(opts.Dest)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "setup", "resolve destination", opts.Dest, err)
	}
	opts.Source, opts.Dest = src, dest

	realSrc, realDest := resolveLinks(src), resolveLinks(dest)
	if realSrc == realDest {
		return services.Wrap(services.ErrConfiguration, "setup", "check paths", "source and destination are the same directory", nil)
	}
	if scan.IsWithin(realSrc, realDest) {
		return services.Wrap(services.ErrConfiguration, "setup", "check paths", "source lies inside the destination", nil)
	}

	if opts.MaxPerDir < 1 {
		return services.Wrap(services.ErrValidation, "setup", "options", fmt.Sprintf("max per dir must be at least 1, got %d", opts.MaxPerDir), nil)
	}
	if opts.MinEventDelta < 0 {
		return services.Wrap(services.ErrValidation, "setup", "options", "min event delta must not be negative", nil)
	}
	if opts.UnsortedDir == "" || opts.NoExtensionDir == "" {
		return services.Wrap(services.ErrValidation, "setup", "options", "bucket folder names are required", nil)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return nil
}

// checkSource returns the absolute source path, which must be a directory.
func checkSource(source string) (string, error) {
	src, err := filepath.Abs(source)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "setup", "resolve source", source, err)
	}
	info, err := os.Stat(src)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "setup", "stat source", src, err)
	}
	if !info.IsDir() {
		return "", services.Wrap(services.ErrConfiguration, "setup", "stat source", src+" is not a directory", nil)
	}
	return src, nil
}

// resolveLinks returns path with symlinks resolved as far as it exists.
func resolveLinks(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	parent, base := filepath.Split(path)
	parent = filepath.Clean(parent)
	if parent == path {
		return path
	}
	return filepath.Join(resolveLinks(parent), base)
}

func withDefaults(deps Deps) Deps {
	if deps.Reader == nil {
		deps.Reader = metadata.NewExifReader(metadata.NewPolicy(defaultMinYear, 24*time.Hour))
	}
	if deps.Observer == nil {
		deps.Observer = NopObserver{}
	}
	if deps.Copy == nil {
		deps.Copy = fileutil.CopyAtomic
	}
	return deps
}

// prepareDestination creates the destination and takes its run lock. Dry
// runs touch nothing.
func prepareDestination(opts Options) (func(), error) {
	if opts.DryRun {
		return func() {}, nil
	}
	if err := os.MkdirAll(opts.Dest, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "setup", "create destination", opts.Dest, err)
	}
	lock := flock.New(filepath.Join(opts.Dest, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "setup", "lock destination", opts.Dest, err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrConflict, "setup", "lock destination", "another recsort run is writing to "+opts.Dest, nil)
	}
	return func() { _ = lock.Unlock() }, nil
}

type runner struct {
	opts   Options
	deps   Deps
	logger *slog.Logger
	report *Report

	// observerMu guards the observer, the sampler, and the counters below.
	observerMu sync.Mutex
	progress   *logging.ProgressSampler
	done       int
	counts     map[Status]int
}

func (r *runner) run(ctx context.Context) error {
	classifier := filetype.NewClassifier(r.opts.ImageExtensions, r.opts.NoExtensionDir, r.opts.UnsortedDir)

	started := time.Now()
	files, stats, err := scan.Walk(ctx, scan.Options{
		Root:       r.opts.Source,
		Exclude:    []string{r.opts.Dest},
		Classifier: classifier,
		Reader:     r.deps.Reader,
		Workers:    r.opts.Workers,
		Logger:     r.deps.Logger,
	})
	if err != nil {
		r.report.Cancelled = isCancel(err)
		return err
	}
	r.report.Scan = stats
	r.report.Total = len(files)
	r.report.Images = stats.Images
	r.report.Undated = stats.Images - stats.Dated
	r.phaseDone("scan", started)

	var required int64
	for _, f := range files {
		required += f.Size
	}
	r.report.Preflight = preflight.RunAll(preflight.Inputs{
		Source:                  r.opts.Source,
		Destination:             r.opts.Dest,
		RequiredBytes:           required,
		AllowMissingDestination: r.opts.DryRun,
	})
	for _, res := range r.report.Preflight {
		if !res.Passed && res.Optional {
			logging.WarnWithContext(r.logger, "preflight check failed", "preflight_warning",
				logging.String("check", res.Name),
				logging.String("detail", res.Detail),
				logging.String(logging.FieldErrorHint, "free space before the run or expect copy failures"),
				logging.String(logging.FieldImpact, "later copies may fail"),
			)
		}
	}
	if blocking := preflight.Blocking(r.report.Preflight); len(blocking) > 0 {
		return services.Wrap(services.ErrConfiguration, "preflight", blocking[0].Name, blocking[0].Detail, nil)
	}

	started = time.Now()
	labels := r.segment(files)
	r.phaseDone("segment", started)

	started = time.Now()
	err = r.copyAll(ctx, files, labels)
	r.phaseDone("copy", started)
	return err
}

func (r *runner) segment(files []scan.File) map[int]events.Label {
	evs, labels := segmentFiles(files, r.opts.MinEventDelta, r.opts.SplitMonths)
	r.report.Events = len(evs)
	return labels
}

// segmentFiles groups the dated files into events and labels each dated
// file index with its event.
func segmentFiles(files []scan.File, gap time.Duration, splitMonths bool) ([]events.Event, map[int]events.Label) {
	var stamps []events.Stamp
	for i, f := range files {
		if f.HasCapture {
			stamps = append(stamps, events.Stamp{Index: i, Time: f.Captured})
		}
	}
	events.Sort(stamps)
	evs := events.Segment(stamps, gap)

	scope := events.YearScope
	if splitMonths {
		scope = events.MonthScope
	}
	return evs, events.Assign(evs, scope)
}

type copyJob struct {
	index     int
	file      scan.File
	placement planner.Placement
}

func (r *runner) copyAll(ctx context.Context, files []scan.File, labels map[int]events.Label) error {
	ctx = services.WithPhase(ctx, "copy")
	plan := planner.New(planner.Options{
		Dest:        r.opts.Dest,
		MaxPerDir:   r.opts.MaxPerDir,
		UnsortedDir: r.opts.UnsortedDir,
		DryRun:      r.opts.DryRun,
		Logger:      r.deps.Logger,
	})
	nameOpts := naming.Options{KeepOriginal: r.opts.KeepFilename, FromMetadata: r.opts.DateTimeFilename}

	r.logger.Info("copy starting",
		logging.String(logging.FieldEventType, "copy_started"),
		logging.Int("total", len(files)),
		logging.Int("workers", r.opts.Workers),
		logging.Bool("dry_run", r.opts.DryRun),
		logging.Time("run_started", r.report.StartedAt),
	)
	r.notify(func(o Observer) { o.OnStart(len(files)) })

	results := make([]*FileResult, len(files))
	jobs := make(chan copyJob)
	var wg sync.WaitGroup
	for w := 0; w < r.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if ctx.Err() != nil {
					plan.Release(job.placement)
					continue
				}
				res := r.copyOne(ctx, job)
				if res.Status == StatusFailed {
					plan.Release(job.placement)
				}
				if isCancel(res.Err) {
					continue
				}
				results[job.index] = &res
				r.finish(ctx, res)
			}
		}()
	}

dispatch:
	for i, f := range files {
		if ctx.Err() != nil {
			break
		}
		req := planner.Request{
			Source:     f.Path,
			Kind:       f.Kind,
			TypeFolder: f.Folder,
			HasCapture: f.HasCapture,
			Captured:   f.Captured,
			Label:      labels[i],
			Candidate: naming.Candidate(naming.File{
				Name:       f.Name,
				Ext:        f.Ext,
				Captured:   f.Captured,
				HasCapture: f.HasCapture,
			}, nameOpts),
		}
		pl, err := plan.Place(req)
		res := r.baseResult(f, pl)
		switch {
		case err != nil:
			res.Status, res.Err = StatusFailed, err
		case pl.Existing:
			res.Status = StatusSkipped
		case r.opts.DryRun:
			res.Status = StatusPlanned
		default:
			select {
			case <-ctx.Done():
				plan.Release(pl)
				break dispatch
			case jobs <- copyJob{index: i, file: f, placement: pl}:
			}
			continue
		}
		results[i] = &res
		r.finish(ctx, res)
	}
	close(jobs)
	wg.Wait()
	r.logger.Debug("destination usage",
		logging.String(logging.FieldEventType, "destination_usage"),
		logging.Any("shards", plan.Usage()),
	)

	for _, res := range results {
		if res != nil {
			r.report.Files = append(r.report.Files, *res)
		}
	}
	if err := ctx.Err(); err != nil {
		r.report.Cancelled = true
		return err
	}
	return nil
}

func (r *runner) baseResult(f scan.File, pl planner.Placement) FileResult {
	res := FileResult{
		Source: f.Path,
		Rel:    f.Rel,
		Kind:   f.Kind,
		Folder: f.Folder,
		Dated:  f.HasCapture,
		Bucket: pl.Bucket,
		Dest:   pl.Path,
	}
	if pl.Path != "" {
		res.DestRel = pl.RelPath(r.opts.Dest)
	}
	return res
}

func (r *runner) copyOne(ctx context.Context, job copyJob) FileResult {
	res := r.baseResult(job.file, job.placement)
	n, err := r.deps.Copy(ctx, job.file.Path, job.placement.Path, fileutil.CopyOptions{Verify: r.opts.Verify})
	if err != nil {
		res.Status = StatusFailed
		switch {
		case isCancel(err):
			res.Err = err
		case errors.Is(err, fs.ErrNotExist):
			res.Err = services.Wrap(services.ErrNotFound, "copy", "open source", job.file.Rel+" disappeared after the scan", err)
		default:
			res.Err = services.Wrap(services.ErrTransient, "copy", "copy file", job.file.Rel, err)
		}
		return res
	}
	res.Status = StatusCopied
	res.Bytes = n
	return res
}

// finish logs and reports one final result.
func (r *runner) finish(ctx context.Context, res FileResult) {
	logger := logging.WithContext(services.WithSource(ctx, res.Rel), r.logger)
	switch res.Status {
	case StatusFailed:
		logging.WarnWithContext(logger, "file not copied", "file_failed",
			logging.String(logging.FieldDestination, res.DestRel),
			logging.Error(res.Err),
			logging.String(logging.FieldErrorHint, services.Hint(res.Err)),
		)
	case StatusCopied:
		logger.Debug("file copied",
			logging.String(logging.FieldEventType, "file_copied"),
			logging.String(logging.FieldDestination, res.DestRel),
			logging.Int64("bytes", res.Bytes),
		)
	default:
		logger.Debug("file "+string(res.Status),
			logging.String(logging.FieldEventType, "file_"+string(res.Status)),
			logging.String(logging.FieldDestination, res.DestRel),
		)
	}

	r.observerMu.Lock()
	defer r.observerMu.Unlock()
	r.done++
	if r.counts == nil {
		r.counts = make(map[Status]int)
	}
	r.counts[res.Status]++
	if r.progress.ShouldLog("copy", r.done, r.report.Total) {
		r.logger.Info("copy progress",
			logging.String(logging.FieldEventType, "copy_progress"),
			logging.Int("done", r.done),
			logging.Int("total", r.report.Total),
			logging.Int("copied", r.counts[StatusCopied]),
			logging.Int("planned", r.counts[StatusPlanned]),
			logging.Int("skipped", r.counts[StatusSkipped]),
			logging.Int("failed", r.counts[StatusFailed]),
		)
	}
	r.deps.Observer.OnFile(res)
}

func (r *runner) phaseDone(name string, started time.Time) {
	elapsed := time.Since(started)
	r.logger.Info("phase complete",
		logging.String(logging.FieldPhase, name),
		logging.Duration("elapsed", elapsed),
	)
	r.notify(func(o Observer) { o.OnPhase(name, elapsed) })
}

func (r *runner) notify(fn func(Observer)) {
	r.observerMu.Lock()
	defer r.observerMu.Unlock()
	fn(r.deps.Observer)
}

func (r *runner) beginJournal(ctx context.Context) {
	if r.deps.Journal == nil {
		return
	}
	err := r.deps.Journal.BeginRun(ctx, journal.Run{
		ID:          r.opts.RunID,
		Source:      r.opts.Source,
		Destination: r.opts.Dest,
		DryRun:      r.opts.DryRun,
		StartedAt:   r.report.StartedAt,
	})
	if err != nil {
		logging.WarnWithContext(r.logger, "journal unavailable", "journal_error",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the journal path or delete a damaged journal database"),
			logging.String(logging.FieldImpact, "this run is not recorded in history"),
		)
		r.deps.Journal = nil
	}
}

func (r *runner) finishJournal(ctx context.Context, runErr error) {
	if r.deps.Journal == nil {
		return
	}
	// Record the outcome even when the run was interrupted.
	ctx = context.WithoutCancel(ctx)

	entries := make([]journal.Entry, 0, len(r.report.Files))
	for _, f := range r.report.Files {
		e := journal.Entry{Source: f.Source, Destination: f.Dest, Status: string(f.Status), Bytes: f.Bytes}
		if f.Err != nil {
			e.Error = f.Err.Error()
		}
		entries = append(entries, e)
	}

	rep := r.report
	run := journal.Run{
		ID:          rep.RunID,
		Status:      journal.RunCompleted,
		FinishedAt:  rep.FinishedAt,
		Total:       rep.Total,
		Copied:      rep.Copied,
		Skipped:     rep.Skipped,
		Failed:      rep.Failed,
		BytesCopied: rep.BytesCopied,
		Events:      rep.Events,
		Undated:     rep.Undated,
	}
	switch {
	case rep.Cancelled:
		run.Status = journal.RunCancelled
	case runErr != nil:
		run.Status = journal.RunFailed
		run.Error = runErr.Error()
	}

	err := r.deps.Journal.RecordFiles(ctx, rep.RunID, entries)
	if err == nil {
		err = r.deps.Journal.FinishRun(ctx, run)
	}
	if err != nil {
		logging.WarnWithContext(r.logger, "journal write failed", "journal_error",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the journal path or delete a damaged journal database"),
			logging.String(logging.FieldImpact, "history for this run is incomplete"),
		)
	}
}

func isCancel(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
