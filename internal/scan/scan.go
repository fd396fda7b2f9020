package scan

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"recsort/internal/filetype"
	"recsort/internal/logging"
	"recsort/internal/metadata"
	"recsort/internal/services"
)

// File is one regular file found under the source root.
type File struct {
	Path    string
	Rel     string
	Name    string
	Ext     string
	Size    int64
	ModTime time.Time
	Kind    filetype.Kind
	// Folder is the type folder for non-image files.
	Folder     string
	Captured   time.Time
	HasCapture bool
	// MetaErr records a failed capture time read. The file is still sorted,
	// as undated.
	MetaErr error
}

// Options configures Walk.
type Options struct {
	Root string
	// Exclude lists absolute directories that are not descended into, such
	// as a destination nested inside the source.
	Exclude    []string
	Classifier *filetype.Classifier
	Reader     metadata.Reader
	Workers    int
	Logger     *slog.Logger
	// OnProgress, when set, is called after each metadata read.
	OnProgress func(done, total int)
}

// Stats summarises what Walk saw besides the returned files.
type Stats struct {
	Images     int
	Dated      int
	Symlinks   int
	Irregular  int
	Unreadable int
	Excluded   int
}

// Walk returns every regular file under opts.Root in lexical walk order, with
// capture times filled in for images. Symlinks and special files are skipped;
// unreadable directories are logged and skipped.
func Walk(ctx context.Context, opts Options) ([]File, Stats, error) {
	logger := logging.NewComponentLogger(opts.Logger, "scan")
	ctx = services.WithPhase(ctx, "scan")
	var stats Stats

	root := filepath.Clean(opts.Root)
	info, err := os.Stat(root)
	if err != nil {
		return nil, stats, services.Wrap(services.ErrConfiguration, "scan", "stat source", root, err)
	}
	if !info.IsDir() {
		return nil, stats, services.Wrap(services.ErrConfiguration, "scan", "stat source", root+" is not a directory", nil)
	}
	// WalkDir does not descend through a symlinked root.
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	excluded := make(map[string]struct{}, len(opts.Exclude))
	for _, dir := range opts.Exclude {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			dir = resolved
		}
		excluded[filepath.Clean(dir)] = struct{}{}
	}

	var files []File
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			stats.Unreadable++
			logging.WarnWithContext(logging.WithContext(services.WithSource(ctx, path), logger), "source entry unreadable", "scan_unreadable",
				logging.Error(walkErr),
				logging.String(logging.FieldErrorHint, "check permissions on the source tree"),
				logging.String(logging.FieldImpact, "entry and its contents are left out of this run"),
			)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if _, skip := excluded[path]; skip && path != root {
				stats.Excluded++
				logger.Info("skipping destination inside source", logging.String("dir", path))
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			stats.Symlinks++
			logger.Debug("skipping symlink", logging.String(logging.FieldSource, path))
			return nil
		}
		if !d.Type().IsRegular() {
			stats.Irregular++
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			stats.Unreadable++
			logger.Debug("stat failed", logging.String(logging.FieldSource, path), logging.Error(err))
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		class := opts.Classifier.Classify(d.Name())
		files = append(files, File{
			Path:    path,
			Rel:     filepath.ToSlash(rel),
			Name:    d.Name(),
			Ext:     class.Ext,
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
			Kind:    class.Kind,
			Folder:  class.Folder,
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, stats, err
		}
		return nil, stats, services.Wrap(services.ErrConfiguration, "scan", "walk source", root, err)
	}

	if err := readCaptureTimes(ctx, files, opts, logger); err != nil {
		return nil, stats, err
	}
	for _, f := range files {
		if f.Kind != filetype.KindImage {
			continue
		}
		stats.Images++
		if f.HasCapture {
			stats.Dated++
		}
	}
	return files, stats, nil
}

// readCaptureTimes fills capture times for images with a bounded pool. Each
// worker writes only files[i] for the indexes it receives.
func readCaptureTimes(ctx context.Context, files []File, opts Options, logger *slog.Logger) error {
	if opts.Reader == nil {
		return nil
	}
	var indexes []int
	for i := range files {
		if files[i].Kind == filetype.KindImage {
			indexes = append(indexes, i)
		}
	}
	if len(indexes) == 0 {
		return nil
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(indexes) {
		workers = len(indexes)
	}

	jobs := make(chan int)
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				f := &files[i]
				captured, ok, err := opts.Reader.CaptureTime(f.Path)
				switch {
				case err != nil:
					f.MetaErr = err
					logger.Debug("no capture time", logging.String(logging.FieldSource, f.Rel), logging.Error(err))
				case ok:
					f.Captured, f.HasCapture = captured, true
				}
				if opts.OnProgress != nil {
					mu.Lock()
					done++
					opts.OnProgress(done, len(indexes))
					mu.Unlock()
				}
			}
		}()
	}

	var err error
dispatch:
	for _, i := range indexes {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break dispatch
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	return err
}

// IsWithin reports whether path equals dir or lies below it.
func IsWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
