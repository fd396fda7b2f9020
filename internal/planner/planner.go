package planner

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"time"

	"recsort/internal/events"
	"recsort/internal/filetype"
	"recsort/internal/fileutil"
	"recsort/internal/logging"
	"recsort/internal/naming"
	"recsort/internal/services"
)

// Options configures a Planner.
type Options struct {
	Dest        string
	MaxPerDir   int
	UnsortedDir string
	// DryRun leaves the filesystem untouched: no directories are created and
	// stale temp files are not removed.
	DryRun bool
	Logger *slog.Logger
	// Same compares a source with an existing destination file. Defaults to
	// fileutil.SameContent.
	Same func(source, existing string) (bool, error)
}

// Request describes one source file to place.
type Request struct {
	Source     string
	Kind       filetype.Kind
	TypeFolder string
	HasCapture bool
	Captured   time.Time
	// Label is the event label of a dated image.
	Label     events.Label
	Candidate string
}

// Placement is the resolved destination of one source file.
type Placement struct {
	// Bucket is the logical bucket, slash separated and relative to Dest.
	Bucket string
	Shard  int
	Dir    string
	Name   string
	Path   string
	// Existing is true when Path already holds an identical copy.
	Existing bool
}

// RelPath returns the placement relative to the destination root.
func (p Placement) RelPath(dest string) string {
	rel, err := filepath.Rel(dest, p.Path)
	if err != nil {
		return p.Path
	}
	return filepath.ToSlash(rel)
}

// Planner owns per-bucket occupancy for one run. It is safe for concurrent
// use; placements within a bucket are serialised.
type Planner struct {
	opts    Options
	logger  *slog.Logger
	mu      sync.Mutex
	buckets map[string]*bucket
}

// New returns a Planner for opts.
func New(opts Options) *Planner {
	if opts.MaxPerDir < 1 {
		opts.MaxPerDir = 1
	}
	if opts.Same == nil {
		opts.Same = fileutil.SameContent
	}
	return &Planner{
		opts:    opts,
		logger:  logging.NewComponentLogger(opts.Logger, "planner"),
		buckets: make(map[string]*bucket),
	}
}

// BucketKey returns the logical bucket for req.
func (p *Planner) BucketKey(req Request) string {
	switch {
	case req.Kind == filetype.KindImage && req.HasCapture:
		if req.Label.Number == 0 {
			return ""
		}
		return req.Label.String()
	case req.Kind == filetype.KindImage:
		return p.opts.UnsortedDir
	default:
		return req.TypeFolder
	}
}

// Place resolves the destination of req, reserving its name and a slot in
// the bucket, and creates the shard directory unless running dry. A source
// that already has an identical copy in the bucket is returned with
// Existing set and consumes no slot.
func (p *Planner) Place(req Request) (Placement, error) {
	key := p.BucketKey(req)
	if key == "" {
		return Placement{}, services.Wrap(services.ErrValidation, "plan", "bucket", "empty bucket for "+req.Source, nil)
	}
	b := p.bucket(key)

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.load(p); err != nil {
		return Placement{}, services.Wrap(services.ErrTransient, "plan", "index bucket", key, err)
	}

	res, err := naming.Resolve(req.Candidate, b.lookup, func(existing string) (bool, error) {
		return p.opts.Same(req.Source, existing)
	})
	if err != nil {
		return Placement{}, services.Wrap(services.ErrTransient, "plan", "resolve name", req.Candidate, err)
	}

	if res.Existing {
		e := b.names[res.Name]
		e.claimed = true
		b.names[res.Name] = e
		return p.placement(b, e.shard, res.Name, true), nil
	}

	shard := b.pickShard(p.opts.MaxPerDir)
	if !p.opts.DryRun && !b.created[shard] {
		if err := os.MkdirAll(b.shardDir(shard), 0o755); err != nil {
			return Placement{}, services.Wrap(services.ErrTransient, "plan", "create directory", b.shardDir(shard), err)
		}
		b.created[shard] = true
	}
	b.counts[shard-1]++
	b.names[res.Name] = entry{shard: shard, claimed: true, planned: true}
	return p.placement(b, shard, res.Name, false), nil
}

// Release returns the slot and name of a placement whose copy failed.
func (p *Planner) Release(pl Placement) {
	if pl.Existing {
		return
	}
	p.mu.Lock()
	b, ok := p.buckets[pl.Bucket]
	p.mu.Unlock()
	if !ok {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.names[pl.Name]
	if !ok || !e.planned || e.shard != pl.Shard {
		return
	}
	delete(b.names, pl.Name)
	b.counts[pl.Shard-1]--
}

// Usage reports the file count of every shard of every bucket touched so
// far, keyed by shard directory relative to Dest.
func (p *Planner) Usage() map[string]int {
	p.mu.Lock()
	keys := make([]string, 0, len(p.buckets))
	for k := range p.buckets {
		keys = append(keys, k)
	}
	p.mu.Unlock()
	slices.Sort(keys)

	out := make(map[string]int)
	for _, k := range keys {
		b := p.bucket(k)
		b.mu.Lock()
		for i, c := range b.counts {
			if c == 0 && i > 0 {
				continue
			}
			out[shardName(k, i+1)] = c
		}
		b.mu.Unlock()
	}
	return out
}

func (p *Planner) placement(b *bucket, shard int, name string, existing bool) Placement {
	dir := b.shardDir(shard)
	return Placement{
		Bucket:   b.key,
		Shard:    shard,
		Dir:      dir,
		Name:     name,
		Path:     filepath.Join(dir, name),
		Existing: existing,
	}
}

func (p *Planner) bucket(key string) *bucket {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.buckets[key]
	if !ok {
		b = &bucket{
			key:     key,
			base:    filepath.Join(p.opts.Dest, filepath.FromSlash(key)),
			names:   make(map[string]entry),
			created: make(map[int]bool),
		}
		p.buckets[key] = b
	}
	return b
}

type entry struct {
	shard int
	// claimed marks names taken by a source during this run.
	claimed bool
	// planned marks names this run will write.
	planned bool
	// blocked marks names held by something other than a regular file.
	blocked bool
}

type bucket struct {
	mu      sync.Mutex
	key     string
	base    string
	loaded  bool
	counts  []int
	names   map[string]entry
	created map[int]bool
}

func shardName(key string, shard int) string {
	if shard <= 1 {
		return key
	}
	return key + "-" + strconv.Itoa(shard)
}

func (b *bucket) shardDir(shard int) string {
	if shard <= 1 {
		return b.base
	}
	return b.base + "-" + strconv.Itoa(shard)
}

// load indexes shard 1 and every consecutive overflow shard on disk.
func (b *bucket) load(p *Planner) error {
	if b.loaded {
		return nil
	}
	for shard := 1; ; shard++ {
		dir := b.shardDir(shard)
		entries, err := os.ReadDir(dir)
		if errors.Is(err, fs.ErrNotExist) {
			if shard == 1 {
				b.counts = append(b.counts, 0)
				continue
			}
			break
		}
		if err != nil {
			return err
		}
		b.created[shard] = true

		count := 0
		for _, de := range entries {
			name := de.Name()
			if fileutil.IsTempName(name) {
				p.removeStale(filepath.Join(dir, name))
				continue
			}
			if _, dup := b.names[name]; dup {
				if de.Type().IsRegular() {
					count++
				}
				continue
			}
			if !de.Type().IsRegular() {
				b.names[name] = entry{shard: shard, blocked: true}
				continue
			}
			b.names[name] = entry{shard: shard}
			count++
		}
		b.counts = append(b.counts, count)
	}
	b.loaded = true
	p.logger.Debug("bucket indexed",
		logging.String("bucket", b.key),
		logging.Int("shards", len(b.counts)),
		logging.Int("files", len(b.names)),
	)
	return nil
}

func (p *Planner) removeStale(path string) {
	if p.opts.DryRun {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.WarnWithContext(p.logger, "stale temp file not removed", "stale_temp",
			logging.String(logging.FieldDestination, path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "leftover temp file stays in the destination"),
		)
		return
	}
	p.logger.Info("removed stale temp file", logging.String(logging.FieldDestination, path))
}

func (b *bucket) lookup(name string) (naming.Slot, string) {
	e, ok := b.names[name]
	switch {
	case !ok:
		return naming.SlotFree, ""
	case e.claimed || e.blocked:
		return naming.SlotReserved, ""
	default:
		return naming.SlotOccupied, filepath.Join(b.shardDir(e.shard), name)
	}
}

// pickShard returns the lowest shard with room, opening a new one when all
// are full.
func (b *bucket) pickShard(limit int) int {
	for i, c := range b.counts {
		if c < limit {
			return i + 1
		}
	}
	b.counts = append(b.counts, 0)
	return len(b.counts)
}
