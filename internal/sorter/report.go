package sorter

import (
	"time"

	"recsort/internal/filetype"
	"recsort/internal/preflight"
	"recsort/internal/scan"
)

// Status is the outcome of one source file.
type Status string

const (
	StatusCopied  Status = "copied"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
	// StatusPlanned marks dry-run results.
	StatusPlanned Status = "planned"
)

// FileResult describes what happened to one source file.
type FileResult struct {
	Source string
	// Rel is the source path relative to the source root.
	Rel string
	// Dest is the destination path; empty when planning failed.
	Dest string
	// DestRel is Dest relative to the destination root.
	DestRel string
	Bucket  string
	Kind    filetype.Kind
	Folder  string
	Dated   bool
	Status  Status
	Bytes   int64
	Err     error
}

// Report summarises a run.
type Report struct {
	RunID      string
	Source     string
	Dest       string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
	Cancelled  bool

	Total       int
	Copied      int
	Skipped     int
	Failed      int
	Planned     int
	BytesCopied int64
	// ByType counts files per type folder; images count under their
	// extension whatever bucket they land in.
	ByType  map[string]int
	Images  int
	Undated int
	Events  int

	Scan      scan.Stats
	Preflight []preflight.Result
	Files     []FileResult
}

// Finalize recomputes the counters from Files and stamps FinishedAt.
func (r *Report) Finalize() {
	r.Copied, r.Skipped, r.Failed, r.Planned = 0, 0, 0, 0
	r.BytesCopied = 0
	r.ByType = make(map[string]int)
	for _, f := range r.Files {
		switch f.Status {
		case StatusCopied:
			r.Copied++
			r.BytesCopied += f.Bytes
		case StatusSkipped:
			r.Skipped++
		case StatusFailed:
			r.Failed++
		case StatusPlanned:
			r.Planned++
		}
		r.ByType[f.Folder]++
	}
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now()
	}
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Processed is the number of files that reached a final status.
func (r *Report) Processed() int {
	return r.Copied + r.Skipped + r.Failed + r.Planned
}
