package journal

import "time"

// RunStatus is the lifecycle state of a journaled run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// Run is one invocation of the sorter.
type Run struct {
	ID          string
	Source      string
	Destination string
	DryRun      bool
	Status      RunStatus
	StartedAt   time.Time
	FinishedAt  time.Time
	Total       int
	Copied      int
	Skipped     int
	Failed      int
	BytesCopied int64
	Events      int
	Undated     int
	Error       string
}

// Duration returns the wall time of a finished run, or 0 while running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Entry is the outcome of one source file within a run.
type Entry struct {
	Source      string
	Destination string
	// Status mirrors the sorter's file status: copied, skipped, failed, planned.
	Status     string
	Bytes      int64
	Error      string
	RecordedAt time.Time
}
