package preflight

import "os"

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Optional marks checks whose failure is a warning, not a blocker.
	Optional bool
}

// Inputs names the paths a run touches.
type Inputs struct {
	Source      string
	Destination string
	// RequiredBytes is an upper bound of what the run may write.
	RequiredBytes int64
	// JournalPath is checked when non-empty.
	JournalPath string
	// AllowMissingDestination accepts a destination that does not exist yet
	// when its nearest existing ancestor is writable (dry runs).
	AllowMissingDestination bool
}

// RunAll executes all applicable preflight checks.
func RunAll(in Inputs) []Result {
	results := []Result{CheckSourceAccess("Source", in.Source)}
	if in.AllowMissingDestination && !exists(in.Destination) {
		results = append(results, CheckParentWritable("Destination", in.Destination))
	} else {
		results = append(results, CheckDirectoryAccess("Destination", in.Destination))
	}
	if in.RequiredBytes > 0 {
		free := CheckFreeSpace("Free space", in.Destination, in.RequiredBytes)
		free.Optional = true
		results = append(results, free)
	}
	if in.JournalPath != "" {
		results = append(results, CheckParentWritable("Journal", in.JournalPath))
	}
	return results
}

// Blocking returns the failed checks that must stop a run.
func Blocking(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			out = append(out, r)
		}
	}
	return out
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
