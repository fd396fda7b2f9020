package naming

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"recsort/internal/filetype"
	"recsort/internal/textutil"
)

// TimestampLayout formats capture-time derived names.
const TimestampLayout = "20060102_150405"

const maxSuffix = 1_000_000

// ErrExhausted is returned when no free suffix exists below the search limit.
var ErrExhausted = errors.New("no free file name")

// Options selects how candidate names are built.
type Options struct {
	KeepOriginal bool
	FromMetadata bool
}

// File is the naming view of a source file.
type File struct {
	// Name is the source base name.
	Name string
	// Ext is the case-folded extension without the dot.
	Ext        string
	Captured   time.Time
	HasCapture bool
}

// Candidate returns the preferred output name before collision handling.
func Candidate(f File, opts Options) string {
	if opts.FromMetadata && !opts.KeepOriginal && f.HasCapture {
		return join(f.Captured.Format(TimestampLayout), f.Ext)
	}
	stem, _ := filetype.SplitExt(f.Name)
	stem = textutil.NormalizeName(stem)
	if stem == "" {
		stem = "unnamed"
	}
	return join(stem, f.Ext)
}

// WithSuffix inserts "(n)" before the extension: WithSuffix("a.jpg", 2) is
// "a(2).jpg".
func WithSuffix(name string, n int) string {
	if n <= 0 {
		return name
	}
	stem, ext := filetype.SplitExt(name)
	return join(stem+"("+strconv.Itoa(n)+")", ext)
}

func join(stem, ext string) string {
	if ext == "" {
		return stem
	}
	return stem + "." + ext
}

// Slot describes a name inside a bucket.
type Slot int

const (
	// SlotFree means no file holds the name and nobody reserved it.
	SlotFree Slot = iota
	// SlotReserved means another source claimed the name earlier in this run.
	SlotReserved
	// SlotOccupied means a file from a previous run holds the name.
	SlotOccupied
)

// Lookup reports the state of name and, for SlotOccupied, the path of the
// existing file.
type Lookup func(name string) (Slot, string)

// SameFunc reports whether the existing file at path holds the source bytes.
type SameFunc func(existing string) (bool, error)

// Resolution is the outcome of Resolve.
type Resolution struct {
	Name string
	// Existing is true when Name already holds an identical copy.
	Existing bool
	// Path is the existing file when Existing is set.
	Path string
}

// Resolve walks candidate, candidate(1), candidate(2), ... and stops at the
// first name that is free or already holds an identical copy of the source.
func Resolve(candidate string, lookup Lookup, same SameFunc) (Resolution, error) {
	for n := 0; n < maxSuffix; n++ {
		name := WithSuffix(candidate, n)
		slot, path := lookup(name)
		switch slot {
		case SlotFree:
			return Resolution{Name: name}, nil
		case SlotOccupied:
			if same == nil {
				continue
			}
			identical, err := same(path)
			if err != nil {
				return Resolution{}, fmt.Errorf("compare with %s: %w", path, err)
			}
			if identical {
				return Resolution{Name: name, Existing: true, Path: path}, nil
			}
		}
	}
	return Resolution{}, fmt.Errorf("%s: %w", candidate, ErrExhausted)
}
