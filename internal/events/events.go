package events

import (
	"slices"
	"strconv"
	"time"
)

// Stamp ties a capture time to the caller's file index.
type Stamp struct {
	Index int
	Time  time.Time
}

// Event is a contiguous run of stamps in ascending time order.
type Event struct {
	// Index is the 1-based ordinal of the event across the whole run.
	Index   int
	Members []Stamp
}

// First returns the earliest capture time in the event.
func (e Event) First() time.Time { return e.Members[0].Time }

// Last returns the latest capture time in the event.
func (e Event) Last() time.Time { return e.Members[len(e.Members)-1].Time }

// Span is the distance between the first and last member.
func (e Event) Span() time.Duration { return e.Last().Sub(e.First()) }

// GapFromDays converts a day threshold to a duration.
func GapFromDays(days int) time.Duration {
	return time.Duration(days) * 24 * time.Hour
}

// Sort orders stamps by time. Equal times keep their input order.
func Sort(stamps []Stamp) {
	slices.SortStableFunc(stamps, func(a, b Stamp) int {
		return a.Time.Compare(b.Time)
	})
}

// Segment splits sorted stamps into events in a single pass. A stamp further
// than gap from its predecessor opens a new event.
func Segment(sorted []Stamp, gap time.Duration) []Event {
	if len(sorted) == 0 {
		return nil
	}
	var out []Event
	current := Event{Index: 1, Members: []Stamp{sorted[0]}}
	for _, s := range sorted[1:] {
		prev := current.Members[len(current.Members)-1]
		if s.Time.Sub(prev.Time) > gap {
			out = append(out, current)
			current = Event{Index: current.Index + 1}
		}
		current.Members = append(current.Members, s)
	}
	return append(out, current)
}

// Label places an event inside a destination scope such as "2021" or
// "2021/06".
type Label struct {
	Scope  string
	Number int
}

// Dir returns the label's path segment inside its scope.
func (l Label) Dir() string { return strconv.Itoa(l.Number) }

func (l Label) String() string { return l.Scope + "/" + l.Dir() }

// Assign numbers events within each scope, 1..k in order of first appearance,
// and returns the label of every member keyed by Stamp.Index. An event that
// straddles a scope boundary gets one label per scope it touches.
func Assign(events []Event, scope func(time.Time) string) map[int]Label {
	labels := make(map[int]Label)
	counters := make(map[string]int)
	for _, ev := range events {
		seen := make(map[string]int, 1)
		for _, m := range ev.Members {
			key := scope(m.Time)
			n, ok := seen[key]
			if !ok {
				counters[key]++
				n = counters[key]
				seen[key] = n
			}
			labels[m.Index] = Label{Scope: key, Number: n}
		}
	}
	return labels
}

// YearScope keys events by capture year.
func YearScope(t time.Time) string { return t.Format("2006") }

// MonthScope keys events by capture year and month.
func MonthScope(t time.Time) string { return t.Format("2006/01") }
