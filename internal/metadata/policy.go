package metadata

import "time"

// Policy bounds which capture times are trusted.
type Policy struct {
	Earliest    time.Time
	FutureSlack time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// NewPolicy trusts capture times from January 1st of minYear (local time) up
// to now plus slack.
func NewPolicy(minYear int, slack time.Duration) Policy {
	return Policy{
		Earliest:    time.Date(minYear, time.January, 1, 0, 0, 0, 0, time.Local),
		FutureSlack: slack,
	}
}

// Plausible reports whether t is inside the trusted window.
func (p Policy) Plausible(t time.Time) bool {
	if t.IsZero() || t.Before(p.Earliest) {
		return false
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	return !t.After(now().Add(p.FutureSlack))
}
