package domain

import "time"

// Stay is a half-open range of nights [Start, End). Both ends are normalized
// to midnight UTC, so End is the check-out date and is not occupied.
type Stay struct {
	Start time.Time
	End   time.Time
}

// NewStay builds the stay that starts on checkIn and lasts nights nights.
func NewStay(checkIn time.Time, nights int) Stay {
	start := NormalizeDate(checkIn)
	return Stay{Start: start, End: start.AddDate(0, 0, nights)}
}

// Overlaps reports whether s and other share at least one night.
// A stay ending on day D and another starting on day D do not overlap.
func (s Stay) Overlaps(other Stay) bool {
	return s.Start.Before(other.End) && s.End.After(other.Start)
}

// Nights returns the number of nights in the stay, or zero for an empty or
// inverted range.
func (s Stay) Nights() int {
	if !s.End.After(s.Start) {
		return 0
	}
	return int(s.End.Sub(s.Start).Hours() / 24)
}

// NormalizeDate drops the time of day, keeping the calendar date as seen in
// t's own location, and returns midnight UTC of that date.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
