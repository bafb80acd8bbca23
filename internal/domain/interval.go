package domain

import (
	"errors"
	"time"
)

// ErrInvalidInterval is returned when an interval has a non-positive length.
var ErrInvalidInterval = errors.New("domain: interval end must be after start")

// Interval represents a half-open time range [Start, End).
// It is the single source of truth for the overlap predicate used by the engine.
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval constructs a validated interval. Zero-length and inverted
// ranges are rejected.
func NewInterval(start, end time.Time) (Interval, error) {
	if !end.After(start) {
		return Interval{}, ErrInvalidInterval
	}
	return Interval{Start: start, End: end}, nil
}

// Overlaps reports whether two half-open intervals intersect.
// Touching boundaries ([10:00,11:00) and [11:00,12:00)) do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// Contains reports whether other lies fully inside i.
func (i Interval) Contains(other Interval) bool {
	return !other.Start.Before(i.Start) && !other.End.After(i.End)
}

// Duration returns the interval length.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Before orders intervals by start, then end.
func (i Interval) Before(other Interval) bool {
	if !i.Start.Equal(other.Start) {
		return i.Start.Before(other.Start)
	}
	return i.End.Before(other.End)
}

// Equal reports whether both endpoints match.
func (i Interval) Equal(other Interval) bool {
	return i.Start.Equal(other.Start) && i.End.Equal(other.End)
}

// IsZero reports whether the interval is uninitialized.
func (i Interval) IsZero() bool {
	return i.Start.IsZero() && i.End.IsZero()
}
