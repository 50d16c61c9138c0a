package domain

import (
	"fmt"
	"time"
)

// DateRange is an inclusive window of observation days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Empty reports whether the window contains no days.
func (r DateRange) Empty() bool { return r.Start.After(r.End) }

// Contains reports whether d falls inside the window.
func (r DateRange) Contains(d time.Time) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Validate returns ErrDateAlignment for an empty or unset window.
func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("%w: window bounds not set", ErrDateAlignment)
	}
	if r.Empty() {
		return fmt.Errorf("%w: window %s is empty", ErrDateAlignment, r)
	}
	return nil
}

// Intersect returns the days both windows share. The result is Empty when
// they do not meet.
func (r DateRange) Intersect(o DateRange) DateRange {
	out := r
	if o.Start.After(out.Start) {
		out.Start = o.Start
	}
	if o.End.Before(out.End) {
		out.End = o.End
	}
	return out
}

func (r DateRange) String() string {
	return r.Start.Format(time.DateOnly) + ".." + r.End.Format(time.DateOnly)
}

// OverlappingDates returns the later of the two first dates and the earlier
// of the two last dates. Both sequences must be sorted ascending; that is not
// re-checked here. A non-overlapping pair yields an Empty range, which the
// caller must treat as a failure before slicing a matrix.
func OverlappingDates(a, b []time.Time) (DateRange, error) {
	if len(a) == 0 || len(b) == 0 {
		return DateRange{}, fmt.Errorf("%w: cannot reconcile an empty date sequence", ErrDateAlignment)
	}

	start := a[0]
	if b[0].After(start) {
		start = b[0]
	}
	end := a[len(a)-1]
	if b[len(b)-1].Before(end) {
		end = b[len(b)-1]
	}
	return DateRange{Start: start, End: end}, nil
}
