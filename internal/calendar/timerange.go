package calendar

import (
	"errors"
	"sort"
	"time"
)

var (
	ErrInvalidTimeRange = errors.New("invalid time range")
	ErrSlotDuration     = errors.New("slot duration must be positive")
)

// TimeRange is a half-open interval [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewTimeRange builds an interval with basic validation.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return TimeRange{}, ErrInvalidTimeRange
	}
	return TimeRange{Start: start, End: end}, nil
}

// Overlaps reports half-open overlap: [a.Start, a.End) and [b.Start, b.End)
// intersect iff a.Start < b.End && b.Start < a.End. A range ending exactly
// where another starts does not overlap it.
func (a TimeRange) Overlaps(b TimeRange) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Duration returns End − Start.
func (a TimeRange) Duration() time.Duration {
	return a.End.Sub(a.Start)
}

// SortRanges returns a copy of ranges ordered by start time.
func SortRanges(ranges []TimeRange) []TimeRange {
	out := make([]TimeRange, len(ranges))
	copy(out, ranges)
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// MergeRanges collapses overlapping or touching ranges into a sorted,
// non-overlapping list. The input is not mutated.
func MergeRanges(ranges []TimeRange) []TimeRange {
	if len(ranges) == 0 {
		return nil
	}
	sorted := SortRanges(ranges)

	merged := []TimeRange{sorted[0]}
	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !r.Start.After(last.End) {
			if r.End.After(last.End) {
				last.End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// SubtractRange removes busy from each of the free ranges, returning a new
// list. A single free range can survive intact, shrink from either side,
// split into two pieces, or disappear entirely.
func SubtractRange(free []TimeRange, busy TimeRange) []TimeRange {
	if !busy.End.After(busy.Start) {
		return append([]TimeRange(nil), free...)
	}

	var out []TimeRange
	for _, f := range free {
		if !f.Overlaps(busy) {
			out = append(out, f)
			continue
		}
		if f.Start.Before(busy.Start) {
			out = append(out, TimeRange{Start: f.Start, End: busy.Start})
		}
		if busy.End.Before(f.End) {
			out = append(out, TimeRange{Start: busy.End, End: f.End})
		}
	}
	return out
}

// SubtractRanges applies SubtractRange for every busy interval in turn.
func SubtractRanges(free []TimeRange, busy []TimeRange) []TimeRange {
	out := append([]TimeRange(nil), free...)
	for _, b := range busy {
		out = SubtractRange(out, b)
	}
	return out
}

// WalkSlots walks each free range from its own start in steps of step,
// emitting every start where [start, start+duration) fits entirely inside the
// range. Results are chronological and de-duplicated. The duration does not
// have to be a multiple of step.
func WalkSlots(free []TimeRange, step, duration time.Duration) ([]time.Time, error) {
	if step <= 0 || duration <= 0 {
		return nil, ErrSlotDuration
	}

	var slots []time.Time
	seen := make(map[int64]struct{})
	for _, f := range MergeRanges(free) {
		if f.Duration() < duration {
			continue
		}
		for cur := f.Start; !cur.Add(duration).After(f.End); cur = cur.Add(step) {
			key := cur.UnixNano()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			slots = append(slots, cur)
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Before(slots[j]) })
	return slots, nil
}
