package domain

import (
	"sort"
	"time"
)

// Interval is a half-open span [Start, End) of UTC instants.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (iv Interval) Empty() bool {
	return !iv.End.After(iv.Start)
}

func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Intersect returns the overlapping sub-range of two intervals.
// The result is empty when they do not overlap.
func (iv Interval) Intersect(other Interval) Interval {
	out := iv
	if other.Start.After(out.Start) {
		out.Start = other.Start
	}
	if other.End.Before(out.End) {
		out.End = other.End
	}
	if out.Empty() {
		return Interval{}
	}
	return out
}

// NormalizeIntervals sorts by start time and merges overlapping or
// adjacent intervals into maximal disjoint runs. Empty intervals are
// dropped. The input slice is not modified.
func NormalizeIntervals(ivs []Interval) []Interval {
	work := make([]Interval, 0, len(ivs))
	for _, iv := range ivs {
		if iv.Empty() {
			continue
		}
		work = append(work, iv)
	}
	if len(work) == 0 {
		return []Interval{}
	}

	sort.Slice(work, func(i, j int) bool {
		return work[i].Start.Before(work[j].Start)
	})

	out := make([]Interval, 0, len(work))
	current := work[0]
	for _, iv := range work[1:] {
		if iv.Start.After(current.End) {
			out = append(out, current)
			current = iv
			continue
		}
		if iv.End.After(current.End) {
			current.End = iv.End
		}
	}
	out = append(out, current)
	return out
}

// UnionIntervals merges two interval sets into maximal disjoint runs.
func UnionIntervals(a, b []Interval) []Interval {
	combined := make([]Interval, 0, len(a)+len(b))
	combined = append(combined, a...)
	combined = append(combined, b...)
	return NormalizeIntervals(combined)
}

// SubtractIntervals carves every interval of b out of a.
func SubtractIntervals(a, b []Interval) []Interval {
	left := NormalizeIntervals(a)
	carve := NormalizeIntervals(b)

	for _, c := range carve {
		next := make([]Interval, 0, len(left)+1)
		for _, iv := range left {
			if !iv.Overlaps(c) {
				next = append(next, iv)
				continue
			}
			if iv.Start.Before(c.Start) {
				next = append(next, Interval{Start: iv.Start, End: c.Start})
			}
			if iv.End.After(c.End) {
				next = append(next, Interval{Start: c.End, End: iv.End})
			}
		}
		left = next
	}
	return left
}

// ClipIntervals restricts every interval to the given window, dropping
// anything that falls entirely outside it.
func ClipIntervals(ivs []Interval, window Interval) []Interval {
	out := make([]Interval, 0, len(ivs))
	for _, iv := range ivs {
		clipped := iv.Intersect(window)
		if clipped.Empty() {
			continue
		}
		out = append(out, clipped)
	}
	return out
}

// ComplementIntervals returns the gaps of a normalized interval set
// within the window, so that ivs plus the complement covers the window
// exactly.
func ComplementIntervals(ivs []Interval, window Interval) []Interval {
	if window.Empty() {
		return []Interval{}
	}

	covered := ClipIntervals(NormalizeIntervals(ivs), window)
	out := make([]Interval, 0, len(covered)+1)
	cursor := window.Start
	for _, iv := range covered {
		if iv.Start.After(cursor) {
			out = append(out, Interval{Start: cursor, End: iv.Start})
		}
		cursor = iv.End
	}
	if cursor.Before(window.End) {
		out = append(out, Interval{Start: cursor, End: window.End})
	}
	return out
}
