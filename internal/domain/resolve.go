package domain

import (
	"time"
)

// AvailabilityInterval classifies one half-open UTC span of the query
// window as bookable or not.
type AvailabilityInterval struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
}

// ResolveAvailability computes the authoritative availability of an
// establishment over the UTC window [windowStart, windowEnd).
//
// Weekly rules are expanded per local calendar day of the zone and
// converted to UTC intervals; overrides are then applied in ascending
// start order (creation order on ties), unavailable ones carving out of
// the default and available ones adding to it, so the later override
// wins on any overlapping sub-range. The result covers the window
// exactly: sorted, pairwise disjoint, gapless maximal runs.
//
// The function is pure: identical inputs produce identical output.
func ResolveAvailability(rules RuleSet, overrides OverrideSet, zone string, windowStart, windowEnd time.Time) ([]AvailabilityInterval, error) {
	loc, err := LoadZone(zone)
	if err != nil {
		return nil, err
	}

	window := Interval{Start: windowStart.UTC(), End: windowEnd.UTC()}
	if window.Empty() {
		return []AvailabilityInterval{}, nil
	}

	available, err := expandRuleWindows(rules, loc, zone, window)
	if err != nil {
		return nil, err
	}

	for _, o := range overrides.Overlapping(window) {
		span := []Interval{{Start: o.StartDatetime.UTC(), End: o.EndDatetime.UTC()}}
		if o.IsAvailable {
			available = UnionIntervals(available, span)
		} else {
			available = SubtractIntervals(available, span)
		}
	}

	available = ClipIntervals(NormalizeIntervals(available), window)
	closed := ComplementIntervals(available, window)

	return interleave(available, closed), nil
}

// expandRuleWindows converts the weekly rule of every local calendar day
// whose span intersects the window into a UTC interval. Iteration steps
// by local civil date so DST transitions cannot skip or repeat a day.
func expandRuleWindows(rules RuleSet, loc *time.Location, zone string, window Interval) ([]Interval, error) {
	out := make([]Interval, 0, 8)

	first := window.Start.In(loc)
	year, month, day := first.Date()

	for {
		dayStart := time.Date(year, month, day, 0, 0, 0, 0, loc)
		if !dayStart.UTC().Before(window.End) {
			break
		}

		if start, end, ok := rules.Window(dayStart.Weekday()); ok {
			startUTC, err := ToUTC(year, month, day, start, zone)
			if err != nil {
				return nil, err
			}
			endUTC, err := ToUTC(year, month, day, end, zone)
			if err != nil {
				return nil, err
			}
			// A spring-forward gap can swallow the whole window;
			// skip the day rather than emit an inverted interval.
			if endUTC.After(startUTC) {
				out = append(out, Interval{Start: startUTC, End: endUTC})
			}
		}

		year, month, day = dayStart.AddDate(0, 0, 1).Date()
	}

	return out, nil
}

// interleave merges disjoint available and closed runs into one ordered
// sequence covering the window.
func interleave(available, closed []Interval) []AvailabilityInterval {
	out := make([]AvailabilityInterval, 0, len(available)+len(closed))
	i, j := 0, 0
	for i < len(available) || j < len(closed) {
		switch {
		case i == len(available):
			out = append(out, AvailabilityInterval{Start: closed[j].Start, End: closed[j].End})
			j++
		case j == len(closed):
			out = append(out, AvailabilityInterval{Start: available[i].Start, End: available[i].End, Available: true})
			i++
		case available[i].Start.Before(closed[j].Start):
			out = append(out, AvailabilityInterval{Start: available[i].Start, End: available[i].End, Available: true})
			i++
		default:
			out = append(out, AvailabilityInterval{Start: closed[j].Start, End: closed[j].End})
			j++
		}
	}
	return out
}
