package calendar

import (
	"github.com/teambition/rrule-go"
)

const defaultMaxOccurrencesPerEvent = 500

// ExpandRecurring replaces every recurring event with its concrete
// occurrences intersecting window. Occurrences keep the master's ID and
// revision. Events whose rule cannot be parsed are kept as a single
// occurrence and their ids returned in invalid.
func ExpandRecurring(events []Event, window Window, maxPerEvent int) (expanded []Event, invalid []string) {
	if maxPerEvent <= 0 {
		maxPerEvent = defaultMaxOccurrencesPerEvent
	}

	expanded = make([]Event, 0, len(events))
	for _, ev := range events {
		if !ev.IsRecurring() {
			expanded = append(expanded, ev.Clone())
			continue
		}

		r, err := rrule.StrToRRule(ev.RecurrenceRule)
		if err != nil {
			invalid = append(invalid, ev.ID)
			expanded = append(expanded, ev.Clone())
			continue
		}
		r.DTStart(ev.Start)

		var set rrule.Set
		set.RRule(r)

		dur := ev.Duration()
		loc := ev.Start.Location()
		// widen the lower bound so occurrences starting before the window
		// but still running inside it are included
		starts := set.Between(window.From.Add(-dur).In(loc), window.To.In(loc), true)
		if len(starts) > maxPerEvent {
			starts = starts[:maxPerEvent]
		}

		for _, start := range starts {
			occ := ev.Clone()
			occ.Start = start
			occ.End = start.Add(dur)
			if occ.Interval().Overlaps(window) {
				expanded = append(expanded, occ)
			}
		}
	}
	return expanded, invalid
}
