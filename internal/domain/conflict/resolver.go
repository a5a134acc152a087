package conflict

import (
	"cmp"
	"slices"
	"time"

	"calendar-assistant/internal/domain/calendar"
)

// Report describes how a proposed event relates to a snapshot.
// Alternatives is only populated when Overlapping is non-empty.
type Report struct {
	Proposed     calendar.Event
	Overlapping  []calendar.Event
	Alternatives []calendar.Window
}

func (r Report) HasConflicts() bool {
	return len(r.Overlapping) > 0
}

// Best returns the top ranked alternative.
func (r Report) Best() (calendar.Window, bool) {
	if len(r.Alternatives) == 0 {
		return calendar.Window{}, false
	}
	return r.Alternatives[0], true
}

// FindConflicts lists the snapshot events that overlap proposed and share
// at least one participant with it, and when there are any, ranks free
// slots of the same length near the requested one. It has no side effects.
func FindConflicts(snapshot calendar.Snapshot, proposed calendar.Event, opts Options) Report {
	opts = opts.normalized()
	busy := busyFor(snapshot, proposed)

	report := Report{Proposed: proposed.Clone()}
	for _, ev := range busy {
		if ev.Interval().Overlaps(proposed.Interval()) {
			report.Overlapping = append(report.Overlapping, ev)
		}
	}
	if !report.HasConflicts() {
		return report
	}

	report.Alternatives = alternatives(busy, proposed, opts)
	return report
}

// busyFor returns the snapshot events sharing a participant with proposed,
// excluding proposed itself.
func busyFor(snapshot calendar.Snapshot, proposed calendar.Event) []calendar.Event {
	var busy []calendar.Event
	for _, ev := range snapshot.Events() {
		if proposed.ID != "" && ev.ID == proposed.ID {
			continue
		}
		if ev.SharesParticipant(proposed) {
			busy = append(busy, ev)
		}
	}
	return busy
}

type candidate struct {
	slot      calendar.Window
	sameDay   bool
	deviation time.Duration
}

func alternatives(busy []calendar.Event, proposed calendar.Event, opts Options) []calendar.Window {
	dur := proposed.Duration()
	if dur <= 0 || dur > opts.DayEnd-opts.DayStart {
		return nil
	}

	requested := proposed.Interval().In(opts.Location)
	notBefore := opts.NotBefore
	if notBefore.IsZero() {
		notBefore = proposed.Start
	}
	reqDay := dayOf(requested.From)
	reqOffset := requested.From.Sub(reqDay)

	var found []candidate
	for _, day := range BusinessDays(requested.From, opts.SearchDays, opts.Location) {
		last := atOffset(day, opts.DayEnd)
		for start := atOffset(day, opts.DayStart); !start.Add(dur).After(last); start = start.Add(opts.SlotStep) {
			slot := calendar.Window{From: start, To: start.Add(dur)}
			if start.Before(notBefore) || slot.From.Equal(requested.From) {
				continue
			}
			if overlapsAny(slot, busy) {
				continue
			}
			found = append(found, candidate{
				slot:      slot,
				sameDay:   day.Equal(reqDay),
				deviation: absDuration(start.Sub(day) - reqOffset),
			})
		}
	}

	slices.SortFunc(found, func(a, b candidate) int {
		if a.sameDay != b.sameDay {
			if a.sameDay {
				return -1
			}
			return 1
		}
		if c := cmp.Compare(a.deviation, b.deviation); c != 0 {
			return c
		}
		return a.slot.From.Compare(b.slot.From)
	})

	n := min(len(found), opts.MaxAlternatives)
	out := make([]calendar.Window, n)
	for i := range n {
		out[i] = found[i].slot
	}
	return out
}

// SearchHorizon is the range the alternatives search may look at for a
// slot starting at start. Snapshots covering it are enough to resolve.
func SearchHorizon(start time.Time, opts Options) calendar.Window {
	opts = opts.normalized()
	days := BusinessDays(start.In(opts.Location), opts.SearchDays, opts.Location)
	from := dayOf(start.In(opts.Location))
	to := from.AddDate(0, 0, 1)
	if len(days) > 0 {
		from = minTime(from, days[0])
		to = maxTime(to, days[len(days)-1].AddDate(0, 0, 1))
	}
	return calendar.Window{From: from, To: to}
}

// BusinessDays returns the local midnights of the weekdays within n
// business days either side of t, including t's own day when it is a
// weekday, in chronological order.
func BusinessDays(t time.Time, n int, loc *time.Location) []time.Time {
	day := dayOf(t.In(loc))
	before := make([]time.Time, 0, n)
	for d := day.AddDate(0, 0, -1); len(before) < n; d = d.AddDate(0, 0, -1) {
		if isBusinessDay(d) {
			before = append(before, d)
		}
	}
	slices.Reverse(before)

	out := before
	if isBusinessDay(day) {
		out = append(out, day)
	}
	added := 0
	for d := day.AddDate(0, 0, 1); added < n; d = d.AddDate(0, 0, 1) {
		if isBusinessDay(d) {
			out = append(out, d)
			added++
		}
	}
	return out
}

func isBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func atOffset(day time.Time, offset time.Duration) time.Time {
	y, m, d := day.Date()
	h := int(offset / time.Hour)
	mins := int((offset % time.Hour) / time.Minute)
	return time.Date(y, m, d, h, mins, 0, 0, day.Location())
}

func overlapsAny(slot calendar.Window, busy []calendar.Event) bool {
	for _, ev := range busy {
		if slot.Overlaps(ev.Interval()) {
			return true
		}
	}
	return false
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
