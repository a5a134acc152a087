package queries

//go:generate mockgen -source=calendar.go -destination=../../mock/queries/calendar.go -package=queriesmock

import (
	"context"
	"math"
	"slices"
	"time"

	"calendar-assistant/internal/domain/calendar"
	"calendar-assistant/internal/domain/conflict"
	"calendar-assistant/internal/pkg/errs"
	"calendar-assistant/internal/usecase/shared"
)

var ErrUserAccess = errs.Mark(errs.New("members may only read their own calendar"), errs.ErrForbidden)

// Workload scoring: five meetings or four meeting hours per business day
// each saturate the score.
const (
	meetingsPerDayCap     = 5.0
	meetingHoursPerDayCap = 4.0
	lightBelow            = 0.3
	balancedBelow         = 0.6
	heavyBelow            = 0.8
)

type SnapshotReader interface {
	GetOrRefresh(ctx context.Context, userID string, window calendar.Window) (calendar.Snapshot, error)
}

// CalendarEncoder renders a snapshot as an iCalendar document.
type CalendarEncoder interface {
	Encode(snap calendar.Snapshot) ([]byte, error)
}

type CalendarQueries interface {
	Availability(ctx context.Context, caller shared.Caller, userID string, window calendar.Window) (*AvailabilityView, error)
	Workload(ctx context.Context, caller shared.Caller, userIDs []string, window calendar.Window) (*TeamWorkloadView, error)
	ExportICS(ctx context.Context, caller shared.Caller, userID string, window calendar.Window) ([]byte, error)
}

type calendarQueriesImpl struct {
	snapshots SnapshotReader
	encoder   CalendarEncoder
	opts      conflict.Options
}

func NewCalendarQueries(snapshots SnapshotReader, encoder CalendarEncoder, opts conflict.Options) CalendarQueries {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.DayEnd <= opts.DayStart {
		d := conflict.DefaultOptions()
		opts.DayStart, opts.DayEnd = d.DayStart, d.DayEnd
	}
	return &calendarQueriesImpl{snapshots: snapshots, encoder: encoder, opts: opts}
}

func (q *calendarQueriesImpl) Availability(ctx context.Context, caller shared.Caller, userID string, window calendar.Window) (*AvailabilityView, error) {
	if err := authorizeRead(caller, userID); err != nil {
		return nil, err
	}
	snap, err := q.snapshots.GetOrRefresh(ctx, userID, window)
	if err != nil {
		return nil, err
	}

	busy := mergeBusy(snap.Within(window), window)
	return &AvailabilityView{
		UserID:  userID,
		Window:  window,
		Busy:    busy,
		Free:    q.freeSlots(window, busy),
		TakenAt: snap.TakenAt(),
	}, nil
}

func (q *calendarQueriesImpl) Workload(ctx context.Context, caller shared.Caller, userIDs []string, window calendar.Window) (*TeamWorkloadView, error) {
	userIDs = calendar.NormalizeAttendees(userIDs)
	if len(userIDs) == 0 {
		return nil, errs.Mark(errs.New("at least one user is required"), errs.ErrValidation)
	}
	for _, id := range userIDs {
		if err := authorizeRead(caller, id); err != nil {
			return nil, err
		}
	}

	days := max(1, len(q.businessDays(window)))
	view := &TeamWorkloadView{Window: window}
	total := 0.0
	for _, id := range userIDs {
		snap, err := q.snapshots.GetOrRefresh(ctx, id, window)
		if err != nil {
			return nil, err
		}
		w := workloadOf(id, snap.Within(window), window, days)
		view.Users = append(view.Users, w)
		total += w.Score
		switch w.Status {
		case WorkloadOverloaded:
			view.Overloaded = append(view.Overloaded, id)
		case WorkloadLight:
			view.Underloaded = append(view.Underloaded, id)
		}
	}
	view.AverageScore = round1(total / float64(len(userIDs)))
	return view, nil
}

func (q *calendarQueriesImpl) ExportICS(ctx context.Context, caller shared.Caller, userID string, window calendar.Window) ([]byte, error) {
	if err := authorizeRead(caller, userID); err != nil {
		return nil, err
	}
	snap, err := q.snapshots.GetOrRefresh(ctx, userID, window)
	if err != nil {
		return nil, err
	}
	out, err := q.encoder.Encode(snap)
	if err != nil {
		return nil, errs.Wrap(err, "encode calendar")
	}
	return out, nil
}

func workloadOf(userID string, events []calendar.Event, window calendar.Window, days int) WorkloadView {
	var spent time.Duration
	for _, ev := range events {
		from, to := ev.Start, ev.End
		if from.Before(window.From) {
			from = window.From
		}
		if to.After(window.To) {
			to = window.To
		}
		spent += to.Sub(from)
	}
	perDay := float64(len(events)) / float64(days)
	hoursPerDay := spent.Hours() / float64(days)
	score := math.Min(perDay/meetingsPerDayCap+hoursPerDay/meetingHoursPerDayCap, 1)

	return WorkloadView{
		UserID:             userID,
		Meetings:           len(events),
		MeetingTime:        spent,
		BusinessDays:       days,
		AvgMeetingsPerDay:  round1(perDay),
		AvgMeetingHoursDay: round1(hoursPerDay),
		Score:              score,
		Status:             workloadStatus(score),
	}
}

func workloadStatus(score float64) WorkloadStatus {
	switch {
	case score < lightBelow:
		return WorkloadLight
	case score < balancedBelow:
		return WorkloadBalanced
	case score < heavyBelow:
		return WorkloadHeavy
	default:
		return WorkloadOverloaded
	}
}

// mergeBusy clips events to window and merges touching or overlapping
// intervals.
func mergeBusy(events []calendar.Event, window calendar.Window) []BusyBlock {
	slices.SortFunc(events, func(a, b calendar.Event) int { return a.Start.Compare(b.Start) })

	var out []BusyBlock
	for _, ev := range events {
		w := calendar.Window{From: ev.Start, To: ev.End}
		if w.From.Before(window.From) {
			w.From = window.From
		}
		if w.To.After(window.To) {
			w.To = window.To
		}
		if n := len(out); n > 0 && !w.From.After(out[n-1].Window.To) {
			last := &out[n-1]
			if w.To.After(last.Window.To) {
				last.Window.To = w.To
			}
			if !slices.Contains(last.EventIDs, ev.ID) {
				last.EventIDs = append(last.EventIDs, ev.ID)
			}
			continue
		}
		out = append(out, BusyBlock{Window: w, EventIDs: []string{ev.ID}})
	}
	return out
}

func (q *calendarQueriesImpl) freeSlots(window calendar.Window, busy []BusyBlock) []calendar.Window {
	var free []calendar.Window
	for _, day := range q.businessDays(window) {
		open := calendar.Window{From: day.Add(q.opts.DayStart), To: day.Add(q.opts.DayEnd)}
		if open.From.Before(window.From) {
			open.From = window.From
		}
		if open.To.After(window.To) {
			open.To = window.To
		}
		cursor := open.From
		for _, b := range busy {
			if !b.Window.To.After(cursor) || !b.Window.From.Before(open.To) {
				continue
			}
			if b.Window.From.After(cursor) {
				free = append(free, calendar.Window{From: cursor, To: b.Window.From})
			}
			cursor = b.Window.To
		}
		if open.To.After(cursor) {
			free = append(free, calendar.Window{From: cursor, To: open.To})
		}
	}
	return free
}

// businessDays lists the local midnights of weekdays intersecting window.
func (q *calendarQueriesImpl) businessDays(window calendar.Window) []time.Time {
	loc := q.opts.Location
	start := window.From.In(loc)
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	var out []time.Time
	for ; day.Before(window.To); day = day.AddDate(0, 0, 1) {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			out = append(out, day)
		}
	}
	return out
}

func authorizeRead(caller shared.Caller, userID string) error {
	if caller.IsAdmin() || caller.UserID == userID {
		return nil
	}
	return ErrUserAccess
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
