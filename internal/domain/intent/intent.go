package intent

import (
	"strings"
	"time"

	"calendar-assistant/internal/domain/calendar"
)

// Subject is either a reference to an existing event (move, delete) or the
// payload of a new one (create, query). SourceWindow selects every event of
// a user inside a range and is how team-wide moves and deletes are phrased.
type Subject struct {
	EventID        string
	Title          string
	Attendees      []string
	RecurrenceRule string
	SourceWindow   *calendar.Window
}

// TimeWindow is the requested slot together with the zone its wall-clock
// times refer to.
type TimeWindow struct {
	Start    time.Time
	End      time.Time
	TimeZone string
}

func (w TimeWindow) Location() (*time.Location, error) {
	if w.TimeZone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(w.TimeZone)
}

func (w TimeWindow) Window() calendar.Window {
	return calendar.Window{From: w.Start, To: w.End}
}

type Constraints struct {
	// AutoResolve lets the planner pick the best alternative on conflict.
	AutoResolve   bool
	MorningOnly   bool
	AfternoonOnly bool
	// AllowEarlier widens the alternatives search to slots before the
	// requested start.
	AllowEarlier bool
	// Duration overrides End-Start when positive.
	Duration time.Duration
}

// Intent is the structured command produced upstream by the language
// layer. It is created once and never mutated.
type Intent struct {
	OriginID    string
	Action      Action
	Subject     Subject
	Window      TimeWindow
	TargetUsers []string
	Team        string
	Constraints Constraints
}

// IsBulk reports whether the intent fans out to several users.
func (in Intent) IsBulk() bool {
	return len(calendar.NormalizeAttendees(in.TargetUsers)) > 1 || in.Team != ""
}

// Slot is the target window with the duration constraint applied.
func (in Intent) Slot() calendar.Window {
	w := in.Window.Window()
	if in.Constraints.Duration > 0 {
		w.To = w.From.Add(in.Constraints.Duration)
	}
	return w
}

// Validate checks the intent for structural problems before anything is
// fetched or planned.
func (in Intent) Validate() error {
	verr := NewValidationError()

	if strings.TrimSpace(in.OriginID) == "" {
		verr.Add("originId", "origin id is required")
	}
	if !in.Action.IsValid() {
		verr.Add("action", ErrUnknownAction.Error())
		return verr
	}

	if _, err := in.Window.Location(); err != nil {
		verr.Add("window.timeZone", "unknown time zone "+in.Window.TimeZone)
	}
	if in.Constraints.Duration < 0 {
		verr.Add("constraints.duration", "duration must not be negative")
	}
	if in.Constraints.MorningOnly && in.Constraints.AfternoonOnly {
		verr.Add("constraints", "morningOnly and afternoonOnly are mutually exclusive")
	}

	needsSlot := in.Action != ActionDelete
	if needsSlot {
		if in.Window.Start.IsZero() {
			verr.Add("window.start", "start is required")
		} else if !in.Slot().To.After(in.Window.Start) {
			verr.Add("window.end", "end must be after start")
		}
	}

	users := calendar.NormalizeAttendees(in.TargetUsers)
	if len(users) == 0 && in.Team == "" {
		verr.Add("targetUsers", "at least one target user is required")
	}

	bulk := in.IsBulk()
	switch in.Action {
	case ActionCreate, ActionQuery:
		if strings.TrimSpace(in.Subject.Title) == "" && in.Action == ActionCreate {
			verr.Add("subject.title", "title is required")
		}
		if in.Subject.RecurrenceRule != "" {
			probe := calendar.Event{Title: "probe", Start: in.Window.Start, End: in.Window.Start.Add(time.Minute), RecurrenceRule: in.Subject.RecurrenceRule}
			if err := probe.Validate(); err != nil {
				verr.Add("subject.recurrenceRule", "invalid recurrence rule")
			}
		}
	case ActionMove, ActionDelete:
		hasEvent := strings.TrimSpace(in.Subject.EventID) != ""
		hasRange := in.Subject.SourceWindow != nil
		switch {
		case bulk && !hasRange:
			verr.Add("subject.sourceWindow", "team-wide "+in.Action.String()+" requires a source window")
		case !bulk && !hasEvent && !hasRange:
			verr.Add("subject.eventId", "event id or source window is required")
		}
		if hasRange && !in.Subject.SourceWindow.To.After(in.Subject.SourceWindow.From) {
			verr.Add("subject.sourceWindow", calendar.ErrInvalidWindow.Error())
		}
	}

	return verr.Err()
}

// WithDefaults returns a copy whose open-ended window is closed with
// defaultDuration and whose user list is normalized.
func (in Intent) WithDefaults(defaultDuration time.Duration) Intent {
	out := in
	out.TargetUsers = calendar.NormalizeAttendees(in.TargetUsers)
	out.Subject.Attendees = calendar.NormalizeAttendees(in.Subject.Attendees)
	if !out.Window.Start.IsZero() && out.Window.End.IsZero() && out.Constraints.Duration <= 0 {
		out.Window.End = out.Window.Start.Add(defaultDuration)
	}
	return out
}
