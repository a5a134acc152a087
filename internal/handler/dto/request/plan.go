package request

import (
	"strings"
	"time"

	"calendar-assistant/internal/domain/calendar"
	"calendar-assistant/internal/domain/intent"
)

// Accepted wall-clock layouts when no offset is given; they are read in
// the request's time zone.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

type CreatePlanRequest struct {
	Action      string             `json:"action" binding:"required,oneof=create move delete query"`
	Subject     SubjectRequest     `json:"subject"`
	Window      WindowRequest      `json:"window"`
	TargetUsers []string           `json:"targetUsers"`
	Team        string             `json:"team,omitempty"`
	Constraints ConstraintsRequest `json:"constraints"`
}

type SubjectRequest struct {
	EventID        string        `json:"eventId,omitempty"`
	Title          string        `json:"title,omitempty"`
	Attendees      []string      `json:"attendees,omitempty"`
	RecurrenceRule string        `json:"recurrenceRule,omitempty"`
	SourceWindow   *RangeRequest `json:"sourceWindow,omitempty"`
}

type WindowRequest struct {
	Start    string `json:"start"`
	End      string `json:"end,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

type RangeRequest struct {
	From string `json:"from" binding:"required"`
	To   string `json:"to" binding:"required"`
}

type ConstraintsRequest struct {
	AutoResolve     bool `json:"autoResolve"`
	MorningOnly     bool `json:"morningOnly"`
	AfternoonOnly   bool `json:"afternoonOnly"`
	AllowEarlier    bool `json:"allowEarlier"`
	DurationMinutes int  `json:"durationMinutes,omitempty"`
}

// ToIntent converts the request. originID comes from the Idempotency-Key
// header. Unparseable times are reported as field errors.
func (r CreatePlanRequest) ToIntent(originID string) (intent.Intent, error) {
	verr := intent.NewValidationError()

	action, err := intent.NewAction(r.Action)
	if err != nil {
		verr.Add("action", err.Error())
	}

	loc := time.UTC
	if r.Window.TimeZone != "" {
		l, err := time.LoadLocation(r.Window.TimeZone)
		if err != nil {
			verr.Add("window.timeZone", "unknown time zone "+r.Window.TimeZone)
		} else {
			loc = l
		}
	}

	in := intent.Intent{
		OriginID: originID,
		Action:   action,
		Subject: intent.Subject{
			EventID:        strings.TrimSpace(r.Subject.EventID),
			Title:          strings.TrimSpace(r.Subject.Title),
			Attendees:      r.Subject.Attendees,
			RecurrenceRule: strings.TrimSpace(r.Subject.RecurrenceRule),
		},
		Window:      intent.TimeWindow{TimeZone: r.Window.TimeZone},
		TargetUsers: r.TargetUsers,
		Team:        strings.TrimSpace(r.Team),
		Constraints: intent.Constraints{
			AutoResolve:   r.Constraints.AutoResolve,
			MorningOnly:   r.Constraints.MorningOnly,
			AfternoonOnly: r.Constraints.AfternoonOnly,
			AllowEarlier:  r.Constraints.AllowEarlier,
			Duration:      time.Duration(r.Constraints.DurationMinutes) * time.Minute,
		},
	}

	if r.Window.Start != "" {
		if in.Window.Start, err = ParseTime(r.Window.Start, loc); err != nil {
			verr.Add("window.start", err.Error())
		}
	}
	if r.Window.End != "" {
		if in.Window.End, err = ParseTime(r.Window.End, loc); err != nil {
			verr.Add("window.end", err.Error())
		}
	}
	if sw := r.Subject.SourceWindow; sw != nil {
		w, err := sw.ToWindow(loc)
		if err != nil {
			verr.Add("subject.sourceWindow", err.Error())
		} else {
			in.Subject.SourceWindow = &w
		}
	}

	if verr.HasErrors() {
		return intent.Intent{}, verr
	}
	return in, nil
}

func (r RangeRequest) ToWindow(loc *time.Location) (calendar.Window, error) {
	from, err := ParseTime(r.From, loc)
	if err != nil {
		return calendar.Window{}, err
	}
	to, err := ParseTime(r.To, loc)
	if err != nil {
		return calendar.Window{}, err
	}
	return calendar.NewWindow(from, to)
}

// ParseTime accepts RFC 3339 or a wall-clock time in loc.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &time.ParseError{Layout: time.RFC3339, Value: s, Message: ": expected RFC 3339 or YYYY-MM-DDTHH:MM"}
}
