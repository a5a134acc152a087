//go:build unit || e2e

package builder

import (
	"time"

	"calendar-assistant/internal/domain/calendar"
	"calendar-assistant/internal/domain/intent"
	reqdto "calendar-assistant/internal/handler/dto/request"
)

type IntentBuilder struct {
	intent intent.Intent
}

// NewIntentBuilder starts from a valid single-user create intent for a one
// hour meeting on Monday 2025-03-03 at 10:00 UTC.
func NewIntentBuilder() *IntentBuilder {
	start := time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC)
	return &IntentBuilder{intent: intent.Intent{
		OriginID: "origin-1",
		Action:   intent.ActionCreate,
		Subject:  intent.Subject{Title: "Planning"},
		Window: intent.TimeWindow{
			Start: start,
			End:   start.Add(time.Hour),
		},
		TargetUsers: []string{"1"},
	}}
}

func (b *IntentBuilder) With(mutate func(*intent.Intent)) *IntentBuilder {
	mutate(&b.intent)
	return b
}

func (b *IntentBuilder) WithOrigin(id string) *IntentBuilder {
	b.intent.OriginID = id
	return b
}

func (b *IntentBuilder) WithAction(a intent.Action) *IntentBuilder {
	b.intent.Action = a
	return b
}

func (b *IntentBuilder) WithSlot(start time.Time, d time.Duration) *IntentBuilder {
	b.intent.Window.Start = start
	b.intent.Window.End = start.Add(d)
	return b
}

func (b *IntentBuilder) WithUsers(ids ...string) *IntentBuilder {
	b.intent.TargetUsers = ids
	return b
}

func (b *IntentBuilder) WithTeam(team string) *IntentBuilder {
	b.intent.Team = team
	return b
}

func (b *IntentBuilder) WithAttendees(ids ...string) *IntentBuilder {
	b.intent.Subject.Attendees = ids
	return b
}

func (b *IntentBuilder) WithEventID(id string) *IntentBuilder {
	b.intent.Subject.EventID = id
	return b
}

func (b *IntentBuilder) WithSourceWindow(from, to time.Time) *IntentBuilder {
	b.intent.Subject.SourceWindow = &calendar.Window{From: from, To: to}
	return b
}

func (b *IntentBuilder) AutoResolve() *IntentBuilder {
	b.intent.Constraints.AutoResolve = true
	return b
}

func (b *IntentBuilder) Build() intent.Intent {
	return b.intent
}

// BuildDTO renders the intent as the HTTP request body.
func (b *IntentBuilder) BuildDTO() reqdto.CreatePlanRequest {
	in := b.intent
	req := reqdto.CreatePlanRequest{
		Action: in.Action.String(),
		Subject: reqdto.SubjectRequest{
			EventID:        in.Subject.EventID,
			Title:          in.Subject.Title,
			Attendees:      in.Subject.Attendees,
			RecurrenceRule: in.Subject.RecurrenceRule,
		},
		Window: reqdto.WindowRequest{
			TimeZone: in.Window.TimeZone,
		},
		TargetUsers: in.TargetUsers,
		Team:        in.Team,
		Constraints: reqdto.ConstraintsRequest{
			AutoResolve:     in.Constraints.AutoResolve,
			MorningOnly:     in.Constraints.MorningOnly,
			AfternoonOnly:   in.Constraints.AfternoonOnly,
			AllowEarlier:    in.Constraints.AllowEarlier,
			DurationMinutes: int(in.Constraints.Duration / time.Minute),
		},
	}
	if !in.Window.Start.IsZero() {
		req.Window.Start = in.Window.Start.Format(time.RFC3339)
	}
	if !in.Window.End.IsZero() {
		req.Window.End = in.Window.End.Format(time.RFC3339)
	}
	if sw := in.Subject.SourceWindow; sw != nil {
		req.Subject.SourceWindow = &reqdto.RangeRequest{
			From: sw.From.Format(time.RFC3339),
			To:   sw.To.Format(time.RFC3339),
		}
	}
	return req
}
