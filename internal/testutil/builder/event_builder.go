//go:build unit || e2e

package builder

import (
	"time"

	"calendar-assistant/internal/domain/calendar"
)

type EventBuilder struct {
	ID             string
	OwnerID        string
	Title          string
	Start          time.Time
	End            time.Time
	Attendees      []string
	RecurrenceRule string
	Revision       string
}

func NewEventBuilder() *EventBuilder {
	start := time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC)
	return &EventBuilder{
		ID:       "100",
		OwnerID:  "1",
		Title:    "Weekly sync",
		Start:    start,
		End:      start.Add(time.Hour),
		Revision: "1",
	}
}

func (b *EventBuilder) With(mutate func(*EventBuilder)) *EventBuilder {
	mutate(b)
	return b
}

func (b *EventBuilder) Build() calendar.Event {
	return calendar.Event{
		ID:             b.ID,
		OwnerID:        b.OwnerID,
		Title:          b.Title,
		Start:          b.Start,
		End:            b.End,
		Attendees:      calendar.NormalizeAttendees(b.Attendees),
		RecurrenceRule: b.RecurrenceRule,
		SourceRevision: b.Revision,
	}
}

// Fluent builder methods
func (b *EventBuilder) WithID(id string) *EventBuilder {
	b.ID = id
	return b
}

func (b *EventBuilder) WithOwner(ownerID string) *EventBuilder {
	b.OwnerID = ownerID
	return b
}

func (b *EventBuilder) WithTitle(title string) *EventBuilder {
	b.Title = title
	return b
}

// WithSlot sets start and keeps no relation to the previous end.
func (b *EventBuilder) WithSlot(start time.Time, d time.Duration) *EventBuilder {
	b.Start = start
	b.End = start.Add(d)
	return b
}

func (b *EventBuilder) WithAttendees(ids ...string) *EventBuilder {
	b.Attendees = ids
	return b
}

func (b *EventBuilder) WithRRule(rule string) *EventBuilder {
	b.RecurrenceRule = rule
	return b
}

func (b *EventBuilder) WithRevision(rev string) *EventBuilder {
	b.Revision = rev
	return b
}

// Unsaved clears id and revision.
func (b *EventBuilder) Unsaved() *EventBuilder {
	b.ID = ""
	b.Revision = ""
	return b
}
