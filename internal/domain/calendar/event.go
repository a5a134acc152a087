package calendar

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

var (
	ErrEmptyTitle      = errors.New("event title must not be empty")
	ErrInvalidInterval = errors.New("event end must be after start")
	ErrInvalidRRule    = errors.New("invalid recurrence rule")
)

// Event is an immutable view of one calendar entry as held by the CRM.
// ID and SourceRevision are empty for events that were never persisted.
type Event struct {
	ID             string
	OwnerID        string
	Title          string
	Start          time.Time
	End            time.Time
	Attendees      []string
	RecurrenceRule string
	SourceRevision string
}

func NewEvent(ownerID, title string, slot Window, attendees []string) (Event, error) {
	ev := Event{
		OwnerID:   strings.TrimSpace(ownerID),
		Title:     strings.TrimSpace(title),
		Start:     slot.From,
		End:       slot.To,
		Attendees: NormalizeAttendees(attendees),
	}
	if err := ev.Validate(); err != nil {
		return Event{}, err
	}
	return ev, nil
}

func (e Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return ErrEmptyTitle
	}
	if !e.End.After(e.Start) {
		return ErrInvalidInterval
	}
	if e.RecurrenceRule != "" {
		if _, err := rrule.StrToRRule(e.RecurrenceRule); err != nil {
			return errors.Join(ErrInvalidRRule, err)
		}
	}
	return nil
}

func (e Event) Interval() Window {
	return Window{From: e.Start, To: e.End}
}

func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

func (e Event) IsPersisted() bool {
	return e.ID != ""
}

func (e Event) IsRecurring() bool {
	return e.RecurrenceRule != ""
}

// Participants is the attendee set plus the owner.
func (e Event) Participants() []string {
	if e.OwnerID == "" {
		return NormalizeAttendees(e.Attendees)
	}
	return NormalizeAttendees(append(slices.Clone(e.Attendees), e.OwnerID))
}

func (e Event) SharesParticipant(other Event) bool {
	mine := e.Participants()
	for _, p := range other.Participants() {
		if _, found := slices.BinarySearch(mine, p); found {
			return true
		}
	}
	return false
}

// ConflictsWith reports a scheduling conflict: overlapping intervals and at
// least one shared participant.
func (e Event) ConflictsWith(other Event) bool {
	return e.Interval().Overlaps(other.Interval()) && e.SharesParticipant(other)
}

func (e Event) Clone() Event {
	c := e
	c.Attendees = slices.Clone(e.Attendees)
	return c
}

// WithSlot returns an unpersisted copy scheduled at slot.
func (e Event) WithSlot(slot Window) Event {
	c := e.Clone()
	c.ID = ""
	c.SourceRevision = ""
	c.Start = slot.From
	c.End = slot.To
	return c
}

// NormalizeAttendees trims, de-duplicates and sorts attendee ids.
func NormalizeAttendees(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Patch describes a partial update. Nil fields are left unchanged.
type Patch struct {
	Title     *string
	Start     *time.Time
	End       *time.Time
	Attendees []string
}

func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Start == nil && p.End == nil && p.Attendees == nil
}

// PatchFromEvent builds a full patch that rewrites title, slot and attendees.
func PatchFromEvent(e Event) Patch {
	title := e.Title
	start := e.Start
	end := e.End
	return Patch{
		Title:     &title,
		Start:     &start,
		End:       &end,
		Attendees: slices.Clone(e.Attendees),
	}
}
