package ics

import (
	"io"
	"strconv"
	"strings"
	"time"

	"calendar-assistant/internal/domain/calendar"
	"calendar-assistant/internal/pkg/errs"

	ical "github.com/arran4/golang-ical"
)

const (
	productID      = "-//calendar-assistant//calendar export//EN"
	userURNPrefix  = "urn:x-bitrix24:user:"
	uidSuffix      = "@bitrix24"
	revisionProp   = ical.ComponentProperty("X-BITRIX24-REVISION")
	recurrenceProp = ical.ComponentProperty("RECURRENCE-ID")
	icsTimeLayout  = "20060102T150405Z"
)

var ErrEmptyCalendar = errs.Mark(errs.New("empty iCalendar document"), errs.ErrValidation)

// Encoder renders snapshots as RFC 5545 documents.
type Encoder struct {
	now func() time.Time
}

func NewEncoder(now func() time.Time) *Encoder {
	if now == nil {
		now = time.Now
	}
	return &Encoder{now: now}
}

// Encode writes one VEVENT per snapshot entry. Expanded occurrences of a
// series share the series UID and carry a RECURRENCE-ID.
func (e *Encoder) Encode(snap calendar.Snapshot) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetName("calendar of user " + snap.UserID())

	stamp := e.now().UTC()
	for _, ev := range snap.Events() {
		uid := ev.ID
		if uid == "" {
			uid = ev.OwnerID + "-" + strconv.FormatInt(ev.Start.Unix(), 10)
		}
		vev := cal.AddEvent(uid + uidSuffix)
		vev.SetDtStampTime(stamp)
		vev.SetStartAt(ev.Start.UTC())
		vev.SetEndAt(ev.End.UTC())
		vev.SetSummary(ev.Title)
		if ev.OwnerID != "" {
			vev.SetProperty(ical.ComponentPropertyOrganizer, userURNPrefix+ev.OwnerID)
		}
		for _, a := range ev.Attendees {
			vev.AddProperty(ical.ComponentPropertyAttendee, userURNPrefix+a)
		}
		if ev.IsRecurring() {
			vev.SetProperty(recurrenceProp, ev.Start.UTC().Format(icsTimeLayout))
		}
		if ev.SourceRevision != "" {
			vev.SetProperty(revisionProp, ev.SourceRevision)
		}
	}
	return []byte(cal.Serialize()), nil
}

// Decode reads VEVENTs into events. Events without ORGANIZER are assigned
// to defaultOwner. Entries that cannot be read are returned in skipped.
func Decode(r io.Reader, defaultOwner string) (events []calendar.Event, skipped []string, err error) {
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, nil, errs.Mark(errs.Wrap(err, "parse iCalendar"), errs.ErrValidation)
	}
	vevents := cal.Events()
	if len(vevents) == 0 {
		return nil, nil, ErrEmptyCalendar
	}

	for _, ve := range vevents {
		ev, derr := decodeEvent(ve, defaultOwner)
		if derr != nil {
			skipped = append(skipped, derr.Error())
			continue
		}
		events = append(events, ev)
	}
	return events, skipped, nil
}

func decodeEvent(ve *ical.VEvent, defaultOwner string) (calendar.Event, error) {
	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return calendar.Event{}, errs.New("VEVENT without UID")
	}
	uid := strings.TrimSuffix(uidProp.Value, uidSuffix)

	start, err := ve.GetStartAt()
	if err != nil {
		return calendar.Event{}, errs.Wrapf(err, "event %s: DTSTART", uid)
	}
	end, err := ve.GetEndAt()
	if err != nil {
		return calendar.Event{}, errs.Wrapf(err, "event %s: DTEND", uid)
	}

	ev := calendar.Event{
		ID:      uid,
		OwnerID: defaultOwner,
		Start:   start,
		End:     end,
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Title = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyOrganizer); p != nil {
		if id := userID(p.Value); id != "" {
			ev.OwnerID = id
		}
	}
	var attendees []string
	for _, p := range ve.GetProperties(ical.ComponentPropertyAttendee) {
		if id := userID(p.Value); id != "" && id != ev.OwnerID {
			attendees = append(attendees, id)
		}
	}
	ev.Attendees = calendar.NormalizeAttendees(attendees)
	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		ev.RecurrenceRule = p.Value
	}
	if p := ve.GetProperty(revisionProp); p != nil {
		ev.SourceRevision = p.Value
	} else if p := ve.GetProperty(ical.ComponentPropertySequence); p != nil {
		ev.SourceRevision = p.Value
	}

	if err := ev.Validate(); err != nil {
		return calendar.Event{}, errs.Wrapf(err, "event %s", uid)
	}
	return ev, nil
}

// userID extracts an id from a calendar user address. Mail addresses keep
// their local part.
func userID(addr string) string {
	addr = strings.TrimSpace(addr)
	lower := strings.ToLower(addr)
	switch {
	case strings.HasPrefix(lower, userURNPrefix):
		return addr[len(userURNPrefix):]
	case strings.HasPrefix(lower, "mailto:"):
		local, _, _ := strings.Cut(addr[len("mailto:"):], "@")
		return local
	}
	return addr
}
