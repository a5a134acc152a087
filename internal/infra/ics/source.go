package ics

import (
	"context"
	"io"
	"slices"

	"calendar-assistant/internal/domain/calendar"
	"calendar-assistant/internal/pkg/clock"
	"calendar-assistant/internal/pkg/errs"
)

// Source serves snapshots from a fixed set of events, typically an
// exported calendar file. It stands in for the CRM when planning offline.
type Source struct {
	events []calendar.Event
	clock  clock.Clock
}

// LoadSource decodes r and returns a source over its events together with
// the entries that had to be skipped.
func LoadSource(r io.Reader, defaultOwner string, clk clock.Clock) (*Source, []string, error) {
	events, skipped, err := Decode(r, defaultOwner)
	if err != nil {
		return nil, nil, err
	}
	return NewSource(events, clk), skipped, nil
}

func NewSource(events []calendar.Event, clk clock.Clock) *Source {
	owned := make([]calendar.Event, len(events))
	for i, ev := range events {
		owned[i] = ev.Clone()
	}
	return &Source{events: owned, clock: clk}
}

// GetOrRefresh returns the events userID takes part in, with recurring
// ones expanded inside window.
func (s *Source) GetOrRefresh(_ context.Context, userID string, window calendar.Window) (calendar.Snapshot, error) {
	var mine []calendar.Event
	for _, ev := range s.events {
		if slices.Contains(ev.Participants(), userID) {
			mine = append(mine, ev)
		}
	}
	expanded, _ := calendar.ExpandRecurring(mine, window, 0)
	inWindow := make([]calendar.Event, 0, len(expanded))
	for _, ev := range expanded {
		if ev.Interval().Overlaps(window) {
			inWindow = append(inWindow, ev)
		}
	}
	return calendar.NewSnapshot(userID, window, inWindow, s.clock.Now()), nil
}

// InvalidateUser is a no-op; the file never changes underneath.
func (s *Source) InvalidateUser(string) int {
	return 0
}

func (s *Source) GetEvent(_ context.Context, eventID string) (calendar.Event, error) {
	for _, ev := range s.events {
		if ev.ID == eventID {
			return ev.Clone(), nil
		}
	}
	return calendar.Event{}, errs.Wrapf(errs.ErrNotFound, "event %s", eventID)
}
