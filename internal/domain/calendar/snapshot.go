package calendar

import (
	"cmp"
	"slices"
	"strconv"
	"time"
)

// Snapshot is a point-in-time copy of the events visible to one user within
// a window. Overlapping events are legal. A Snapshot never changes after
// construction; accessors hand out copies.
type Snapshot struct {
	userID  string
	window  Window
	events  []Event
	takenAt time.Time
}

func NewSnapshot(userID string, window Window, events []Event, takenAt time.Time) Snapshot {
	owned := make([]Event, len(events))
	for i, ev := range events {
		owned[i] = ev.Clone()
	}
	slices.SortStableFunc(owned, func(a, b Event) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return Snapshot{
		userID:  userID,
		window:  window,
		events:  owned,
		takenAt: takenAt,
	}
}

func (s Snapshot) UserID() string {
	return s.userID
}

func (s Snapshot) Window() Window {
	return s.window
}

func (s Snapshot) TakenAt() time.Time {
	return s.takenAt
}

func (s Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.takenAt)
}

func (s Snapshot) Len() int {
	return len(s.events)
}

func (s Snapshot) Events() []Event {
	out := make([]Event, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.Clone()
	}
	return out
}

// Find returns the first occurrence carrying id.
func (s Snapshot) Find(id string) (Event, bool) {
	for _, ev := range s.events {
		if ev.ID == id {
			return ev.Clone(), true
		}
	}
	return Event{}, false
}

func (s Snapshot) Contains(id string) bool {
	_, ok := s.Find(id)
	return ok
}

// Without returns a snapshot lacking every occurrence of the given ids.
func (s Snapshot) Without(ids ...string) Snapshot {
	kept := make([]Event, 0, len(s.events))
	for _, ev := range s.events {
		if !slices.Contains(ids, ev.ID) {
			kept = append(kept, ev)
		}
	}
	return NewSnapshot(s.userID, s.window, kept, s.takenAt)
}

// Within returns the events whose interval intersects w.
func (s Snapshot) Within(w Window) []Event {
	out := make([]Event, 0)
	for _, ev := range s.events {
		if ev.Interval().Overlaps(w) {
			out = append(out, ev.Clone())
		}
	}
	return out
}

// Merge combines snapshots of several users into one view owned by userID.
// Occurrences present in more than one input are kept once. The merged
// snapshot is as old as its oldest input.
func Merge(userID string, window Window, snapshots ...Snapshot) Snapshot {
	seen := make(map[string]struct{})
	var events []Event
	var oldest time.Time
	for _, snap := range snapshots {
		if oldest.IsZero() || snap.takenAt.Before(oldest) {
			oldest = snap.takenAt
		}
		for _, ev := range snap.events {
			key := occurrenceKey(ev)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			events = append(events, ev)
		}
	}
	return NewSnapshot(userID, window, events, oldest)
}

func occurrenceKey(ev Event) string {
	if ev.ID == "" {
		return ev.OwnerID + "|" + ev.Title + "|" + strconv.FormatInt(ev.Start.UnixNano(), 10)
	}
	return ev.ID + "|" + strconv.FormatInt(ev.Start.UnixNano(), 10)
}
