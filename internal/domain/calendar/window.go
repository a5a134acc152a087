package calendar

import (
	"errors"
	"time"
)

var ErrInvalidWindow = errors.New("window end must be after start")

// Window is a half-open time range [From, To).
type Window struct {
	From time.Time
	To   time.Time
}

func NewWindow(from, to time.Time) (Window, error) {
	if !to.After(from) {
		return Window{}, ErrInvalidWindow
	}
	return Window{From: from, To: to}, nil
}

func (w Window) IsZero() bool {
	return w.From.IsZero() && w.To.IsZero()
}

func (w Window) Duration() time.Duration {
	return w.To.Sub(w.From)
}

// Overlaps reports whether the two half-open ranges intersect. Touching
// ranges (one ends exactly when the other starts) do not overlap.
func (w Window) Overlaps(o Window) bool {
	return w.From.Before(o.To) && o.From.Before(w.To)
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

func (w Window) Covers(o Window) bool {
	return !o.From.Before(w.From) && !o.To.After(w.To)
}

func (w Window) Shift(d time.Duration) Window {
	return Window{From: w.From.Add(d), To: w.To.Add(d)}
}

func (w Window) In(loc *time.Location) Window {
	return Window{From: w.From.In(loc), To: w.To.In(loc)}
}

// Key renders a stable identifier for caching, independent of the
// location the bounds were expressed in.
func (w Window) Key() string {
	return w.From.UTC().Format(time.RFC3339) + "/" + w.To.UTC().Format(time.RFC3339)
}

func (w Window) String() string {
	return "[" + w.From.Format(time.RFC3339) + ", " + w.To.Format(time.RFC3339) + ")"
}
