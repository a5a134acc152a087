package conflict

import "time"

const (
	defaultDayStart        = 9 * time.Hour
	defaultDayEnd          = 17 * time.Hour
	defaultSlotStep        = 30 * time.Minute
	defaultSearchDays      = 3
	defaultMaxAlternatives = 5
	noon                   = 12 * time.Hour
)

// Options tunes the alternatives search. Day bounds are offsets from local
// midnight in Location.
type Options struct {
	Location        *time.Location
	DayStart        time.Duration
	DayEnd          time.Duration
	SlotStep        time.Duration
	SearchDays      int
	MaxAlternatives int
	// NotBefore excludes earlier candidate slots. Zero means the proposed
	// event's own start.
	NotBefore time.Time
}

func DefaultOptions() Options {
	return Options{
		Location:        time.UTC,
		DayStart:        defaultDayStart,
		DayEnd:          defaultDayEnd,
		SlotStep:        defaultSlotStep,
		SearchDays:      defaultSearchDays,
		MaxAlternatives: defaultMaxAlternatives,
	}
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.Location == nil {
		o.Location = d.Location
	}
	if o.DayEnd <= o.DayStart {
		o.DayStart, o.DayEnd = d.DayStart, d.DayEnd
	}
	if o.SlotStep <= 0 {
		o.SlotStep = d.SlotStep
	}
	if o.SearchDays < 0 {
		o.SearchDays = d.SearchDays
	}
	if o.MaxAlternatives <= 0 {
		o.MaxAlternatives = d.MaxAlternatives
	}
	return o
}

// MorningOnly limits candidate slots to end by noon.
func (o Options) MorningOnly() Options {
	o.DayEnd = min(o.DayEnd, noon)
	return o
}

// AfternoonOnly limits candidate slots to start at noon or later.
func (o Options) AfternoonOnly() Options {
	o.DayStart = max(o.DayStart, noon)
	return o
}
