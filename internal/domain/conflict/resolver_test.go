//go:build unit

package conflict_test

import (
	"testing"
	"time"

	"calendar-assistant/internal/domain/calendar"
	"calendar-assistant/internal/domain/conflict"
	"calendar-assistant/internal/testutil"
	"calendar-assistant/internal/testutil/builder"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotOf(events ...calendar.Event) calendar.Snapshot {
	window := calendar.Window{From: testutil.At(-7, 0, 0), To: testutil.At(7, 0, 0)}
	return calendar.NewSnapshot("1", window, events, testutil.At(0, 8, 0))
}

func slot(days, hh, mm int, d time.Duration) calendar.Window {
	from := testutil.At(days, hh, mm)
	return calendar.Window{From: from, To: from.Add(d)}
}

func TestFindConflicts(t *testing.T) {
	busy := builder.NewEventBuilder().WithID("busy").WithOwner("1").WithSlot(testutil.At(0, 10, 0), time.Hour).Build()
	proposed := builder.NewEventBuilder().Unsaved().WithOwner("1").WithSlot(testutil.At(0, 10, 0), time.Hour).Build()

	t.Run("free slot has no alternatives", func(t *testing.T) {
		free := builder.NewEventBuilder().Unsaved().WithSlot(testutil.At(0, 14, 0), time.Hour).Build()
		report := conflict.FindConflicts(snapshotOf(busy), free, conflict.DefaultOptions())
		assert.False(t, report.HasConflicts())
		assert.Empty(t, report.Alternatives)
	})

	t.Run("other users' events are ignored", func(t *testing.T) {
		foreign := builder.NewEventBuilder().WithID("x").WithOwner("2").WithSlot(testutil.At(0, 10, 0), time.Hour).Build()
		report := conflict.FindConflicts(snapshotOf(foreign), proposed, conflict.DefaultOptions())
		assert.False(t, report.HasConflicts())
	})

	t.Run("alternatives on the same day ranked by distance", func(t *testing.T) {
		report := conflict.FindConflicts(snapshotOf(busy), proposed, conflict.DefaultOptions())
		require.True(t, report.HasConflicts())
		assert.Equal(t, "busy", report.Overlapping[0].ID)

		expected := []calendar.Window{
			slot(0, 11, 0, time.Hour),
			slot(0, 11, 30, time.Hour),
			slot(0, 12, 0, time.Hour),
			slot(0, 12, 30, time.Hour),
			slot(0, 13, 0, time.Hour),
		}
		if diff := cmp.Diff(expected, report.Alternatives); diff != "" {
			t.Errorf("alternatives mismatch (-want +got):\n%s", diff)
		}
		best, ok := report.Best()
		require.True(t, ok)
		assert.Equal(t, slot(0, 11, 0, time.Hour), best)
	})

	t.Run("morning only falls back to later days", func(t *testing.T) {
		report := conflict.FindConflicts(snapshotOf(busy), proposed, conflict.DefaultOptions().MorningOnly())
		require.GreaterOrEqual(t, len(report.Alternatives), 2)
		assert.Equal(t, slot(0, 11, 0, time.Hour), report.Alternatives[0])
		assert.Equal(t, slot(1, 10, 0, time.Hour), report.Alternatives[1])
		for _, alt := range report.Alternatives {
			assert.LessOrEqual(t, alt.To.Hour()*60+alt.To.Minute(), 12*60)
		}
	})

	t.Run("NotBefore admits earlier slots", func(t *testing.T) {
		opts := conflict.DefaultOptions()
		opts.NotBefore = testutil.At(0, 8, 0)
		report := conflict.FindConflicts(snapshotOf(busy), proposed, opts)
		assert.Contains(t, report.Alternatives, slot(0, 9, 0, time.Hour))
	})

	t.Run("a fully booked week yields no alternatives", func(t *testing.T) {
		var events []calendar.Event
		for d := -7; d < 7; d++ {
			events = append(events, builder.NewEventBuilder().
				WithID("all-day").
				WithSlot(testutil.At(d, 0, 0), 24*time.Hour).
				Build())
		}
		report := conflict.FindConflicts(snapshotOf(events...), proposed, conflict.DefaultOptions())
		assert.True(t, report.HasConflicts())
		assert.Empty(t, report.Alternatives)
		_, ok := report.Best()
		assert.False(t, ok)
	})

	t.Run("an event never conflicts with itself", func(t *testing.T) {
		report := conflict.FindConflicts(snapshotOf(busy), busy, conflict.DefaultOptions())
		assert.False(t, report.HasConflicts())
	})
}

func TestBusinessDays(t *testing.T) {
	days := conflict.BusinessDays(testutil.At(0, 10, 0), 3, time.UTC)
	require.Len(t, days, 7)
	assert.Equal(t, time.Date(2025, time.February, 26, 0, 0, 0, 0, time.UTC), days[0])
	assert.Equal(t, testutil.At(0, 0, 0), days[3])
	assert.Equal(t, testutil.At(3, 0, 0), days[6])

	t.Run("weekend start skips its own day", func(t *testing.T) {
		saturday := testutil.At(-2, 10, 0)
		days := conflict.BusinessDays(saturday, 1, time.UTC)
		assert.Equal(t, []time.Time{testutil.At(-3, 0, 0), testutil.At(0, 0, 0)}, days)
	})
}

func TestSearchHorizon(t *testing.T) {
	h := conflict.SearchHorizon(testutil.At(0, 10, 0), conflict.DefaultOptions())
	assert.Equal(t, time.Date(2025, time.February, 26, 0, 0, 0, 0, time.UTC), h.From)
	assert.Equal(t, testutil.At(4, 0, 0), h.To)
}

func TestFindConflictsThroughAttendees(t *testing.T) {
	t.Run("shared attendee across different owners conflicts", func(t *testing.T) {
		theirs := builder.NewEventBuilder().WithID("200").WithOwner("2").WithAttendees("7").
			WithSlot(testutil.At(0, 10, 0), time.Hour).Build()
		mine := builder.NewEventBuilder().Unsaved().WithOwner("3").WithAttendees("7").
			WithSlot(testutil.At(0, 10, 30), time.Hour).Build()

		report := conflict.FindConflicts(snapshotOf(theirs), mine, conflict.DefaultOptions())
		require.True(t, report.HasConflicts())
		require.Len(t, report.Overlapping, 1)
		assert.Equal(t, "200", report.Overlapping[0].ID)
		assert.NotEmpty(t, report.Alternatives)
	})

	t.Run("touching events of the same attendee do not conflict", func(t *testing.T) {
		busy := builder.NewEventBuilder().WithID("busy").WithOwner("1").WithAttendees("7").
			WithSlot(testutil.At(0, 10, 0), time.Hour).Build()
		after := builder.NewEventBuilder().Unsaved().WithOwner("4").WithAttendees("7").
			WithSlot(testutil.At(0, 11, 0), time.Hour).Build()
		before := builder.NewEventBuilder().Unsaved().WithOwner("4").WithAttendees("7").
			WithSlot(testutil.At(0, 9, 0), time.Hour).Build()

		for _, proposed := range []calendar.Event{after, before} {
			report := conflict.FindConflicts(snapshotOf(busy), proposed, conflict.DefaultOptions())
			assert.False(t, report.HasConflicts())
			assert.Empty(t, report.Alternatives)
		}
	})

	t.Run("attendee busy mid-morning gets the first free hour after", func(t *testing.T) {
		withB := builder.NewEventBuilder().WithID("300").WithOwner("A").WithAttendees("B").
			WithSlot(testutil.At(0, 10, 30), time.Hour).Build()
		proposed := builder.NewEventBuilder().Unsaved().WithOwner("B").
			WithSlot(testutil.At(0, 10, 0), time.Hour).Build()

		report := conflict.FindConflicts(snapshotOf(withB), proposed, conflict.DefaultOptions())
		require.Len(t, report.Overlapping, 1)
		assert.Equal(t, "300", report.Overlapping[0].ID)
		best, ok := report.Best()
		require.True(t, ok)
		assert.Equal(t, slot(0, 11, 30, time.Hour), best)
	})
}

func TestAlternativesAreConflictFree(t *testing.T) {
	events := []calendar.Event{
		builder.NewEventBuilder().WithID("a").WithOwner("1").WithSlot(testutil.At(0, 9, 0), 90*time.Minute).Build(),
		builder.NewEventBuilder().WithID("b").WithOwner("2").WithAttendees("1").WithSlot(testutil.At(0, 11, 0), time.Hour).Build(),
		builder.NewEventBuilder().WithID("c").WithOwner("1").WithSlot(testutil.At(0, 13, 30), 2*time.Hour).Build(),
		builder.NewEventBuilder().WithID("d").WithOwner("3").WithAttendees("1", "5").WithSlot(testutil.At(1, 10, 0), 3*time.Hour).Build(),
		builder.NewEventBuilder().WithID("e").WithOwner("5").WithSlot(testutil.At(1, 15, 0), time.Hour).Build(),
	}
	snap := snapshotOf(events...)

	for _, proposed := range []calendar.Event{
		builder.NewEventBuilder().Unsaved().WithOwner("1").WithSlot(testutil.At(0, 11, 0), time.Hour).Build(),
		builder.NewEventBuilder().Unsaved().WithOwner("1").WithAttendees("5").WithSlot(testutil.At(1, 11, 0), 90*time.Minute).Build(),
		builder.NewEventBuilder().Unsaved().WithOwner("9").WithAttendees("1").WithSlot(testutil.At(0, 14, 0), 30*time.Minute).Build(),
	} {
		opts := conflict.DefaultOptions()
		opts.MaxAlternatives = 20
		report := conflict.FindConflicts(snap, proposed, opts)
		require.True(t, report.HasConflicts())
		require.NotEmpty(t, report.Alternatives)

		for _, alt := range report.Alternatives {
			assert.Equal(t, proposed.Duration(), alt.To.Sub(alt.From))
			moved := proposed.WithSlot(alt)
			again := conflict.FindConflicts(snap, moved, opts)
			assert.False(t, again.HasConflicts(), "alternative %v overlaps %v", alt, again.Overlapping)
		}
	}
}
