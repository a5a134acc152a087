//go:build unit

package bitrix24

import (
	"encoding/json"
	"net/url"
	"testing"
	"time"

	"calendar-assistant/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRRule(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{name: "empty", raw: `""`, want: ""},
		{name: "null", raw: `null`, want: ""},
		{name: "string form", raw: `"RRULE:FREQ=WEEKLY;BYDAY=MO"`, want: "FREQ=WEEKLY;BYDAY=MO"},
		{name: "object form", raw: `{"FREQ":"WEEKLY","INTERVAL":2,"BYDAY":{"0":"MO","1":"WE"},"UNTIL":"31.03.2025"}`, want: "FREQ=WEEKLY;INTERVAL=2;UNTIL=20250331T000000Z;BYDAY=MO,WE"},
		{name: "byday list", raw: `{"FREQ":"WEEKLY","BYDAY":["TU","TH"]}`, want: "FREQ=WEEKLY;BYDAY=TU,TH"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, decodeRRule(json.RawMessage(tc.raw)))
		})
	}
}

func TestParseBitrixTime(t *testing.T) {
	want := time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC)

	t.Run("unix timestamp wins", func(t *testing.T) {
		got, err := parseBitrixTime(flexString("1740996000"), "garbage", "")
		require.NoError(t, err)
		assert.True(t, want.Equal(got))
	})

	t.Run("local layout in the event time zone", func(t *testing.T) {
		got, err := parseBitrixTime("", "03.03.2025 13:00:00", "Europe/Moscow")
		require.NoError(t, err)
		assert.True(t, want.Equal(got))
	})

	t.Run("unknown layout", func(t *testing.T) {
		_, err := parseBitrixTime("", "March 3rd", "")
		assert.Error(t, err)
	})
}

func TestEventDTO_RevisionFallback(t *testing.T) {
	d := eventDTO{ID: "1", CreatedBy: "9", Name: "x", DateFrom: "2025-03-03 10:00:00", DateTo: "2025-03-03 11:00:00", TimestampX: "03.03.2025 09:00:00"}
	ev, err := d.toDomain()
	require.NoError(t, err)
	assert.Equal(t, "9", ev.OwnerID)
	assert.Equal(t, "03.03.2025 09:00:00", ev.SourceRevision)
}

func TestParseWebhook(t *testing.T) {
	form := url.Values{
		"event":                   {"onCalendarEntryUpdate"},
		"data[id]":                {"42"},
		"auth[domain]":            {"example.bitrix24.com"},
		"auth[application_token]": {"tok"},
		"ts":                      {"1740996000"},
	}

	ev, err := ParseWebhook(form)
	require.NoError(t, err)
	assert.Equal(t, EventCalendarUpdate, ev.Type)
	assert.Equal(t, "42", ev.EventID)
	assert.True(t, ev.IsCalendar())
	assert.Equal(t, int64(1740996000), ev.Timestamp.Unix())

	t.Run("token check", func(t *testing.T) {
		assert.NoError(t, VerifyToken("tok", ev))
		assert.NoError(t, VerifyToken("", ev))
		assert.True(t, errs.Is(VerifyToken("other", ev), errs.ErrForbidden))
	})

	t.Run("calendar event without id", func(t *testing.T) {
		_, err := ParseWebhook(url.Values{"event": {EventCalendarAdd}})
		assert.True(t, errs.Is(err, errs.ErrValidation))
	})

	t.Run("missing type", func(t *testing.T) {
		_, err := ParseWebhook(url.Values{"data[id]": {"1"}})
		assert.ErrorIs(t, err, ErrInvalidWebhook)
	})
}
