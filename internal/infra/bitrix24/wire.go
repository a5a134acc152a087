package bitrix24

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"calendar-assistant/internal/domain/calendar"
	"calendar-assistant/internal/pkg/errs"
)

// Layouts Bitrix24 uses for DATE_FROM and DATE_TO depending on portal
// locale, tried in order.
var dateLayouts = []string{
	"02.01.2006 15:04:05",
	"01/02/2006 03:04:05 pm",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// envelope is the common REST response shape.
type envelope struct {
	Result           json.RawMessage `json:"result"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

// flexString accepts both JSON strings and numbers; Bitrix24 returns ids
// as either depending on the method.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(string(b))
	return nil
}

type eventDTO struct {
	ID             flexString      `json:"ID"`
	OwnerID        flexString      `json:"OWNER_ID"`
	CreatedBy      flexString      `json:"CREATED_BY"`
	Name           string          `json:"NAME"`
	DateFrom       string          `json:"DATE_FROM"`
	DateTo         string          `json:"DATE_TO"`
	DateFromUTC    flexString      `json:"DATE_FROM_TS_UTC"`
	DateToUTC      flexString      `json:"DATE_TO_TS_UTC"`
	TZFrom         string          `json:"TZ_FROM"`
	TZTo           string          `json:"TZ_TO"`
	AttendeesCodes []string        `json:"ATTENDEES_CODES"`
	RRule          json.RawMessage `json:"RRULE"`
	Version        flexString      `json:"VERSION"`
	TimestampX     string          `json:"TIMESTAMP_X"`
}

func (d eventDTO) toDomain() (calendar.Event, error) {
	start, err := parseBitrixTime(d.DateFromUTC, d.DateFrom, d.TZFrom)
	if err != nil {
		return calendar.Event{}, errs.Wrapf(err, "event %s: DATE_FROM", d.ID)
	}
	end, err := parseBitrixTime(d.DateToUTC, d.DateTo, d.TZTo)
	if err != nil {
		return calendar.Event{}, errs.Wrapf(err, "event %s: DATE_TO", d.ID)
	}

	owner := string(d.OwnerID)
	if owner == "" {
		owner = string(d.CreatedBy)
	}
	revision := string(d.Version)
	if revision == "" {
		revision = d.TimestampX
	}

	var attendees []string
	for _, code := range d.AttendeesCodes {
		if id, ok := strings.CutPrefix(code, "U"); ok && id != owner {
			attendees = append(attendees, id)
		}
	}

	return calendar.Event{
		ID:             string(d.ID),
		OwnerID:        owner,
		Title:          d.Name,
		Start:          start,
		End:            end,
		Attendees:      calendar.NormalizeAttendees(attendees),
		RecurrenceRule: decodeRRule(d.RRule),
		SourceRevision: revision,
	}, nil
}

func parseBitrixTime(unix flexString, local, tz string) (time.Time, error) {
	if unix != "" {
		if sec, err := strconv.ParseInt(string(unix), 10, 64); err == nil {
			return time.Unix(sec, 0).UTC(), nil
		}
	}
	loc := time.UTC
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, local, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errs.Newf("unrecognized time %q", local)
}

// decodeRRule accepts the RFC 5545 string form as well as the object form
// returned by calendar.event.get.
func decodeRRule(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte(`""`)) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return strings.TrimPrefix(s, "RRULE:")
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	var parts []string
	for _, key := range []string{"FREQ", "INTERVAL", "COUNT", "UNTIL", "BYDAY"} {
		v, ok := obj[key]
		if !ok {
			continue
		}
		if s := rruleValue(key, v); s != "" {
			parts = append(parts, key+"="+s)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, ";")
}

func rruleValue(key string, v json.RawMessage) string {
	if key == "BYDAY" {
		var days map[string]string
		if err := json.Unmarshal(v, &days); err == nil {
			out := make([]string, 0, len(days))
			for _, d := range days {
				out = append(out, d)
			}
			sort.Strings(out)
			return strings.Join(out, ",")
		}
		var list []string
		if err := json.Unmarshal(v, &list); err == nil {
			return strings.Join(list, ",")
		}
	}
	var s flexString
	if err := json.Unmarshal(v, &s); err != nil {
		return ""
	}
	if key == "UNTIL" && s != "" {
		for _, layout := range []string{"02.01.2006", "2006-01-02"} {
			if t, err := time.Parse(layout, string(s)); err == nil {
				return t.Format("20060102T150405Z")
			}
		}
	}
	return string(s)
}

func attendeeCodes(owner string, attendees []string) []int {
	seen := map[string]bool{}
	var ids []int
	for _, id := range append([]string{owner}, attendees...) {
		if seen[id] {
			continue
		}
		seen[id] = true
		if n, err := strconv.Atoi(id); err == nil {
			ids = append(ids, n)
		}
	}
	return ids
}

func formatBitrixTime(t time.Time) string {
	return t.UTC().Format("02.01.2006 15:04:05")
}
