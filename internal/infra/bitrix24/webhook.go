package bitrix24

import (
	"crypto/subtle"
	"net/url"
	"strconv"
	"strings"
	"time"

	"calendar-assistant/internal/pkg/errs"
)

const (
	EventCalendarAdd    = "ONCALENDARENTRYADD"
	EventCalendarUpdate = "ONCALENDARENTRYUPDATE"
	EventCalendarDelete = "ONCALENDARENTRYDELETE"
)

var (
	ErrInvalidWebhook      = errs.Mark(errs.New("malformed bitrix24 webhook"), errs.ErrValidation)
	ErrWebhookUnauthorized = errs.Mark(errs.New("bitrix24 webhook application token mismatch"), errs.ErrForbidden)
)

// WebhookEvent is an outbound Bitrix24 event notification.
type WebhookEvent struct {
	Type             string
	EventID          string
	Domain           string
	ApplicationToken string
	Timestamp        time.Time
}

func (e WebhookEvent) IsCalendar() bool {
	return strings.HasPrefix(e.Type, "ONCALENDARENTRY")
}

// ParseWebhook decodes the form-encoded body Bitrix24 posts to event
// handlers, e.g. event=ONCALENDARENTRYUPDATE&data[id]=42&auth[application_token]=...
func ParseWebhook(form url.Values) (WebhookEvent, error) {
	ev := WebhookEvent{
		Type:             strings.ToUpper(strings.TrimSpace(form.Get("event"))),
		Domain:           form.Get("auth[domain]"),
		ApplicationToken: form.Get("auth[application_token]"),
	}
	for _, key := range []string{"data[id]", "data[ID]", "data[FIELDS][ID]", "data[FIELDS_AFTER][ID]"} {
		if v := strings.TrimSpace(form.Get(key)); v != "" {
			ev.EventID = v
			break
		}
	}
	if ts, err := strconv.ParseInt(form.Get("ts"), 10, 64); err == nil {
		ev.Timestamp = time.Unix(ts, 0).UTC()
	}

	if ev.Type == "" {
		return WebhookEvent{}, errs.Wrap(ErrInvalidWebhook, "missing event type")
	}
	if ev.IsCalendar() && ev.EventID == "" {
		return WebhookEvent{}, errs.Wrapf(ErrInvalidWebhook, "%s without event id", ev.Type)
	}
	return ev, nil
}

// VerifyToken checks the application token when one is configured.
func VerifyToken(expected string, ev WebhookEvent) error {
	if expected == "" {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(ev.ApplicationToken)) != 1 {
		return ErrWebhookUnauthorized
	}
	return nil
}
