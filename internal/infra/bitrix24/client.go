package bitrix24

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"calendar-assistant/internal/domain/calendar"
	"calendar-assistant/internal/pkg/config"
	"calendar-assistant/internal/pkg/errs"

	"golang.org/x/time/rate"
)

const (
	IdempotencyHeader = "X-Idempotency-Key"
	maxResponseBytes  = 4 << 20
)

// Error codes Bitrix24 returns for throttling and missing entities.
var (
	transientCodes = map[string]bool{
		"QUERY_LIMIT_EXCEEDED":      true,
		"INTERNAL_SERVER_ERROR":     true,
		"OPERATION_TIME_LIMIT":      true,
		"ERROR_SERVICE_UNAVAILABLE": true,
	}
	notFoundCodes = map[string]bool{
		"ERROR_NOT_FOUND":       true,
		"NOT_FOUND":             true,
		"ERROR_EVENT_NOT_FOUND": true,
	}
)

// APIError is a failed REST call.
type APIError struct {
	Method      string
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("bitrix24 %s: HTTP %d", e.Method, e.StatusCode)
	if e.Code != "" {
		msg += ": " + e.Code
	}
	if e.Description != "" {
		msg += ": " + e.Description
	}
	return msg
}

// Client talks to the Bitrix24 calendar REST API through an inbound
// webhook URL. It implements shared.CalendarGateway.
type Client struct {
	baseURL      string
	calendarType string
	httpClient   *http.Client
	limiter      *rate.Limiter
	logger       *slog.Logger
}

func NewClient(cfg config.Bitrix24Config, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(cfg.WebhookURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errs.Newf("invalid BITRIX24_WEBHOOK_URL %q", cfg.WebhookURL)
	}
	base := cfg.WebhookURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	calType := cfg.CalendarType
	if calType == "" {
		calType = "user"
	}
	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		baseURL:      base,
		calendarType: calType,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		limiter:      rate.NewLimiter(limit, burst),
		logger:       logger.With(slog.String("component", "bitrix24_client")),
	}, nil
}

func (c *Client) FetchEvents(ctx context.Context, userID string, window calendar.Window) ([]calendar.Event, error) {
	params := map[string]any{
		"type":    c.calendarType,
		"ownerId": userID,
		"from":    window.From.UTC().Format("2006-01-02"),
		"to":      window.To.UTC().AddDate(0, 0, 1).Format("2006-01-02"),
	}
	var dtos []eventDTO
	if err := c.call(ctx, "calendar.event.get", params, "", &dtos); err != nil {
		return nil, err
	}

	events := make([]calendar.Event, 0, len(dtos))
	for _, d := range dtos {
		ev, err := d.toDomain()
		if err != nil {
			c.logger.Warn("skipping undecodable event", slog.String("event_id", string(d.ID)), slog.Any("error", err))
			continue
		}
		if ev.IsRecurring() || ev.Interval().Overlaps(window) {
			events = append(events, ev)
		}
	}
	return events, nil
}

func (c *Client) GetEvent(ctx context.Context, eventID string) (calendar.Event, error) {
	var raw json.RawMessage
	if err := c.call(ctx, "calendar.event.getbyid", map[string]any{"id": eventID}, "", &raw); err != nil {
		return calendar.Event{}, err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("false")) {
		return calendar.Event{}, errs.Mark(errs.Newf("bitrix24 event %s", eventID), errs.ErrNotFound)
	}
	var d eventDTO
	if err := json.Unmarshal(trimmed, &d); err != nil {
		return calendar.Event{}, errs.Mark(errs.Wrapf(err, "decode event %s", eventID), errs.ErrPermanentExternal)
	}
	return d.toDomain()
}

func (c *Client) CreateEvent(ctx context.Context, ev calendar.Event, correlationKey string) (calendar.Event, error) {
	params := c.eventParams(ev.OwnerID)
	params["name"] = ev.Title
	params["from"] = formatBitrixTime(ev.Start)
	params["to"] = formatBitrixTime(ev.End)
	params["timezone_from"] = "UTC"
	params["timezone_to"] = "UTC"
	params["skip_time"] = "N"
	if len(ev.Attendees) > 0 {
		params["is_meeting"] = "Y"
		params["host"] = ev.OwnerID
		params["attendees"] = attendeeCodes(ev.OwnerID, ev.Attendees)
	}
	if ev.RecurrenceRule != "" {
		params["rrule"] = ev.RecurrenceRule
	}

	var id flexString
	if err := c.call(ctx, "calendar.event.add", params, correlationKey, &id); err != nil {
		return calendar.Event{}, err
	}
	if id == "" {
		return calendar.Event{}, errs.Mark(errs.New("bitrix24 calendar.event.add returned no id"), errs.ErrPermanentExternal)
	}

	created := ev.Clone()
	created.ID = string(id)
	created.SourceRevision = ""
	return created, nil
}

// UpdateEvent applies patch when the event still carries expectedRevision.
// The REST API has no conditional update, so the revision is compared
// right before writing.
func (c *Client) UpdateEvent(ctx context.Context, eventID string, patch calendar.Patch, expectedRevision, correlationKey string) (calendar.Event, error) {
	current, err := c.GetEvent(ctx, eventID)
	if err != nil {
		return calendar.Event{}, err
	}
	if expectedRevision != "" && current.SourceRevision != expectedRevision {
		return calendar.Event{}, errs.Mark(
			errs.Newf("event %s is at revision %s, expected %s", eventID, current.SourceRevision, expectedRevision),
			errs.ErrRevisionConflict)
	}

	params := c.eventParams(current.OwnerID)
	params["id"] = eventID
	if patch.Title != nil {
		params["name"] = *patch.Title
	}
	if patch.Start != nil {
		params["from"] = formatBitrixTime(*patch.Start)
		params["timezone_from"] = "UTC"
	}
	if patch.End != nil {
		params["to"] = formatBitrixTime(*patch.End)
		params["timezone_to"] = "UTC"
	}
	if patch.Attendees != nil {
		params["is_meeting"] = "Y"
		params["attendees"] = attendeeCodes(current.OwnerID, patch.Attendees)
	}

	var id flexString
	if err := c.call(ctx, "calendar.event.update", params, correlationKey, &id); err != nil {
		return calendar.Event{}, err
	}
	return c.GetEvent(ctx, eventID)
}

func (c *Client) DeleteEvent(ctx context.Context, eventID, correlationKey string) error {
	current, err := c.GetEvent(ctx, eventID)
	if err != nil {
		if errs.Is(err, errs.ErrNotFound) {
			return nil
		}
		return err
	}
	params := c.eventParams(current.OwnerID)
	params["id"] = eventID

	var ok json.RawMessage
	err = c.call(ctx, "calendar.event.delete", params, correlationKey, &ok)
	if errs.Is(err, errs.ErrNotFound) {
		return nil
	}
	return err
}

func (c *Client) eventParams(ownerID string) map[string]any {
	return map[string]any{
		"type":    c.calendarType,
		"ownerId": ownerID,
	}
}

// call posts params to a REST method and decodes the result field into out.
// Errors are marked transient or permanent for the retry policy.
func (c *Client) call(ctx context.Context, method string, params map[string]any, correlationKey string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		wrapped := errs.Wrapf(err, "bitrix24 %s: rate limiter", method)
		if ctx.Err() != nil {
			return wrapped
		}
		return errs.Mark(wrapped, errs.ErrTransientExternal)
	}

	body, err := json.Marshal(params)
	if err != nil {
		return errs.Wrapf(err, "bitrix24 %s: encode request", method)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+method+".json", bytes.NewReader(body))
	if err != nil {
		return errs.Wrapf(err, "bitrix24 %s: build request", method)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if correlationKey != "" {
		req.Header.Set(IdempotencyHeader, correlationKey)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(method, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return errs.Mark(errs.Wrapf(err, "bitrix24 %s: read response", method), errs.ErrTransientExternal)
	}

	c.logger.Debug("bitrix24 call",
		slog.String("method", method),
		slog.Int("status", resp.StatusCode),
		slog.Duration("latency", time.Since(started)))

	var env envelope
	decodeErr := json.Unmarshal(payload, &env)

	if resp.StatusCode >= http.StatusBadRequest || env.Error != "" {
		apiErr := &APIError{Method: method, StatusCode: resp.StatusCode, Code: env.Error, Description: env.ErrorDescription}
		return classifyAPIError(apiErr)
	}
	if decodeErr != nil {
		return errs.Mark(errs.Wrapf(decodeErr, "bitrix24 %s: decode response", method), errs.ErrPermanentExternal)
	}
	if out == nil || len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return errs.Mark(errs.Wrapf(err, "bitrix24 %s: decode result", method), errs.ErrPermanentExternal)
	}
	return nil
}

// classifyTransportError treats everything except caller cancellation as
// transient: timeouts, refused and reset connections.
func classifyTransportError(method string, err error) error {
	wrapped := errs.Wrapf(err, "bitrix24 %s", method)
	if errors.Is(err, context.Canceled) {
		return wrapped
	}
	return errs.Mark(wrapped, errs.ErrTransientExternal)
}

func classifyAPIError(e *APIError) error {
	code := strings.ToUpper(e.Code)
	switch {
	case e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError || transientCodes[code]:
		return errs.Mark(e, errs.ErrTransientExternal)
	case e.StatusCode == http.StatusNotFound || notFoundCodes[code] || strings.Contains(strings.ToLower(e.Description), "not found"):
		return errs.Mark(errs.Mark(e, errs.ErrNotFound), errs.ErrPermanentExternal)
	default:
		return errs.Mark(e, errs.ErrPermanentExternal)
	}
}
