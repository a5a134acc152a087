package request

import (
	"strings"
	"time"

	"calendar-assistant/internal/domain/calendar"
	"calendar-assistant/internal/domain/intent"
)

// RangeQuery is the from/to query pair of the read endpoints.
type RangeQuery struct {
	From     string `form:"from" binding:"required"`
	To       string `form:"to" binding:"required"`
	TimeZone string `form:"tz"`
	// Users lists extra user ids for team workload, comma separated.
	Users string `form:"users"`
}

func (q RangeQuery) ToWindow() (calendar.Window, error) {
	loc := time.UTC
	if q.TimeZone != "" {
		l, err := time.LoadLocation(q.TimeZone)
		if err != nil {
			verr := intent.NewValidationError()
			verr.Add("tz", "unknown time zone "+q.TimeZone)
			return calendar.Window{}, verr
		}
		loc = l
	}
	w, err := RangeRequest{From: q.From, To: q.To}.ToWindow(loc)
	if err != nil {
		verr := intent.NewValidationError()
		verr.Add("from", err.Error())
		return calendar.Window{}, verr
	}
	return w, nil
}

func (q RangeQuery) UserList() []string {
	if q.Users == "" {
		return nil
	}
	return strings.Split(q.Users, ",")
}

type RefreshSnapshotRequest struct {
	UserID string `json:"userId" binding:"required"`
	From   string `json:"from" binding:"required"`
	To     string `json:"to" binding:"required"`
}

func (r RefreshSnapshotRequest) ToWindow() (calendar.Window, error) {
	w, err := RangeRequest{From: r.From, To: r.To}.ToWindow(time.UTC)
	if err != nil {
		verr := intent.NewValidationError()
		verr.Add("from", err.Error())
		return calendar.Window{}, verr
	}
	return w, nil
}
