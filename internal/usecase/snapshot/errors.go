package snapshot

import (
	"fmt"
	"time"

	"calendar-assistant/internal/domain/calendar"
	"calendar-assistant/internal/pkg/errs"
)

// StaleDataError means no snapshot younger than the max age exists for the
// requested key. Cause is set when a refresh attempt failed.
type StaleDataError struct {
	UserID  string
	Window  calendar.Window
	Age     time.Duration
	MaxAge  time.Duration
	Missing bool
	Cause   error
}

func (e *StaleDataError) Error() string {
	var msg string
	if e.Missing {
		msg = fmt.Sprintf("no snapshot for user %s in %s", e.UserID, e.Window)
	} else {
		msg = fmt.Sprintf("snapshot for user %s in %s is %s old (max %s)", e.UserID, e.Window, e.Age.Round(time.Second), e.MaxAge)
	}
	if e.Cause != nil {
		msg += ": refresh failed: " + e.Cause.Error()
	}
	return msg
}

func (e *StaleDataError) Is(target error) bool {
	return target == errs.ErrStaleData
}

func (e *StaleDataError) Unwrap() error {
	return e.Cause
}
