package errs

import (
	"fmt"
	"strings"

	cr "github.com/cockroachdb/errors"
)

func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return cr.Wrap(err, msg)
}

func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return cr.Wrapf(err, format, args...)
}

func New(msg string) error {
	return cr.New(msg)
}

func Newf(format string, args ...any) error {
	return cr.Newf(format, args...)
}

// Mark tags err so that errors.Is(err, markErr) holds while keeping the
// original message and stack. A nil err yields markErr itself.
func Mark(err error, markErr error) error {
	if err == nil {
		return markErr
	}
	return cr.Mark(err, markErr)
}

func Is(err, reference error) bool {
	return cr.Is(err, reference)
}

func As(err error, target any) bool {
	return cr.As(err, target)
}

func ExtractStackLines(err error, maxLines int) []string {
	if err == nil {
		return nil
	}
	s := fmt.Sprintf("%+v", err)
	lines := strings.Split(s, "\n")
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return lines
}

// Kind returns a short label of the taxonomy marker carried by err,
// used as a structured logging attribute.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case Is(err, ErrValidation):
		return "validation"
	case Is(err, ErrStaleData):
		return "stale_data"
	case Is(err, ErrNeedsUserChoice):
		return "needs_user_choice"
	case Is(err, ErrRevisionConflict):
		return "conflict"
	case Is(err, ErrNotFound):
		return "not_found"
	case Is(err, ErrTransientExternal):
		return "transient_external"
	case Is(err, ErrPermanentExternal):
		return "permanent_external"
	case Is(err, ErrForbidden):
		return "forbidden"
	case Is(err, ErrPlanNotFound):
		return "plan_not_found"
	case Is(err, ErrPlanInProgress):
		return "plan_in_progress"
	case Is(err, ErrUnknownTeam):
		return "unknown_team"
	case Is(err, ErrLedgerOperation):
		return "ledger"
	default:
		return "internal"
	}
}
