package plan

import (
	"errors"
	"strconv"

	"calendar-assistant/internal/domain/conflict"
	"calendar-assistant/internal/pkg/errs"
)

var (
	ErrMissingOriginal   = errors.New("move target event is unknown")
	ErrRecurringMove     = errors.New("recurring events cannot be moved as a whole")
	ErrUnsupportedIntent = errors.New("unsupported intent action")
)

// NeedsUserChoiceError is returned when a requested slot conflicts and the
// intent does not allow the planner to pick an alternative on its own.
type NeedsUserChoiceError struct {
	Reports []conflict.Report
}

func (e *NeedsUserChoiceError) Error() string {
	return "slot conflicts with " + strconv.Itoa(e.conflictCount()) + " event(s); choose one of the alternatives"
}

func (e *NeedsUserChoiceError) Is(target error) bool {
	return target == errs.ErrNeedsUserChoice
}

func (e *NeedsUserChoiceError) conflictCount() int {
	n := 0
	for _, r := range e.Reports {
		n += len(r.Overlapping)
	}
	return n
}
