package reconcile

import "calendar-assistant/internal/domain/plan"

type Status string

const (
	StatusApplied    Status = "applied"
	StatusConflicted Status = "conflicted"
	StatusFailed     Status = "failed"
)

// Outcome is the result of one operation. Replayed is set when the
// idempotency ledger already held the result and no CRM call was made.
type Outcome struct {
	Operation  plan.Operation
	Status     Status
	ExternalID string
	Revision   string
	Err        error
	Attempts   int
	Replayed   bool
}

func (o Outcome) Applied() bool {
	return o.Status == StatusApplied
}

// AllApplied reports whether every outcome applied. An empty list counts.
func AllApplied(outcomes []Outcome) bool {
	for _, o := range outcomes {
		if !o.Applied() {
			return false
		}
	}
	return true
}

func AnyApplied(outcomes []Outcome) bool {
	for _, o := range outcomes {
		if o.Applied() {
			return true
		}
	}
	return false
}
