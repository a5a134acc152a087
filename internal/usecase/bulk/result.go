package bulk

import (
	"calendar-assistant/internal/domain/plan"
	"calendar-assistant/internal/usecase/reconcile"
)

type Classification string

const (
	FullSuccess    Classification = "full_success"
	PartialSuccess Classification = "partial_success"
	FullFailure    Classification = "full_failure"
)

type UserStatus string

const (
	UserSucceeded UserStatus = "succeeded"
	UserPartial   UserStatus = "partial"
	UserFailed    UserStatus = "failed"
	UserSkipped   UserStatus = "skipped"
)

// UserPlan is one user's share of a bulk intent. Err is set when the plan
// could not be built; such a user is reported as failed without running.
type UserPlan struct {
	UserID string
	Plan   plan.MutationPlan
	Err    error
}

type UserResult struct {
	UserID   string
	PlanID   string
	Outcomes []reconcile.Outcome
	Err      error
	Skipped  bool
}

func (r UserResult) Status() UserStatus {
	switch {
	case r.Skipped:
		return UserSkipped
	case r.Err != nil:
		return UserFailed
	case reconcile.AllApplied(r.Outcomes):
		return UserSucceeded
	case reconcile.AnyApplied(r.Outcomes):
		return UserPartial
	default:
		return UserFailed
	}
}

type BulkResult struct {
	OriginID       string
	Users          []UserResult
	Classification Classification
}

// Classify derives the overall classification. A user whose plan had no
// operations and no error counts as succeeded.
func Classify(users []UserResult) Classification {
	succeeded, progressed := 0, 0
	for _, u := range users {
		switch u.Status() {
		case UserSucceeded:
			succeeded++
			progressed++
		case UserPartial:
			progressed++
		}
	}
	switch {
	case len(users) > 0 && succeeded == len(users):
		return FullSuccess
	case progressed == 0:
		return FullFailure
	default:
		return PartialSuccess
	}
}
