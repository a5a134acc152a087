package commands

import (
	"time"

	"calendar-assistant/internal/domain/conflict"
	"calendar-assistant/internal/domain/intent"
	"calendar-assistant/internal/usecase/bulk"
)

type PlanStatus string

const (
	PlanStatusPlanned   PlanStatus = "planned"
	PlanStatusExecuting PlanStatus = "executing"
	PlanStatusExecuted  PlanStatus = "executed"
)

// PlanResult is what interpret-and-plan hands back and what the registry
// keeps until execution. A single-user intent has exactly one entry in
// Plans.
type PlanResult struct {
	ID        string
	OriginID  string
	Action    intent.Action
	CreatedBy string
	Bulk      bool
	Plans     []bulk.UserPlan
	CreatedAt time.Time
	Status    PlanStatus
	// Replayed is set when the origin id was already planned and the
	// registered result is returned unchanged.
	Replayed bool
}

// Reports collects the conflict reports of every user plan.
func (r PlanResult) Reports() []conflict.Report {
	var out []conflict.Report
	for _, up := range r.Plans {
		out = append(out, up.Plan.Reports...)
	}
	return out
}

func (r PlanResult) OperationCount() int {
	n := 0
	for _, up := range r.Plans {
		n += len(up.Plan.Operations)
	}
	return n
}

type ExecutionResult struct {
	PlanID     string
	OriginID   string
	Result     bulk.BulkResult
	ExecutedAt time.Time
	Replayed   bool
}

type Options struct {
	Resolver        conflict.Options
	DefaultDuration time.Duration
}
