package plan

import (
	"calendar-assistant/internal/domain/calendar"
	"calendar-assistant/internal/domain/conflict"
	"calendar-assistant/internal/domain/intent"
)

type OperationKind string

const (
	KindCreate OperationKind = "create"
	KindUpdate OperationKind = "update"
	KindDelete OperationKind = "delete"
)

func (k OperationKind) String() string {
	return string(k)
}

type CompensationAction string

// CompensationLeaveBoth keeps the new copy when deleting the original fails.
// The duplicate is reported, never rolled back.
const CompensationLeaveBoth CompensationAction = "leave_both"

type Compensation struct {
	Action CompensationAction
	Note   string
}

// Operation is one external call. For create, Event is the new entry; for
// update and delete, Event carries the target ID and the SourceRevision the
// plan was computed against.
type Operation struct {
	Kind           OperationKind
	Event          calendar.Event
	IdempotencyKey string
	Compensation   *Compensation
	// PairID links the create and delete halves of one move.
	PairID string
}

func (o Operation) IsPaired() bool {
	return o.PairID != ""
}

// MutationPlan is the ordered list of operations for one user and one
// intent. It is consumed by exactly one executor.
type MutationPlan struct {
	ID         string
	OriginID   string
	UserID     string
	Action     intent.Action
	Operations []Operation
	Reports    []conflict.Report
}

func (p MutationPlan) IsEmpty() bool {
	return len(p.Operations) == 0
}

// Keys returns the idempotency keys in plan order.
func (p MutationPlan) Keys() []string {
	keys := make([]string, len(p.Operations))
	for i, op := range p.Operations {
		keys[i] = op.IdempotencyKey
	}
	return keys
}
