package response

import (
	"time"

	"calendar-assistant/internal/domain/calendar"
	"calendar-assistant/internal/domain/conflict"
	"calendar-assistant/internal/domain/plan"
	"calendar-assistant/internal/usecase/bulk"
	"calendar-assistant/internal/usecase/commands"
	"calendar-assistant/internal/usecase/reconcile"

	"github.com/jinzhu/copier"
)

type EventResponse struct {
	ID             string    `json:"id,omitempty"`
	OwnerID        string    `json:"ownerId"`
	Title          string    `json:"title"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	Attendees      []string  `json:"attendees,omitempty"`
	RecurrenceRule string    `json:"recurrenceRule,omitempty"`
	SourceRevision string    `json:"revision,omitempty"`
}

type WindowResponse struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type ConflictReportResponse struct {
	Proposed     EventResponse    `json:"proposed"`
	Overlapping  []EventResponse  `json:"overlapping"`
	Alternatives []WindowResponse `json:"alternatives"`
}

type OperationResponse struct {
	Kind           string        `json:"kind"`
	Event          EventResponse `json:"event"`
	IdempotencyKey string        `json:"idempotencyKey"`
	PairID         string        `json:"pairId,omitempty"`
	Compensation   string        `json:"compensation,omitempty"`
}

type UserPlanResponse struct {
	UserID     string                   `json:"userId"`
	PlanID     string                   `json:"planId,omitempty"`
	Operations []OperationResponse      `json:"operations"`
	Reports    []ConflictReportResponse `json:"reports,omitempty"`
	Error      string                   `json:"error,omitempty"`
}

type PlanResponse struct {
	ID             string             `json:"id"`
	OriginID       string             `json:"originId"`
	Action         string             `json:"action"`
	Bulk           bool               `json:"bulk"`
	Status         string             `json:"status"`
	CreatedBy      string             `json:"createdBy"`
	CreatedAt      time.Time          `json:"createdAt"`
	OperationCount int                `json:"operationCount"`
	Replayed       bool               `json:"replayed"`
	Users          []UserPlanResponse `json:"users"`
}

type OutcomeResponse struct {
	Kind           string `json:"kind"`
	IdempotencyKey string `json:"idempotencyKey"`
	Status         string `json:"status"`
	ExternalID     string `json:"externalId,omitempty"`
	Revision       string `json:"revision,omitempty"`
	Attempts       int    `json:"attempts"`
	Replayed       bool   `json:"replayed,omitempty"`
	Error          string `json:"error,omitempty"`
}

type UserResultResponse struct {
	UserID   string            `json:"userId"`
	PlanID   string            `json:"planId,omitempty"`
	Status   string            `json:"status"`
	Outcomes []OutcomeResponse `json:"outcomes"`
	Error    string            `json:"error,omitempty"`
}

type ExecutionResponse struct {
	PlanID         string               `json:"planId"`
	OriginID       string               `json:"originId"`
	Classification string               `json:"classification"`
	ExecutedAt     time.Time            `json:"executedAt"`
	Replayed       bool                 `json:"replayed"`
	Users          []UserResultResponse `json:"users"`
}

func FromEvent(ev calendar.Event) EventResponse {
	var out EventResponse
	// field names line up; copier only fails on mismatched kinds
	_ = copier.CopyWithOption(&out, &ev, copier.Option{DeepCopy: true})
	return out
}

func FromEvents(evs []calendar.Event) []EventResponse {
	out := make([]EventResponse, len(evs))
	for i, ev := range evs {
		out[i] = FromEvent(ev)
	}
	return out
}

func FromWindow(w calendar.Window) WindowResponse {
	return WindowResponse{From: w.From, To: w.To}
}

func FromWindows(ws []calendar.Window) []WindowResponse {
	out := make([]WindowResponse, len(ws))
	for i, w := range ws {
		out[i] = FromWindow(w)
	}
	return out
}

func FromReports(reports []conflict.Report) []ConflictReportResponse {
	out := make([]ConflictReportResponse, len(reports))
	for i, r := range reports {
		out[i] = ConflictReportResponse{
			Proposed:     FromEvent(r.Proposed),
			Overlapping:  FromEvents(r.Overlapping),
			Alternatives: FromWindows(r.Alternatives),
		}
	}
	return out
}

func fromOperation(op plan.Operation) OperationResponse {
	out := OperationResponse{
		Kind:           op.Kind.String(),
		Event:          FromEvent(op.Event),
		IdempotencyKey: op.IdempotencyKey,
		PairID:         op.PairID,
	}
	if op.Compensation != nil {
		out.Compensation = string(op.Compensation.Action)
	}
	return out
}

func fromUserPlan(up bulk.UserPlan) UserPlanResponse {
	out := UserPlanResponse{
		UserID:     up.UserID,
		PlanID:     up.Plan.ID,
		Operations: make([]OperationResponse, len(up.Plan.Operations)),
		Reports:    FromReports(up.Plan.Reports),
	}
	for i, op := range up.Plan.Operations {
		out.Operations[i] = fromOperation(op)
	}
	if up.Err != nil {
		out.Error = up.Err.Error()
	}
	return out
}

func FromPlanResult(r *commands.PlanResult) *PlanResponse {
	out := &PlanResponse{
		ID:             r.ID,
		OriginID:       r.OriginID,
		Action:         r.Action.String(),
		Bulk:           r.Bulk,
		Status:         string(r.Status),
		CreatedBy:      r.CreatedBy,
		CreatedAt:      r.CreatedAt,
		OperationCount: r.OperationCount(),
		Replayed:       r.Replayed,
		Users:          make([]UserPlanResponse, len(r.Plans)),
	}
	for i, up := range r.Plans {
		out.Users[i] = fromUserPlan(up)
	}
	return out
}

func fromOutcome(o reconcile.Outcome) OutcomeResponse {
	out := OutcomeResponse{
		Kind:           o.Operation.Kind.String(),
		IdempotencyKey: o.Operation.IdempotencyKey,
		Status:         string(o.Status),
		ExternalID:     o.ExternalID,
		Revision:       o.Revision,
		Attempts:       o.Attempts,
		Replayed:       o.Replayed,
	}
	if o.Err != nil {
		out.Error = o.Err.Error()
	}
	return out
}

func FromExecutionResult(r *commands.ExecutionResult) *ExecutionResponse {
	out := &ExecutionResponse{
		PlanID:         r.PlanID,
		OriginID:       r.OriginID,
		Classification: string(r.Result.Classification),
		ExecutedAt:     r.ExecutedAt,
		Replayed:       r.Replayed,
		Users:          make([]UserResultResponse, len(r.Result.Users)),
	}
	for i, u := range r.Result.Users {
		ur := UserResultResponse{
			UserID:   u.UserID,
			PlanID:   u.PlanID,
			Status:   string(u.Status()),
			Outcomes: make([]OutcomeResponse, len(u.Outcomes)),
		}
		for j, o := range u.Outcomes {
			ur.Outcomes[j] = fromOutcome(o)
		}
		if u.Err != nil {
			ur.Error = u.Err.Error()
		}
		out.Users[i] = ur
	}
	return out
}
