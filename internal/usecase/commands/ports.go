package commands

import (
	"context"

	"calendar-assistant/internal/domain/calendar"
	"calendar-assistant/internal/domain/plan"
	"calendar-assistant/internal/usecase/bulk"
	"calendar-assistant/internal/usecase/reconcile"
)

// SnapshotSource is the read side the planner works against.
type SnapshotSource interface {
	GetOrRefresh(ctx context.Context, userID string, window calendar.Window) (calendar.Snapshot, error)
	InvalidateUser(userID string) int
}

// EventLookup resolves an event referenced by id in an intent.
type EventLookup interface {
	GetEvent(ctx context.Context, eventID string) (calendar.Event, error)
}

type PlanExecutor interface {
	Apply(ctx context.Context, p plan.MutationPlan) []reconcile.Outcome
}

type BulkExecutor interface {
	ApplyBulk(ctx context.Context, originID string, plans []bulk.UserPlan) bulk.BulkResult
}
