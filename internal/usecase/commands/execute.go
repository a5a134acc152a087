package commands

import (
	"context"
	"log/slog"

	"calendar-assistant/internal/pkg/errs"
	"calendar-assistant/internal/usecase/bulk"
	"calendar-assistant/internal/usecase/shared"
)

// Execute runs a registered plan. A single-user run is detached from ctx
// so that a dropped request cannot leave a move half-applied. A bulk run
// observes ctx between users and stops dispatching once it is cancelled;
// users already dispatched run to completion.
func (u *planUseCaseImpl) Execute(ctx context.Context, caller shared.Caller, planID string) (*ExecutionResult, error) {
	p, ok := u.registry.Get(planID)
	if !ok {
		return nil, errs.Wrapf(errs.ErrPlanNotFound, "plan %s", planID)
	}
	if err := authorizePlan(caller, p); err != nil {
		return nil, err
	}

	p, cached, err := u.registry.Begin(planID)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		cached.Replayed = true
		u.logger.Info("execution replayed", slog.String("plan_id", planID))
		return cached, nil
	}

	var result bulk.BulkResult
	if p.Bulk {
		result = u.bulk.ApplyBulk(ctx, p.OriginID, p.Plans)
	} else {
		up := p.Plans[0]
		users := []bulk.UserResult{{
			UserID:   up.UserID,
			PlanID:   up.Plan.ID,
			Outcomes: u.engine.Apply(context.WithoutCancel(ctx), up.Plan),
			Err:      up.Err,
		}}
		result = bulk.BulkResult{OriginID: p.OriginID, Users: users, Classification: bulk.Classify(users)}
	}

	u.invalidateTouched(result)

	exec := ExecutionResult{
		PlanID:     p.ID,
		OriginID:   p.OriginID,
		Result:     result,
		ExecutedAt: u.clock.Now(),
	}
	u.registry.Finish(planID, exec)

	u.logger.Info("plan executed",
		slog.String("plan_id", p.ID),
		slog.String("origin_id", p.OriginID),
		slog.String("classification", string(result.Classification)))
	return &exec, nil
}

// invalidateTouched drops cached snapshots of everyone whose calendar an
// applied operation changed.
func (u *planUseCaseImpl) invalidateTouched(result bulk.BulkResult) {
	touched := make(map[string]struct{})
	for _, ur := range result.Users {
		for _, o := range ur.Outcomes {
			if !o.Applied() || o.Replayed {
				continue
			}
			touched[ur.UserID] = struct{}{}
			for _, p := range o.Operation.Event.Participants() {
				touched[p] = struct{}{}
			}
		}
	}
	for userID := range touched {
		u.snapshots.InvalidateUser(userID)
	}
}
