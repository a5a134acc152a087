package bulk

import (
	"context"
	"log/slog"

	"calendar-assistant/internal/domain/plan"
	"calendar-assistant/internal/usecase/reconcile"

	"golang.org/x/sync/errgroup"
)

const DefaultMaxConcurrency = 8

// Applier executes one user's plan.
type Applier interface {
	Apply(ctx context.Context, p plan.MutationPlan) []reconcile.Outcome
}

// Coordinator runs per-user plans of a bulk intent on a bounded pool. Tasks
// share no state besides their own slot in the result slice.
type Coordinator struct {
	applier        Applier
	logger         *slog.Logger
	maxConcurrency int
}

func NewCoordinator(applier Applier, logger *slog.Logger, maxConcurrency int) *Coordinator {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &Coordinator{
		applier:        applier,
		logger:         logger.With(slog.String("component", "bulk_coordinator")),
		maxConcurrency: maxConcurrency,
	}
}

// ApplyBulk executes every plan and aggregates the results in input order.
// One user's failure never affects another user. Cancelling ctx stops
// dispatching new users; users already dispatched run to completion and
// the rest are reported as skipped. Nothing is retried at this level.
func (c *Coordinator) ApplyBulk(ctx context.Context, originID string, plans []UserPlan) BulkResult {
	results := make([]UserResult, len(plans))

	var g errgroup.Group
	g.SetLimit(max(1, min(len(plans), c.maxConcurrency)))

	for i, up := range plans {
		results[i] = UserResult{UserID: up.UserID, PlanID: up.Plan.ID}
		if up.Err != nil {
			results[i].Err = up.Err
			continue
		}
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			results[i].Skipped = true
			continue
		}

		taskCtx := context.WithoutCancel(ctx)
		g.Go(func() error {
			results[i].Outcomes = c.applier.Apply(taskCtx, up.Plan)
			return nil
		})
	}
	_ = g.Wait()

	res := BulkResult{OriginID: originID, Users: results, Classification: Classify(results)}

	skipped, failed := 0, 0
	for _, u := range results {
		switch u.Status() {
		case UserSkipped:
			skipped++
		case UserFailed:
			failed++
		}
	}
	c.logger.Info("bulk execution finished",
		slog.String("origin_id", originID),
		slog.Int("users", len(results)),
		slog.Int("failed", failed),
		slog.Int("skipped", skipped),
		slog.String("classification", string(res.Classification)))
	return res
}
