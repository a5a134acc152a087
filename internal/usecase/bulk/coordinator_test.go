//go:build unit

package bulk_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"calendar-assistant/internal/domain/plan"
	"calendar-assistant/internal/pkg/errs"
	"calendar-assistant/internal/usecase/bulk"
	"calendar-assistant/internal/usecase/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type applierFunc func(ctx context.Context, p plan.MutationPlan) []reconcile.Outcome

func (f applierFunc) Apply(ctx context.Context, p plan.MutationPlan) []reconcile.Outcome {
	return f(ctx, p)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func userPlan(userID string, ops int) bulk.UserPlan {
	mp := plan.MutationPlan{ID: "plan-" + userID, UserID: userID}
	for range ops {
		mp.Operations = append(mp.Operations, plan.Operation{Kind: plan.KindCreate})
	}
	return bulk.UserPlan{UserID: userID, Plan: mp}
}

// outcomesByUser applies every operation, except that the user named in
// failing gets all its operations failed.
func outcomesByUser(failing string) applierFunc {
	return func(_ context.Context, p plan.MutationPlan) []reconcile.Outcome {
		out := make([]reconcile.Outcome, len(p.Operations))
		for i, op := range p.Operations {
			out[i] = reconcile.Outcome{Operation: op, Status: reconcile.StatusApplied}
			if p.UserID == failing {
				out[i].Status = reconcile.StatusFailed
				out[i].Err = errs.ErrPermanentExternal
			}
		}
		return out
	}
}

func TestCoordinator_ApplyBulk(t *testing.T) {
	t.Run("all users succeed", func(t *testing.T) {
		c := bulk.NewCoordinator(outcomesByUser(""), discardLogger(), 2)
		res := c.ApplyBulk(context.Background(), "o", []bulk.UserPlan{userPlan("1", 1), userPlan("2", 2), userPlan("3", 0)})

		assert.Equal(t, bulk.FullSuccess, res.Classification)
		require.Len(t, res.Users, 3)
		for i, id := range []string{"1", "2", "3"} {
			assert.Equal(t, id, res.Users[i].UserID)
			assert.Equal(t, bulk.UserSucceeded, res.Users[i].Status())
		}
	})

	t.Run("one failing user yields partial success", func(t *testing.T) {
		c := bulk.NewCoordinator(outcomesByUser("2"), discardLogger(), 4)
		res := c.ApplyBulk(context.Background(), "o", []bulk.UserPlan{userPlan("1", 1), userPlan("2", 1), userPlan("3", 1)})

		assert.Equal(t, bulk.PartialSuccess, res.Classification)
		assert.Equal(t, bulk.UserSucceeded, res.Users[0].Status())
		assert.Equal(t, bulk.UserFailed, res.Users[1].Status())
		assert.Equal(t, bulk.UserSucceeded, res.Users[2].Status())
	})

	t.Run("planning errors are reported without running", func(t *testing.T) {
		var calls atomic.Int32
		applier := applierFunc(func(ctx context.Context, p plan.MutationPlan) []reconcile.Outcome {
			calls.Add(1)
			return outcomesByUser("")(ctx, p)
		})
		failed := bulk.UserPlan{UserID: "2", Err: errors.New("no calendar")}
		res := bulk.NewCoordinator(applier, discardLogger(), 0).
			ApplyBulk(context.Background(), "o", []bulk.UserPlan{userPlan("1", 1), failed})

		assert.Equal(t, int32(1), calls.Load())
		assert.Equal(t, bulk.PartialSuccess, res.Classification)
		assert.EqualError(t, res.Users[1].Err, "no calendar")
	})

	t.Run("every user failing is a full failure", func(t *testing.T) {
		c := bulk.NewCoordinator(outcomesByUser("1"), discardLogger(), 1)
		res := c.ApplyBulk(context.Background(), "o", []bulk.UserPlan{userPlan("1", 2)})
		assert.Equal(t, bulk.FullFailure, res.Classification)
	})

	t.Run("concurrency stays bounded", func(t *testing.T) {
		var (
			mu      sync.Mutex
			running int
			peak    int
		)
		release := make(chan struct{})
		applier := applierFunc(func(ctx context.Context, p plan.MutationPlan) []reconcile.Outcome {
			mu.Lock()
			running++
			peak = max(peak, running)
			mu.Unlock()
			<-release
			mu.Lock()
			running--
			mu.Unlock()
			return outcomesByUser("")(ctx, p)
		})
		plans := make([]bulk.UserPlan, 6)
		for i := range plans {
			plans[i] = userPlan(string(rune('a'+i)), 1)
		}
		go close(release)

		res := bulk.NewCoordinator(applier, discardLogger(), 2).ApplyBulk(context.Background(), "o", plans)
		assert.Equal(t, bulk.FullSuccess, res.Classification)
		assert.LessOrEqual(t, peak, 2)
	})

	t.Run("cancelled context skips undispatched users", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		res := bulk.NewCoordinator(outcomesByUser(""), discardLogger(), 2).
			ApplyBulk(ctx, "o", []bulk.UserPlan{userPlan("1", 1), userPlan("2", 1)})

		for _, u := range res.Users {
			assert.True(t, u.Skipped)
			assert.Equal(t, bulk.UserSkipped, u.Status())
			assert.ErrorIs(t, u.Err, context.Canceled)
		}
		assert.Equal(t, bulk.FullFailure, res.Classification)
	})
}
