//go:build unit

package commands_test

import (
	"testing"
	"time"

	"calendar-assistant/internal/pkg/clock"
	"calendar-assistant/internal/pkg/errs"
	"calendar-assistant/internal/testutil"
	"calendar-assistant/internal/usecase/bulk"
	"calendar-assistant/internal/usecase/commands"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanRegistry(t *testing.T) {
	clk := clock.NewMockClock(testutil.Monday)
	r := commands.NewPlanRegistry(clk, 10*time.Minute)

	stored, existed := r.Register(commands.PlanResult{ID: "p1", OriginID: "o"})
	require.False(t, existed)
	assert.Equal(t, commands.PlanStatusPlanned, stored.Status)

	_, existed = r.Register(commands.PlanResult{ID: "p1", OriginID: "other"})
	assert.True(t, existed)

	t.Run("only one execution at a time", func(t *testing.T) {
		_, cached, err := r.Begin("p1")
		require.NoError(t, err)
		assert.Nil(t, cached)

		_, _, err = r.Begin("p1")
		assert.True(t, errs.Is(err, errs.ErrPlanInProgress))
	})

	t.Run("partial result allows another run", func(t *testing.T) {
		r.Finish("p1", commands.ExecutionResult{PlanID: "p1", Result: bulk.BulkResult{Classification: bulk.PartialSuccess}})
		p, ok := r.Get("p1")
		require.True(t, ok)
		assert.Equal(t, commands.PlanStatusPlanned, p.Status)

		_, cached, err := r.Begin("p1")
		require.NoError(t, err)
		assert.Nil(t, cached)
	})

	t.Run("full success is cached", func(t *testing.T) {
		r.Finish("p1", commands.ExecutionResult{PlanID: "p1", Result: bulk.BulkResult{Classification: bulk.FullSuccess}})
		_, cached, err := r.Begin("p1")
		require.NoError(t, err)
		require.NotNil(t, cached)
		assert.Equal(t, bulk.FullSuccess, cached.Result.Classification)
	})

	t.Run("expired plans are pruned", func(t *testing.T) {
		r.Register(commands.PlanResult{ID: "p2"})
		clk.Add(11 * time.Minute)
		assert.Equal(t, 2, r.Prune())
		assert.Zero(t, r.Len())

		_, _, err := r.Begin("p2")
		assert.True(t, errs.Is(err, errs.ErrPlanNotFound))
	})
}
