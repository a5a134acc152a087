//go:build unit || e2e

package ledger_test

import (
	"context"
	"testing"
	"time"

	"calendar-assistant/internal/pkg/clock"
	"calendar-assistant/internal/testutil"
	"calendar-assistant/internal/usecase/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runLedgerContract exercises behavior every ledger driver must share.
func runLedgerContract(t *testing.T, clk *clock.MockClock, l shared.IdempotencyLedger) {
	t.Helper()
	ctx := context.Background()
	record := func(key string) shared.LedgerRecord {
		return shared.LedgerRecord{Key: key, OriginID: "o", Kind: "create", ExpiresAt: clk.Now().Add(time.Hour)}
	}

	t.Run("begin then complete", func(t *testing.T) {
		rec, started, err := l.Begin(ctx, record("k1"))
		require.NoError(t, err)
		assert.True(t, started)
		assert.Equal(t, shared.LedgerStatusProcessing, rec.Status)
		assert.False(t, rec.IsCompleted())

		require.NoError(t, l.Complete(ctx, "k1", "501", "3"))

		again, started, err := l.Begin(ctx, record("k1"))
		require.NoError(t, err)
		assert.False(t, started)
		assert.True(t, again.IsCompleted())
		assert.Equal(t, "501", again.ExternalID)
		assert.Equal(t, "3", again.Revision)
	})

	t.Run("live processing record is started only once", func(t *testing.T) {
		_, started, err := l.Begin(ctx, record("k3"))
		require.NoError(t, err)
		require.True(t, started)

		held, started, err := l.Begin(ctx, record("k3"))
		require.NoError(t, err)
		assert.False(t, started)
		assert.Equal(t, shared.LedgerStatusProcessing, held.Status)

		require.NoError(t, l.Complete(ctx, "k3", "700", "1"))
		done, _, err := l.Begin(ctx, record("k3"))
		require.NoError(t, err)
		assert.True(t, done.IsCompleted())
	})

	t.Run("release forgets processing records only", func(t *testing.T) {
		_, _, err := l.Begin(ctx, record("k2"))
		require.NoError(t, err)
		require.NoError(t, l.Release(ctx, "k2"))

		rec, started, err := l.Begin(ctx, record("k2"))
		require.NoError(t, err)
		assert.True(t, started)
		assert.Equal(t, shared.LedgerStatusProcessing, rec.Status)

		require.NoError(t, l.Release(ctx, "k1"))
		done, _, err := l.Begin(ctx, record("k1"))
		require.NoError(t, err)
		assert.True(t, done.IsCompleted())
	})

	t.Run("complete of unknown key fails", func(t *testing.T) {
		assert.Error(t, l.Complete(ctx, "missing", "1", "1"))
	})

	t.Run("expired records start over", func(t *testing.T) {
		clk.Add(2 * time.Hour)
		rec, started, err := l.Begin(ctx, record("k1"))
		require.NoError(t, err)
		assert.True(t, started)
		assert.Equal(t, shared.LedgerStatusProcessing, rec.Status)
		assert.Empty(t, rec.ExternalID)

		clk.Add(2 * time.Hour)
		n, err := l.DeleteExpired(ctx, clk.Now())
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)
	})
}

func newContractClock() *clock.MockClock {
	return clock.NewMockClock(testutil.At(0, 8, 0))
}
