package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"calendar-assistant/internal/infra"
	"calendar-assistant/internal/pkg/clock"
	"calendar-assistant/internal/usecase/shared"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger shares the ledger between several service instances.
// The table comes from migrations/001_idempotency_ledger.sql.
type PostgresLedger struct {
	pool   *pgxpool.Pool
	clock  clock.Clock
	logger *slog.Logger
}

func NewPostgresLedger(pool *pgxpool.Pool, clk clock.Clock, logger *slog.Logger) *PostgresLedger {
	return &PostgresLedger{pool: pool, clock: clk, logger: logger.With(slog.String("component", "postgres_ledger"))}
}

const beginSQL = `
INSERT INTO idempotency_ledger (key, origin_id, kind, status, expires_at)
VALUES ($1, $2, $3, 'processing', $4)
ON CONFLICT (key) DO UPDATE SET
	origin_id = EXCLUDED.origin_id,
	kind = EXCLUDED.kind,
	status = 'processing',
	external_id = '',
	revision = '',
	expires_at = EXCLUDED.expires_at,
	updated_at = $5
WHERE idempotency_ledger.expires_at <= $5
RETURNING key, origin_id, kind, status, external_id, revision, expires_at`

const selectSQL = `
SELECT key, origin_id, kind, status, external_id, revision, expires_at
FROM idempotency_ledger WHERE key = $1`

func (l *PostgresLedger) Begin(ctx context.Context, rec shared.LedgerRecord) (*shared.LedgerRecord, bool, error) {
	out, err := scanRecord(l.pool.QueryRow(ctx, beginSQL, rec.Key, rec.OriginID, rec.Kind, rec.ExpiresAt, l.clock.Now()))
	if err == nil {
		return out, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, infra.WrapRepoErr(l.logger, infra.KindDBFailure, "failed to begin ledger record", err)
	}

	// a live record exists already
	out, err = scanRecord(l.pool.QueryRow(ctx, selectSQL, rec.Key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, infra.WrapRepoErr(l.logger, infra.KindNotFound, "ledger record vanished", err)
		}
		return nil, false, infra.WrapRepoErr(l.logger, infra.KindDBFailure, "failed to read ledger record", err)
	}
	return out, false, nil
}

func (l *PostgresLedger) Complete(ctx context.Context, key, externalID, revision string) error {
	tag, err := l.pool.Exec(ctx, `
		UPDATE idempotency_ledger
		SET status = 'completed', external_id = $2, revision = $3, updated_at = $4
		WHERE key = $1`, key, externalID, revision, l.clock.Now())
	if err != nil {
		return infra.WrapRepoErr(l.logger, infra.KindDBFailure, "failed to complete ledger record", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr(l.logger, infra.KindNotFound, "ledger record not found", nil)
	}
	return nil
}

func (l *PostgresLedger) Release(ctx context.Context, key string) error {
	if _, err := l.pool.Exec(ctx, `DELETE FROM idempotency_ledger WHERE key = $1 AND status = 'processing'`, key); err != nil {
		return infra.WrapRepoErr(l.logger, infra.KindDBFailure, "failed to release ledger record", err)
	}
	return nil
}

func (l *PostgresLedger) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := l.pool.Exec(ctx, `DELETE FROM idempotency_ledger WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, infra.WrapRepoErr(l.logger, infra.KindDBFailure, "failed to delete expired ledger records", err)
	}
	return tag.RowsAffected(), nil
}

func scanRecord(row pgx.Row) (*shared.LedgerRecord, error) {
	var rec shared.LedgerRecord
	if err := row.Scan(&rec.Key, &rec.OriginID, &rec.Kind, &rec.Status, &rec.ExternalID, &rec.Revision, &rec.ExpiresAt); err != nil {
		return nil, err
	}
	return &rec, nil
}
