package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"log/slog"
	"time"

	"calendar-assistant/internal/infra"
	"calendar-assistant/internal/pkg/clock"
	"calendar-assistant/internal/usecase/shared"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

// SQLiteLedger persists records in a local SQLite file. Times are stored
// as unix nanoseconds.
type SQLiteLedger struct {
	db     *sql.DB
	clock  clock.Clock
	logger *slog.Logger
}

func NewSQLiteLedger(ctx context.Context, db *sql.DB, clk clock.Clock, logger *slog.Logger) (*SQLiteLedger, error) {
	l := &SQLiteLedger{db: db, clock: clk, logger: logger.With(slog.String("component", "sqlite_ledger"))}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, infra.WrapRepoErr(l.logger, infra.KindDBFailure, "failed to apply ledger schema", err)
	}
	return l, nil
}

// Begin relies on the upsert touching no row when a live record exists.
func (l *SQLiteLedger) Begin(ctx context.Context, rec shared.LedgerRecord) (*shared.LedgerRecord, bool, error) {
	now := l.clock.Now().UnixNano()
	res, err := l.db.ExecContext(ctx, `
		INSERT INTO idempotency_ledger (key, origin_id, kind, status, external_id, revision, expires_at, updated_at)
		VALUES (?, ?, ?, 'processing', '', '', ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			origin_id = excluded.origin_id,
			kind = excluded.kind,
			status = 'processing',
			external_id = '',
			revision = '',
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
		WHERE idempotency_ledger.expires_at <= ?`,
		rec.Key, rec.OriginID, rec.Kind, rec.ExpiresAt.UnixNano(), now, now)
	if err != nil {
		return nil, false, infra.WrapRepoErr(l.logger, infra.KindDBFailure, "failed to begin ledger record", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, infra.WrapRepoErr(l.logger, infra.KindDBFailure, "failed to count begun ledger records", err)
	}
	stored, err := l.get(ctx, rec.Key)
	if err != nil {
		return nil, false, err
	}
	return stored, n > 0, nil
}

func (l *SQLiteLedger) Complete(ctx context.Context, key, externalID, revision string) error {
	res, err := l.db.ExecContext(ctx, `
		UPDATE idempotency_ledger
		SET status = 'completed', external_id = ?, revision = ?, updated_at = ?
		WHERE key = ?`,
		externalID, revision, l.clock.Now().UnixNano(), key)
	if err != nil {
		return infra.WrapRepoErr(l.logger, infra.KindDBFailure, "failed to complete ledger record", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return infra.WrapRepoErr(l.logger, infra.KindNotFound, "ledger record not found", nil)
	}
	return nil
}

func (l *SQLiteLedger) Release(ctx context.Context, key string) error {
	_, err := l.db.ExecContext(ctx, `DELETE FROM idempotency_ledger WHERE key = ? AND status = 'processing'`, key)
	if err != nil {
		return infra.WrapRepoErr(l.logger, infra.KindDBFailure, "failed to release ledger record", err)
	}
	return nil
}

func (l *SQLiteLedger) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := l.db.ExecContext(ctx, `DELETE FROM idempotency_ledger WHERE expires_at <= ?`, now.UnixNano())
	if err != nil {
		return 0, infra.WrapRepoErr(l.logger, infra.KindDBFailure, "failed to delete expired ledger records", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, infra.WrapRepoErr(l.logger, infra.KindDBFailure, "failed to count deleted ledger records", err)
	}
	return n, nil
}

func (l *SQLiteLedger) get(ctx context.Context, key string) (*shared.LedgerRecord, error) {
	var (
		rec       shared.LedgerRecord
		expiresAt int64
	)
	err := l.db.QueryRowContext(ctx, `
		SELECT key, origin_id, kind, status, external_id, revision, expires_at
		FROM idempotency_ledger WHERE key = ?`, key).
		Scan(&rec.Key, &rec.OriginID, &rec.Kind, &rec.Status, &rec.ExternalID, &rec.Revision, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, infra.WrapRepoErr(l.logger, infra.KindNotFound, "ledger record not found", err)
		}
		return nil, infra.WrapRepoErr(l.logger, infra.KindDBFailure, "failed to read ledger record", err)
	}
	rec.ExpiresAt = time.Unix(0, expiresAt).UTC()
	return &rec, nil
}
