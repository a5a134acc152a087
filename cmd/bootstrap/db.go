package bootstrap

import (
	"context"
	"log/slog"

	"calendar-assistant/internal/infra/db"
	"calendar-assistant/internal/infra/ledger"
	"calendar-assistant/internal/pkg/clock"
	"calendar-assistant/internal/pkg/config"
	"calendar-assistant/internal/pkg/errs"
	"calendar-assistant/internal/usecase/shared"

	"go.uber.org/fx"
)

const (
	LedgerDriverMemory   = "memory"
	LedgerDriverSQLite   = "sqlite"
	LedgerDriverPostgres = "postgres"
)

var DBModule = fx.Module("db",
	fx.Provide(
		NewLedger,
	),
)

// NewLedger opens the idempotency ledger selected by LEDGER_DRIVER and
// closes its connection when the app stops.
func NewLedger(lc fx.Lifecycle, cfg config.Config, clk clock.Clock, logger *slog.Logger) (shared.IdempotencyLedger, error) {
	ctx := context.Background()
	var (
		l       shared.IdempotencyLedger
		cleanup func()
	)

	switch cfg.Ledger.Driver {
	case LedgerDriverMemory:
		l = ledger.NewMemoryLedger(clk)
	case LedgerDriverSQLite:
		sqlDB, closeFn, err := db.OpenSQLite(ctx, cfg.Ledger.SQLiteDSN)
		if err != nil {
			return nil, err
		}
		sl, err := ledger.NewSQLiteLedger(ctx, sqlDB, clk, logger)
		if err != nil {
			closeFn()
			return nil, err
		}
		l, cleanup = sl, closeFn
	case LedgerDriverPostgres:
		pool, closeFn, err := db.ConnectPostgres(ctx, cfg.DB)
		if err != nil {
			return nil, err
		}
		l, cleanup = ledger.NewPostgresLedger(pool, clk, logger), closeFn
	default:
		return nil, errs.Newf("unknown LEDGER_DRIVER %q", cfg.Ledger.Driver)
	}

	logger.Info("idempotency ledger ready", slog.String("driver", cfg.Ledger.Driver))
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			if cleanup != nil {
				cleanup()
			}
			return nil
		},
	})

	return l, nil
}
