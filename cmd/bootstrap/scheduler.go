package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"calendar-assistant/internal/infra/teams"
	"calendar-assistant/internal/pkg/clock"
	"calendar-assistant/internal/pkg/config"
	"calendar-assistant/internal/usecase/commands"
	"calendar-assistant/internal/usecase/shared"
	"calendar-assistant/internal/usecase/snapshot"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
)

const (
	housekeepingSpec = "@every 10m"
	// snapshots nobody asked for within this long are forgotten
	snapshotIdle = 30 * time.Minute
)

var SchedulerModule = fx.Module("scheduler",
	fx.Provide(NewScheduler),
	fx.Invoke(func(*cron.Cron) {}),
)

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}

type SchedulerParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Clock     clock.Clock
	Logger    *slog.Logger
	Store     *snapshot.Store
	Ledger    shared.IdempotencyLedger
	Registry  *commands.PlanRegistry
	Teams     *teams.Directory
}

// NewScheduler runs the periodic snapshot refresh and the housekeeping of
// the ledger, plan registry, snapshot cache and team roster.
func NewScheduler(p SchedulerParams) (*cron.Cron, error) {
	loc, err := p.Config.Scheduling.Location()
	if err != nil {
		return nil, err
	}
	logger := p.Logger.With(slog.String("component", "scheduler"))
	cl := cronLogger{logger: logger}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	ctx, cancel := context.WithCancel(context.Background())

	if _, err := c.AddFunc(p.Config.Snapshot.RefreshSpec, func() {
		refreshed, failed := p.Store.RefreshAll(ctx)
		logger.Info("snapshots refreshed", slog.Int("refreshed", refreshed), slog.Int("failed", failed))
	}); err != nil {
		cancel()
		return nil, err
	}

	if _, err := c.AddFunc(housekeepingSpec, func() {
		housekeep(ctx, p, logger)
	}); err != nil {
		cancel()
		return nil, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			c.Start()
			logger.Info("scheduler started", slog.String("refresh", p.Config.Snapshot.RefreshSpec))
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-c.Stop().Done():
			case <-stopCtx.Done():
			}
			return nil
		},
	})
	return c, nil
}

func housekeep(ctx context.Context, p SchedulerParams, logger *slog.Logger) {
	expired, err := p.Ledger.DeleteExpired(ctx, p.Clock.Now())
	if err != nil {
		logger.Error("ledger cleanup failed", slog.Any("error", err))
	}
	plans := p.Registry.Prune()
	snaps := p.Store.Prune(snapshotIdle)

	if p.Config.Teams.File != "" {
		if fresh, err := teams.Load(p.Config.Teams.File); err != nil {
			logger.Warn("team roster reload failed, keeping previous roster", slog.Any("error", err))
		} else {
			p.Teams.Replace(fresh)
		}
	}

	logger.Info("housekeeping done",
		slog.Int64("ledger_expired", expired),
		slog.Int("plans_pruned", plans),
		slog.Int("snapshots_pruned", snaps))
}
