package components

import (
	"log/slog"

	"calendar-assistant/internal/domain/conflict"
	"calendar-assistant/internal/domain/plan"
	"calendar-assistant/internal/infra/ics"
	"calendar-assistant/internal/pkg/clock"
	"calendar-assistant/internal/pkg/config"
	"calendar-assistant/internal/usecase"
	"calendar-assistant/internal/usecase/bulk"
	"calendar-assistant/internal/usecase/commands"
	"calendar-assistant/internal/usecase/queries"
	"calendar-assistant/internal/usecase/reconcile"
	"calendar-assistant/internal/usecase/shared"
	"calendar-assistant/internal/usecase/snapshot"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	usecaseBaseOption,
	usecaseQueriesModule,
	usecaseValidatorsModule,
	usecaseCommandsModule,
)

var usecaseBaseOption = fx.Provide(
	NewSnapshotStore,
	plan.NewPlanner,
	NewEngine,
	NewCoordinator,
	NewPlanRegistry,
	func(clk clock.Clock) *ics.Encoder { return ics.NewEncoder(clk.Now) },
)

var usecaseCommandsModule = fx.Module("usecase/commands",
	fx.Provide(
		NewPlanCommands,
	),
)

var usecaseQueriesModule = fx.Module("usecase/queries",
	fx.Provide(
		func(store *snapshot.Store, enc *ics.Encoder, opts conflict.Options) queries.CalendarQueries {
			return queries.NewCalendarQueries(store, enc, opts)
		},
	),
)

var usecaseValidatorsModule = fx.Module("usecase/validators",
	fx.Provide(
		usecase.NewTokenValidator,
	),
)

func NewSnapshotStore(gateway shared.CalendarGateway, clk clock.Clock, logger *slog.Logger, cfg config.Config) *snapshot.Store {
	return snapshot.NewStore(gateway, clk, logger, snapshot.Options{
		MaxAge:                 cfg.Snapshot.MaxAge,
		CallTimeout:            cfg.Retry.CallTimeout,
		MaxOccurrencesPerEvent: cfg.Snapshot.MaxPerEvent,
	})
}

func NewEngine(gateway shared.CalendarGateway, ledger shared.IdempotencyLedger, clk clock.Clock, logger *slog.Logger, cfg config.Config) *reconcile.Engine {
	return reconcile.NewEngine(gateway, ledger, clk, logger, reconcile.Options{
		Retry: shared.RetryPolicy{
			MaxRetries: cfg.Retry.MaxRetries,
			Base:       cfg.Retry.BaseBackoff,
			Factor:     cfg.Retry.Factor,
			Jitter:     cfg.Retry.Jitter,
		},
		CallTimeout: cfg.Retry.CallTimeout,
		LedgerTTL:   cfg.Ledger.TTL,
	})
}

func NewCoordinator(engine *reconcile.Engine, logger *slog.Logger, cfg config.Config) *bulk.Coordinator {
	return bulk.NewCoordinator(engine, logger, cfg.Bulk.MaxConcurrency)
}

func NewPlanRegistry(clk clock.Clock, cfg config.Config) *commands.PlanRegistry {
	return commands.NewPlanRegistry(clk, cfg.Plans.TTL)
}

type PlanCommandsParams struct {
	fx.In

	Store       *snapshot.Store
	Gateway     shared.CalendarGateway
	Teams       shared.TeamDirectory
	Planner     *plan.Planner
	Engine      *reconcile.Engine
	Coordinator *bulk.Coordinator
	Registry    *commands.PlanRegistry
	Clock       clock.Clock
	Logger      *slog.Logger
	Resolver    conflict.Options
	Config      config.Config
}

func NewPlanCommands(p PlanCommandsParams) commands.PlanCommands {
	return commands.NewPlanUseCase(
		p.Store,
		p.Gateway,
		p.Teams,
		p.Planner,
		p.Engine,
		p.Coordinator,
		p.Registry,
		p.Clock,
		p.Logger,
		commands.Options{
			Resolver:        p.Resolver,
			DefaultDuration: p.Config.Scheduling.DefaultDuration,
		},
	)
}
