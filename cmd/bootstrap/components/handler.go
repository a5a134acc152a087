package components

import (
	"log/slog"

	"calendar-assistant/internal/handler"
	"calendar-assistant/internal/handler/api"
	"calendar-assistant/internal/handler/middleware"
	"calendar-assistant/internal/pkg/config"
	"calendar-assistant/internal/usecase/queries"
	"calendar-assistant/internal/usecase/snapshot"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewPlanHandler,
		func(q queries.CalendarQueries, store *snapshot.Store) *api.CalendarHandler {
			return api.NewCalendarHandler(q, store)
		},
		func(store *snapshot.Store, cfg config.Config, logger *slog.Logger) *api.WebhookHandler {
			return api.NewWebhookHandler(store, cfg, logger)
		},
		middleware.NewAuthMiddleware,
		func(p *api.PlanHandler, c *api.CalendarHandler, w *api.WebhookHandler) handler.Handlers {
			return handler.Handlers{Plan: p, Calendar: c, Webhook: w}
		},
	),
	fx.Invoke(handler.NewRouter),
)
