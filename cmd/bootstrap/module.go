package bootstrap

import (
	"calendar-assistant/cmd/bootstrap/components"

	"go.uber.org/fx"
)

var Module = fx.Options(
	ConfigModule,
	LoggerModule,
	DBModule,
	CRMModule,
	JWTModule,
	components.UseCaseModule,
	components.HandlerModule,
	SchedulerModule,
)
