package bootstrap

import (
	"log/slog"

	"calendar-assistant/internal/infra/bitrix24"
	"calendar-assistant/internal/infra/teams"
	"calendar-assistant/internal/pkg/config"
	"calendar-assistant/internal/usecase/shared"

	"go.uber.org/fx"
)

var CRMModule = fx.Module("crm",
	fx.Provide(
		fx.Annotate(
			NewBitrix24Client,
			fx.As(new(shared.CalendarGateway)),
		),
		NewTeamDirectory,
		func(d *teams.Directory) shared.TeamDirectory { return d },
	),
)

func NewBitrix24Client(cfg config.Config, logger *slog.Logger) (*bitrix24.Client, error) {
	return bitrix24.NewClient(cfg.Bitrix24, logger)
}

func NewTeamDirectory(cfg config.Config, logger *slog.Logger) (*teams.Directory, error) {
	d, err := teams.Load(cfg.Teams.File)
	if err != nil {
		return nil, err
	}
	logger.Info("team roster loaded", slog.String("file", cfg.Teams.File), slog.Int("teams", len(d.Teams())))
	return d, nil
}
