package bootstrap

import (
	"calendar-assistant/internal/domain/conflict"
	"calendar-assistant/internal/pkg/clock"
	"calendar-assistant/internal/pkg/config"

	"go.uber.org/fx"
)

var ConfigModule = fx.Module("config",
	fx.Provide(
		config.LoadConfig,
		clock.NewRealClock,
		NewResolverOptions,
	),
)

// NewResolverOptions turns the scheduling settings into the conflict
// resolver's working-hours grid.
func NewResolverOptions(cfg config.Config) (conflict.Options, error) {
	loc, err := cfg.Scheduling.Location()
	if err != nil {
		return conflict.Options{}, err
	}
	dayStart, dayEnd, err := cfg.Scheduling.DayBounds()
	if err != nil {
		return conflict.Options{}, err
	}
	return conflict.Options{
		Location:        loc,
		DayStart:        dayStart,
		DayEnd:          dayEnd,
		SlotStep:        cfg.Scheduling.SlotStep,
		SearchDays:      cfg.Scheduling.SearchDays,
		MaxAlternatives: cfg.Scheduling.MaxAlternatives,
	}, nil
}
