// Command calplan plans a calendar intent against an exported iCalendar
// file without touching the CRM and prints the plan as JSON.
//
//	calplan --ics team.ics --intent intent.json --owner 12 [--tz Europe/Berlin] [--teams teams.yaml]
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"calendar-assistant/internal/domain/conflict"
	"calendar-assistant/internal/domain/plan"
	resdto "calendar-assistant/internal/handler/dto/response"
	"calendar-assistant/internal/infra/ics"
	"calendar-assistant/internal/infra/teams"
	"calendar-assistant/internal/pkg/clock"
	"calendar-assistant/internal/usecase/commands"
	"calendar-assistant/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
)

type options struct {
	icsPath    string
	intentPath string
	owner      string
	tz         string
	teamsPath  string
	originID   string
	verbose    bool
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "calplan:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("calplan", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: calplan --ics FILE --owner ID [--intent FILE] [flags]")
		fs.PrintDefaults()
	}
	var o options
	fs.StringVar(&o.icsPath, "ics", "", "iCalendar file holding the calendars to plan against")
	fs.StringVar(&o.intentPath, "intent", "-", "intent JSON file, - for stdin")
	fs.StringVar(&o.owner, "owner", "", "user id for events without ORGANIZER and the acting user")
	fs.StringVar(&o.tz, "tz", "UTC", "working-hours time zone")
	fs.StringVar(&o.teamsPath, "teams", "", "YAML team roster")
	fs.StringVar(&o.originID, "origin", "", "origin id (random when empty)")
	fs.BoolVarP(&o.verbose, "verbose", "v", false, "log to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if o.icsPath == "" || o.owner == "" {
		fs.Usage()
		return fmt.Errorf("--ics and --owner are required")
	}
	if o.originID == "" {
		o.originID = uuid.NewString()
	}

	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	result, planErr := planOffline(context.Background(), o, logger)
	if result == nil {
		return planErr
	}

	out := struct {
		Plan  *resdto.PlanResponse `json:"plan,omitempty"`
		Error string               `json:"error,omitempty"`
	}{}
	out.Plan = resdto.FromPlanResult(result)
	if planErr != nil {
		out.Error = planErr.Error()
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// planOffline returns the plan. A conflict needing a choice comes back
// together with the unregistered plan; any other error without one.
func planOffline(ctx context.Context, o options, logger *slog.Logger) (*commands.PlanResult, error) {
	loc, err := loadLocation(o.tz)
	if err != nil {
		return nil, err
	}
	clk := clock.NewRealClock()

	f, err := os.Open(o.icsPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	source, skipped, err := ics.LoadSource(f, o.owner, clk)
	if err != nil {
		return nil, err
	}
	for _, s := range skipped {
		logger.Warn("skipped calendar entry", slog.String("reason", s))
	}

	dir, err := teams.Load(o.teamsPath)
	if err != nil {
		return nil, err
	}

	req, err := readIntent(o.intentPath)
	if err != nil {
		return nil, err
	}
	in, err := req.ToIntent(o.originID)
	if err != nil {
		return nil, err
	}

	resolver := conflict.DefaultOptions()
	resolver.Location = loc
	// execution is never requested offline, so no engine is wired
	uc := commands.NewPlanUseCase(source, source, dir, plan.NewPlanner(), nil, nil,
		commands.NewPlanRegistry(clk, 0), clk, logger,
		commands.Options{Resolver: resolver, DefaultDuration: defaultDuration})

	caller := shared.Caller{UserID: o.owner, Role: shared.RoleAdmin}
	return uc.InterpretAndPlan(ctx, caller, in)
}
