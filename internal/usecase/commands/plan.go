package commands

//go:generate mockgen -source=plan.go -destination=../../mock/commands/plan.go -package=commandsmock

import (
	"context"
	"log/slog"
	"strings"

	"calendar-assistant/internal/domain/calendar"
	"calendar-assistant/internal/domain/conflict"
	"calendar-assistant/internal/domain/intent"
	"calendar-assistant/internal/domain/plan"
	"calendar-assistant/internal/pkg/clock"
	"calendar-assistant/internal/pkg/errs"
	"calendar-assistant/internal/usecase/bulk"
	"calendar-assistant/internal/usecase/shared"
)

var (
	ErrBulkRequiresAdmin = errs.Mark(errs.New("team-wide intents require the admin role"), errs.ErrForbidden)
	ErrForeignCalendar   = errs.Mark(errs.New("members may only plan for their own calendar"), errs.ErrForbidden)
	ErrEmptyTeam         = errs.Mark(errs.New("team has no members"), errs.ErrValidation)
)

type PlanCommands interface {
	InterpretAndPlan(ctx context.Context, caller shared.Caller, in intent.Intent) (*PlanResult, error)
	GetPlan(ctx context.Context, caller shared.Caller, planID string) (*PlanResult, error)
	Execute(ctx context.Context, caller shared.Caller, planID string) (*ExecutionResult, error)
}

type planUseCaseImpl struct {
	snapshots SnapshotSource
	events    EventLookup
	teams     shared.TeamDirectory
	planner   *plan.Planner
	engine    PlanExecutor
	bulk      BulkExecutor
	registry  *PlanRegistry
	clock     clock.Clock
	logger    *slog.Logger
	opts      Options
}

func NewPlanUseCase(
	snapshots SnapshotSource,
	events EventLookup,
	teams shared.TeamDirectory,
	planner *plan.Planner,
	engine PlanExecutor,
	bulkExecutor BulkExecutor,
	registry *PlanRegistry,
	clock clock.Clock,
	logger *slog.Logger,
	opts Options,
) PlanCommands {
	return &planUseCaseImpl{
		snapshots: snapshots,
		events:    events,
		teams:     teams,
		planner:   planner,
		engine:    engine,
		bulk:      bulkExecutor,
		registry:  registry,
		clock:     clock,
		logger:    logger.With(slog.String("component", "plan_commands")),
		opts:      opts,
	}
}

// InterpretAndPlan validates the intent, reads the calendars it touches and
// registers the resulting plan. A single-user intent whose slot needs a
// decision returns the unregistered plan together with the
// *plan.NeedsUserChoiceError carrying the alternatives. Bulk intents record
// per-user failures in the plan and only fail when no user could be planned.
func (u *planUseCaseImpl) InterpretAndPlan(ctx context.Context, caller shared.Caller, in intent.Intent) (*PlanResult, error) {
	keepDuration := in.Action == intent.ActionMove && in.Window.End.IsZero() && in.Constraints.Duration <= 0
	in = in.WithDefaults(u.opts.DefaultDuration)
	if err := in.Validate(); err != nil {
		return nil, err
	}

	users, err := u.targetUsers(caller, in)
	if err != nil {
		return nil, err
	}

	isBulk := in.IsBulk()
	id := plan.PlanID(in.OriginID, users[0])
	if isBulk {
		id = plan.PlanID(in.OriginID, "bulk:"+strings.Join(users, ","))
	}
	if existing, ok := u.registry.Get(id); ok {
		existing.Replayed = true
		return &existing, nil
	}

	opts := u.resolverOptions(in)
	result := PlanResult{
		ID:        id,
		OriginID:  in.OriginID,
		Action:    in.Action,
		CreatedBy: caller.UserID,
		Bulk:      isBulk,
		CreatedAt: u.clock.Now(),
	}

	if !isBulk {
		mp, err := u.planForUser(ctx, in, users[0], opts, keepDuration)
		result.Plans = []bulk.UserPlan{{UserID: users[0], Plan: mp, Err: err}}
		if err != nil {
			if errs.Is(err, errs.ErrNeedsUserChoice) {
				return &result, err
			}
			return nil, err
		}
		registered, _ := u.registry.Register(result)
		u.logPlanned(registered)
		return &registered, nil
	}

	failed := 0
	var firstErr error
	for _, userID := range users {
		mp, err := u.planForUser(ctx, in, userID, opts, keepDuration)
		if err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
			u.logger.Warn("user excluded from bulk plan",
				slog.String("origin_id", in.OriginID),
				slog.String("user_id", userID),
				slog.String("error_kind", errs.Kind(err)),
				slog.Any("error", err))
		}
		result.Plans = append(result.Plans, bulk.UserPlan{UserID: userID, Plan: mp, Err: err})
	}
	if failed == len(users) {
		return nil, errs.Wrap(firstErr, "no user of the bulk intent could be planned")
	}

	registered, _ := u.registry.Register(result)
	u.logPlanned(registered)
	return &registered, nil
}

func (u *planUseCaseImpl) GetPlan(_ context.Context, caller shared.Caller, planID string) (*PlanResult, error) {
	p, ok := u.registry.Get(planID)
	if !ok {
		return nil, errs.Wrapf(errs.ErrPlanNotFound, "plan %s", planID)
	}
	if err := authorizePlan(caller, p); err != nil {
		return nil, err
	}
	return &p, nil
}

// targetUsers expands the team and applies the role rules. Members may
// only plan for their own calendar.
func (u *planUseCaseImpl) targetUsers(caller shared.Caller, in intent.Intent) ([]string, error) {
	users := in.TargetUsers
	if in.Team != "" {
		members, err := u.teams.Members(in.Team)
		if err != nil {
			return nil, errs.Wrapf(err, "expand team %s", in.Team)
		}
		users = calendar.NormalizeAttendees(append(append([]string(nil), users...), members...))
	}
	if len(users) == 0 {
		return nil, ErrEmptyTeam
	}

	if caller.IsAdmin() {
		return users, nil
	}
	if in.IsBulk() {
		return nil, ErrBulkRequiresAdmin
	}
	if users[0] != caller.UserID {
		return nil, ErrForeignCalendar
	}
	return users, nil
}

func (u *planUseCaseImpl) resolverOptions(in intent.Intent) conflict.Options {
	opts := u.opts.Resolver
	if in.Window.TimeZone != "" {
		if loc, err := in.Window.Location(); err == nil {
			opts.Location = loc
		}
	}
	if in.Constraints.MorningOnly {
		opts = opts.MorningOnly()
	}
	if in.Constraints.AfternoonOnly {
		opts = opts.AfternoonOnly()
	}
	if in.Constraints.AllowEarlier {
		opts.NotBefore = u.clock.Now()
	}
	return opts
}

func (u *planUseCaseImpl) planForUser(ctx context.Context, in intent.Intent, userID string, opts conflict.Options, keepDuration bool) (plan.MutationPlan, error) {
	targets, err := u.buildTargets(ctx, in, userID, opts, keepDuration)
	if err != nil {
		return plan.MutationPlan{
			ID:       plan.PlanID(in.OriginID, userID),
			OriginID: in.OriginID,
			UserID:   userID,
			Action:   in.Action,
		}, err
	}
	return u.planner.Plan(in, userID, targets)
}

func (u *planUseCaseImpl) buildTargets(ctx context.Context, in intent.Intent, userID string, opts conflict.Options, keepDuration bool) ([]plan.Target, error) {
	switch in.Action {
	case intent.ActionCreate, intent.ActionQuery:
		slot := in.Slot()
		proposed := calendar.Event{
			OwnerID:        userID,
			Title:          in.Subject.Title,
			Start:          slot.From,
			End:            slot.To,
			Attendees:      in.Subject.Attendees,
			RecurrenceRule: in.Subject.RecurrenceRule,
		}
		if in.Action == intent.ActionCreate {
			if err := proposed.Validate(); err != nil {
				return nil, errs.Mark(err, errs.ErrValidation)
			}
		}
		report, err := u.analyze(ctx, proposed, opts, nil)
		if err != nil {
			return nil, err
		}
		return []plan.Target{{Report: report}}, nil

	case intent.ActionDelete:
		originals, err := u.originals(ctx, in, userID)
		if err != nil {
			return nil, err
		}
		targets := make([]plan.Target, len(originals))
		for i := range originals {
			targets[i] = plan.Target{Original: &originals[i]}
		}
		return targets, nil

	case intent.ActionMove:
		originals, err := u.originals(ctx, in, userID)
		if err != nil {
			return nil, err
		}
		moving := make([]string, len(originals))
		for i, ev := range originals {
			moving[i] = ev.ID
		}
		targets := make([]plan.Target, 0, len(originals))
		for i := range originals {
			proposed := originals[i].Clone()
			slot := moveSlot(in, originals[i], keepDuration)
			proposed.Start, proposed.End = slot.From, slot.To
			report, err := u.analyze(ctx, proposed, opts, moving)
			if err != nil {
				return nil, err
			}
			targets = append(targets, plan.Target{Original: &originals[i], Report: report})
		}
		return targets, nil
	}
	return nil, errs.Mark(plan.ErrUnsupportedIntent, errs.ErrValidation)
}

// analyze checks proposed against the calendars of all its participants
// over the alternatives search horizon, ignoring the events in exclude.
func (u *planUseCaseImpl) analyze(ctx context.Context, proposed calendar.Event, opts conflict.Options, exclude []string) (conflict.Report, error) {
	horizon := conflict.SearchHorizon(proposed.Start, opts)
	if proposed.End.After(horizon.To) {
		horizon.To = proposed.End
	}

	participants := proposed.Participants()
	snaps := make([]calendar.Snapshot, 0, len(participants))
	for _, p := range participants {
		snap, err := u.snapshots.GetOrRefresh(ctx, p, horizon)
		if err != nil {
			return conflict.Report{}, err
		}
		snaps = append(snaps, snap)
	}
	merged := calendar.Merge(proposed.OwnerID, horizon, snaps...).Without(exclude...)
	return conflict.FindConflicts(merged, proposed, opts), nil
}

// originals resolves the events a move or delete applies to. A source
// window selects the user's own single events inside it; recurring series
// are left alone. An id that no longer exists is still a valid delete
// target.
func (u *planUseCaseImpl) originals(ctx context.Context, in intent.Intent, userID string) ([]calendar.Event, error) {
	if sw := in.Subject.SourceWindow; sw != nil {
		snap, err := u.snapshots.GetOrRefresh(ctx, userID, *sw)
		if err != nil {
			return nil, err
		}
		seen := make(map[string]bool)
		var out []calendar.Event
		for _, ev := range snap.Within(*sw) {
			if ev.OwnerID != userID || ev.IsRecurring() || seen[ev.ID] {
				continue
			}
			seen[ev.ID] = true
			out = append(out, ev)
		}
		return out, nil
	}

	ev, err := u.events.GetEvent(ctx, in.Subject.EventID)
	if err != nil {
		if errs.Is(err, errs.ErrNotFound) && in.Action == intent.ActionDelete {
			return []calendar.Event{{ID: in.Subject.EventID, OwnerID: userID}}, nil
		}
		return nil, errs.Wrapf(err, "look up event %s", in.Subject.EventID)
	}
	if ev.OwnerID != "" && ev.OwnerID != userID {
		return nil, errs.Mark(errs.Newf("event %s belongs to user %s", ev.ID, ev.OwnerID), errs.ErrForbidden)
	}
	return []calendar.Event{ev}, nil
}

// moveSlot is the new interval of original. A source window shifts every
// selected event by the same offset; a single move keeps the event's own
// length unless the intent gave one.
func moveSlot(in intent.Intent, original calendar.Event, keepDuration bool) calendar.Window {
	if sw := in.Subject.SourceWindow; sw != nil {
		return original.Interval().Shift(in.Window.Start.Sub(sw.From))
	}
	if keepDuration {
		return calendar.Window{From: in.Window.Start, To: in.Window.Start.Add(original.Duration())}
	}
	return in.Slot()
}

func authorizePlan(caller shared.Caller, p PlanResult) error {
	if caller.IsAdmin() || p.CreatedBy == caller.UserID {
		return nil
	}
	return errs.Mark(errs.Newf("plan %s belongs to another user", p.ID), errs.ErrForbidden)
}

func (u *planUseCaseImpl) logPlanned(p PlanResult) {
	u.logger.Info("plan registered",
		slog.String("plan_id", p.ID),
		slog.String("origin_id", p.OriginID),
		slog.String("action", p.Action.String()),
		slog.Bool("bulk", p.Bulk),
		slog.Int("users", len(p.Plans)),
		slog.Int("operations", p.OperationCount()))
}
