package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"calendar-assistant/internal/domain/calendar"
	"calendar-assistant/internal/domain/plan"
	"calendar-assistant/internal/pkg/clock"
	"calendar-assistant/internal/pkg/errs"
	"calendar-assistant/internal/usecase/shared"
)

var (
	ErrPairedCreateNotApplied = errs.New("delete skipped: paired create was not applied")
	// ErrOperationInProgress is reported when another run holds the
	// operation's idempotency key and has not finished yet.
	ErrOperationInProgress = errs.Mark(errs.New("operation is being applied by another run"), errs.ErrPlanInProgress)
)

const (
	defaultCallTimeout = 10 * time.Second
	defaultLedgerTTL   = 24 * time.Hour
)

type Options struct {
	Retry       shared.RetryPolicy
	CallTimeout time.Duration
	LedgerTTL   time.Duration
}

// Engine applies mutation plans against the CRM calendar.
type Engine struct {
	gateway shared.CalendarGateway
	ledger  shared.IdempotencyLedger
	clock   clock.Clock
	logger  *slog.Logger
	opts    Options
}

func NewEngine(gateway shared.CalendarGateway, ledger shared.IdempotencyLedger, clk clock.Clock, logger *slog.Logger, opts Options) *Engine {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaultCallTimeout
	}
	if opts.LedgerTTL <= 0 {
		opts.LedgerTTL = defaultLedgerTTL
	}
	if opts.Retry.Base <= 0 {
		opts.Retry = shared.DefaultRetryPolicy()
	}
	return &Engine{
		gateway: gateway,
		ledger:  ledger,
		clock:   clk,
		logger:  logger.With(slog.String("component", "reconciliation_engine")),
		opts:    opts,
	}
}

// Apply executes the operations strictly in plan order and returns one
// outcome per executed operation. Execution continues past failed
// independent operations and stops after the first failed delete of a
// move, leaving both copies in place. A delete whose paired create did not
// apply is skipped and reported as failed.
func (e *Engine) Apply(ctx context.Context, p plan.MutationPlan) []Outcome {
	outcomes := make([]Outcome, 0, len(p.Operations))
	createApplied := make(map[string]bool)

	for _, op := range p.Operations {
		if op.IsPaired() && op.Kind == plan.KindDelete && !createApplied[op.PairID] {
			outcomes = append(outcomes, Outcome{Operation: op, Status: StatusFailed, Err: ErrPairedCreateNotApplied})
			continue
		}

		out := e.applyOne(ctx, p, op)
		outcomes = append(outcomes, out)

		if !op.IsPaired() {
			continue
		}
		if op.Kind == plan.KindCreate {
			createApplied[op.PairID] = out.Applied()
			continue
		}
		if op.Kind == plan.KindDelete && out.Status == StatusFailed {
			e.logger.Warn("move halted after failed delete; both copies retained",
				slog.String("plan_id", p.ID),
				slog.String("event_id", op.Event.ID),
				slog.Int("remaining", len(p.Operations)-len(outcomes)))
			break
		}
	}
	return outcomes
}

func (e *Engine) applyOne(ctx context.Context, p plan.MutationPlan, op plan.Operation) Outcome {
	logger := e.logger.With(
		slog.String("plan_id", p.ID),
		slog.String("origin_id", p.OriginID),
		slog.String("user_id", p.UserID),
		slog.String("kind", op.Kind.String()),
		slog.String("idempotency_key", op.IdempotencyKey),
	)

	rec, started, err := e.ledger.Begin(ctx, shared.LedgerRecord{
		Key:       op.IdempotencyKey,
		OriginID:  p.OriginID,
		Kind:      op.Kind.String(),
		Status:    shared.LedgerStatusProcessing,
		ExpiresAt: e.clock.Now().Add(e.opts.LedgerTTL),
	})
	if err != nil {
		logger.Error("idempotency ledger unavailable", slog.Any("error", err))
		return Outcome{Operation: op, Status: StatusFailed, Err: errs.Mark(err, errs.ErrLedgerOperation)}
	}
	if rec.IsCompleted() {
		logger.Info("operation replayed from ledger", slog.String("external_id", rec.ExternalID))
		return Outcome{Operation: op, Status: StatusApplied, ExternalID: rec.ExternalID, Revision: rec.Revision, Replayed: true}
	}
	if !started {
		logger.Warn("operation held by another run; not applied")
		return Outcome{Operation: op, Status: StatusFailed, Err: ErrOperationInProgress}
	}

	var out Outcome
	switch op.Kind {
	case plan.KindCreate:
		out = e.create(ctx, op)
	case plan.KindUpdate:
		out = e.update(ctx, op)
	case plan.KindDelete:
		out = e.delete(ctx, op)
	default:
		out = Outcome{Operation: op, Status: StatusFailed, Err: errs.Newf("unknown operation kind %q", op.Kind)}
	}

	if out.Applied() {
		if cerr := e.ledger.Complete(ctx, op.IdempotencyKey, out.ExternalID, out.Revision); cerr != nil {
			logger.Error("failed to record applied operation", slog.Any("error", cerr))
		}
	} else if rerr := e.ledger.Release(ctx, op.IdempotencyKey); rerr != nil {
		logger.Warn("failed to release ledger record", slog.Any("error", rerr))
	}

	attrs := []any{
		slog.String("status", string(out.Status)),
		slog.Int("attempts", out.Attempts),
		slog.String("external_id", out.ExternalID),
	}
	if out.Err != nil {
		attrs = append(attrs, slog.String("error_kind", errs.Kind(out.Err)), slog.Any("error", out.Err))
		logger.Warn("operation not applied", attrs...)
	} else {
		logger.Info("operation applied", attrs...)
	}
	return out
}

func (e *Engine) create(ctx context.Context, op plan.Operation) Outcome {
	created, attempts, err := withRetry(ctx, e, func(ctx context.Context) (calendar.Event, error) {
		return e.gateway.CreateEvent(ctx, op.Event, op.IdempotencyKey)
	})
	if err != nil {
		return notApplied(op, attempts, err)
	}
	return Outcome{Operation: op, Status: StatusApplied, ExternalID: created.ID, Revision: created.SourceRevision, Attempts: attempts}
}

func (e *Engine) update(ctx context.Context, op plan.Operation) Outcome {
	current, attempts, err := e.precheck(ctx, op)
	if err != nil {
		if errs.Is(err, errs.ErrNotFound) {
			return Outcome{Operation: op, Status: StatusConflicted, Err: errs.Mark(err, errs.ErrRevisionConflict), Attempts: attempts}
		}
		return notApplied(op, attempts, err)
	}

	updated, more, err := withRetry(ctx, e, func(ctx context.Context) (calendar.Event, error) {
		return e.gateway.UpdateEvent(ctx, op.Event.ID, calendar.PatchFromEvent(op.Event), current.SourceRevision, op.IdempotencyKey)
	})
	attempts += more
	if err != nil {
		return notApplied(op, attempts, err)
	}
	return Outcome{Operation: op, Status: StatusApplied, ExternalID: updated.ID, Revision: updated.SourceRevision, Attempts: attempts}
}

func (e *Engine) delete(ctx context.Context, op plan.Operation) Outcome {
	_, attempts, err := e.precheck(ctx, op)
	if err != nil {
		if errs.Is(err, errs.ErrNotFound) {
			return Outcome{Operation: op, Status: StatusApplied, ExternalID: op.Event.ID, Attempts: attempts}
		}
		return notApplied(op, attempts, err)
	}

	_, more, err := withRetry(ctx, e, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, e.gateway.DeleteEvent(ctx, op.Event.ID, op.IdempotencyKey)
	})
	attempts += more
	if err != nil && !errs.Is(err, errs.ErrNotFound) {
		return notApplied(op, attempts, err)
	}
	return Outcome{Operation: op, Status: StatusApplied, ExternalID: op.Event.ID, Attempts: attempts}
}

// precheck re-reads the target and reports a revision conflict when it no
// longer matches the revision the plan was computed against.
func (e *Engine) precheck(ctx context.Context, op plan.Operation) (calendar.Event, int, error) {
	current, attempts, err := withRetry(ctx, e, func(ctx context.Context) (calendar.Event, error) {
		return e.gateway.GetEvent(ctx, op.Event.ID)
	})
	if err != nil {
		return calendar.Event{}, attempts, err
	}
	if op.Event.SourceRevision != "" && current.SourceRevision != op.Event.SourceRevision {
		return current, attempts, errs.Mark(
			errs.Newf("event %s changed: planned against revision %s, found %s", op.Event.ID, op.Event.SourceRevision, current.SourceRevision),
			errs.ErrRevisionConflict,
		)
	}
	return current, attempts, nil
}

func withRetry[T any](ctx context.Context, e *Engine, fn func(ctx context.Context) (T, error)) (T, int, error) {
	return shared.Retry(ctx, e.clock, e.logger, e.opts.Retry, isTransient, func(ctx context.Context) (T, error) {
		callCtx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
		defer cancel()
		return fn(callCtx)
	})
}

func isTransient(err error) bool {
	return errs.Is(err, errs.ErrTransientExternal) || errors.Is(err, context.DeadlineExceeded)
}

func notApplied(op plan.Operation, attempts int, err error) Outcome {
	status := StatusFailed
	if errs.Is(err, errs.ErrRevisionConflict) {
		status = StatusConflicted
	}
	return Outcome{Operation: op, Status: status, Err: err, Attempts: attempts}
}
