//go:build unit

package reconcile_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"calendar-assistant/internal/domain/calendar"
	"calendar-assistant/internal/domain/conflict"
	"calendar-assistant/internal/domain/intent"
	"calendar-assistant/internal/domain/plan"
	"calendar-assistant/internal/infra/ledger"
	sharedmock "calendar-assistant/internal/mock/shared"
	"calendar-assistant/internal/pkg/clock"
	"calendar-assistant/internal/pkg/errs"
	"calendar-assistant/internal/testutil"
	"calendar-assistant/internal/testutil/builder"
	"calendar-assistant/internal/usecase/reconcile"
	"calendar-assistant/internal/usecase/shared"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type EngineTestSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	gateway *sharedmock.MockCalendarGateway
	ledger  *ledger.MemoryLedger
	clock   *clock.MockClock
	engine  *reconcile.Engine
}

func (s *EngineTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.gateway = sharedmock.NewMockCalendarGateway(s.ctrl)
	s.clock = clock.NewMockClock(testutil.At(0, 8, 0))
	s.ledger = ledger.NewMemoryLedger(s.clock)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.engine = reconcile.NewEngine(s.gateway, s.ledger, s.clock, logger, reconcile.Options{
		Retry: shared.RetryPolicy{MaxRetries: 2, Base: 10 * time.Millisecond, Factor: 2},
	})
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (s *EngineTestSuite) movePlan(original calendar.Event) plan.MutationPlan {
	in := builder.NewIntentBuilder().WithOrigin("origin-move").WithAction(intent.ActionMove).Build()
	mp, err := plan.NewPlanner().Plan(in, "1", []plan.Target{{
		Original: &original,
		Report: reportWithoutConflicts(original.WithSlot(calendar.Window{
			From: testutil.At(1, 14, 0),
			To:   testutil.At(1, 15, 0),
		})),
	}})
	s.Require().NoError(err)
	return mp
}

func reportWithoutConflicts(proposed calendar.Event) conflict.Report {
	return conflict.Report{Proposed: proposed}
}

func (s *EngineTestSuite) TestCreateRetriesTransientErrors() {
	ev := builder.NewEventBuilder().Unsaved().Build()
	op := plan.Operation{Kind: plan.KindCreate, Event: ev, IdempotencyKey: "k-create"}
	created := builder.NewEventBuilder().WithID("501").WithRevision("1").Build()

	gomock.InOrder(
		s.gateway.EXPECT().CreateEvent(gomock.Any(), ev, "k-create").Return(calendar.Event{}, errs.ErrTransientExternal),
		s.gateway.EXPECT().CreateEvent(gomock.Any(), ev, "k-create").Return(created, nil),
	)

	outcomes := s.engine.Apply(context.Background(), plan.MutationPlan{ID: "p", Operations: []plan.Operation{op}})
	s.Require().Len(outcomes, 1)
	s.Equal(reconcile.StatusApplied, outcomes[0].Status)
	s.Equal("501", outcomes[0].ExternalID)
	s.Equal(2, outcomes[0].Attempts)
	s.Equal([]time.Duration{10 * time.Millisecond}, s.clock.Waits())
}

func (s *EngineTestSuite) TestReplayedOperationsSkipTheCRM() {
	ev := builder.NewEventBuilder().Unsaved().Build()
	op := plan.Operation{Kind: plan.KindCreate, Event: ev, IdempotencyKey: "k-once"}
	mp := plan.MutationPlan{ID: "p", Operations: []plan.Operation{op}}

	s.gateway.EXPECT().CreateEvent(gomock.Any(), ev, "k-once").
		Return(builder.NewEventBuilder().WithID("900").Build(), nil).Times(1)

	first := s.engine.Apply(context.Background(), mp)
	s.Require().True(reconcile.AllApplied(first))
	s.False(first[0].Replayed)

	second := s.engine.Apply(context.Background(), mp)
	s.Require().True(reconcile.AllApplied(second))
	s.True(second[0].Replayed)
	s.Equal("900", second[0].ExternalID)
}

func (s *EngineTestSuite) TestFailedOperationIsReleasedForRetry() {
	ev := builder.NewEventBuilder().Unsaved().Build()
	op := plan.Operation{Kind: plan.KindCreate, Event: ev, IdempotencyKey: "k-fail"}
	mp := plan.MutationPlan{ID: "p", Operations: []plan.Operation{op}}

	gomock.InOrder(
		s.gateway.EXPECT().CreateEvent(gomock.Any(), ev, "k-fail").Return(calendar.Event{}, errs.ErrPermanentExternal),
		s.gateway.EXPECT().CreateEvent(gomock.Any(), ev, "k-fail").Return(builder.NewEventBuilder().WithID("2").Build(), nil),
	)

	first := s.engine.Apply(context.Background(), mp)
	s.Equal(reconcile.StatusFailed, first[0].Status)
	s.True(errs.Is(first[0].Err, errs.ErrPermanentExternal))
	s.Equal(1, first[0].Attempts)

	second := s.engine.Apply(context.Background(), mp)
	s.Equal(reconcile.StatusApplied, second[0].Status)
	s.False(second[0].Replayed)
}

func (s *EngineTestSuite) TestMove() {
	original := builder.NewEventBuilder().WithID("42").WithRevision("3").Build()

	s.Run("create then delete", func() {
		mp := s.movePlan(original)
		gomock.InOrder(
			s.gateway.EXPECT().CreateEvent(gomock.Any(), gomock.Any(), mp.Operations[0].IdempotencyKey).
				Return(builder.NewEventBuilder().WithID("43").Build(), nil),
			s.gateway.EXPECT().GetEvent(gomock.Any(), "42").Return(original, nil),
			s.gateway.EXPECT().DeleteEvent(gomock.Any(), "42", mp.Operations[1].IdempotencyKey).Return(nil),
		)

		outcomes := s.engine.Apply(context.Background(), mp)
		s.Require().Len(outcomes, 2)
		s.True(reconcile.AllApplied(outcomes))
		s.Equal("43", outcomes[0].ExternalID)
	})

	s.Run("failed create skips the delete", func() {
		mp := s.movePlan(original)
		for i := range mp.Operations {
			mp.Operations[i].IdempotencyKey += "-b"
		}
		s.gateway.EXPECT().CreateEvent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(calendar.Event{}, errs.ErrPermanentExternal)

		outcomes := s.engine.Apply(context.Background(), mp)
		s.Require().Len(outcomes, 2)
		s.Equal(reconcile.StatusFailed, outcomes[0].Status)
		s.Equal(reconcile.StatusFailed, outcomes[1].Status)
		s.ErrorIs(outcomes[1].Err, reconcile.ErrPairedCreateNotApplied)
	})

	s.Run("changed original keeps both copies", func() {
		mp := s.movePlan(original)
		for i := range mp.Operations {
			mp.Operations[i].IdempotencyKey += "-c"
		}
		changed := original
		changed.SourceRevision = "4"
		s.gateway.EXPECT().CreateEvent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(builder.NewEventBuilder().WithID("44").Build(), nil)
		s.gateway.EXPECT().GetEvent(gomock.Any(), "42").Return(changed, nil)

		outcomes := s.engine.Apply(context.Background(), mp)
		s.Require().Len(outcomes, 2)
		s.Equal(reconcile.StatusApplied, outcomes[0].Status)
		s.Equal(reconcile.StatusConflicted, outcomes[1].Status)
		s.True(errs.Is(outcomes[1].Err, errs.ErrRevisionConflict))
		s.True(reconcile.AnyApplied(outcomes))
	})
}

func (s *EngineTestSuite) TestDeleteOfMissingEventApplies() {
	ev := builder.NewEventBuilder().WithID("77").Build()
	op := plan.Operation{Kind: plan.KindDelete, Event: ev, IdempotencyKey: "k-del"}
	s.gateway.EXPECT().GetEvent(gomock.Any(), "77").Return(calendar.Event{}, errs.ErrNotFound)

	outcomes := s.engine.Apply(context.Background(), plan.MutationPlan{Operations: []plan.Operation{op}})
	s.Equal(reconcile.StatusApplied, outcomes[0].Status)
	s.Equal("77", outcomes[0].ExternalID)
}

func (s *EngineTestSuite) TestUpdate() {
	ev := builder.NewEventBuilder().WithID("5").WithRevision("2").Build()
	op := plan.Operation{Kind: plan.KindUpdate, Event: ev, IdempotencyKey: "k-upd"}

	s.Run("applies against the current revision", func() {
		s.gateway.EXPECT().GetEvent(gomock.Any(), "5").Return(ev, nil)
		s.gateway.EXPECT().UpdateEvent(gomock.Any(), "5", calendar.PatchFromEvent(ev), "2", "k-upd").
			Return(builder.NewEventBuilder().WithID("5").WithRevision("3").Build(), nil)

		outcomes := s.engine.Apply(context.Background(), plan.MutationPlan{Operations: []plan.Operation{op}})
		s.Equal(reconcile.StatusApplied, outcomes[0].Status)
		s.Equal("3", outcomes[0].Revision)
	})

	s.Run("missing target is a conflict", func() {
		missing := op
		missing.IdempotencyKey = "k-upd-2"
		s.gateway.EXPECT().GetEvent(gomock.Any(), "5").Return(calendar.Event{}, errs.ErrNotFound)

		outcomes := s.engine.Apply(context.Background(), plan.MutationPlan{Operations: []plan.Operation{missing}})
		s.Equal(reconcile.StatusConflicted, outcomes[0].Status)
	})
}

func (s *EngineTestSuite) TestIndependentFailuresDoNotStopThePlan() {
	a := builder.NewEventBuilder().Unsaved().WithTitle("A").Build()
	b := builder.NewEventBuilder().Unsaved().WithTitle("B").Build()
	mp := plan.MutationPlan{Operations: []plan.Operation{
		{Kind: plan.KindCreate, Event: a, IdempotencyKey: "k-a"},
		{Kind: plan.KindCreate, Event: b, IdempotencyKey: "k-b"},
	}}
	s.gateway.EXPECT().CreateEvent(gomock.Any(), a, "k-a").Return(calendar.Event{}, errs.ErrPermanentExternal)
	s.gateway.EXPECT().CreateEvent(gomock.Any(), b, "k-b").Return(builder.NewEventBuilder().WithID("8").Build(), nil)

	outcomes := s.engine.Apply(context.Background(), mp)
	s.Require().Len(outcomes, 2)
	s.False(reconcile.AllApplied(outcomes))
	s.True(reconcile.AnyApplied(outcomes))
}

func (s *EngineTestSuite) TestOperationHeldByAnotherRunIsNotRepeated() {
	ev := builder.NewEventBuilder().Unsaved().Build()
	op := plan.Operation{Kind: plan.KindCreate, Event: ev, IdempotencyKey: "k-shared"}
	mp := plan.MutationPlan{ID: "p", Operations: []plan.Operation{op}}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	other := reconcile.NewEngine(s.gateway, s.ledger, s.clock, logger, reconcile.Options{})

	entered := make(chan struct{})
	release := make(chan struct{})
	s.gateway.EXPECT().CreateEvent(gomock.Any(), ev, "k-shared").
		DoAndReturn(func(context.Context, calendar.Event, string) (calendar.Event, error) {
			close(entered)
			<-release
			return builder.NewEventBuilder().WithID("310").Build(), nil
		}).Times(1)

	done := make(chan []reconcile.Outcome, 1)
	go func() {
		done <- s.engine.Apply(context.Background(), mp)
	}()
	<-entered

	concurrent := other.Apply(context.Background(), mp)
	s.Require().Len(concurrent, 1)
	s.Equal(reconcile.StatusFailed, concurrent[0].Status)
	s.ErrorIs(concurrent[0].Err, reconcile.ErrOperationInProgress)
	s.True(errs.Is(concurrent[0].Err, errs.ErrPlanInProgress))

	close(release)
	first := <-done
	s.Require().Len(first, 1)
	s.Equal(reconcile.StatusApplied, first[0].Status)
	s.Equal("310", first[0].ExternalID)

	again := other.Apply(context.Background(), mp)
	s.True(again[0].Replayed)
	s.Equal("310", again[0].ExternalID)
}

func (s *EngineTestSuite) TestHeldRecordIsNotReleased() {
	ev := builder.NewEventBuilder().Unsaved().Build()
	op := plan.Operation{Kind: plan.KindCreate, Event: ev, IdempotencyKey: "k-held"}

	_, started, err := s.ledger.Begin(context.Background(), shared.LedgerRecord{
		Key:       "k-held",
		ExpiresAt: s.clock.Now().Add(time.Hour),
	})
	s.Require().NoError(err)
	s.Require().True(started)

	outcomes := s.engine.Apply(context.Background(), plan.MutationPlan{Operations: []plan.Operation{op}})
	s.ErrorIs(outcomes[0].Err, reconcile.ErrOperationInProgress)

	rec, started, err := s.ledger.Begin(context.Background(), shared.LedgerRecord{
		Key:       "k-held",
		ExpiresAt: s.clock.Now().Add(time.Hour),
	})
	s.Require().NoError(err)
	s.False(started)
	s.Equal(shared.LedgerStatusProcessing, rec.Status)
}
