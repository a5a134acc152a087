//go:build unit

package snapshot_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"calendar-assistant/internal/domain/calendar"
	sharedmock "calendar-assistant/internal/mock/shared"
	"calendar-assistant/internal/pkg/clock"
	"calendar-assistant/internal/pkg/errs"
	"calendar-assistant/internal/testutil"
	"calendar-assistant/internal/testutil/builder"
	"calendar-assistant/internal/usecase/snapshot"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type StoreTestSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	gateway *sharedmock.MockCalendarGateway
	clock   *clock.MockClock
	store   *snapshot.Store
	window  calendar.Window
}

func (s *StoreTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.gateway = sharedmock.NewMockCalendarGateway(s.ctrl)
	s.clock = clock.NewMockClock(testutil.At(0, 8, 0))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store = snapshot.NewStore(s.gateway, s.clock, logger, snapshot.Options{MaxAge: 5 * time.Minute})
	s.window = calendar.Window{From: testutil.At(0, 0, 0), To: testutil.At(5, 0, 0)}
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (s *StoreTestSuite) TestGetWithoutRefreshIsStale() {
	_, err := s.store.Get("1", s.window)
	s.Require().Error(err)
	s.True(errs.Is(err, errs.ErrStaleData))

	var stale *snapshot.StaleDataError
	s.Require().ErrorAs(err, &stale)
	s.True(stale.Missing)
}

func (s *StoreTestSuite) TestGetOrRefreshCachesUntilMaxAge() {
	ev := builder.NewEventBuilder().Build()
	s.gateway.EXPECT().FetchEvents(gomock.Any(), "1", s.window).Return([]calendar.Event{ev}, nil).Times(1)

	snap, err := s.store.GetOrRefresh(context.Background(), "1", s.window)
	s.Require().NoError(err)
	s.Equal(1, snap.Len())
	s.Equal(testutil.At(0, 8, 0), snap.TakenAt())

	s.clock.Add(4 * time.Minute)
	again, err := s.store.GetOrRefresh(context.Background(), "1", s.window)
	s.Require().NoError(err)
	s.Equal(snap.TakenAt(), again.TakenAt())

	s.clock.Add(2 * time.Minute)
	_, err = s.store.Get("1", s.window)
	var stale *snapshot.StaleDataError
	s.Require().ErrorAs(err, &stale)
	s.False(stale.Missing)
	s.Equal(6*time.Minute, stale.Age)
}

func (s *StoreTestSuite) TestFailedRefreshKeepsPreviousSnapshot() {
	ev := builder.NewEventBuilder().Build()
	gomock.InOrder(
		s.gateway.EXPECT().FetchEvents(gomock.Any(), "1", s.window).Return([]calendar.Event{ev}, nil),
		s.gateway.EXPECT().FetchEvents(gomock.Any(), "1", s.window).
			Return(nil, errs.Mark(errs.New("bitrix24 down"), errs.ErrTransientExternal)),
	)

	_, err := s.store.Refresh(context.Background(), "1", s.window)
	s.Require().NoError(err)

	s.clock.Add(10 * time.Minute)
	_, err = s.store.GetOrRefresh(context.Background(), "1", s.window)
	s.Require().Error(err)
	s.True(errs.Is(err, errs.ErrStaleData))
	s.True(errs.Is(err, errs.ErrTransientExternal))

	var stale *snapshot.StaleDataError
	s.Require().ErrorAs(err, &stale)
	s.False(stale.Missing)
	s.Equal(10*time.Minute, stale.Age)
}

func (s *StoreTestSuite) TestRecurringEventsAreExpanded() {
	weekly := builder.NewEventBuilder().WithRRule("FREQ=DAILY;COUNT=10").Build()
	s.gateway.EXPECT().FetchEvents(gomock.Any(), "1", s.window).Return([]calendar.Event{weekly}, nil)

	snap, err := s.store.Refresh(context.Background(), "1", s.window)
	s.Require().NoError(err)
	s.Equal(5, snap.Len())
}

func (s *StoreTestSuite) TestInvalidation() {
	a := builder.NewEventBuilder().WithID("a").Build()
	b := builder.NewEventBuilder().WithID("b").WithOwner("2").Build()
	s.gateway.EXPECT().FetchEvents(gomock.Any(), "1", s.window).Return([]calendar.Event{a}, nil)
	s.gateway.EXPECT().FetchEvents(gomock.Any(), "2", s.window).Return([]calendar.Event{b}, nil)

	for _, user := range []string{"1", "2"} {
		_, err := s.store.Refresh(context.Background(), user, s.window)
		s.Require().NoError(err)
	}

	s.Run("by event", func() {
		s.Equal(1, s.store.InvalidateEvent("a"))
		_, err := s.store.Get("1", s.window)
		s.Error(err)
		_, err = s.store.Get("2", s.window)
		s.NoError(err)
	})

	s.Run("by user", func() {
		s.Equal(1, s.store.InvalidateUser("2"))
		s.Equal(0, s.store.InvalidateUser("2"))
	})
}

func (s *StoreTestSuite) TestApplyRemoteChange() {
	ev := builder.NewEventBuilder().WithID("7").WithAttendees("3").Build()
	s.gateway.EXPECT().FetchEvents(gomock.Any(), "3", s.window).Return(nil, nil)
	_, err := s.store.Refresh(context.Background(), "3", s.window)
	s.Require().NoError(err)

	s.Run("new event drops its participants' snapshots", func() {
		s.gateway.EXPECT().GetEvent(gomock.Any(), "7").Return(ev, nil)
		dropped, err := s.store.ApplyRemoteChange(context.Background(), "7")
		s.Require().NoError(err)
		s.Equal(1, dropped)
	})

	s.Run("deleted event is not an error", func() {
		s.gateway.EXPECT().GetEvent(gomock.Any(), "8").Return(calendar.Event{}, errs.ErrNotFound)
		dropped, err := s.store.ApplyRemoteChange(context.Background(), "8")
		s.Require().NoError(err)
		s.Zero(dropped)
	})

	s.Run("lookup failure is reported", func() {
		s.gateway.EXPECT().GetEvent(gomock.Any(), "9").Return(calendar.Event{}, errs.ErrPermanentExternal)
		_, err := s.store.ApplyRemoteChange(context.Background(), "9")
		s.True(errs.Is(err, errs.ErrPermanentExternal))
	})
}

func (s *StoreTestSuite) TestRefreshAllAndPrune() {
	other := calendar.Window{From: testutil.At(7, 0, 0), To: testutil.At(12, 0, 0)}
	s.gateway.EXPECT().FetchEvents(gomock.Any(), "1", s.window).Return(nil, nil).Times(2)
	s.gateway.EXPECT().FetchEvents(gomock.Any(), "1", other).Return(nil, nil)
	s.gateway.EXPECT().FetchEvents(gomock.Any(), "1", other).Return(nil, errs.ErrTransientExternal)

	_, err := s.store.Refresh(context.Background(), "1", s.window)
	s.Require().NoError(err)
	_, err = s.store.Refresh(context.Background(), "1", other)
	s.Require().NoError(err)

	refreshed, failed := s.store.RefreshAll(context.Background())
	s.Equal(1, refreshed)
	s.Equal(1, failed)

	s.clock.Add(time.Hour)
	s.Equal(2, s.store.Prune(30*time.Minute))
	s.Empty(s.store.Keys())
}

func (s *StoreTestSuite) TestRefreshesOfOneKeySerialize() {
	release := make(chan struct{})
	started := make(chan string, 4)
	var inFlight, maxInFlight atomic.Int32

	s.gateway.EXPECT().FetchEvents(gomock.Any(), "1", s.window).
		DoAndReturn(func(context.Context, string, calendar.Window) ([]calendar.Event, error) {
			n := inFlight.Add(1)
			for {
				m := maxInFlight.Load()
				if n <= m || maxInFlight.CompareAndSwap(m, n) {
					break
				}
			}
			started <- "1"
			<-release
			inFlight.Add(-1)
			return nil, nil
		}).Times(2)
	s.gateway.EXPECT().FetchEvents(gomock.Any(), "2", s.window).Return(nil, nil).Times(1)

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Refresh(context.Background(), "1", s.window)
			s.NoError(err)
		}()
	}
	s.Equal("1", <-started)

	// another key refreshes while user 1 is blocked
	_, err := s.store.Refresh(context.Background(), "2", s.window)
	s.Require().NoError(err)

	close(release)
	wg.Wait()
	s.Equal(int32(1), maxInFlight.Load())
	s.Len(started, 1)
}

func (s *StoreTestSuite) TestInvalidationDuringRefreshWins() {
	before := builder.NewEventBuilder().WithID("7").Build()

	blockedFetch := func() (entered, release chan struct{}) {
		entered = make(chan struct{})
		release = make(chan struct{})
		s.gateway.EXPECT().FetchEvents(gomock.Any(), "1", s.window).
			DoAndReturn(func(context.Context, string, calendar.Window) ([]calendar.Event, error) {
				close(entered)
				<-release
				return []calendar.Event{before}, nil
			})
		return entered, release
	}
	refreshInBackground := func() chan calendar.Snapshot {
		done := make(chan calendar.Snapshot, 1)
		go func() {
			snap, err := s.store.Refresh(context.Background(), "1", s.window)
			s.NoError(err)
			done <- snap
		}()
		return done
	}

	for name, invalidate := range map[string]func(){
		"by event": func() { s.store.InvalidateEvent("7") },
		"by user":  func() { s.store.InvalidateUser("1") },
	} {
		s.Run(name, func() {
			entered, release := blockedFetch()
			done := refreshInBackground()
			<-entered

			invalidate()
			close(release)
			snap := <-done
			s.True(snap.Contains("7"))

			_, err := s.store.Get("1", s.window)
			s.True(errs.Is(err, errs.ErrStaleData))
		})
	}

	s.Run("later refresh caches again", func() {
		s.gateway.EXPECT().FetchEvents(gomock.Any(), "1", s.window).Return(nil, nil)
		_, err := s.store.Refresh(context.Background(), "1", s.window)
		s.Require().NoError(err)
		_, err = s.store.Get("1", s.window)
		s.NoError(err)
	})
}
