//go:build unit

package queries_test

import (
	"context"
	"testing"
	"time"

	"calendar-assistant/internal/domain/calendar"
	"calendar-assistant/internal/domain/conflict"
	queriesmock "calendar-assistant/internal/mock/queries"
	"calendar-assistant/internal/pkg/errs"
	"calendar-assistant/internal/testutil"
	"calendar-assistant/internal/testutil/builder"
	"calendar-assistant/internal/usecase/queries"
	"calendar-assistant/internal/usecase/shared"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type CalendarQueriesTestSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	snapshots *queriesmock.MockSnapshotReader
	encoder   *queriesmock.MockCalendarEncoder
	queries   queries.CalendarQueries
	window    calendar.Window
	admin     shared.Caller
	member    shared.Caller
}

func (s *CalendarQueriesTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.snapshots = queriesmock.NewMockSnapshotReader(s.ctrl)
	s.encoder = queriesmock.NewMockCalendarEncoder(s.ctrl)
	s.queries = queries.NewCalendarQueries(s.snapshots, s.encoder, conflict.DefaultOptions())
	s.window = calendar.Window{From: testutil.At(0, 0, 0), To: testutil.At(2, 0, 0)}
	s.admin = shared.Caller{UserID: "99", Role: shared.RoleAdmin}
	s.member = shared.Caller{UserID: "1", Role: shared.RoleMember}
}

func TestCalendarQueriesSuite(t *testing.T) {
	suite.Run(t, new(CalendarQueriesTestSuite))
}

func (s *CalendarQueriesTestSuite) busySnapshot(userID string) calendar.Snapshot {
	events := []calendar.Event{
		builder.NewEventBuilder().WithID("a").WithOwner(userID).WithSlot(testutil.At(0, 10, 0), time.Hour).Build(),
		builder.NewEventBuilder().WithID("b").WithOwner(userID).WithSlot(testutil.At(0, 10, 30), 90*time.Minute).Build(),
		builder.NewEventBuilder().WithID("c").WithOwner(userID).WithSlot(testutil.At(1, 9, 0), time.Hour).Build(),
	}
	return calendar.NewSnapshot(userID, s.window, events, testutil.At(0, 8, 0))
}

func (s *CalendarQueriesTestSuite) TestAvailability() {
	s.snapshots.EXPECT().GetOrRefresh(gomock.Any(), "1", s.window).Return(s.busySnapshot("1"), nil)

	view, err := s.queries.Availability(context.Background(), s.member, "1", s.window)
	s.Require().NoError(err)

	expectedBusy := []queries.BusyBlock{
		{Window: calendar.Window{From: testutil.At(0, 10, 0), To: testutil.At(0, 12, 0)}, EventIDs: []string{"a", "b"}},
		{Window: calendar.Window{From: testutil.At(1, 9, 0), To: testutil.At(1, 10, 0)}, EventIDs: []string{"c"}},
	}
	if diff := cmp.Diff(expectedBusy, view.Busy); diff != "" {
		s.T().Errorf("busy mismatch (-want +got):\n%s", diff)
	}

	expectedFree := []calendar.Window{
		{From: testutil.At(0, 9, 0), To: testutil.At(0, 10, 0)},
		{From: testutil.At(0, 12, 0), To: testutil.At(0, 17, 0)},
		{From: testutil.At(1, 10, 0), To: testutil.At(1, 17, 0)},
	}
	if diff := cmp.Diff(expectedFree, view.Free); diff != "" {
		s.T().Errorf("free mismatch (-want +got):\n%s", diff)
	}
	s.Equal(testutil.At(0, 8, 0), view.TakenAt)
}

func (s *CalendarQueriesTestSuite) TestAvailabilityOfAnotherUserIsForbidden() {
	_, err := s.queries.Availability(context.Background(), s.member, "2", s.window)
	s.True(errs.Is(err, errs.ErrForbidden))
}

func (s *CalendarQueriesTestSuite) TestWorkload() {
	s.snapshots.EXPECT().GetOrRefresh(gomock.Any(), "1", s.window).Return(s.busySnapshot("1"), nil)
	s.snapshots.EXPECT().GetOrRefresh(gomock.Any(), "2", s.window).
		Return(calendar.NewSnapshot("2", s.window, nil, testutil.At(0, 8, 0)), nil)

	view, err := s.queries.Workload(context.Background(), s.admin, []string{"2", "1", "2"}, s.window)
	s.Require().NoError(err)
	s.Require().Len(view.Users, 2)

	busy := view.Users[0]
	s.Equal("1", busy.UserID)
	s.Equal(3, busy.Meetings)
	s.Equal(210*time.Minute, busy.MeetingTime)
	s.Equal(2, busy.BusinessDays)
	s.Equal(1.5, busy.AvgMeetingsPerDay)
	s.Equal(1.8, busy.AvgMeetingHoursDay)
	s.InDelta(0.7375, busy.Score, 1e-9)
	s.Equal(queries.WorkloadHeavy, busy.Status)

	s.Equal(queries.WorkloadLight, view.Users[1].Status)
	s.Equal([]string{"2"}, view.Underloaded)
	s.Empty(view.Overloaded)
	s.Equal(0.4, view.AverageScore)
}

func (s *CalendarQueriesTestSuite) TestWorkloadRequiresUsers() {
	_, err := s.queries.Workload(context.Background(), s.admin, nil, s.window)
	s.True(errs.Is(err, errs.ErrValidation))
}

func (s *CalendarQueriesTestSuite) TestExportICS() {
	snap := s.busySnapshot("1")
	s.snapshots.EXPECT().GetOrRefresh(gomock.Any(), "1", s.window).Return(snap, nil)
	s.encoder.EXPECT().Encode(snap).Return([]byte("BEGIN:VCALENDAR"), nil)

	out, err := s.queries.ExportICS(context.Background(), s.member, "1", s.window)
	s.Require().NoError(err)
	s.Equal("BEGIN:VCALENDAR", string(out))
}

func (s *CalendarQueriesTestSuite) TestStaleSnapshotPropagates() {
	s.snapshots.EXPECT().GetOrRefresh(gomock.Any(), "1", s.window).Return(calendar.Snapshot{}, errs.ErrStaleData)
	_, err := s.queries.ExportICS(context.Background(), s.member, "1", s.window)
	s.True(errs.Is(err, errs.ErrStaleData))
}
