//go:build unit

package api_test

import (
	"context"
	"net/http"
	"testing"

	"calendar-assistant/internal/domain/calendar"
	"calendar-assistant/internal/handler/api"
	resdto "calendar-assistant/internal/handler/dto/response"
	queriesmock "calendar-assistant/internal/mock/queries"
	"calendar-assistant/internal/pkg/errs"
	"calendar-assistant/internal/testutil"
	"calendar-assistant/internal/testutil/httptest"
	"calendar-assistant/internal/usecase/queries"
	"calendar-assistant/internal/usecase/shared"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type refresherFunc func(ctx context.Context, userID string, window calendar.Window) (calendar.Snapshot, error)

func (f refresherFunc) Refresh(ctx context.Context, userID string, window calendar.Window) (calendar.Snapshot, error) {
	return f(ctx, userID, window)
}

type CalendarHandlerTestSuite struct {
	suite.Suite
	router      *gin.Engine
	mockCtrl    *gomock.Controller
	mockQueries *queriesmock.MockCalendarQueries
	refreshed   []string
	refreshErr  error
	caller      shared.Caller
}

func (s *CalendarHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()
	s.mockCtrl = gomock.NewController(s.T())
	s.mockQueries = queriesmock.NewMockCalendarQueries(s.mockCtrl)
	s.refreshed = nil
	s.refreshErr = nil
	s.caller = shared.Caller{UserID: "1", Role: shared.RoleAdmin}

	refresher := refresherFunc(func(_ context.Context, userID string, window calendar.Window) (calendar.Snapshot, error) {
		if s.refreshErr != nil {
			return calendar.Snapshot{}, s.refreshErr
		}
		s.refreshed = append(s.refreshed, userID)
		return calendar.NewSnapshot(userID, window, nil, testutil.At(0, 8, 0)), nil
	})

	h := api.NewCalendarHandler(s.mockQueries, refresher)
	g := s.router.Group("/api", fakeAuth(s.caller))
	g.GET("/users/:userId/availability", h.Availability)
	g.GET("/users/:userId/workload", h.Workload)
	g.GET("/users/:userId/calendar.ics", h.ExportICS)
	g.POST("/snapshots/refresh", h.RefreshSnapshot)
}

func (s *CalendarHandlerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestCalendarHandlerSuite(t *testing.T) {
	suite.Run(t, new(CalendarHandlerTestSuite))
}

func (s *CalendarHandlerTestSuite) TestAvailability() {
	window := calendar.Window{From: testutil.At(0, 0, 0), To: testutil.At(5, 0, 0)}
	url := "/api/users/2/availability?from=2025-03-03T00:00:00Z&to=2025-03-08T00:00:00Z"

	s.Run("success", func() {
		view := &queries.AvailabilityView{
			UserID: "2",
			Window: window,
			Busy:   []queries.BusyBlock{{Window: calendar.Window{From: testutil.At(0, 10, 0), To: testutil.At(0, 11, 0)}, EventIDs: []string{"100"}}},
			Free:   []calendar.Window{{From: testutil.At(0, 9, 0), To: testutil.At(0, 10, 0)}},
		}
		s.mockQueries.EXPECT().Availability(gomock.Any(), s.caller, "2", window).Return(view, nil)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, url, nil, "")
		var response resdto.AvailabilityResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &response)
		s.Equal("2", response.UserID)
		s.Require().Len(response.Busy, 1)
		s.Equal([]string{"100"}, response.Busy[0].EventIDs)
		s.Len(response.Free, 1)
	})

	s.Run("local times read in tz", func() {
		berlin := calendar.Window{From: testutil.At(0, -1, 0), To: testutil.At(1, -1, 0)}
		s.mockQueries.EXPECT().Availability(gomock.Any(), s.caller, "2", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ shared.Caller, _ string, w calendar.Window) (*queries.AvailabilityView, error) {
				s.True(berlin.From.Equal(w.From))
				s.True(berlin.To.Equal(w.To))
				return &queries.AvailabilityView{UserID: "2", Window: w}, nil
			})
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet,
			"/api/users/2/availability?from=2025-03-03T00:00&to=2025-03-04T00:00&tz=Europe/Berlin", nil, "")
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, nil)
	})

	s.Run("error: missing range", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/api/users/2/availability?from=2025-03-03", nil, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "")
	})

	s.Run("error: range too long", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet,
			"/api/users/2/availability?from=2025-01-01&to=2025-06-01", nil, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusUnprocessableEntity, "validation")
	})

	s.Run("error: unknown tz", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet,
			"/api/users/2/availability?from=2025-03-03&to=2025-03-04&tz=Nowhere/Land", nil, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusUnprocessableEntity, "validation")
	})

	s.Run("error: stale calendar", func() {
		s.mockQueries.EXPECT().Availability(gomock.Any(), s.caller, "2", window).
			Return(nil, errs.Wrap(errs.ErrStaleData, "snapshot of user 2"))
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, url, nil, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusServiceUnavailable, "stale_data")
	})
}

func (s *CalendarHandlerTestSuite) TestWorkload() {
	s.mockQueries.EXPECT().Workload(gomock.Any(), s.caller, []string{"1", "2", "3"}, gomock.Any()).
		Return(&queries.TeamWorkloadView{
			Users: []queries.WorkloadView{
				{UserID: "1", Meetings: 3, Score: 0.74, Status: queries.WorkloadHeavy},
				{UserID: "2"},
				{UserID: "3"},
			},
			AverageScore: 0.25,
			Overloaded:   []string{"1"},
		}, nil)

	rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet,
		"/api/users/1/workload?from=2025-03-03&to=2025-03-08&users=2,3", nil, "")

	var response resdto.TeamWorkloadResponse
	httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &response)
	s.Len(response.Users, 3)
	s.Equal("heavy", response.Users[0].Status)
	s.Equal([]string{"1"}, response.Overloaded)
}

func (s *CalendarHandlerTestSuite) TestExportICS() {
	s.Run("success", func() {
		s.mockQueries.EXPECT().ExportICS(gomock.Any(), s.caller, "1", gomock.Any()).
			Return([]byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"), nil)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet,
			"/api/users/1/calendar.ics?from=2025-03-03&to=2025-03-08", nil, "")
		s.Equal(http.StatusOK, rec.Code)
		s.Equal("text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
		s.Contains(rec.Header().Get("Content-Disposition"), "calendar-1.ics")
		s.Contains(rec.Body.String(), "BEGIN:VCALENDAR")
	})

	s.Run("error: forbidden", func() {
		s.mockQueries.EXPECT().ExportICS(gomock.Any(), s.caller, "9", gomock.Any()).
			Return(nil, errs.Mark(errs.New("calendar of user 9"), errs.ErrForbidden))
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet,
			"/api/users/9/calendar.ics?from=2025-03-03&to=2025-03-08", nil, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusForbidden, "forbidden")
	})
}

func (s *CalendarHandlerTestSuite) TestRefreshSnapshot() {
	body := map[string]any{"userId": "4", "from": "2025-03-03", "to": "2025-03-08"}

	s.Run("success", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/api/snapshots/refresh", body, "")
		var response resdto.RefreshResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &response)
		s.Equal("4", response.UserID)
		s.Equal(0, response.Events)
		s.Equal([]string{"4"}, s.refreshed)
	})

	s.Run("error: missing user", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/api/snapshots/refresh",
			testutil.DtoMap(s.T(), body, testutil.Field("userId", nil)), "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "")
	})

	s.Run("error: CRM unreachable", func() {
		s.refreshErr = errs.Mark(errs.New("dial tcp: connection refused"), errs.ErrTransientExternal)
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/api/snapshots/refresh", body, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusServiceUnavailable, "transient_external")
	})
}
