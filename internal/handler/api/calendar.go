package api

import (
	"context"
	"net/http"
	"strconv"

	"calendar-assistant/internal/domain/calendar"
	reqdto "calendar-assistant/internal/handler/dto/request"
	resdto "calendar-assistant/internal/handler/dto/response"
	"calendar-assistant/internal/handler/httperr"
	"calendar-assistant/internal/handler/middleware"
	"calendar-assistant/internal/pkg/errs"
	"calendar-assistant/internal/usecase/queries"
	"calendar-assistant/internal/usecase/shared"

	"github.com/gin-gonic/gin"
)

const maxRangeDays = 92

var errRangeTooLong = errs.Mark(errs.New("requested range too long"), errs.ErrValidation)

// SnapshotRefresher forces a snapshot to be fetched again.
type SnapshotRefresher interface {
	Refresh(ctx context.Context, userID string, window calendar.Window) (calendar.Snapshot, error)
}

type CalendarHandler struct {
	calendarQueries queries.CalendarQueries
	refresher       SnapshotRefresher
}

func NewCalendarHandler(calendarQueries queries.CalendarQueries, refresher SnapshotRefresher) *CalendarHandler {
	return &CalendarHandler{
		calendarQueries: calendarQueries,
		refresher:       refresher,
	}
}

// @Summary User availability
// @Description Busy blocks and free working-hour slots of a user
// @Tags calendar
// @Produce json
// @Security BearerAuth
// @Param userId path string true "Bitrix24 user id"
// @Param from query string true "Range start (RFC 3339 or local)"
// @Param to query string true "Range end (RFC 3339 or local)"
// @Param tz query string false "IANA zone for local times"
// @Success 200 {object} resdto.AvailabilityResponse
// @Failure 403 {object} httperr.Response
// @Failure 422 {object} httperr.Response
// @Failure 503 {object} httperr.Response
// @Router /users/{userId}/availability [get]
func (h *CalendarHandler) Availability(c *gin.Context) {
	caller, window, ok := h.readParams(c)
	if !ok {
		return
	}

	view, err := h.calendarQueries.Availability(c.Request.Context(), caller, c.Param("userId"), window)
	if err != nil {
		httperr.Abort(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, resdto.FromAvailabilityView(view))
}

// @Summary Workload
// @Description Meeting load of a user, optionally together with further users given in the users query
// @Tags calendar
// @Produce json
// @Security BearerAuth
// @Param userId path string true "Bitrix24 user id"
// @Param from query string true "Range start"
// @Param to query string true "Range end"
// @Param users query string false "Extra user ids, comma separated"
// @Success 200 {object} resdto.TeamWorkloadResponse
// @Failure 403 {object} httperr.Response
// @Failure 422 {object} httperr.Response
// @Router /users/{userId}/workload [get]
func (h *CalendarHandler) Workload(c *gin.Context) {
	caller, window, ok := h.readParams(c)
	if !ok {
		return
	}
	var q reqdto.RangeQuery
	_ = c.ShouldBindQuery(&q)
	users := append([]string{c.Param("userId")}, q.UserList()...)

	view, err := h.calendarQueries.Workload(c.Request.Context(), caller, users, window)
	if err != nil {
		httperr.Abort(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, resdto.FromTeamWorkloadView(view))
}

// @Summary Export calendar
// @Description The user's events in range as an iCalendar document
// @Tags calendar
// @Produce text/calendar
// @Security BearerAuth
// @Param userId path string true "Bitrix24 user id"
// @Param from query string true "Range start"
// @Param to query string true "Range end"
// @Success 200 {string} string
// @Failure 403 {object} httperr.Response
// @Router /users/{userId}/calendar.ics [get]
func (h *CalendarHandler) ExportICS(c *gin.Context) {
	caller, window, ok := h.readParams(c)
	if !ok {
		return
	}

	body, err := h.calendarQueries.ExportICS(c.Request.Context(), caller, c.Param("userId"), window)
	if err != nil {
		httperr.Abort(c, err, nil)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=calendar-"+c.Param("userId")+".ics")
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", body)
}

// @Summary Refresh snapshot
// @Description Fetch a user's calendar from the CRM now, replacing the cached snapshot
// @Tags calendar
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.RefreshSnapshotRequest true "User and range"
// @Success 200 {object} resdto.RefreshResponse
// @Failure 403 {object} map[string]string
// @Failure 503 {object} httperr.Response
// @Router /snapshots/refresh [post]
func (h *CalendarHandler) RefreshSnapshot(c *gin.Context) {
	var req reqdto.RefreshSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}
	window, err := req.ToWindow()
	if err != nil {
		httperr.Abort(c, err, nil)
		return
	}

	snap, err := h.refresher.Refresh(c.Request.Context(), req.UserID, window)
	if err != nil {
		httperr.Abort(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, resdto.RefreshResponse{
		UserID:  snap.UserID(),
		Window:  resdto.FromWindow(snap.Window()),
		Events:  snap.Len(),
		TakenAt: snap.TakenAt(),
	})
}

func (h *CalendarHandler) readParams(c *gin.Context) (caller shared.Caller, window calendar.Window, ok bool) {
	caller, ok = middleware.GetCaller(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return caller, window, false
	}

	var q reqdto.RangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "from and to are required", nil)
		return caller, window, false
	}
	window, err := q.ToWindow()
	if err != nil {
		httperr.Abort(c, err, nil)
		return caller, window, false
	}
	if days := window.Duration().Hours() / 24; days > maxRangeDays {
		httperr.AbortWithError(c, http.StatusUnprocessableEntity, errRangeTooLong,
			"range must not exceed "+strconv.Itoa(maxRangeDays)+" days", nil)
		return caller, window, false
	}
	return caller, window, true
}
