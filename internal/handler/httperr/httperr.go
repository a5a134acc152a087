package httperr

import (
	"errors"
	"net/http"

	"calendar-assistant/internal/domain/intent"
	"calendar-assistant/internal/domain/plan"
	"calendar-assistant/internal/pkg/errs"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Status int `json:"-"`
	Error  struct {
		Message string `json:"message"`
		Kind    string `json:"kind,omitempty"`
	} `json:"error"`
	Detail any `json:"detail,omitempty"`
}

// preserves original error for future monitoring
func AbortWithError(c *gin.Context, status int, err error, msg string, detail any) {
	if err == nil {
		panic("AbortWithError: err cannot be nil")
	}

	resp := Response{Status: status}
	resp.Error.Message = msg
	if kind := errs.Kind(err); kind != "internal" {
		resp.Error.Kind = kind
	}
	resp.Detail = detail

	_ = c.Error(gin.Error{
		Err:  err,
		Type: gin.ErrorTypePublic,
		Meta: resp,
	})
	c.AbortWithStatusJSON(status, resp)
}

// Abort maps a use case error onto a status and message. detailFor renders
// domain payloads such as conflict alternatives; it may be nil.
func Abort(c *gin.Context, err error, detailFor func(error) any) {
	status, msg := Classify(err)
	var detail any
	if detailFor != nil {
		detail = detailFor(err)
	}
	var verr *intent.ValidationError
	if detail == nil && errors.As(err, &verr) {
		detail = verr.FieldErrors
	}
	AbortWithError(c, status, err, msg, detail)
}

// Classify returns the HTTP status and public message for err.
func Classify(err error) (int, string) {
	var choice *plan.NeedsUserChoiceError
	switch {
	case errors.As(err, &choice):
		return http.StatusConflict, choice.Error()
	case errs.Is(err, errs.ErrValidation):
		return http.StatusUnprocessableEntity, "Validation failed"
	case errs.Is(err, errs.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errs.Is(err, errs.ErrPlanNotFound), errs.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errs.Is(err, errs.ErrUnknownTeam):
		return http.StatusNotFound, "Unknown team"
	case errs.Is(err, errs.ErrPlanInProgress):
		return http.StatusConflict, "Plan is currently being executed"
	case errs.Is(err, errs.ErrRevisionConflict):
		return http.StatusConflict, "Event changed since the plan was computed"
	case errs.Is(err, errs.ErrStaleData), errs.Is(err, errs.ErrTransientExternal):
		return http.StatusServiceUnavailable, "Calendar data is temporarily unavailable"
	case errs.Is(err, errs.ErrPermanentExternal):
		return http.StatusBadGateway, "Calendar service rejected the request"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
