package api

import (
	"errors"
	"net/http"

	"calendar-assistant/internal/domain/plan"
	reqdto "calendar-assistant/internal/handler/dto/request"
	resdto "calendar-assistant/internal/handler/dto/response"
	"calendar-assistant/internal/handler/httperr"
	"calendar-assistant/internal/handler/middleware"
	"calendar-assistant/internal/usecase/commands"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var (
	ErrIdempotencyKeyRequired = errors.New("Idempotency-Key header is required")
	ErrInvalidIdempotencyKey  = errors.New("invalid idempotency key format")
)

type PlanHandler struct {
	planCommands commands.PlanCommands
}

func NewPlanHandler(planCommands commands.PlanCommands) *PlanHandler {
	return &PlanHandler{
		planCommands: planCommands,
	}
}

// @Summary Plan a calendar command
// @Description Validate an intent, check conflicts and register a mutation plan. The Idempotency-Key doubles as the intent origin id.
// @Tags plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string true "Origin id of the intent (UUID)"
// @Param request body reqdto.CreatePlanRequest true "Structured intent"
// @Success 201 {object} resdto.PlanResponse
// @Success 200 {object} resdto.PlanResponse "replayed origin id"
// @Failure 400 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Failure 409 {object} httperr.Response "conflicts; detail lists alternatives"
// @Failure 422 {object} httperr.Response
// @Failure 503 {object} httperr.Response
// @Router /plans [post]
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	caller, ok := middleware.GetCaller(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	originID, err := getIdempotencyKey(c)
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, err.Error(), nil)
		return
	}

	var req reqdto.CreatePlanRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, bindErr, "Invalid request format", nil)
		return
	}

	in, err := req.ToIntent(originID.String())
	if err != nil {
		httperr.Abort(c, err, nil)
		return
	}

	result, err := h.planCommands.InterpretAndPlan(c.Request.Context(), caller, in)
	if err != nil {
		httperr.Abort(c, err, conflictDetail)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, resdto.FromPlanResult(result))
}

// @Summary Get plan
// @Description Get a registered plan by id
// @Tags plans
// @Produce json
// @Security BearerAuth
// @Param id path string true "Plan ID"
// @Success 200 {object} resdto.PlanResponse
// @Failure 403 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /plans/{id} [get]
func (h *PlanHandler) GetPlan(c *gin.Context) {
	caller, ok := middleware.GetCaller(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	result, err := h.planCommands.GetPlan(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		httperr.Abort(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, resdto.FromPlanResult(result))
}

// @Summary Execute plan
// @Description Apply a registered plan against the CRM. Re-executing replays recorded outcomes.
// @Tags plans
// @Produce json
// @Security BearerAuth
// @Param id path string true "Plan ID"
// @Success 200 {object} resdto.ExecutionResponse
// @Failure 403 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Router /plans/{id}/execute [post]
func (h *PlanHandler) ExecutePlan(c *gin.Context) {
	caller, ok := middleware.GetCaller(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	result, err := h.planCommands.Execute(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		httperr.Abort(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, resdto.FromExecutionResult(result))
}

func getIdempotencyKey(c *gin.Context) (uuid.UUID, error) {
	keyStr := c.GetHeader("Idempotency-Key")
	if keyStr == "" {
		return uuid.Nil, ErrIdempotencyKeyRequired
	}

	key, err := uuid.Parse(keyStr)
	if err != nil {
		return uuid.Nil, ErrInvalidIdempotencyKey
	}

	return key, nil
}

func conflictDetail(err error) any {
	var choice *plan.NeedsUserChoiceError
	if errors.As(err, &choice) {
		return resdto.FromReports(choice.Reports)
	}
	return nil
}
