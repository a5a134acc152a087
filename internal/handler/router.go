package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"calendar-assistant/internal/handler/api"
	"calendar-assistant/internal/handler/middleware"
	"calendar-assistant/internal/pkg/config"
	"calendar-assistant/internal/usecase/shared"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
	Mw      []gin.HandlerFunc
}

type Handlers struct {
	Plan     *api.PlanHandler
	Calendar *api.CalendarHandler
	Webhook  *api.WebhookHandler
}

func NewRouter(engine *gin.Engine, cfg config.Config, logger *slog.Logger, handlers Handlers, authMiddleware *middleware.AuthMiddleware) {
	setupMiddleware(engine, cfg, logger)
	setupRoutes(engine, handlers, authMiddleware)
}

func setupMiddleware(engine *gin.Engine, cfg config.Config, logger *slog.Logger) {
	// Recovery must be first (outermost) to catch panics from all other middleware
	engine.Use(middleware.CustomRecovery(logger))
	engine.Use(middleware.NewCORSMiddleware(cfg.CORS, logger))
	engine.Use(middleware.LoggingMiddleware(logger))
	engine.Use(middleware.ErrorHandler())
}

func setupRoutes(engine *gin.Engine, h Handlers, authMiddleware *middleware.AuthMiddleware) {
	engine.GET("/health", healthCheck)
	// authenticated by the Bitrix24 application token, not a JWT
	engine.POST("/webhooks/bitrix24", h.Webhook.Receive)

	if gin.Mode() == gin.DebugMode {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	apiGroup := engine.Group("/api")
	{
		plans := apiGroup.Group("/plans")
		plans.Use(authMiddleware.RequireAuth())
		{
			addRoutes(plans, []route{
				{Method: http.MethodPost, Path: "", Handler: h.Plan.CreatePlan},
				{Method: http.MethodGet, Path: "/:id", Handler: h.Plan.GetPlan},
				{Method: http.MethodPost, Path: "/:id/execute", Handler: h.Plan.ExecutePlan},
			})
		}

		users := apiGroup.Group("/users/:userId")
		users.Use(authMiddleware.RequireAuth())
		{
			addRoutes(users, []route{
				{Method: http.MethodGet, Path: "/availability", Handler: h.Calendar.Availability},
				{Method: http.MethodGet, Path: "/workload", Handler: h.Calendar.Workload},
				{Method: http.MethodGet, Path: "/calendar.ics", Handler: h.Calendar.ExportICS},
			})
		}

		snapshots := apiGroup.Group("/snapshots")
		snapshots.Use(authMiddleware.RequireAuth())
		{
			addRoutes(snapshots, []route{
				{
					Method:  http.MethodPost,
					Path:    "/refresh",
					Handler: h.Calendar.RefreshSnapshot,
					Mw:      []gin.HandlerFunc{authMiddleware.RequireRoleAtLeast(shared.RoleAdmin)},
				},
			})
		}
	}
}

// @Summary Health check
// @Description Check if the service is healthy
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Service is healthy",
	})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		h := r.Handler
		if len(r.Mw) > 0 {
			h = chainHandlers(append(r.Mw, r.Handler)...)
		}
		switch r.Method {
		case http.MethodGet:
			g.GET(r.Path, h)
		case http.MethodPost:
			g.POST(r.Path, h)
		case http.MethodPut:
			g.PUT(r.Path, h)
		case http.MethodPatch:
			g.PATCH(r.Path, h)
		case http.MethodDelete:
			g.DELETE(r.Path, h)
		default:
			g.Any(r.Path, h)
		}
	}
}

func chainHandlers(hs ...gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range hs {
			h(c)
			if c.IsAborted() {
				return
			}
		}
	}
}
