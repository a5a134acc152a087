package middleware

import (
	"log/slog"
	"slices"

	"calendar-assistant/internal/pkg/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewCORSMiddleware configures CORS for the assistant's web widget.
// Credentials are never combined with a wildcard origin.
func NewCORSMiddleware(cfg config.CORSConfig, logger *slog.Logger) gin.HandlerFunc {
	allowCredentials := cfg.AllowCredentials
	if allowCredentials && slices.Contains(cfg.AllowOrigins, "*") {
		logger.Warn("CORS credentials disabled because AllowOrigins contains a wildcard")
		allowCredentials = false
	}
	headers := cfg.AllowHeaders
	for _, h := range []string{"Authorization", "Idempotency-Key", RequestIDHeader} {
		if !slices.Contains(headers, h) {
			headers = append(headers, h)
		}
	}
	corsCfg := cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     cfg.AllowMethods,
		AllowHeaders:     headers,
		ExposeHeaders:    append(slices.Clone(cfg.ExposeHeaders), RequestIDHeader),
		AllowCredentials: allowCredentials,
		MaxAge:           cfg.MaxAge,
	}
	logger.Info("CORS middleware initialized", "AllowOrigins", cfg.AllowOrigins)
	return cors.New(corsCfg)
}
