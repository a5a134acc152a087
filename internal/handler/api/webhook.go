package api

import (
	"context"
	"log/slog"
	"net/http"

	resdto "calendar-assistant/internal/handler/dto/response"
	"calendar-assistant/internal/handler/httperr"
	"calendar-assistant/internal/infra/bitrix24"
	"calendar-assistant/internal/pkg/config"

	"github.com/gin-gonic/gin"
)

// RemoteChangeApplier drops cached calendar state touched by a CRM event.
type RemoteChangeApplier interface {
	ApplyRemoteChange(ctx context.Context, eventID string) (int, error)
}

type WebhookHandler struct {
	store            RemoteChangeApplier
	applicationToken string
	logger           *slog.Logger
}

func NewWebhookHandler(store RemoteChangeApplier, cfg config.Config, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		store:            store,
		applicationToken: cfg.Bitrix24.ApplicationToken,
		logger:           logger.With(slog.String("component", "bitrix24_webhook")),
	}
}

// @Summary Bitrix24 event handler
// @Description Receives ONCALENDARENTRY* notifications and invalidates affected snapshots
// @Tags webhooks
// @Accept x-www-form-urlencoded
// @Produce json
// @Success 200 {object} resdto.WebhookResponse
// @Failure 403 {object} httperr.Response
// @Failure 422 {object} httperr.Response
// @Router /webhooks/bitrix24 [post]
func (h *WebhookHandler) Receive(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid form body", nil)
		return
	}

	ev, err := bitrix24.ParseWebhook(c.Request.PostForm)
	if err != nil {
		httperr.Abort(c, err, nil)
		return
	}
	if err := bitrix24.VerifyToken(h.applicationToken, ev); err != nil {
		h.logger.Warn("webhook rejected", slog.String("event", ev.Type), slog.String("domain", ev.Domain))
		httperr.Abort(c, err, nil)
		return
	}

	if !ev.IsCalendar() {
		c.JSON(http.StatusOK, resdto.WebhookResponse{Event: ev.Type})
		return
	}

	dropped, err := h.store.ApplyRemoteChange(c.Request.Context(), ev.EventID)
	if err != nil {
		// snapshots holding the event are already gone; participants'
		// snapshots expire on their own
		h.logger.Warn("remote change lookup failed",
			slog.String("event", ev.Type),
			slog.String("event_id", ev.EventID),
			slog.Any("error", err))
	}
	h.logger.Info("calendar change received",
		slog.String("event", ev.Type),
		slog.String("event_id", ev.EventID),
		slog.Int("dropped", dropped))
	c.JSON(http.StatusOK, resdto.WebhookResponse{Event: ev.Type, Dropped: dropped})
}
