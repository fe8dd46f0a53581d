package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ingaz2013/sari-sub001/internal/http/middleware"
	"github.com/ingaz2013/sari-sub001/internal/observability"
	"github.com/ingaz2013/sari-sub001/internal/services"
	"github.com/ingaz2013/sari-sub001/internal/webhook"
)

// WebhookResponse acknowledges a webhook delivery. The provider retries
// anything that is not a 2xx.
type WebhookResponse struct {
	Received bool   `json:"received" example:"true"`
	Success  bool   `json:"success"  example:"true"`
	Status   string `json:"status"   example:"processed"`
	Message  string `json:"message,omitempty" example:"message processed"`
}

var outcomeMessages = map[services.Outcome]string{
	services.OutcomeProcessed:     "message processed",
	services.OutcomeIgnored:       "event ignored",
	services.OutcomeDuplicate:     "already processed",
	services.OutcomeUnprocessable: "payload ignored",
}

// GreenAPIWebhook godoc
// @ID          greenAPIWebhook
// @Summary     Receive a Green API notification
// @Description Processes an incoming WhatsApp message. Malformed payloads, non-message events and group chats are acknowledged without processing.
// @Tags        Webhooks
// @Accept      json
// @Produce     json
// @Security    WebhookToken
// @Param       body  body     object  true  "Green API webhook payload"
// @Success     200   {object} handlers.WebhookResponse
// @Failure     401   {object} handlers.ErrorResponse "Missing or wrong webhook token"
// @Failure     404   {object} handlers.WebhookResponse "No merchant owns the receiving number"
// @Failure     500   {object} handlers.WebhookResponse "Storage failure; the provider should redeliver"
// @Router      /webhooks/greenapi [post]
func (h *Handlers) GreenAPIWebhook(c *gin.Context) {
	lg := middleware.LoggerFrom(c)
	body, err := c.GetRawData()
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable body")
		return
	}

	ev, err := webhook.Decode(body)
	if err != nil {
		observability.WebhookOutcomes.WithLabelValues(string(services.OutcomeUnprocessable)).Inc()
		lg.Warn().Err(err).Msg("unprocessable webhook")
		ok(c, http.StatusOK, acknowledge(services.OutcomeUnprocessable))
		return
	}

	// A client hang-up must not stop an event between the platform order and its local row.
	out, err := h.svc.Pipeline.Handle(context.WithoutCancel(c.Request.Context()), ev)
	switch {
	case errors.Is(err, services.ErrUnknownConnection):
		lg.Warn().Str("instance_id", ev.InstanceID).Msg("webhook for unknown connection")
		ok(c, http.StatusNotFound, WebhookResponse{Received: true, Status: "unknown_connection", Message: "no merchant owns this number"})
	case err != nil:
		lg.Error().Err(err).Str("message_id", ev.MessageID).Msg("webhook processing failed")
		ok(c, http.StatusInternalServerError, WebhookResponse{Received: true, Status: "error", Message: "processing failed"})
	default:
		ok(c, http.StatusOK, acknowledge(out))
	}
}

func acknowledge(out services.Outcome) WebhookResponse {
	return WebhookResponse{Received: true, Success: true, Status: string(out), Message: outcomeMessages[out]}
}
