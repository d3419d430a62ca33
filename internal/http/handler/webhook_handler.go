package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smallbiznis/stravalink/internal/service"
)

const maxEventBody = 1 << 20

// WebhookHandler serves the subscription handshake and event intake.
type WebhookHandler struct {
	Webhook *service.WebhookService
	Logger  *zap.Logger
}

func NewWebhookHandler(webhook *service.WebhookService, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.L()
	}
	return &WebhookHandler{Webhook: webhook, Logger: logger}
}

// Verify answers the one-time subscription handshake. Token mismatch and
// malformed input get the same rejection.
func (h *WebhookHandler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	echoed, ok := h.Webhook.VerifyHandshake(mode, token, challenge)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "Verification failed.",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"hub.challenge": echoed})
}

// Event acknowledges structurally valid deliveries with 200 and hands them to
// the dispatcher on a detached goroutine. Dispatch outcome never changes the
// response: a non-2xx would only make Strava redeliver.
func (h *WebhookHandler) Event(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxEventBody))
	if err != nil {
		h.Logger.Warn("read webhook body failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "Unreadable payload.",
		})
		return
	}

	event, err := h.Webhook.ParseEvent(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "Invalid payload.",
		})
		return
	}

	h.Webhook.DispatchAsync(event)
	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}
