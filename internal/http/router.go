package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/smallbiznis/stravalink/internal/config"
	"github.com/smallbiznis/stravalink/internal/http/handler"
	httpmiddleware "github.com/smallbiznis/stravalink/internal/http/middleware"
)

// NewRouter wires Gin routes and middleware. The rate limiter guards only the
// linking endpoints; webhook routes stay unthrottled so Strava's delivery
// deadline is always met.
func NewRouter(cfg config.Config, logger *zap.Logger, linkHandler *handler.LinkHandler, webhookHandler *handler.WebhookHandler, rateLimiter *httpmiddleware.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(logger))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	strava := r.Group("/strava")
	{
		link := strava.Group("")
		if rateLimiter != nil {
			link.Use(rateLimiter.Handler())
		}
		link.GET("/authorize", linkHandler.Authorize)
		link.GET("/callback", linkHandler.Callback)

		strava.GET("/webhook", webhookHandler.Verify)
		strava.POST("/webhook", webhookHandler.Event)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
