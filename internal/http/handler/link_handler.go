package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smallbiznis/stravalink/internal/domain"
	"github.com/smallbiznis/stravalink/internal/service"
)

// LinkHandler serves the account-linking endpoints.
type LinkHandler struct {
	Link   *service.LinkService
	Logger *zap.Logger
}

func NewLinkHandler(link *service.LinkService, logger *zap.Logger) *LinkHandler {
	if logger == nil {
		logger = zap.L()
	}
	return &LinkHandler{Link: link, Logger: logger}
}

// Authorize redirects the caller to the Strava consent screen with a signed
// state token bound to their chat identity.
func (h *LinkHandler) Authorize(c *gin.Context) {
	ownerID := strings.TrimSpace(c.Query("user_id"))
	if ownerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "user_id is required.",
		})
		return
	}

	authURL, err := h.Link.AuthorizeURL(ownerID)
	if err != nil {
		h.respondLinkError(c, err)
		return
	}

	c.Redirect(http.StatusFound, authURL)
}

// Callback completes the handshake: verifies state, exchanges the code, and
// stores the credential.
func (h *LinkHandler) Callback(c *gin.Context) {
	code := strings.TrimSpace(c.Query("code"))
	signedState := strings.TrimSpace(c.Query("state"))
	if code == "" || signedState == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "code and state are required.",
		})
		return
	}

	cred, err := h.Link.HandleCallback(c.Request.Context(), code, signedState)
	if err != nil {
		h.respondLinkError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "linked",
		"athlete_id": cred.AthleteID,
	})
}

// respondLinkError maps trust violations and malformed input to 400 and
// everything else to an opaque 500. Configuration errors never say which
// value is missing.
func (h *LinkHandler) respondLinkError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidState):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "Invalid state.",
		})
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "Missing or malformed parameters.",
		})
	case errors.Is(err, domain.ErrConfigMissing):
		h.Logger.Error("linking misconfigured", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":             "server_error",
			"error_description": "Service is not configured.",
		})
	default:
		h.Logger.Error("link request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":             "server_error",
			"error_description": "Unexpected failure.",
		})
	}
}
