package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"aria/internal/logging"
	"aria/internal/observability"
	"aria/internal/rtc"
)

// TokenHandler serves POST /api/token.
type TokenHandler struct {
	issuer  *rtc.Issuer
	metrics *observability.MetricsCollector
	logger  logging.Logger
}

// NewTokenHandler builds the token endpoint handler.
func NewTokenHandler(issuer *rtc.Issuer, metrics *observability.MetricsCollector) *TokenHandler {
	return &TokenHandler{
		issuer:  issuer,
		metrics: metrics,
		logger:  logging.NewComponentLogger("TokenHandler"),
	}
}

// Handle issues an access token. Failures are opaque to callers: a bare 500
// with no body, never error details. The configuration gate runs before any
// request data is touched.
func (h *TokenHandler) Handle(c *gin.Context) {
	ctx := c.Request.Context()

	if !h.issuer.Configured() {
		h.logger.Error("Token request rejected: issuer credentials are not configured")
		h.metrics.RecordTokenFailure(ctx, "config")
		c.Status(http.StatusInternalServerError)
		return
	}

	var req rtc.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("Token request body rejected: %v", err)
		h.metrics.RecordTokenFailure(ctx, "body")
		c.Status(http.StatusInternalServerError)
		return
	}

	result, err := h.issuer.Issue(req)
	if err != nil {
		h.logger.Error("Token issuance failed: %v", err)
		h.metrics.RecordTokenFailure(ctx, "issue")
		c.Status(http.StatusInternalServerError)
		return
	}

	h.metrics.RecordTokenIssued(ctx, req.AgentName != "")
	c.JSON(http.StatusOK, result)
}
