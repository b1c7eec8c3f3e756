package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/scorer/core"
)

func statusFor(err error) int {
	switch {
	case core.IsAuthError(err),
		errors.Is(err, core.ErrTokenExpired),
		errors.Is(err, core.ErrTokenInvalidated),
		errors.Is(err, core.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrInvalidAddress),
		errors.Is(err, core.ErrInvalidInput),
		errors.Is(err, core.ErrInvalidRuleset):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrUnknownCommunity),
		errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError maps err to a status code and writes {"error": msg}.
// Internal errors are logged and not echoed to the caller.
func abortWithError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			"path", c.Request.URL.Path,
			"request_id", c.GetString(ctxRequestID),
			"error", err,
		)
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func abortWithBindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
}
