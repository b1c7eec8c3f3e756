package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/scorer"
	"github.com/layer-3/scorer/core"
	"github.com/layer-3/scorer/service"
)

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
	logger      *slog.Logger
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService, logger *slog.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		logger:      logger,
	}
}

// Challenge issues a sign-in nonce
func (h *AuthHandlers) Challenge(c *gin.Context) {
	nonce, err := h.authService.CreateChallenge(c.Request.Context(), c.Query("address"))
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, scorer.ChallengeResponse{Nonce: nonce.Value})
}

// Verify exchanges a signed sign-in message for a session
func (h *AuthHandlers) Verify(c *gin.Context) {
	var req scorer.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBindError(c, err)
		return
	}

	access, refresh, err := h.authService.Verify(c.Request.Context(), req.Message, req.Signature)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, scorer.TokenPair{Access: access, Refresh: refresh})
}

// Refresh handles token refresh
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req scorer.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBindError(c, err)
		return
	}

	access, refresh, err := h.authService.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, scorer.TokenPair{Access: access, Refresh: refresh})
}

// Logout handles session logout
func (h *AuthHandlers) Logout(c *gin.Context) {
	var req scorer.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBindError(c, err)
		return
	}

	err := h.authService.Logout(c.Request.Context(), req.Refresh)
	// Even if expired, we'll consider logout successful
	if err != nil && !errors.Is(err, core.ErrTokenExpired) {
		abortWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// KeySetHandler serves the JWKS document of the session signing key
func KeySetHandler(keys interface{ JWKS() ([]byte, error) }, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := keys.JWKS()
		if err != nil {
			abortWithError(c, logger, err)
			return
		}
		c.Data(http.StatusOK, "application/json", doc)
	}
}
