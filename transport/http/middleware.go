package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/scorer/core"
	"github.com/layer-3/scorer/service"
	"github.com/nrednav/cuid2"
)

const (
	headerRequestID = "X-Request-ID"
	headerAPIKey    = "X-API-Key"

	ctxRequestID   = "requestID"
	ctxUserAddress = "userAddress"
	ctxAccount     = "account"
)

// RequestID tags every request with an id, reusing the caller's when present
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = cuid2.Generate()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// AccessLog writes one line per request
func AccessLog(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"request_id", c.GetString(ctxRequestID),
		)
	}
}

// AuthMiddleware creates middleware that validates access tokens
func AuthMiddleware(authService *service.AuthService, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"), "Bearer")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		session, err := authService.ValidateAccessToken(c.Request.Context(), token)
		if err != nil {
			abortWithError(c, logger, err)
			return
		}

		// Set the user address in the context
		c.Set(ctxUserAddress, session.Address)

		c.Next()
	}
}

// APIKeyMiddleware resolves the API key of registry calls to its account.
// The key is read from "Authorization: Token <key>", "Authorization: Bearer
// <key>" or the X-API-Key header.
func APIKeyMiddleware(accounts *service.AccountService, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(headerAPIKey)
		if key == "" {
			auth := c.GetHeader("Authorization")
			if k, ok := bearerToken(auth, "Token"); ok {
				key = k
			} else if k, ok := bearerToken(auth, "Bearer"); ok {
				key = k
			}
		}
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing api key"})
			return
		}

		account, err := accounts.AccountForAPIKey(c.Request.Context(), key)
		if err != nil {
			abortWithError(c, logger, err)
			return
		}

		c.Set(ctxAccount, account)
		c.Next()
	}
}

func bearerToken(header, scheme string) (string, bool) {
	prefix := scheme + " "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

func accountFrom(c *gin.Context) *core.Account {
	account, _ := c.MustGet(ctxAccount).(*core.Account)
	return account
}
