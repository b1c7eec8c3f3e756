package http

import (
	"io"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/scorer/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig holds everything the HTTP API serves
type RouterConfig struct {
	Auth      *service.AuthService
	Passports *service.PassportService
	Accounts  *service.AccountService

	// Keys publishes the session verification key. Nil disables the JWKS route.
	Keys interface{ JWKS() ([]byte, error) }

	// Gatherer is exposed on /metrics when set
	Gatherer prometheus.Gatherer

	Logger *slog.Logger
}

// SetupRouter sets up the Gin router. Request bodies are only strict about
// unknown fields when binding.EnableDecoderDisallowUnknownFields is set.
func SetupRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	logger = logger.With("component", "http")

	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), AccessLog(logger))

	// Create handlers
	auth := NewAuthHandlers(cfg.Auth, logger)
	registry := NewRegistryHandlers(cfg.Passports, logger)
	accounts := NewAccountHandlers(cfg.Accounts, logger)

	// Auth routes
	router.GET("/challenge", auth.Challenge)
	router.POST("/verify", auth.Verify)
	router.POST("/refresh", auth.Refresh)
	router.POST("/logout", auth.Logout)
	router.GET("/signing-message", registry.SigningMessage)

	if cfg.Keys != nil {
		router.GET("/.well-known/jwks.json", KeySetHandler(cfg.Keys, logger))
	}
	if cfg.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	// Registry routes, authorized by API key
	api := router.Group("/")
	api.Use(APIKeyMiddleware(cfg.Accounts, logger))
	{
		api.POST("/submit-passport", registry.SubmitPassport)
		api.GET("/score/:community/:address", registry.GetScore)
	}

	// Developer routes, authorized by access token
	account := router.Group("/account")
	account.Use(AuthMiddleware(cfg.Auth, logger))
	{
		account.GET("/me", accounts.Me)
		account.GET("/communities", accounts.ListCommunities)
		account.POST("/communities", accounts.CreateCommunity)
		account.POST("/api-keys", accounts.CreateAPIKey)
	}

	return router
}
