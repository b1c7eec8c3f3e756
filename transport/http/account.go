package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/scorer"
	"github.com/layer-3/scorer/service"
)

// AccountHandlers serve the developer endpoints of a signed-in account
type AccountHandlers struct {
	accounts *service.AccountService
	logger   *slog.Logger
}

func NewAccountHandlers(accounts *service.AccountService, logger *slog.Logger) *AccountHandlers {
	return &AccountHandlers{accounts: accounts, logger: logger}
}

// Me returns information about the authenticated user
func (h *AccountHandlers) Me(c *gin.Context) {
	account, err := h.accounts.Me(c.Request.Context(), c.GetString(ctxUserAddress))
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, scorer.AccountResponse{Address: account.Address})
}

func (h *AccountHandlers) CreateCommunity(c *gin.Context) {
	var req scorer.CommunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBindError(c, err)
		return
	}

	community, err := h.accounts.CreateCommunity(
		c.Request.Context(),
		c.GetString(ctxUserAddress),
		req.Name,
		req.Description,
		req.Ruleset,
	)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, scorer.NewCommunityResponse(community))
}

func (h *AccountHandlers) ListCommunities(c *gin.Context) {
	communities, err := h.accounts.ListCommunities(c.Request.Context(), c.GetString(ctxUserAddress))
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}

	resp := make([]scorer.CommunityResponse, 0, len(communities))
	for i := range communities {
		resp = append(resp, scorer.NewCommunityResponse(&communities[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// CreateAPIKey returns the raw key once; only its hash is kept
func (h *AccountHandlers) CreateAPIKey(c *gin.Context) {
	var req scorer.APIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBindError(c, err)
		return
	}

	key, secret, err := h.accounts.CreateAPIKey(c.Request.Context(), c.GetString(ctxUserAddress), req.Name)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, scorer.APIKeyResponse{
		ID:     key.ID,
		Name:   key.Name,
		Prefix: key.Prefix,
		Key:    secret,
	})
}
