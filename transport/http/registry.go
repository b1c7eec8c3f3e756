package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/scorer"
	"github.com/layer-3/scorer/core"
	"github.com/layer-3/scorer/service"
)

// RegistryHandlers serve passport submission and score lookups for API key holders
type RegistryHandlers struct {
	passports *service.PassportService
	logger    *slog.Logger
}

func NewRegistryHandlers(passports *service.PassportService, logger *slog.Logger) *RegistryHandlers {
	return &RegistryHandlers{passports: passports, logger: logger}
}

// SigningMessage returns the submission text and the nonce embedded in it
func (h *RegistryHandlers) SigningMessage(c *gin.Context) {
	message, nonce, err := h.passports.SigningMessage(c.Request.Context())
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, scorer.SigningMessageResponse{Message: message, Nonce: nonce})
}

// SubmitPassport accepts a signed submission and answers with the
// PROCESSING placeholder; scoring completes asynchronously
func (h *RegistryHandlers) SubmitPassport(c *gin.Context) {
	var req scorer.SubmitPassportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithBindError(c, err)
		return
	}

	score, err := h.passports.Submit(
		c.Request.Context(),
		accountFrom(c),
		req.Community,
		req.Address,
		req.Signature,
		req.Nonce,
	)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, scorer.NewScoreResponse(score))
}

func (h *RegistryHandlers) GetScore(c *gin.Context) {
	communityID, err := strconv.ParseUint(c.Param("community"), 10, 0)
	if err != nil {
		abortWithError(c, h.logger, fmt.Errorf("%w: community must be a number", core.ErrInvalidInput))
		return
	}

	score, err := h.passports.GetScore(c.Request.Context(), accountFrom(c), uint(communityID), c.Param("address"))
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, scorer.NewScoreResponse(score))
}
