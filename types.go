package scorer

import (
	"encoding/json"
	"time"

	"github.com/layer-3/scorer/core"
	"github.com/layer-3/scorer/internal/eth"
)

// SignInMessage is an EIP-4361 sign-in message
type SignInMessage = eth.SignInMessage

type ChallengeResponse struct {
	Nonce string `json:"nonce"`
}

type VerifyRequest struct {
	Message   SignInMessage `json:"message"`
	Signature string        `json:"signature" binding:"required"`
}

// TokenPair is a session: a short-lived access token and the refresh token
// that renews it
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

type SigningMessageResponse struct {
	Message string `json:"message"`
	Nonce   string `json:"nonce"`
}

type SubmitPassportRequest struct {
	Community uint   `json:"community" binding:"required"`
	Address   string `json:"address" binding:"required"`
	Signature string `json:"signature" binding:"required"`
	Nonce     string `json:"nonce" binding:"required"`
}

// ScoreResponse is the wire form of a score. Score is a decimal string with
// 9 fractional digits, null until scoring is done.
type ScoreResponse struct {
	Address            string           `json:"address"`
	Score              *string          `json:"score"`
	Status             core.ScoreStatus `json:"status"`
	LastScoreTimestamp *time.Time       `json:"last_score_timestamp"`
	Evidence           json.RawMessage  `json:"evidence"`
	Error              *string          `json:"error"`
}

// NewScoreResponse converts a stored score to its wire form
func NewScoreResponse(s *core.Score) ScoreResponse {
	resp := ScoreResponse{
		Address:            s.Address,
		Status:             s.Status,
		LastScoreTimestamp: s.LastScoreTimestamp,
		Evidence:           s.Evidence,
		Error:              s.Error,
	}
	if s.Value.Valid {
		value := s.Value.Decimal.StringFixed(9)
		resp.Score = &value
	}
	return resp
}

type AccountResponse struct {
	Address string `json:"address"`
}

type CommunityRequest struct {
	Name        string        `json:"name" binding:"required"`
	Description string        `json:"description"`
	Ruleset     *core.Ruleset `json:"ruleset,omitempty"`
}

type CommunityResponse struct {
	ID          uint         `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Ruleset     core.Ruleset `json:"ruleset"`
	CreatedAt   time.Time    `json:"created_at"`
}

func NewCommunityResponse(c *core.Community) CommunityResponse {
	return CommunityResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Ruleset:     c.Ruleset,
		CreatedAt:   c.CreatedAt,
	}
}

type APIKeyRequest struct {
	Name string `json:"name" binding:"required"`
}

// APIKeyResponse carries the raw key. It is only ever returned once.
type APIKeyResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Prefix string `json:"prefix"`
	Key    string `json:"key"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
