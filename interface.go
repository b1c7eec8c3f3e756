package scorer

import (
	"context"
)

// Client is the public interface of the scorer HTTP API
type Client interface {
	// Challenge returns a sign-in nonce. The address is optional.
	Challenge(ctx context.Context, address string) (string, error)

	// Verify exchanges a signed sign-in message for a session
	Verify(ctx context.Context, msg SignInMessage, signature string) (TokenPair, error)

	// Refresh rotates the refresh token and returns new tokens
	Refresh(ctx context.Context, refresh string) (TokenPair, error)

	// Logout invalidates the refresh token and the access tokens bound to it
	Logout(ctx context.Context, refresh string) error

	// SigningMessage returns the text a holder signs to submit a passport
	SigningMessage(ctx context.Context) (SigningMessageResponse, error)

	SubmitPassport(ctx context.Context, apiKey string, req SubmitPassportRequest) (*ScoreResponse, error)
	GetScore(ctx context.Context, apiKey string, community uint, address string) (*ScoreResponse, error)

	CreateCommunity(ctx context.Context, accessToken string, req CommunityRequest) (*CommunityResponse, error)
	CreateAPIKey(ctx context.Context, accessToken, name string) (*APIKeyResponse, error)
}
