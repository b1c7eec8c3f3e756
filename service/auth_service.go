package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/scorer/core"
	"github.com/layer-3/scorer/internal/eth"
	"github.com/layer-3/scorer/ports"
)

// AuthConfig holds the lifetimes used by AuthService. Zero values fall
// back to the defaults.
type AuthConfig struct {
	ChallengeTTL time.Duration
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
}

// AuthService handles authentication business logic
type AuthService struct {
	tokenizer ports.Tokenizer
	store     ports.TokenStore
	nonces    ports.NonceStore
	verifier  *Verifier
	accounts  ports.AccountRepository
	logger    *slog.Logger

	challengeTTL time.Duration
	accessTTL    time.Duration
	refreshTTL   time.Duration
}

// NewAuthService creates a new authentication service
func NewAuthService(
	tokenizer ports.Tokenizer,
	store ports.TokenStore,
	nonces ports.NonceStore,
	verifier *Verifier,
	accounts ports.AccountRepository,
	cfg AuthConfig,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s := &AuthService{
		tokenizer:    tokenizer,
		store:        store,
		nonces:       nonces,
		verifier:     verifier,
		accounts:     accounts,
		logger:       logger.With("component", "auth"),
		challengeTTL: 5 * time.Minute,
		accessTTL:    5 * time.Minute,
		refreshTTL:   5 * 24 * time.Hour, // 5 days
	}
	if cfg.ChallengeTTL > 0 {
		s.challengeTTL = cfg.ChallengeTTL
	}
	if cfg.AccessTTL > 0 {
		s.accessTTL = cfg.AccessTTL
	}
	if cfg.RefreshTTL > 0 {
		s.refreshTTL = cfg.RefreshTTL
	}
	return s
}

// CreateChallenge issues a sign-in nonce. The address is optional and only
// validated; nonces are not bound to an address until they are signed.
func (s *AuthService) CreateChallenge(ctx context.Context, address string) (core.Nonce, error) {
	if address != "" {
		if _, err := eth.NormalizeAddress(address); err != nil {
			return core.Nonce{}, fmt.Errorf("%w: %v", core.ErrInvalidAddress, err)
		}
	}

	nonce, err := s.nonces.Issue(ctx, s.challengeTTL)
	if err != nil {
		return core.Nonce{}, fmt.Errorf("failed to issue nonce: %w", err)
	}
	return nonce, nil
}

// Verify authenticates a signed sign-in message, creating the account on
// first use, and returns a new access and refresh token pair.
func (s *AuthService) Verify(ctx context.Context, msg eth.SignInMessage, signature string) (string, string, error) {
	address, err := s.verifier.VerifySignIn(ctx, msg, signature)
	if err != nil {
		s.logger.Debug("sign-in rejected", "address", msg.Address, "error", err)
		return "", "", err
	}

	account, err := s.accounts.EnsureAccount(ctx, address)
	if err != nil {
		return "", "", fmt.Errorf("failed to load account: %w", err)
	}

	s.logger.Info("signed in", "address", account.Address, "account_id", account.ID)
	return s.issueSession(account.Address)
}

// Refresh rotates the refresh token and issues new access and refresh tokens
func (s *AuthService) Refresh(ctx context.Context, refreshTokenStr string) (string, string, error) {
	// Parse and validate the refresh token
	session, err := s.tokenizer.RefreshTokenToSession(refreshTokenStr)
	if err != nil {
		return "", "", fmt.Errorf("invalid refresh token: %w", err)
	}

	// Check if the token has expired
	if time.Now().After(session.RefreshExpiry) {
		return "", "", core.ErrTokenExpired
	}

	// Check if the token has been invalidated
	invalidated, err := s.store.IsTokenInvalidated(ctx, session.RefreshID)
	if err != nil {
		return "", "", fmt.Errorf("failed to check token invalidation: %w", err)
	}

	if invalidated {
		return "", "", core.ErrTokenInvalidated
	}

	// Invalidate the old refresh token
	// We use the remaining time from the original token's expiry to set the TTL
	remainingTime := time.Until(session.RefreshExpiry)
	if err := s.store.InvalidateToken(ctx, session.RefreshID, remainingTime); err != nil {
		return "", "", fmt.Errorf("failed to invalidate old token: %w", err)
	}

	return s.issueSession(session.Address)
}

// Logout invalidates a refresh token and every access token bound to it
func (s *AuthService) Logout(ctx context.Context, refreshTokenStr string) error {
	// Parse the refresh token
	session, err := s.tokenizer.RefreshTokenToSession(refreshTokenStr)
	if err != nil {
		return fmt.Errorf("invalid refresh token: %w", err)
	}

	// Expired tokens are still recorded for a short while so clock drift
	// between instances cannot revive them
	remainingTime := time.Hour
	if time.Now().Before(session.RefreshExpiry) {
		remainingTime = time.Until(session.RefreshExpiry)
	}

	// Invalidate the refresh token
	if err := s.store.InvalidateToken(ctx, session.RefreshID, remainingTime); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	s.logger.Info("logged out", "address", session.Address, "refresh_id", session.RefreshID)
	return nil
}

func (s *AuthService) ValidateAccessToken(ctx context.Context, accessToken string) (*core.Session, error) {
	// Parse and validate the access token
	session, err := s.tokenizer.AccessTokenToSession(accessToken)
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}

	// Check if the token has expired
	if time.Now().After(session.AccessExpiry) {
		return nil, core.ErrTokenExpired
	}

	// Access tokens die with the refresh token they were issued alongside
	if session.RefreshID != "" {
		invalidated, err := s.store.IsTokenInvalidated(ctx, session.RefreshID)
		if err != nil {
			return nil, fmt.Errorf("failed to check token invalidation: %w", err)
		}

		if invalidated {
			return nil, core.ErrTokenInvalidated
		}
	}

	return session, nil
}

func (s *AuthService) issueSession(address string) (string, string, error) {
	now := time.Now()
	session := &core.Session{
		ID:            uuid.New().String(),
		Address:       address,
		IssuedAt:      now,
		RefreshExpiry: now.Add(s.refreshTTL),
		AccessExpiry:  now.Add(s.accessTTL),
		RefreshID:     uuid.New().String(),
	}

	// Generate tokens
	accessToken, err := s.tokenizer.SessionToAccessToken(session)
	if err != nil {
		return "", "", fmt.Errorf("failed to create access token: %w", err)
	}

	refreshToken, err := s.tokenizer.SessionToRefreshToken(session)
	if err != nil {
		return "", "", fmt.Errorf("failed to create refresh token: %w", err)
	}

	return accessToken, refreshToken, nil
}
