package ports

import (
	"context"
	"time"

	"github.com/layer-3/scorer/core"
)

// TokenStore interface for token invalidation
type TokenStore interface {
	InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error
	IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error)
}

// NonceStore issues single-use nonces and consumes them atomically
type NonceStore interface {
	// Issue stores a fresh random nonce that expires after ttl
	Issue(ctx context.Context, ttl time.Duration) (core.Nonce, error)

	// Valid reports whether value is known, unexpired and unconsumed
	Valid(ctx context.Context, value string) (bool, error)

	// Consume marks value as used. Exactly one concurrent caller succeeds;
	// the others get core.ErrInvalidNonce.
	Consume(ctx context.Context, value string) error
}
