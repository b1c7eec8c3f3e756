package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/layer-3/scorer/core"
)

// MemoryStore is an in-memory implementation of the TokenStore and NonceStore
// interfaces. Expired entries are dropped lazily on access.
type MemoryStore struct {
	invalidatedTokens map[string]time.Time
	nonces            map[string]core.Nonce
	mu                sync.Mutex
	now               func() time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		invalidatedTokens: make(map[string]time.Time),
		nonces:            make(map[string]core.Nonce),
		now:               time.Now,
	}
}

// WithClock overrides the store's time source
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

// InvalidateToken marks a token as invalidated
func (s *MemoryStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.invalidatedTokens[tokenID] = s.now().Add(expiry)
	return nil
}

// IsTokenInvalidated checks if a token is invalidated
func (s *MemoryStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiryTime, exists := s.invalidatedTokens[tokenID]
	if !exists {
		return false, nil
	}

	if s.now().After(expiryTime) {
		delete(s.invalidatedTokens, tokenID)
		return false, nil
	}

	return true, nil
}

// Issue stores a new random nonce
func (s *MemoryStore) Issue(ctx context.Context, ttl time.Duration) (core.Nonce, error) {
	value, err := NewNonceValue()
	if err != nil {
		return core.Nonce{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneNonces(now)

	nonce := core.Nonce{
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	s.nonces[value] = nonce
	return nonce, nil
}

// Valid reports whether a nonce can still be consumed
func (s *MemoryStore) Valid(ctx context.Context, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nonce, ok := s.nonces[value]
	return ok && !nonce.Consumed && !nonce.Expired(s.now()), nil
}

// Consume flips the nonce to consumed under the store lock
func (s *MemoryStore) Consume(ctx context.Context, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nonce, ok := s.nonces[value]
	if !ok || nonce.Consumed || nonce.Expired(s.now()) {
		return core.ErrInvalidNonce
	}
	nonce.Consumed = true
	s.nonces[value] = nonce
	return nil
}

// pruneNonces drops expired nonces. Caller holds s.mu.
func (s *MemoryStore) pruneNonces(now time.Time) {
	for value, nonce := range s.nonces {
		if nonce.Expired(now) {
			delete(s.nonces, value)
		}
	}
}

// NewNonceValue returns 32 random bytes hex-encoded, alphanumeric as EIP-4361 requires
func NewNonceValue() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
