package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/scorer/core"
	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis implementation of the TokenStore and NonceStore interfaces
type RedisStore struct {
	client      *redis.Client
	prefix      string
	noncePrefix string
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client:      client,
		prefix:      "scorer:invalidated:",
		noncePrefix: "scorer:nonce:",
	}
}

// InvalidateToken marks a token as invalidated in Redis
func (s *RedisStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	key := s.prefix + tokenID

	// Set key with expiration
	if err := s.client.Set(ctx, key, "1", expiry).Err(); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	return nil
}

// IsTokenInvalidated checks if a token is invalidated in Redis
func (s *RedisStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	key := s.prefix + tokenID

	// Check if key exists
	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token invalidation: %w", err)
	}

	return val > 0, nil
}

// Issue stores a nonce whose key expires with the nonce
func (s *RedisStore) Issue(ctx context.Context, ttl time.Duration) (core.Nonce, error) {
	value, err := NewNonceValue()
	if err != nil {
		return core.Nonce{}, err
	}

	now := time.Now()
	ok, err := s.client.SetNX(ctx, s.noncePrefix+value, now.Unix(), ttl).Result()
	if err != nil {
		return core.Nonce{}, fmt.Errorf("failed to store nonce: %w", err)
	}
	if !ok {
		return core.Nonce{}, fmt.Errorf("nonce collision")
	}

	return core.Nonce{
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// Valid reports whether the nonce key still exists
func (s *RedisStore) Valid(ctx context.Context, value string) (bool, error) {
	n, err := s.client.Exists(ctx, s.noncePrefix+value).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check nonce: %w", err)
	}
	return n > 0, nil
}

// Consume deletes the nonce with GETDEL so only one caller observes it
func (s *RedisStore) Consume(ctx context.Context, value string) error {
	err := s.client.GetDel(ctx, s.noncePrefix+value).Err()
	if errors.Is(err, redis.Nil) {
		return core.ErrInvalidNonce
	}
	if err != nil {
		return fmt.Errorf("failed to consume nonce: %w", err)
	}
	return nil
}
