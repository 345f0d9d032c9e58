// Package cache holds the Redis-backed stores: request rate limiting and
// single-use password reset tokens.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/labang-online/portal/internal/config"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "labang:"

// NewRedisClient creates a Redis client and verifies the connection.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// ErrTokenUsed is returned when a reset token was already consumed or never stored.
var ErrTokenUsed = errors.New("reset token already used or unknown")

// ResetTokenStore remembers issued password reset token IDs so each token is
// accepted exactly once.
type ResetTokenStore struct {
	client *redis.Client
}

// NewResetTokenStore creates a store on client.
func NewResetTokenStore(client *redis.Client) *ResetTokenStore {
	return &ResetTokenStore{client: client}
}

func resetKey(jti string) string {
	return keyPrefix + "reset:" + jti
}

// Remember records a token ID for accountID until ttl elapses.
func (s *ResetTokenStore) Remember(ctx context.Context, jti string, accountID int64, ttl time.Duration) error {
	if err := s.client.Set(ctx, resetKey(jti), accountID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	return nil
}

// Consume atomically deletes the token ID and returns the account it was issued to.
func (s *ResetTokenStore) Consume(ctx context.Context, jti string) (int64, error) {
	val, err := s.client.GetDel(ctx, resetKey(jti)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrTokenUsed
	}
	if err != nil {
		return 0, fmt.Errorf("failed to consume reset token: %w", err)
	}

	accountID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt reset token entry: %w", err)
	}
	return accountID, nil
}
