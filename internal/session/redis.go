package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix     = "session:"
	redisUserKeyPrefix = "user_session:"
)

// redisBackend keeps the session pointer in Redis with a fixed TTL, plus a
// reverse key per user so sessions can be revoked when only the user is known.
type redisBackend struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBackend returns a Backend backed by Redis. Sessions expire after ttl.
func NewRedisBackend(client *redis.Client, ttl time.Duration) Backend {
	if ttl == 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &redisBackend{client: client, ttl: ttl}
}

func (b *redisBackend) Create(ctx context.Context, sessionID, userID string) error {
	// At most one session per user: drop any session the user already holds.
	if old, err := b.client.Get(ctx, redisUserKeyPrefix+userID).Result(); err == nil && old != sessionID {
		if err := b.client.Del(ctx, redisKeyPrefix+old).Err(); err != nil {
			return fmt.Errorf("failed to drop previous session: %w", err)
		}
	} else if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to read user session: %w", err)
	}

	if err := b.client.Set(ctx, redisKeyPrefix+sessionID, userID, b.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	if err := b.client.Set(ctx, redisUserKeyPrefix+userID, sessionID, b.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store user session: %w", err)
	}
	return nil
}

func (b *redisBackend) Read(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrNotFound
	}

	userID, err := b.client.Get(ctx, redisKeyPrefix+sessionID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read session: %w", err)
	}

	return userID, nil
}

func (b *redisBackend) Update(ctx context.Context, sessionID, userID string) error {
	return b.Create(ctx, sessionID, userID)
}

func (b *redisBackend) Delete(ctx context.Context, sessionID string) error {
	userID, err := b.client.Get(ctx, redisKeyPrefix+sessionID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to read session: %w", err)
	}

	if err := b.client.Del(ctx, redisKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if userID != "" {
		if err := b.client.Del(ctx, redisUserKeyPrefix+userID).Err(); err != nil {
			return fmt.Errorf("failed to delete user session: %w", err)
		}
	}
	return nil
}

func (b *redisBackend) DeleteForUser(ctx context.Context, userID string) error {
	sessionID, err := b.client.Get(ctx, redisUserKeyPrefix+userID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("failed to read user session: %w", err)
	}

	if err := b.client.Del(ctx, redisKeyPrefix+sessionID, redisUserKeyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("failed to delete user session: %w", err)
	}
	return nil
}
