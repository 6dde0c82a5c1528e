package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"
)

const RefreshTokenTTL = 7 * 24 * time.Hour

var ErrRefreshTokenNotFound = errors.New("refresh token not found")

// RefreshStore keeps refresh tokens keyed by a hash of the token.
type RefreshStore interface {
	Save(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error
	// Take returns the owner and removes the token in one step.
	Take(ctx context.Context, token string) (uuid.UUID, error)
	Delete(ctx context.Context, token string) error
}

type RedisRefreshStore struct {
	client *redis.Client
}

func NewRedisRefreshStore(client *redis.Client) *RedisRefreshStore {
	return &RedisRefreshStore{client: client}
}

// refreshKey hashes the token so raw tokens never sit in redis.
func refreshKey(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return "refresh:" + hex.EncodeToString(sum[:])
}

func (s *RedisRefreshStore) Save(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error {
	if err := s.client.Set(ctx, refreshKey(token), userID.String(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	return nil
}

func (s *RedisRefreshStore) Take(ctx context.Context, token string) (uuid.UUID, error) {
	val, err := s.client.GetDel(ctx, refreshKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, ErrRefreshTokenNotFound
	}
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user ID in refresh token: %w", err)
	}
	return id, nil
}

func (s *RedisRefreshStore) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, refreshKey(token)).Err()
}
