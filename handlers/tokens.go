package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrRefreshTokenNotFound is returned for unknown or revoked refresh
// tokens.
var ErrRefreshTokenNotFound = errors.New("refresh token not found")

// RefreshStore keeps issued refresh tokens until they expire or are
// revoked at logout.
type RefreshStore interface {
	Save(ctx context.Context, token string, userID uint, ttl time.Duration) error
	Lookup(ctx context.Context, token string) (uint, error)
	Delete(ctx context.Context, token string) error
}

// NewRefreshToken generates an opaque random token.
func NewRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

type redisRefreshStore struct {
	rdb *redis.Client
}

// NewRedisRefreshStore stores refresh tokens in Redis keyed by token,
// expiring with the token's TTL.
func NewRedisRefreshStore(rdb *redis.Client) RefreshStore {
	return &redisRefreshStore{rdb: rdb}
}

func (s *redisRefreshStore) key(token string) string {
	return fmt.Sprintf("refresh:%s", token)
}

func (s *redisRefreshStore) Save(ctx context.Context, token string, userID uint, ttl time.Duration) error {
	return s.rdb.Set(ctx, s.key(token), uint64(userID), ttl).Err()
}

func (s *redisRefreshStore) Lookup(ctx context.Context, token string) (uint, error) {
	id, err := s.rdb.Get(ctx, s.key(token)).Uint64()
	if err == redis.Nil {
		return 0, ErrRefreshTokenNotFound
	}
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

func (s *redisRefreshStore) Delete(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, s.key(token)).Err()
}
