package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ariefcatur/go-realtime-points/internal/apperr"
	"github.com/ariefcatur/go-realtime-points/internal/redisx"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Sessions maps opaque tokens to account ids.
type Sessions interface {
	Create(ctx context.Context, accountID int64) (string, error)
	Lookup(ctx context.Context, token string) (int64, error)
	Delete(ctx context.Context, token string) error
}

// RedisSessions keeps session:{token} -> account id with a fixed TTL.
type RedisSessions struct {
	RDB redis.Cmdable
	TTL time.Duration
}

func (s *RedisSessions) Create(ctx context.Context, accountID int64) (string, error) {
	token := uuid.NewString()
	if err := s.RDB.Set(ctx, key(token), strconv.FormatInt(accountID, 10), s.TTL).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

func (s *RedisSessions) Lookup(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, apperr.Unauthenticated("Not authenticated")
	}
	v, err := s.RDB.Get(ctx, key(token)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, apperr.Unauthenticated("Not authenticated")
	}
	if err != nil {
		return 0, fmt.Errorf("load session: %w", err)
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, apperr.Unauthenticated("Not authenticated")
	}
	return id, nil
}

func (s *RedisSessions) Delete(ctx context.Context, token string) error {
	return s.RDB.Del(ctx, key(token)).Err()
}

func key(token string) string { return fmt.Sprintf(redisx.KeySession, token) }
