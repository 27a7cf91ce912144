package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shopify-order-tracking/internal/domain"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "oauth:state:"

// RedisStore keeps OAuth sessions in Redis. Each state is readable exactly once.
type RedisStore struct {
	rdb     *redis.Client
	nowFunc func() time.Time
}

// NewRedisStore creates a session store on an existing client
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, nowFunc: time.Now}
}

func redisKey(state string) string {
	return keyPrefix + state
}

// CreateSession stores the session until its ExpiresAt
func (s *RedisStore) CreateSession(ctx context.Context, session *domain.Session) error {
	if session.State == "" {
		return fmt.Errorf("%w: session state is required", domain.ErrInvalidInput)
	}
	ttl := session.ExpiresAt.Sub(s.nowFunc())
	if ttl <= 0 {
		ttl = domain.SessionTTL
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.rdb.Set(ctx, redisKey(session.State), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// ConsumeSession reads and deletes the session atomically with GETDEL
func (s *RedisStore) ConsumeSession(ctx context.Context, state string) (*domain.Session, error) {
	data, err := s.rdb.GetDel(ctx, redisKey(state)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if session.Expired(s.nowFunc()) {
		return nil, nil
	}
	return &session, nil
}

// Ping checks the Redis connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
