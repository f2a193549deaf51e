package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"ideaflow/api/internal/util"
)

// RedisRevocations stores one key per revoked token id. Keys carry a TTL
// equal to the token's remaining lifetime, so Redis expires them on its own.
type RedisRevocations struct {
	client *redis.Client
	prefix string
	clock  util.Clock
}

// NewRedisRevocations connects to redisURL and checks the connection.
func NewRedisRevocations(redisURL string, clock util.Clock) (*RedisRevocations, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisRevocationsWithClient(client, clock), nil
}

func NewRedisRevocationsWithClient(client *redis.Client, clock util.Clock) *RedisRevocations {
	if clock == nil {
		clock = util.SystemClock{}
	}
	return &RedisRevocations{
		client: client,
		prefix: "revoked:",
		clock:  clock,
	}
}

func (r *RedisRevocations) key(jti string) string {
	return r.prefix + jti
}

func (r *RedisRevocations) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.clock.Now())
	if ttl <= 0 {
		// Already past expiry; token validation rejects it without us.
		return nil
	}
	value := strconv.FormatInt(expiresAt.Unix(), 10)
	if err := r.client.SetNX(ctx, r.key(jti), value, ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (r *RedisRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	_, err := r.client.Get(ctx, r.key(jti)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return true, nil
}

// Prune is a no-op; key TTLs do the work.
func (r *RedisRevocations) Prune(context.Context) (int64, error) {
	return 0, nil
}

func (r *RedisRevocations) Close() error {
	return r.client.Close()
}

func (r *RedisRevocations) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
