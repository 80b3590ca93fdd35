package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store using Redis.
type RedisStore struct {
	client    *redis.Client
	prefix    string
	opTimeout time.Duration
}

// NewRedisStore creates a Redis-backed store and pings it once.
func NewRedisStore(opts ...RedisOption) (*RedisStore, error) {
	cfg := &RedisConfig{
		Host:         "localhost",
		Port:         6379,
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 5,
		Prefix:       "semaforo",
		OpTimeout:    5 * time.Second,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.OpTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisStore{
		client:    client,
		prefix:    cfg.Prefix,
		opTimeout: cfg.OpTimeout,
	}, nil
}

// Client returns the underlying redis client.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.client.Set(ctx, s.wrapKey(key), data, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string, dest interface{}) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	data, err := s.client.Get(ctx, s.wrapKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return err
	}
	return json.Unmarshal(data, dest)
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.client.Unlink(ctx, s.wrapKeys(keys...)...).Err()
}

func (s *RedisStore) Exists(ctx context.Context, keys ...string) (bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	n, err := s.client.Exists(ctx, s.wrapKeys(keys...)...).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.client.Expire(ctx, s.wrapKey(key), ttl).Result()
}

func (s *RedisStore) AddMember(ctx context.Context, set, member string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.client.SAdd(ctx, s.wrapKey(set), member).Err()
}

func (s *RedisStore) RemoveMember(ctx context.Context, set, member string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.client.SRem(ctx, s.wrapKey(set), member).Err()
}

func (s *RedisStore) Members(ctx context.Context, set string) ([]string, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.client.SMembers(ctx, s.wrapKey(set)).Result()
}

func (s *RedisStore) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.client.SetNX(ctx, s.wrapKey(key), "locked", ttl).Result()
}

func (s *RedisStore) Unlock(ctx context.Context, key string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.client.Del(ctx, s.wrapKey(key)).Err()
}

func (s *RedisStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}

func (s *RedisStore) wrapKey(key string) string {
	return fmt.Sprintf("%s:%s", s.prefix, key)
}

func (s *RedisStore) wrapKeys(keys ...string) []string {
	wrapped := make([]string, len(keys))
	for i, key := range keys {
		wrapped[i] = s.wrapKey(key)
	}
	return wrapped
}
