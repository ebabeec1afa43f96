package kv

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "storefront"

// RedisStore implements Store with one Redis string per (scope, namespace).
// A positive ttl gives every key a sliding expiry refreshed on write.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to the Redis server at url ("redis://host:6379/0").
// PRE: url parses as a Redis URL
// POST: the server answered PING
func NewRedisStore(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func redisKey(scope, namespace string) string {
	return keyPrefix + ":" + scope + ":" + namespace
}

func (s *RedisStore) Put(ctx context.Context, scope, namespace string, value []byte) error {
	if err := s.client.Set(ctx, redisKey(scope, namespace), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("put %s: %w", namespace, err)
	}
	return nil
}

// scopeKeys walks the keyspace with SCAN; scopes are hex digests so the
// pattern never contains glob metacharacters.
func (s *RedisStore) scopeKeys(ctx context.Context, scope string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, redisKey(scope, "*"), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan scope: %w", err)
	}
	return keys, nil
}

func (s *RedisStore) List(ctx context.Context, scope string) (map[string][]byte, error) {
	keys, err := s.scopeKeys(ctx, scope)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget scope: %w", err)
	}
	prefix := redisKey(scope, "")
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			continue // expired between SCAN and MGET
		}
		out[strings.TrimPrefix(keys[i], prefix)] = []byte(str)
	}
	return out, nil
}

func (s *RedisStore) DeleteScope(ctx context.Context, scope string) error {
	keys, err := s.scopeKeys(ctx, scope)
	if err != nil || len(keys) == 0 {
		return err
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete scope: %w", err)
	}
	return nil
}

// Ping reports whether the server is reachable; used by /healthz.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
