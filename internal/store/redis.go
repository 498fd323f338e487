package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

var _ TokenStore = (*RedisStore)(nil)

const redisKeyPrefix = "connectd:token:"

// RedisStore persists token records as JSON values in Redis, one key per
// (user, provider) pair. Records have no TTL; revocation and logout manage
// their lifecycle explicitly.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a token store from a redis:// connection URL
func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return &RedisStore{client: redis.NewClient(opts)}, nil
}

func redisKey(userID, providerID string) string {
	return redisKeyPrefix + userID + ":" + providerID
}

// Get retrieves the record for a (user, provider) pair
func (s *RedisStore) Get(ctx context.Context, userID, providerID string) (*TokenRecord, error) {
	data, err := s.client.Get(ctx, redisKey(userID, providerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var record TokenRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decoding token record: %w", err)
	}
	return &record, nil
}

// Put stores or replaces the record for a (user, provider) pair
func (s *RedisStore) Put(ctx context.Context, userID, providerID string, record *TokenRecord) error {
	if record == nil {
		return fmt.Errorf("record cannot be nil")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding token record: %w", err)
	}

	if err := s.client.Set(ctx, redisKey(userID, providerID), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes the record for a (user, provider) pair
func (s *RedisStore) Delete(ctx context.Context, userID, providerID string) error {
	if err := s.client.Del(ctx, redisKey(userID, providerID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// ListProviders returns all providers for which a user has a stored record
func (s *RedisStore) ListProviders(ctx context.Context, userID string) ([]string, error) {
	prefix := redisKeyPrefix + userID + ":"

	var providers []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		providers = append(providers, strings.TrimPrefix(iter.Val(), prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return providers, nil
}

// Close releases the underlying Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
