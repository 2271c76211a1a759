package activestate

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the active path in a single Redis key so several gateway
// processes share it.
type RedisStore struct {
	Client *redis.Client
	Key    string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "privgate:"
	}
	return &RedisStore{Client: client, Key: prefix + "active:" + Key}
}

func (s *RedisStore) Get(ctx context.Context) (string, bool, error) {
	v, err := s.Client.Get(ctx, s.Key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if v == "" {
		return "", false, nil
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, path string) error {
	return s.Client.Set(ctx, s.Key, path, 0).Err()
}
