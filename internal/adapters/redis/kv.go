package redisad

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// KV implements domain.KVStore on plain Redis strings under a key prefix.
type KV struct {
	c      *redis.Client
	prefix string
}

func NewKV(c *redis.Client, prefix string) *KV {
	return &KV{c: c, prefix: prefix}
}

func (k *KV) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := k.c.Get(ctx, k.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set writes without expiry; moderation state lives until overwritten.
func (k *KV) Set(ctx context.Context, key, value string) error {
	return k.c.Set(ctx, k.prefix+key, value, 0).Err()
}
