package throttle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "seatpass:throttle:"

type keyStore interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Redis allows one action per key within cooldown
type Redis struct {
	client   keyStore
	prefix   string
	cooldown time.Duration
}

func NewRedis(client keyStore, prefix string, cooldown time.Duration) *Redis {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Redis{client: client, prefix: prefix, cooldown: cooldown}
}

// Allow is true for the first call per key within cooldown.
// Keys are hashed, raw values (emails) never reach redis
func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.key(key), "1", r.cooldown).Result()
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}
	return ok, nil
}

// Release gives the slot back, so next Allow for the key succeeds right away
func (r *Redis) Release(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (r *Redis) key(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return r.prefix + hex.EncodeToString(sum[:])
}
