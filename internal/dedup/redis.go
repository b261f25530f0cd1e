package dedup

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "earnbot:update:"

// Redis remembers update ids in Redis so several bot replicas share them
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to addr and verifies the connection
func NewRedis(ctx context.Context, addr, password string, db int, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Redis{client: client, ttl: ttl}, nil
}

// Seen reports whether updateID was marked
func (r *Redis) Seen(ctx context.Context, updateID int64) (bool, error) {
	n, err := r.client.Exists(ctx, key(updateID)).Result()
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	return n > 0, nil
}

// Mark records updateID as processed
func (r *Redis) Mark(ctx context.Context, updateID int64) error {
	if err := r.client.Set(ctx, key(updateID), "1", r.ttl).Err(); err != nil {
		return fmt.Errorf("set: %w", err)
	}
	return nil
}

// Close closes the redis client
func (r *Redis) Close() error {
	return r.client.Close()
}

func key(updateID int64) string {
	return keyPrefix + strconv.FormatInt(updateID, 10)
}
