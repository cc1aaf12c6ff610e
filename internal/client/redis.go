package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrQueueTimeout is returned by Pop when nothing arrived before the timeout.
var ErrQueueTimeout = errors.New("queue wait timed out")

// RedisClient wraps the go-redis client as a short-lived result hand-off
// queue: a background producer pushes once, a waiting consumer pops once.
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient creates a new Redis client from URL.
// URL format: redis://[:password@]host:port/db
func NewRedisClient(url string) (*RedisClient, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisClient{client: client}, nil
}

// Close closes the Redis connection.
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// Push appends value to the list at key and sets the key's TTL in one
// transaction so an unclaimed result never outlives ttl.
func (r *RedisClient) Push(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, value)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to push to %s: %w", key, err)
	}
	return nil
}

// Pop blocks up to timeout for a value at key (BLPOP). It returns
// ErrQueueTimeout when nothing arrives.
func (r *RedisClient) Pop(ctx context.Context, key string, timeout time.Duration) ([]byte, error) {
	result, err := r.client.BLPop(ctx, timeout, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrQueueTimeout
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop from %s: %w", key, err)
	}

	// BLPop returns [key, value] pair
	if len(result) < 2 {
		return nil, fmt.Errorf("unexpected blpop result format")
	}
	return []byte(result[1]), nil
}

// Ping checks Redis connectivity.
func (r *RedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
