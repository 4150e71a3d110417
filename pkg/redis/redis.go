package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/safarides/safar-backend/pkg/config"
)

// Client wraps the go-redis client with the handful of operations the
// ephemeral KV needs: string values with per-key TTL.
type Client struct {
	*redis.Client
}

// NewClient connects to Redis and verifies the connection.
func NewClient(cfg *config.RedisConfig) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("unable to connect to redis: %w", err)
	}

	return &Client{Client: client}, nil
}

// SetWithExpiration stores a value under key with the given TTL.
func (c *Client) SetWithExpiration(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Set(ctx, key, value, ttl).Err()
}

// GetString returns the string value stored at key. Returns redis.Nil when
// the key does not exist or has expired.
func (c *Client) GetString(ctx context.Context, key string) (string, error) {
	return c.Get(ctx, key).Result()
}

// Delete removes keys.
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	return c.Del(ctx, keys...).Err()
}

// Close closes the underlying client.
func (c *Client) Close() error {
	return c.Client.Close()
}
