// pkg/redis/redis.go
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrKeyNotFound is returned by Get when the key does not exist.
var ErrKeyNotFound = errors.New("key not found")

type Client struct {
	client *redis.Client
}

// NewRedisClient builds a client from a redis:// URL or a bare host:port address.
func NewRedisClient(addr string) (*Client, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{Addr: addr}
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolSize = 10

	if opts.Addr == "" {
		return nil, fmt.Errorf("invalid redis address %q", addr)
	}

	return &Client{client: redis.NewClient(opts)}, nil
}

// Get retrieves a value from Redis
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	}
	return val, err
}

// SetMany writes all pairs inside a single MULTI/EXEC block without expiry.
func (c *Client) SetMany(ctx context.Context, values map[string]interface{}) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range values {
			pipe.Set(ctx, key, value, 0)
		}
		return nil
	})
	return err
}

// IncrWithExpire increments key and sets its expiry when the counter is new.
func (c *Client) IncrWithExpire(ctx context.Context, key string, window time.Duration) (int64, error) {
	cnt, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}

	if cnt == 1 {
		_ = c.client.Expire(ctx, key, window).Err()
	}

	return cnt, nil
}

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}
