// Package redis wraps the go-redis client with the small surface the
// snapshot store needs.
package redis

import (
	"context"
	"time"

	"github.com/azaynul10/CarbonPro-AI/pkg/errors"
	v9 "github.com/redis/go-redis/v9"
)

// Config holds the configuration for the Redis client.
type Config struct {
	Addr           string
	Username       string
	Password       string
	DB             int
	ConnectTimeout time.Duration
}

// Client defines the interface for the Redis client.
type Client interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) (int64, error)
	Close() error
}

type client struct {
	cmdable *v9.Client
}

// NewClient creates a connected Redis client from the given configuration.
func NewClient(ctx context.Context, config Config) (Client, error) {
	rdb := v9.NewClient(&v9.Options{
		Addr:        config.Addr,
		Username:    config.Username,
		Password:    config.Password,
		DB:          config.DB,
		DialTimeout: config.ConnectTimeout,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.TracerFromError(err).WithCode(errors.SnapshotStoreError)
	}

	return &client{cmdable: rdb}, nil
}

func (c *client) Ping(ctx context.Context) error {
	return c.cmdable.Ping(ctx).Err()
}

// Get returns the value stored at key. A missing key yields an empty
// string and no error.
func (c *client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.cmdable.Get(ctx, key).Result()
	if err == v9.Nil {
		return "", nil
	}
	if err != nil {
		return "", errors.TracerFromError(err).WithCode(errors.SnapshotStoreError)
	}
	return val, nil
}

func (c *client) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	if err := c.cmdable.Set(ctx, key, value, expiration).Err(); err != nil {
		return errors.TracerFromError(err).WithCode(errors.SnapshotStoreError)
	}
	return nil
}

func (c *client) Del(ctx context.Context, keys ...string) (int64, error) {
	n, err := c.cmdable.Del(ctx, keys...).Result()
	if err != nil {
		return 0, errors.TracerFromError(err).WithCode(errors.SnapshotStoreError)
	}
	return n, nil
}

func (c *client) Close() error {
	return c.cmdable.Close()
}
