// Package redis wraps the go-redis client behind project configuration.
// Redis is optional in this service: it only backs the sweep scheduler's
// lease, so a missing URL yields a nil client rather than an error.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brahimakil/buscollege-mobile-sub000/internal/platform/config"
)

// Client embeds the go-redis client and adds the health probe used by
// /healthz.
type Client struct {
	*redis.Client
}

// New builds a client from config. Returns (nil, nil) when no URL is set;
// callers fall back to the no-op sweep lease in that case. A configured
// but unreachable Redis is an error, caught at startup by a ping.
func New(cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{Client: client}, nil
}

// Health reports whether the connection still answers.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.Client.Close()
}
