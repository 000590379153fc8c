// Package redis wraps the Redis client used for cross-process coordination.
package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/patentlens/patentlens/internal/config"
	"github.com/patentlens/patentlens/internal/infrastructure/monitoring/logging"
	apperrors "github.com/patentlens/patentlens/pkg/errors"
)

// Client is a thin wrapper owning the connection lifecycle.
type Client struct {
	rdb    *redis.Client
	prefix string
	logger logging.Logger
	mu     sync.Mutex
	closed bool
}

// NewClient connects and verifies the connection.
func NewClient(cfg config.RedisConfig, log logging.Logger) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, apperrors.Wrap(err, apperrors.ErrCodeCacheError, "redis connection failed")
	}

	log.Info("redis client connected", logging.String("addr", cfg.Addr))
	return &Client{rdb: rdb, prefix: cfg.KeyPrefix, logger: log}, nil
}

// NewClientWithRedis wraps an existing client, for tests.
func NewClientWithRedis(rdb *redis.Client, prefix string, log logging.Logger) *Client {
	return &Client{rdb: rdb, prefix: prefix, logger: log}
}

// Ping verifies the connection is alive.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the connection pool.  Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.rdb.Close()
}

func (c *Client) key(parts ...string) string {
	k := c.prefix
	if k == "" {
		k = "patentlens"
	}
	for _, p := range parts {
		k += ":" + p
	}
	return k
}
