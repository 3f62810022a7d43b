package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"nyx-chat/internal/config"
)

const dialTimeout = 5 * time.Second

// RedisClient is the subset of redis the slot store needs.
type RedisClient interface {
	Ping(ctx context.Context) error
	Put(ctx context.Context, key string, value []byte) error
	Fetch(ctx context.Context, key string) ([]byte, error)
	Remove(ctx context.Context, key string) error
	Close() error
}

var _ RedisClient = (*redClient)(nil)

type redClient struct {
	cli *redis.Client
}

// NewClient accepts either a redis:// URL or a bare host:port in cfg.URL. Explicit
// password and db settings override whatever the URL carries.
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*redClient, error) {
	opts, err := clientOptions(cfg)
	if err != nil {
		return nil, err
	}
	c := redis.NewClient(opts)

	pctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := c.Ping(pctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return &redClient{cli: c}, nil
}

func clientOptions(cfg *config.RedisConfig) (*redis.Options, error) {
	opts := &redis.Options{Addr: cfg.URL}
	if strings.HasPrefix(cfg.URL, "redis://") || strings.HasPrefix(cfg.URL, "rediss://") {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("redis url: %w", err)
		}
		opts = parsed
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	opts.DialTimeout = dialTimeout
	return opts, nil
}

func (c *redClient) Ping(ctx context.Context) error { return c.cli.Ping(ctx).Err() }

// Put stores value without expiry.
func (c *redClient) Put(ctx context.Context, key string, value []byte) error {
	return c.cli.Set(ctx, key, value, 0).Err()
}

// Fetch returns redis.Nil for a missing key.
func (c *redClient) Fetch(ctx context.Context, key string) ([]byte, error) {
	return c.cli.Get(ctx, key).Bytes()
}

func (c *redClient) Remove(ctx context.Context, key string) error {
	return c.cli.Del(ctx, key).Err()
}

func (c *redClient) Close() error { return c.cli.Close() }
