package redis

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/config"
	"github.com/redis/go-redis/v9"
)

// Client Redis 客户端
type Client struct {
	rdb    *redis.Client
	cfg    *Config
	closed atomic.Bool
}

// NewClient 创建 Redis 客户端
func NewClient(cfg *Config) (*Client, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}

	if err := newCfg.Validate(); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         newCfg.Addr,
		Password:     newCfg.Password,
		DB:           newCfg.DB,
		PoolSize:     newCfg.PoolSize,
		MinIdleConns: newCfg.MinIdleConns,
		DialTimeout:  newCfg.DialTimeout,
		ReadTimeout:  newCfg.ReadTimeout,
		WriteTimeout: newCfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), newCfg.DialTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Client{
		rdb: rdb,
		cfg: newCfg,
	}, nil
}

// Ping 检查连接
func (c *Client) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	return c.rdb.Ping(ctx).Err()
}

// Close 关闭客户端
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.rdb.Close()
}
