package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/database/redis"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/logger"
)

// DedupStore 去重记录存储接口，便于测试替换
type DedupStore interface {
	// MarkIfFirst 首次出现返回 true 并写入窗口记录，重复返回 false
	MarkIfFirst(ctx context.Context, key string, window time.Duration) (bool, error)
}

// RedisDedupStore 基于 Redis SetNX + TTL 的去重存储
type RedisDedupStore struct {
	client *redis.Client
	logger logger.Logger
}

// NewRedisDedupStore 创建去重存储
func NewRedisDedupStore(client *redis.Client, l logger.Logger) *RedisDedupStore {
	return &RedisDedupStore{
		client: client,
		logger: l.Named("dao.dedup"),
	}
}

// MarkIfFirst 首次出现时占位，TTL 为去重窗口
// SetNX 成功表示本进程是窗口内第一个看到该键的消费者
func (s *RedisDedupStore) MarkIfFirst(ctx context.Context, key string, window time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, 1, window)
	if err != nil {
		s.logger.Error("failed to set dedup key",
			"key", key,
			"error", err,
		)
		return false, fmt.Errorf("failed to set dedup key: %w", err)
	}
	return ok, nil
}
