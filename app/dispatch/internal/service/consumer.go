package service

import (
	"context"
	"fmt"

	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/logger"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/mq/kafka"
)

// Consumer 告警事件消费者，实现 app.Server
type Consumer struct {
	group  *kafka.ConsumerGroup
	logger logger.Logger
}

// NewConsumer 订阅告警事件主题
func NewConsumer(client *kafka.Client, svc *DispatchService, l logger.Logger) (*Consumer, error) {
	group, err := client.Subscribe(
		[]string{svc.Config().EventTopic},
		svc.HandleMessage,
		kafka.WithConcurrency(svc.Config().Concurrency),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe alarm events: %w", err)
	}

	return &Consumer{
		group:  group,
		logger: l.Named("service.consumer"),
	}, nil
}

// Start 启动消费
func (c *Consumer) Start() error {
	c.logger.Info("alarm event consumer starting")
	return c.group.Start(context.Background())
}

// Stop 停止消费
func (c *Consumer) Stop() error {
	c.logger.Info("alarm event consumer stopping")
	return c.group.Stop()
}

// Stats 消费统计
func (c *Consumer) Stats() kafka.ConsumerStats {
	return c.group.Stats()
}
