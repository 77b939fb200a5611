package dlq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/model"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/logger"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/mq/kafka"
)

// Publisher 将死信条目发布到死信主题
// 调度进程只负责发出，落表由 Persister 完成，两边解耦后发送路径
// 不依赖数据库可用性
type Publisher struct {
	producer *kafka.Producer
	logger   logger.Logger
}

// NewPublisher 创建死信发布器
func NewPublisher(client *kafka.Client, topic string, l logger.Logger) (*Publisher, error) {
	producer, err := client.Producer(topic)
	if err != nil {
		return nil, fmt.Errorf("failed to create dead letter producer: %w", err)
	}
	return &Publisher{
		producer: producer,
		logger:   l.Named("dlq.publisher"),
	}, nil
}

// Publish 发布死信条目
func (p *Publisher) Publish(ctx context.Context, entry *model.DeadLetterEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}

	if err := p.producer.Publish(ctx, &kafka.Message{Value: payload}); err != nil {
		p.logger.Error("failed to publish dead letter",
			"channel", entry.Channel,
			"error", err,
		)
		return fmt.Errorf("failed to publish dead letter: %w", err)
	}

	return nil
}
