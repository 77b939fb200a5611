package dlq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/dao"
	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/model"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/logger"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/mq/kafka"
)

// Persister 消费死信主题并落表，实现 app.Server
type Persister struct {
	group  *kafka.ConsumerGroup
	dao    *dao.DeadLetterDAO
	logger logger.Logger
}

// NewPersister 订阅死信主题
func NewPersister(client *kafka.Client, topic string, d *dao.DeadLetterDAO, l logger.Logger) (*Persister, error) {
	p := &Persister{
		dao:    d,
		logger: l.Named("dlq.persister"),
	}

	group, err := client.Subscribe([]string{topic}, p.handleMessage, kafka.WithConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe dead letter topic: %w", err)
	}
	p.group = group

	return p, nil
}

// handleMessage 单条死信落表；失败不确认，等待重投
func (p *Persister) handleMessage(ctx context.Context, msg *kafka.Message) error {
	var entry model.DeadLetterEntry
	if err := json.Unmarshal(msg.Value, &entry); err != nil {
		// 死信主题只有本系统写入，坏消息说明出了严重问题，记日志后丢弃
		p.logger.Error("unparseable dead letter message dropped",
			"error", err,
		)
		return nil
	}

	if err := p.dao.Insert(ctx, &entry); err != nil {
		return err
	}

	p.logger.Info("dead letter persisted",
		"id", entry.ID,
		"channel", entry.Channel,
	)
	return nil
}

// Start 启动落表消费
func (p *Persister) Start() error {
	p.logger.Info("dead letter persister starting")
	return p.group.Start(context.Background())
}

// Stop 停止落表消费
func (p *Persister) Stop() error {
	p.logger.Info("dead letter persister stopping")
	return p.group.Stop()
}
