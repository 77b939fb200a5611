package kafka

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
)

// Producer Kafka 生产者
type Producer struct {
	client *Client
	topic  string
	writer *kafka.Writer

	stats  ProducerStats
	closed atomic.Bool
}

// newProducer 创建生产者
func newProducer(c *Client, topic string) *Producer {
	cfg := c.config.Producer

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(c.config.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		MaxAttempts:            cfg.MaxRetries + 1,
		WriteTimeout:           cfg.WriteTimeout,
		ReadTimeout:            cfg.ReadTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		client: c,
		topic:  topic,
		writer: writer,
	}
}

// Publish 发布单条消息
func (p *Producer) Publish(ctx context.Context, msg *Message) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}

	atomic.AddInt64(&p.stats.MessagesProduced, 1)

	kafkaMsg := kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
	}

	if len(msg.Headers) > 0 {
		headers := make([]kafka.Header, 0, len(msg.Headers))
		for k, v := range msg.Headers {
			headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
		}
		kafkaMsg.Headers = headers
	}

	err := p.writer.WriteMessages(ctx, kafkaMsg)
	if err != nil {
		atomic.AddInt64(&p.stats.MessagesFailed, 1)
	} else {
		atomic.AddInt64(&p.stats.MessagesSucceeded, 1)
		p.stats.LastMessageTime = time.Now()
	}

	return err
}

// PublishWithKey 发布带 Key 的消息
func (p *Producer) PublishWithKey(ctx context.Context, key string, value []byte) error {
	return p.Publish(ctx, &Message{
		Key:   []byte(key),
		Value: value,
	})
}

// Topic 返回 topic 名称
func (p *Producer) Topic() string {
	return p.topic
}

// Stats 返回统计信息
func (p *Producer) Stats() ProducerStats {
	return ProducerStats{
		MessagesProduced:  atomic.LoadInt64(&p.stats.MessagesProduced),
		MessagesSucceeded: atomic.LoadInt64(&p.stats.MessagesSucceeded),
		MessagesFailed:    atomic.LoadInt64(&p.stats.MessagesFailed),
		LastMessageTime:   p.stats.LastMessageTime,
	}
}

// Close 关闭生产者
func (p *Producer) Close() error {
	if p.closed.Swap(true) {
		return nil
	}

	p.client.logger.Debug("producer closing", "topic", p.topic)

	return p.writer.Close()
}
