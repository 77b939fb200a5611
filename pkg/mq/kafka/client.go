package kafka

import (
	"sync"
	"sync/atomic"

	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/config"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/logger"
)

// Client Kafka 客户端
// 按 topic 缓存生产者，消费者组按需创建
type Client struct {
	config *Config
	logger logger.Logger

	producers  map[string]*Producer
	producerMu sync.RWMutex

	consumers  map[string]*ConsumerGroup
	consumerMu sync.RWMutex

	closed atomic.Bool
}

// ClientOption 客户端选项
type ClientOption func(*Client)

// WithLogger 设置日志记录器
func WithLogger(l logger.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// New 创建 Kafka 客户端
func New(cfg *Config, opts ...ClientOption) (*Client, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}

	if err := newCfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:    newCfg,
		logger:    logger.NewNoop(),
		producers: make(map[string]*Producer),
		consumers: make(map[string]*ConsumerGroup),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.Named("kafka")

	return c, nil
}

// Producer 获取指定 topic 的生产者（按 topic 缓存）
func (c *Client) Producer(topic string) (*Producer, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	if topic == "" {
		return nil, ErrEmptyTopic
	}

	c.producerMu.RLock()
	p, ok := c.producers[topic]
	c.producerMu.RUnlock()
	if ok {
		return p, nil
	}

	c.producerMu.Lock()
	defer c.producerMu.Unlock()

	if p, ok := c.producers[topic]; ok {
		return p, nil
	}

	p = newProducer(c, topic)
	c.producers[topic] = p
	return p, nil
}

// Subscribe 创建消费者组并订阅主题
func (c *Client) Subscribe(topics []string, handler Handler, opts ...ConsumerOption) (*ConsumerGroup, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	if len(topics) == 0 {
		return nil, ErrEmptyTopic
	}

	cg := newConsumerGroup(c, topics, handler, opts...)

	c.consumerMu.Lock()
	c.consumers[cg.ID()] = cg
	c.consumerMu.Unlock()

	return cg, nil
}

// Close 关闭客户端及其所有生产者和消费者
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	var firstErr error

	c.consumerMu.Lock()
	for _, cg := range c.consumers {
		if err := cg.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.consumers = make(map[string]*ConsumerGroup)
	c.consumerMu.Unlock()

	c.producerMu.Lock()
	for _, p := range c.producers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.producers = make(map[string]*Producer)
	c.producerMu.Unlock()

	return firstErr
}
