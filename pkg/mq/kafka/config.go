package kafka

import (
	"fmt"
	"time"
)

// Config Kafka 配置
type Config struct {
	// Brokers broker 地址列表
	Brokers []string `mapstructure:"brokers"`

	// Producer 生产者配置
	Producer ProducerConfig `mapstructure:"producer"`

	// Consumer 消费者配置
	Consumer ConsumerConfig `mapstructure:"consumer"`
}

// ProducerConfig 生产者配置
type ProducerConfig struct {
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`

	// RequiredAcks 确认模式: 0 不等待, 1 Leader, -1 全部副本
	RequiredAcks int `mapstructure:"required_acks"`

	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
}

// ConsumerConfig 消费者配置
type ConsumerConfig struct {
	// GroupID 消费者组 ID
	GroupID string `mapstructure:"group_id"`

	// MinBytes/MaxBytes 拉取窗口，MaxBytes 同时限制了单次在途消息量（背压）
	MinBytes int           `mapstructure:"min_bytes"`
	MaxBytes int           `mapstructure:"max_bytes"`
	MaxWait  time.Duration `mapstructure:"max_wait"`

	// CommitInterval 自动提交间隔（0 表示手动提交）
	CommitInterval time.Duration `mapstructure:"commit_interval"`

	// StartOffset -1 Latest, -2 Earliest
	StartOffset int64 `mapstructure:"start_offset"`

	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	SessionTimeout    time.Duration `mapstructure:"session_timeout"`
	RebalanceTimeout  time.Duration `mapstructure:"rebalance_timeout"`

	// Concurrency 并发消费协程数
	Concurrency int `mapstructure:"concurrency"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Brokers: []string{"localhost:9092"},
		Producer: ProducerConfig{
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			MaxRetries:   3,
			RequiredAcks: -1,
			WriteTimeout: 10 * time.Second,
			ReadTimeout:  10 * time.Second,
		},
		Consumer: ConsumerConfig{
			GroupID:           "dispatch",
			MinBytes:          1,
			MaxBytes:          10 << 20,
			MaxWait:           500 * time.Millisecond,
			StartOffset:       -1,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
			RebalanceTimeout:  30 * time.Second,
			Concurrency:       1,
		},
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if len(c.Brokers) == 0 {
		return ErrNoBrokers
	}
	if c.Consumer.GroupID == "" {
		return fmt.Errorf("%w: consumer group_id is empty", ErrInvalidConfig)
	}
	if c.Consumer.Concurrency < 1 {
		return fmt.Errorf("%w: consumer concurrency must be >= 1", ErrInvalidConfig)
	}
	return nil
}
