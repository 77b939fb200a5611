package service

import (
	"fmt"
	"time"
)

// Config 调度服务配置
type Config struct {
	// EventTopic 告警事件主题
	EventTopic string `mapstructure:"event_topic" json:"event_topic" yaml:"event_topic"`

	// DeadLetterTopic 死信主题
	DeadLetterTopic string `mapstructure:"dead_letter_topic" json:"dead_letter_topic" yaml:"dead_letter_topic"`

	// DedupWindow 去重窗口，同一 (imei, 告警类型) 在窗口内只投递一次
	DedupWindow time.Duration `mapstructure:"dedup_window" json:"dedup_window" yaml:"dedup_window"`

	// Concurrency 消费者并发数（预取上限即背压上限）
	Concurrency int `mapstructure:"concurrency" json:"concurrency" yaml:"concurrency"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		EventTopic:      "tracker.alarm-events",
		DeadLetterTopic: "tracker.alarm-dead-letters",
		DedupWindow:     5 * time.Minute,
		Concurrency:     4,
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.EventTopic == "" {
		return fmt.Errorf("event_topic is required")
	}
	if c.DeadLetterTopic == "" {
		return fmt.Errorf("dead_letter_topic is required")
	}
	if c.DedupWindow <= 0 {
		return fmt.Errorf("dedup_window must be positive")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}
	return nil
}
