package breaker

import (
	"fmt"
	"time"
)

// Config 熔断器配置
type Config struct {
	// FailureThreshold 连续失败多少次后进入 Open
	FailureThreshold int `mapstructure:"failure_threshold"`

	// SuccessThreshold HalfOpen 下连续成功多少次后恢复 Closed
	SuccessThreshold int `mapstructure:"success_threshold"`

	// Timeout Open 状态持续时长，超时后进入 HalfOpen
	Timeout time.Duration `mapstructure:"timeout"`

	// MaxHalfOpenCalls HalfOpen 下允许的并发试探调用数
	MaxHalfOpenCalls int `mapstructure:"max_half_open_calls"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
		MaxHalfOpenCalls: 1,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.FailureThreshold <= 0 {
		return fmt.Errorf("%w: failure_threshold must be positive", ErrInvalidConfig)
	}
	if c.SuccessThreshold <= 0 {
		return fmt.Errorf("%w: success_threshold must be positive", ErrInvalidConfig)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	if c.MaxHalfOpenCalls <= 0 {
		return fmt.Errorf("%w: max_half_open_calls must be positive", ErrInvalidConfig)
	}
	return nil
}
