package channel

import (
	"context"
	"fmt"
	"time"

	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/model"
)

// 通道名称
const (
	NameSMS   = "sms"
	NameEmail = "email"
	NameVoice = "voice"
)

// Channel 通知通道插件接口
type Channel interface {
	// Name 通道名称
	Name() string

	// Send 向事件的通知目标投递一次，失败返回错误由调度器重试
	Send(ctx context.Context, event *model.AlarmEvent) error
}

// Config 单通道调度配置
type Config struct {
	// MaxRetries 单事件在本通道上的最大重试次数
	MaxRetries int `mapstructure:"max_retries" json:"max_retries" yaml:"max_retries"`

	// MaxConcurrency 本通道并发投递上限
	MaxConcurrency int `mapstructure:"max_concurrency" json:"max_concurrency" yaml:"max_concurrency"`

	// SLA 投递时延阈值，超限仅记录指标
	SLA time.Duration `mapstructure:"sla" json:"sla" yaml:"sla"`

	// BackoffBase 重试退避基数
	BackoffBase time.Duration `mapstructure:"backoff_base" json:"backoff_base" yaml:"backoff_base"`

	// BackoffMax 重试退避上限
	BackoffMax time.Duration `mapstructure:"backoff_max" json:"backoff_max" yaml:"backoff_max"`
}

// DefaultConfigs 各通道默认配置
func DefaultConfigs() map[string]*Config {
	return map[string]*Config{
		NameSMS: {
			MaxRetries:     3,
			MaxConcurrency: 8,
			SLA:            10 * time.Second,
			BackoffBase:    time.Second,
			BackoffMax:     30 * time.Second,
		},
		NameEmail: {
			MaxRetries:     2,
			MaxConcurrency: 4,
			SLA:            30 * time.Second,
			BackoffBase:    2 * time.Second,
			BackoffMax:     60 * time.Second,
		},
		NameVoice: {
			MaxRetries:     2,
			MaxConcurrency: 2,
			SLA:            60 * time.Second,
			BackoffBase:    5 * time.Second,
			BackoffMax:     60 * time.Second,
		},
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	if c.MaxConcurrency <= 0 {
		return fmt.Errorf("max_concurrency must be positive")
	}
	if c.BackoffBase <= 0 || c.BackoffMax < c.BackoffBase {
		return fmt.Errorf("invalid backoff range")
	}
	return nil
}

// Registry 通道注册表
type Registry struct {
	channels map[string]Channel
	configs  map[string]*Config
}

// NewRegistry 创建通道注册表
func NewRegistry(configs map[string]*Config) *Registry {
	if configs == nil {
		configs = DefaultConfigs()
	}
	return &Registry{
		channels: make(map[string]Channel),
		configs:  configs,
	}
}

// Register 注册通道实现
func (r *Registry) Register(ch Channel) {
	r.channels[ch.Name()] = ch
}

// Get 获取通道及其配置
func (r *Registry) Get(name string) (Channel, *Config, bool) {
	ch, ok := r.channels[name]
	if !ok {
		return nil, nil, false
	}
	cfg, ok := r.configs[name]
	if !ok {
		cfg = DefaultConfigs()[name]
	}
	return ch, cfg, true
}

// Names 返回已注册通道名称
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.channels))
	for name := range r.channels {
		names = append(names, name)
	}
	return names
}
