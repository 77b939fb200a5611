package gateway

import (
	"fmt"
	"strings"
	"time"
)

// Config 网关客户端配置
type Config struct {
	// TokenTTL 会话令牌有效期，超龄令牌不得用于发送
	TokenTTL time.Duration `mapstructure:"token_ttl" json:"token_ttl" yaml:"token_ttl"`

	// LoginWait 并发调用方等待在途登录的上限
	LoginWait time.Duration `mapstructure:"login_wait" json:"login_wait" yaml:"login_wait"`

	// LoginTimeout 登录请求超时
	LoginTimeout time.Duration `mapstructure:"login_timeout" json:"login_timeout" yaml:"login_timeout"`

	// SendTimeout 发送请求超时
	SendTimeout time.Duration `mapstructure:"send_timeout" json:"send_timeout" yaml:"send_timeout"`

	// StatusTimeout 会话状态检查超时，比登录/发送更短
	StatusTimeout time.Duration `mapstructure:"status_timeout" json:"status_timeout" yaml:"status_timeout"`

	// PinDialTimeout 证书指纹探测连接的硬超时
	PinDialTimeout time.Duration `mapstructure:"pin_dial_timeout" json:"pin_dial_timeout" yaml:"pin_dial_timeout"`

	// RatePerSecond 单 modem 每秒发送上限，0 表示不限速
	RatePerSecond float64 `mapstructure:"rate_per_second" json:"rate_per_second" yaml:"rate_per_second"`

	// RateBurst 限速桶容量
	RateBurst int `mapstructure:"rate_burst" json:"rate_burst" yaml:"rate_burst"`

	// TransportFailureTreatedAsPass 健康检查遇网络故障时按通过处理
	// 沿用后端会话校验的放通策略，默认关闭
	TransportFailureTreatedAsPass bool `mapstructure:"transport_failure_treated_as_pass" json:"transport_failure_treated_as_pass" yaml:"transport_failure_treated_as_pass"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		TokenTTL:       time.Hour,
		LoginWait:      3 * time.Second,
		LoginTimeout:   15 * time.Second,
		SendTimeout:    15 * time.Second,
		StatusTimeout:  5 * time.Second,
		PinDialTimeout: 10 * time.Second,
		RatePerSecond:  5,
		RateBurst:      10,
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token_ttl must be positive")
	}
	if c.LoginWait <= 0 {
		return fmt.Errorf("login_wait must be positive")
	}
	if c.LoginTimeout <= 0 || c.SendTimeout <= 0 || c.StatusTimeout <= 0 {
		return fmt.Errorf("request timeouts must be positive")
	}
	if c.PinDialTimeout <= 0 {
		return fmt.Errorf("pin_dial_timeout must be positive")
	}
	if c.RatePerSecond < 0 {
		return fmt.Errorf("rate_per_second must not be negative")
	}
	return nil
}

// NormalizeBaseURL 规范化网关基地址
// 去掉尾部斜杠和已有的 /api 后缀，再追加恰好一个 /api
func NormalizeBaseURL(raw string) string {
	u := strings.TrimRight(raw, "/")
	u = strings.TrimSuffix(u, "/api")
	u = strings.TrimRight(u, "/")
	return u + "/api"
}
