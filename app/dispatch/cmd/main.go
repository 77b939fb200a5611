package main

import (
	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/channel"
	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/dlq"
	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/gateway"
	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/handler"
	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/metrics"
	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/registry"
	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/service"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/app"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/breaker"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/database/postgres"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/database/redis"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/logger"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/mq/kafka"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/notify/feishu"
)

// ModemConfig modem 注册表读取配置
type ModemConfig struct {
	// CacheTTLSeconds modem 列表缓存秒数
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds"`
}

// Config 调度服务完整配置
type Config struct {
	Log logger.Config `mapstructure:"log"`

	// Database 配置
	Database postgres.Config `mapstructure:"database"`

	// Redis 配置
	Redis redis.Config `mapstructure:"redis"`

	// Kafka 配置
	Kafka kafka.Config `mapstructure:"kafka"`

	// 网关客户端配置（所有 modem 共用）
	Gateway gateway.Config `mapstructure:"gateway"`

	// 熔断器配置（每 modem 一个实例）
	Breaker breaker.Config `mapstructure:"breaker"`

	// 调度配置
	Dispatch service.Config `mapstructure:"dispatch"`

	// 各通道调度配置
	Channels map[string]*channel.Config `mapstructure:"channels"`

	// 邮件通道配置
	Email channel.EmailConfig `mapstructure:"email"`

	// 语音通道配置
	Voice channel.VoiceConfig `mapstructure:"voice"`

	// Modem 注册表配置
	Modem ModemConfig `mapstructure:"modem"`

	// 工作进程注册表配置
	Registry registry.Config `mapstructure:"registry"`

	// 死信重放配置
	Reprocessor dlq.Config `mapstructure:"reprocessor"`

	// 指标配置
	Metrics metrics.Config `mapstructure:"metrics"`

	// 运维 HTTP 配置
	HTTP handler.ServerConfig `mapstructure:"http"`

	// 飞书告警配置
	Feishu feishu.Config `mapstructure:"feishu"`
}

func main() {
	var cfg Config

	// 1. 加载配置
	if err := app.LoadConfig(&cfg); err != nil {
		panic(err)
	}

	// 2. 初始化主日志
	l, err := logger.New(&cfg.Log)
	if err != nil {
		panic(err)
	}
	logger.SetDefault(l)

	// 3. 通过 Wire 初始化应用
	application, cleanup, err := InitApp(&cfg, l)
	if err != nil {
		l.Error("failed to initialize application", "error", err)
		return
	}
	defer cleanup()

	// 4. 运行服务
	if err := application.Run(); err != nil {
		l.Error("application exited with error", "error", err)
	}
}
