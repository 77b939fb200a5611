package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/channel"
	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/dao"
	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/dlq"
	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/gateway"
	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/handler"
	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/metrics"
	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/registry"
	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/selector"
	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/service"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/app"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/database/postgres"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/database/redis"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/logger"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/mq/kafka"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/notify"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/notify/feishu"
)

// providePostgresConfig 提供 PostgreSQL 配置
func providePostgresConfig(cfg *Config) *postgres.Config {
	return &cfg.Database
}

// provideRedisConfig 提供 Redis 配置
func provideRedisConfig(cfg *Config) *redis.Config {
	return &cfg.Redis
}

// provideKafkaClient 提供 Kafka 客户端
func provideKafkaClient(cfg *Config, l logger.Logger) (*kafka.Client, error) {
	return kafka.New(&cfg.Kafka, kafka.WithLogger(l))
}

// provideMetricsConfig 提供指标配置
func provideMetricsConfig(cfg *Config) *metrics.Config {
	return &cfg.Metrics
}

// provideRegistry 提供 Prometheus Registry 并注册业务指标
func provideRegistry(m *metrics.DispatchMetrics) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// provideModemDAO 提供 modem DAO
func provideModemDAO(cfg *Config, db *postgres.Client, l logger.Logger, m *metrics.DispatchMetrics) *dao.ModemDAO {
	return dao.NewModemDAO(db, l, m, time.Duration(cfg.Modem.CacheTTLSeconds)*time.Second)
}

// provideClientPool 提供网关客户端池
func provideClientPool(cfg *Config, l logger.Logger, m *metrics.DispatchMetrics) *gateway.ClientPool {
	return gateway.NewClientPool(&cfg.Gateway, &cfg.Breaker, l, m)
}

// provideChannelRegistry 注册全部通道实现
func provideChannelRegistry(cfg *Config, sel *selector.Selector, pool *gateway.ClientPool, l logger.Logger) *channel.Registry {
	reg := channel.NewRegistry(cfg.Channels)
	reg.Register(channel.NewSMSChannel(sel, pool, l))
	reg.Register(channel.NewEmailChannel(&cfg.Email, l))
	reg.Register(channel.NewVoiceChannel(&cfg.Voice, l))
	return reg
}

// provideDeadLetterPublisher 提供死信发布器
func provideDeadLetterPublisher(cfg *Config, client *kafka.Client, l logger.Logger) (*dlq.Publisher, error) {
	return dlq.NewPublisher(client, cfg.Dispatch.DeadLetterTopic, l)
}

// providePersister 提供死信落表消费者
func providePersister(cfg *Config, client *kafka.Client, d *dao.DeadLetterDAO, l logger.Logger) (*dlq.Persister, error) {
	return dlq.NewPersister(client, cfg.Dispatch.DeadLetterTopic, d, l)
}

// provideNotifier 提供告警通知器，未配置 webhook 时为空
func provideNotifier(cfg *Config) (notify.Notifier, error) {
	if cfg.Feishu.WebhookURL == "" {
		return nil, nil
	}
	return feishu.NewAdapter(&cfg.Feishu)
}

// provideReprocessor 提供死信重放器
func provideReprocessor(
	cfg *Config,
	store dlq.Store,
	replayer dlq.Replayer,
	notifier notify.Notifier,
	l logger.Logger,
	m *metrics.DispatchMetrics,
) (*dlq.Reprocessor, error) {
	return dlq.NewReprocessor(&cfg.Reprocessor, store, replayer, notifier, l, m)
}

// provideDispatchService 提供调度服务
func provideDispatchService(
	cfg *Config,
	channels *channel.Registry,
	dedup dao.DedupStore,
	sink service.DeadLetterSink,
	l logger.Logger,
	m *metrics.DispatchMetrics,
) (*service.DispatchService, error) {
	return service.NewDispatchService(&cfg.Dispatch, channels, dedup, sink, l, m)
}

// provideWorkerRegistry 提供工作进程注册表
func provideWorkerRegistry(cfg *Config, store registry.WorkerStore, l logger.Logger) (*registry.Registry, error) {
	return registry.New(&cfg.Registry, store, l)
}

// provideHTTPServer 提供运维 HTTP 服务
func provideHTTPServer(cfg *Config, ops *handler.OpsHandler, l logger.Logger) *handler.HTTPServer {
	return handler.NewHTTPServer(&cfg.HTTP, ops, l)
}

// provideAppOptions 提供应用选项
func provideAppOptions(l logger.Logger) []app.Option {
	return []app.Option{
		app.WithName(app.AppName),
		app.WithLogger(l),
	}
}

// provideBaseApp 提供基础应用
func provideBaseApp(opts []app.Option) *app.BaseApp {
	return app.NewBaseApp(opts...)
}

// provideComponents 组装服务器与资源清理组件
func provideComponents(
	consumer *service.Consumer,
	persister *dlq.Persister,
	reprocessor *dlq.Reprocessor,
	workerRegistry *registry.Registry,
	httpServer *handler.HTTPServer,
	dispatchSvc *service.DispatchService,
	kafkaClient *kafka.Client,
	postgresClient *postgres.Client,
	redisClient *redis.Client,
) app.Components {
	return app.Components{
		Servers: []app.Server{
			httpServer,
			workerRegistry,
			persister,
			reprocessor,
			consumer,
		},
		Closers: []app.Closer{
			postgresClient,
			redisClient,
			kafkaClient,
			app.CloseFunc(func() error {
				dispatchSvc.Release()
				return nil
			}),
		},
	}
}

// provideApplication 挂载组件并返回应用
func provideApplication(baseApp *app.BaseApp, comps app.Components) (app.Application, func(), error) {
	a := app.InitApp(baseApp, comps)
	cleanup := func() {
		_ = a.Shutdown()
	}
	return a, cleanup, nil
}
