//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

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
)

func InitApp(cfg *Config, l logger.Logger) (app.Application, func(), error) {
	panic(wire.Build(
		// 基础设施客户端
		providePostgresConfig,
		postgres.New,
		provideRedisConfig,
		redis.NewClient,
		provideKafkaClient,

		// 指标
		provideMetricsConfig,
		metrics.New,
		provideRegistry,

		// 数据层
		provideModemDAO,
		dao.NewDeadLetterDAO,
		dao.NewWorkerDAO,
		dao.NewRedisDedupStore,
		wire.Bind(new(dao.DedupStore), new(*dao.RedisDedupStore)),

		// modem 选取与网关
		wire.Bind(new(selector.ModemLister), new(*dao.ModemDAO)),
		selector.New,
		provideClientPool,

		// 通道
		provideChannelRegistry,

		// 死信
		provideDeadLetterPublisher,
		wire.Bind(new(service.DeadLetterSink), new(*dlq.Publisher)),
		providePersister,
		wire.Bind(new(dlq.Store), new(*dao.DeadLetterDAO)),
		provideNotifier,
		provideReprocessor,

		// 调度服务
		provideDispatchService,
		wire.Bind(new(dlq.Replayer), new(*service.DispatchService)),
		service.NewConsumer,

		// 工作进程注册表
		wire.Bind(new(registry.WorkerStore), new(*dao.WorkerDAO)),
		provideWorkerRegistry,

		// 运维接口
		wire.Bind(new(handler.WorkerLister), new(*dao.WorkerDAO)),
		wire.Bind(new(handler.DLQCounter), new(*dao.DeadLetterDAO)),
		wire.Bind(new(handler.BreakerViewer), new(*gateway.ClientPool)),
		handler.NewOpsHandler,
		provideHTTPServer,

		// 组装
		provideAppOptions,
		provideBaseApp,
		provideComponents,
		provideApplication,
	))
}
