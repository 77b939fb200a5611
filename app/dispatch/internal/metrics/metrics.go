package metrics

import (
	"fmt"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/config"
)

// Config 指标配置
type Config struct {
	// Namespace 指标命名空间
	Namespace string `mapstructure:"namespace" json:"namespace" yaml:"namespace"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Namespace: "dispatch",
	}
}

// DispatchMetrics 调度服务指标
type DispatchMetrics struct {
	config *Config

	// 事件指标
	EventTotal    *prometheus.CounterVec   // 事件处理总数（按结果）
	EventDuration *prometheus.HistogramVec // 事件端到端处理延迟

	// 通道指标
	SendTotal    *prometheus.CounterVec   // 通道投递总数（按通道、结果）
	SendDuration *prometheus.HistogramVec // 通道投递延迟（SLA 监控）
	SLABreaches  *prometheus.CounterVec   // SLA 超限次数（按通道）
	RetryTotal   *prometheus.CounterVec   // 重试总数（按通道、原因）

	// 网关指标
	GatewayLogins *prometheus.CounterVec // 网关登录总数（按结果）
	QuotaHits     *prometheus.CounterVec // 配额耗尽次数（按 modem）

	// 熔断器指标
	BreakerState *prometheus.GaugeVec // 熔断器状态（0=closed 1=open 2=half_open）

	// 死信指标
	DLQDepth     prometheus.Gauge       // 死信队列当前深度
	DLQReplays   *prometheus.CounterVec // 死信重放总数（按结果）
	DLQIncoming  prometheus.Counter     // 死信入队总数
	DedupDropped prometheus.Counter     // 去重丢弃总数

	// 数据库指标
	DBQueryTotal    *prometheus.CounterVec
	DBQueryDuration *prometheus.HistogramVec

	// 缓存指标
	CacheHitTotal  *prometheus.CounterVec
	CacheMissTotal *prometheus.CounterVec

	// 内部统计（用于 /ops 接口）
	totalEvents  atomic.Int64
	failedEvents atomic.Int64
	dlqDepth     atomic.Int64
}

// New 创建调度服务指标
func New(cfg *Config) (*DispatchMetrics, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge metrics config: %w", err)
	}

	m := &DispatchMetrics{
		config: newCfg,

		EventTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: newCfg.Namespace,
				Name:      "events_total",
				Help:      "告警事件处理总数",
			},
			[]string{"result"}, // result: sent/deduped/dead_lettered/malformed
		),
		EventDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: newCfg.Namespace,
				Name:      "event_duration_seconds",
				Help:      "事件端到端处理延迟（秒）",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"event_type"},
		),

		SendTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: newCfg.Namespace,
				Name:      "channel_sends_total",
				Help:      "通道投递总数",
			},
			[]string{"channel", "result"},
		),
		SendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: newCfg.Namespace,
				Name:      "channel_send_duration_seconds",
				Help:      "通道投递延迟（秒）",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"channel"},
		),
		SLABreaches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: newCfg.Namespace,
				Name:      "sla_breaches_total",
				Help:      "通道投递 SLA 超限总数",
			},
			[]string{"channel"},
		),
		RetryTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: newCfg.Namespace,
				Name:      "retries_total",
				Help:      "通道投递重试总数",
			},
			[]string{"channel", "reason"}, // reason: transport/quota/circuit_open/other
		),

		GatewayLogins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: newCfg.Namespace,
				Name:      "gateway_logins_total",
				Help:      "短信网关登录总数",
			},
			[]string{"result"},
		),
		QuotaHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: newCfg.Namespace,
				Name:      "quota_exhausted_total",
				Help:      "modem 配额耗尽总数",
			},
			[]string{"modem_id"},
		),

		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: newCfg.Namespace,
				Name:      "breaker_state",
				Help:      "熔断器状态（0=closed 1=open 2=half_open）",
			},
			[]string{"name"},
		),

		DLQDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: newCfg.Namespace,
				Name:      "dlq_depth",
				Help:      "死信队列当前深度",
			},
		),
		DLQReplays: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: newCfg.Namespace,
				Name:      "dlq_replays_total",
				Help:      "死信重放总数",
			},
			[]string{"result"},
		),
		DLQIncoming: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: newCfg.Namespace,
				Name:      "dlq_incoming_total",
				Help:      "死信入队总数",
			},
		),
		DedupDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: newCfg.Namespace,
				Name:      "dedup_dropped_total",
				Help:      "去重丢弃事件总数",
			},
		),

		DBQueryTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: newCfg.Namespace,
				Name:      "db_queries_total",
				Help:      "数据库查询总数",
			},
			[]string{"operation", "result"},
		),
		DBQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: newCfg.Namespace,
				Name:      "db_query_duration_seconds",
				Help:      "数据库查询延迟（秒）",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"operation"},
		),

		CacheHitTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: newCfg.Namespace,
				Name:      "cache_hits_total",
				Help:      "缓存命中总数",
			},
			[]string{"cache_type"},
		),
		CacheMissTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: newCfg.Namespace,
				Name:      "cache_misses_total",
				Help:      "缓存未命中总数",
			},
			[]string{"cache_type"},
		),
	}

	return m, nil
}

// Register 注册指标到 Prometheus Registry
func (m *DispatchMetrics) Register(registerer prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.EventTotal,
		m.EventDuration,
		m.SendTotal,
		m.SendDuration,
		m.SLABreaches,
		m.RetryTotal,
		m.GatewayLogins,
		m.QuotaHits,
		m.BreakerState,
		m.DLQDepth,
		m.DLQReplays,
		m.DLQIncoming,
		m.DedupDropped,
		m.DBQueryTotal,
		m.DBQueryDuration,
		m.CacheHitTotal,
		m.CacheMissTotal,
	}

	for _, c := range collectors {
		if err := registerer.Register(c); err != nil {
			return err
		}
	}

	return nil
}

// RecordEvent 记录事件处理结果
func (m *DispatchMetrics) RecordEvent(result string, eventType string, duration float64) {
	m.totalEvents.Add(1)
	if result == "dead_lettered" || result == "malformed" {
		m.failedEvents.Add(1)
	}
	m.EventTotal.WithLabelValues(result).Inc()
	if duration > 0 {
		m.EventDuration.WithLabelValues(eventType).Observe(duration)
	}
}

// RecordSend 记录通道投递，超过 SLA 阈值时附带记录超限
func (m *DispatchMetrics) RecordSend(channel string, success bool, duration float64, slaSeconds float64) {
	result := "success"
	if !success {
		result = "failed"
	}
	m.SendTotal.WithLabelValues(channel, result).Inc()
	m.SendDuration.WithLabelValues(channel).Observe(duration)

	if slaSeconds > 0 && duration > slaSeconds {
		m.SLABreaches.WithLabelValues(channel).Inc()
	}
}

// RecordRetry 记录通道重试
func (m *DispatchMetrics) RecordRetry(channel string, reason string) {
	m.RetryTotal.WithLabelValues(channel, reason).Inc()
}

// RecordGatewayLogin 记录网关登录
func (m *DispatchMetrics) RecordGatewayLogin(success bool) {
	result := "success"
	if !success {
		result = "failed"
	}
	m.GatewayLogins.WithLabelValues(result).Inc()
}

// RecordQuotaHit 记录配额耗尽
func (m *DispatchMetrics) RecordQuotaHit(modemID int64) {
	m.QuotaHits.WithLabelValues(fmt.Sprintf("%d", modemID)).Inc()
}

// RecordBreakerState 记录熔断器状态变化
func (m *DispatchMetrics) RecordBreakerState(name string, state int) {
	m.BreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordDLQDepth 记录死信队列深度
func (m *DispatchMetrics) RecordDLQDepth(depth int64) {
	m.dlqDepth.Store(depth)
	m.DLQDepth.Set(float64(depth))
}

// RecordDLQReplay 记录死信重放
func (m *DispatchMetrics) RecordDLQReplay(success bool) {
	result := "success"
	if !success {
		result = "failed"
	}
	m.DLQReplays.WithLabelValues(result).Inc()
}

// RecordDLQIncoming 记录死信入队
func (m *DispatchMetrics) RecordDLQIncoming() {
	m.DLQIncoming.Inc()
}

// RecordDedupDropped 记录去重丢弃
func (m *DispatchMetrics) RecordDedupDropped() {
	m.DedupDropped.Inc()
}

// RecordDBQuery 记录数据库查询
func (m *DispatchMetrics) RecordDBQuery(operation string, success bool, duration float64) {
	result := "success"
	if !success {
		result = "failed"
	}
	m.DBQueryTotal.WithLabelValues(operation, result).Inc()
	m.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// RecordCacheHit 记录缓存命中
func (m *DispatchMetrics) RecordCacheHit(cacheType string) {
	m.CacheHitTotal.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss 记录缓存未命中
func (m *DispatchMetrics) RecordCacheMiss(cacheType string) {
	m.CacheMissTotal.WithLabelValues(cacheType).Inc()
}

// Stats 运行统计快照，供 /ops 接口使用
type Stats struct {
	TotalEvents  int64 `json:"total_events"`
	FailedEvents int64 `json:"failed_events"`
	DLQDepth     int64 `json:"dlq_depth"`
}

// GetStats 获取统计快照
func (m *DispatchMetrics) GetStats() Stats {
	return Stats{
		TotalEvents:  m.totalEvents.Load(),
		FailedEvents: m.failedEvents.Load(),
		DLQDepth:     m.dlqDepth.Load(),
	}
}
