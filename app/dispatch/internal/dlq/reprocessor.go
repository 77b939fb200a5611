package dlq

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/metrics"
	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/model"
	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/service"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/config"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/logger"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/notify"
)

// Config 重放器配置
type Config struct {
	// Interval 重放周期
	Interval time.Duration `mapstructure:"interval" json:"interval" yaml:"interval"`

	// BatchSize 单轮最多拉取的条目数
	BatchSize int `mapstructure:"batch_size" json:"batch_size" yaml:"batch_size"`

	// BaseBackoff 条目级退避基数
	BaseBackoff time.Duration `mapstructure:"base_backoff" json:"base_backoff" yaml:"base_backoff"`

	// MaxBackoff 条目级退避上限
	MaxBackoff time.Duration `mapstructure:"max_backoff" json:"max_backoff" yaml:"max_backoff"`

	// AlertThreshold 队列深度告警阈值
	AlertThreshold int64 `mapstructure:"alert_threshold" json:"alert_threshold" yaml:"alert_threshold"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Interval:       time.Minute,
		BatchSize:      50,
		BaseBackoff:    time.Second,
		MaxBackoff:     5 * time.Minute,
		AlertThreshold: 100,
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive")
	}
	if c.BaseBackoff <= 0 || c.MaxBackoff < c.BaseBackoff {
		return fmt.Errorf("invalid backoff range")
	}
	return nil
}

// Store 死信存储接口，由 dao.DeadLetterDAO 实现
type Store interface {
	FetchDue(ctx context.Context, now time.Time, limit int) ([]*model.DeadLetterEntry, error)
	Delete(ctx context.Context, id int64) error
	UpdateRetry(ctx context.Context, id int64, attemptCount int32, nextRetryAt time.Time, reason string) error
	Count(ctx context.Context) (int64, error)
}

// Replayer 重放入口，由 service.DispatchService 实现
type Replayer interface {
	Replay(ctx context.Context, channelName string, event *model.AlarmEvent) error
}

// Reprocessor 死信重放器
// 定时拉取到期条目走原调度路径重放；深度超限只告警，不影响重放
type Reprocessor struct {
	cfg      *Config
	store    Store
	replayer Replayer
	notifier notify.Notifier
	logger   logger.Logger
	metrics  *metrics.DispatchMetrics

	cron *cron.Cron
}

// NewReprocessor 创建重放器
func NewReprocessor(
	cfg *Config,
	store Store,
	replayer Replayer,
	notifier notify.Notifier,
	l logger.Logger,
	m *metrics.DispatchMetrics,
) (*Reprocessor, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge reprocessor config: %w", err)
	}
	if err := newCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid reprocessor config: %w", err)
	}

	return &Reprocessor{
		cfg:      newCfg,
		store:    store,
		replayer: replayer,
		notifier: notifier,
		logger:   l.Named("dlq.reprocessor"),
		metrics:  m,
		cron:     cron.New(),
	}, nil
}

// Start 启动定时重放
func (r *Reprocessor) Start() error {
	spec := fmt.Sprintf("@every %s", r.cfg.Interval)
	if _, err := r.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Interval)
		defer cancel()
		r.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule reprocessor: %w", err)
	}

	r.cron.Start()
	r.logger.Info("dlq reprocessor started",
		"interval", r.cfg.Interval,
		"batch_size", r.cfg.BatchSize,
	)
	return nil
}

// Stop 停止定时重放，等待在途轮次结束
func (r *Reprocessor) Stop() error {
	<-r.cron.Stop().Done()
	r.logger.Info("dlq reprocessor stopped")
	return nil
}

// RunOnce 执行一轮重放
func (r *Reprocessor) RunOnce(ctx context.Context) {
	now := time.Now()

	depth, err := r.store.Count(ctx)
	if err != nil {
		r.logger.Error("failed to count dead letters",
			"error", err,
		)
	} else {
		r.metrics.RecordDLQDepth(depth)
		if depth > r.cfg.AlertThreshold {
			r.raiseAlert(ctx, depth)
		}
	}

	entries, err := r.store.FetchDue(ctx, now, r.cfg.BatchSize)
	if err != nil {
		r.logger.Error("failed to fetch due dead letters",
			"error", err,
		)
		return
	}
	if len(entries) == 0 {
		return
	}

	r.logger.Info("replaying dead letters",
		"count", len(entries),
	)

	for _, entry := range entries {
		r.replayEntry(ctx, entry)
	}
}

// replayEntry 重放单条死信
// 成功即删除；失败累加尝试次数并按 min(base*2^n, max) 推迟
func (r *Reprocessor) replayEntry(ctx context.Context, entry *model.DeadLetterEntry) {
	event, err := entry.DecodeEvent()
	if err != nil {
		// 无法解码的条目重放不了，推到上限等人工处理
		r.logger.Error("dead letter event undecodable",
			"id", entry.ID,
			"error", err,
		)
		_ = r.store.UpdateRetry(ctx, entry.ID, entry.AttemptCount+1,
			time.Now().Add(r.cfg.MaxBackoff), "undecodable event")
		return
	}

	if err := r.replayer.Replay(ctx, entry.Channel, event); err != nil {
		attempts := entry.AttemptCount + 1
		next := time.Now().Add(service.Backoff(r.cfg.BaseBackoff, r.cfg.MaxBackoff, int(attempts)))

		r.metrics.RecordDLQReplay(false)
		r.logger.Warn("dead letter replay failed",
			"id", entry.ID,
			"attempts", attempts,
			"next_retry_at", next,
			"error", err,
		)

		if updateErr := r.store.UpdateRetry(ctx, entry.ID, attempts, next, err.Error()); updateErr != nil {
			r.logger.Error("failed to update dead letter retry state",
				"id", entry.ID,
				"error", updateErr,
			)
		}
		return
	}

	if err := r.store.Delete(ctx, entry.ID); err != nil {
		r.logger.Error("failed to delete replayed dead letter",
			"id", entry.ID,
			"error", err,
		)
		return
	}

	r.metrics.RecordDLQReplay(true)
	r.logger.Info("dead letter replayed",
		"id", entry.ID,
		"channel", entry.Channel,
	)
}

// raiseAlert 队列深度超阈值告警，失败只记日志
func (r *Reprocessor) raiseAlert(ctx context.Context, depth int64) {
	if r.notifier == nil {
		return
	}

	alert := &notify.Alert{
		Level:       notify.AlertLevelWarning,
		Service:     "dispatch",
		Summary:     "dead letter queue depth over threshold",
		Description: fmt.Sprintf("DLQ depth %d exceeds threshold %d", depth, r.cfg.AlertThreshold),
		Labels: map[string]string{
			"component": "dlq",
		},
		StartsAt: time.Now(),
	}

	if err := r.notifier.Send(ctx, alert); err != nil {
		r.logger.Error("failed to send dlq depth alert",
			"depth", depth,
			"error", err,
		)
	}
}
