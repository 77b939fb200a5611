package registry

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/model"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/config"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/logger"
)

// Config 注册表配置
type Config struct {
	// HeartbeatInterval 心跳上报周期
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval" json:"heartbeat_interval" yaml:"heartbeat_interval"`

	// StaleThreshold 超过该时长未心跳判为 stale
	StaleThreshold time.Duration `mapstructure:"stale_threshold" json:"stale_threshold" yaml:"stale_threshold"`

	// DeadThreshold 超过该时长未心跳判为 dead 并清理
	DeadThreshold time.Duration `mapstructure:"dead_threshold" json:"dead_threshold" yaml:"dead_threshold"`

	// SweepInterval 巡检周期
	SweepInterval time.Duration `mapstructure:"sweep_interval" json:"sweep_interval" yaml:"sweep_interval"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		HeartbeatInterval: 30 * time.Second,
		StaleThreshold:    90 * time.Second,
		DeadThreshold:     10 * time.Minute,
		SweepInterval:     time.Minute,
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.HeartbeatInterval <= 0 || c.SweepInterval <= 0 {
		return fmt.Errorf("intervals must be positive")
	}
	if c.StaleThreshold <= c.HeartbeatInterval {
		return fmt.Errorf("stale_threshold must exceed heartbeat_interval")
	}
	if c.DeadThreshold <= c.StaleThreshold {
		return fmt.Errorf("dead_threshold must exceed stale_threshold")
	}
	return nil
}

// WorkerStore 注册表存储接口，由 dao.WorkerDAO 实现
type WorkerStore interface {
	UpsertHeartbeat(ctx context.Context, record *model.WorkerRecord) error
	List(ctx context.Context) ([]*model.WorkerRecord, error)
	UpdateStatus(ctx context.Context, workerID string, status model.WorkerStatus) error
	Remove(ctx context.Context, workerID string) error
}

// Registry 工作进程注册表，实现 app.Server
// 心跳与巡检仅供运维观测，不参与任务分配
type Registry struct {
	cfg    *Config
	store  WorkerStore
	logger logger.Logger

	workerID  string
	hostname  string
	pid       int32
	startedAt time.Time

	cron *cron.Cron
}

// New 创建注册表
func New(cfg *Config, store WorkerStore, l logger.Logger) (*Registry, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge registry config: %w", err)
	}
	if err := newCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid registry config: %w", err)
	}

	hostname, _ := os.Hostname()

	return &Registry{
		cfg:       newCfg,
		store:     store,
		logger:    l.Named("registry"),
		workerID:  uuid.NewString(),
		hostname:  hostname,
		pid:       int32(os.Getpid()),
		startedAt: time.Now(),
		cron:      cron.New(),
	}, nil
}

// WorkerID 返回本进程的注册 ID
func (r *Registry) WorkerID() string {
	return r.workerID
}

// Start 启动心跳与巡检
func (r *Registry) Start() error {
	// 启动即上报一次，不等第一个周期
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := r.Heartbeat(ctx); err != nil {
		r.logger.Warn("initial heartbeat failed",
			"error", err,
		)
	}
	cancel()

	hbSpec := fmt.Sprintf("@every %s", r.cfg.HeartbeatInterval)
	if _, err := r.cron.AddFunc(hbSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.HeartbeatInterval)
		defer cancel()
		if err := r.Heartbeat(ctx); err != nil {
			r.logger.Warn("heartbeat failed",
				"error", err,
			)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule heartbeat: %w", err)
	}

	sweepSpec := fmt.Sprintf("@every %s", r.cfg.SweepInterval)
	if _, err := r.cron.AddFunc(sweepSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.SweepInterval)
		defer cancel()
		r.Sweep(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	r.cron.Start()
	r.logger.Info("worker registry started",
		"worker_id", r.workerID,
		"heartbeat_interval", r.cfg.HeartbeatInterval,
	)
	return nil
}

// Stop 停止心跳并注销本进程
func (r *Registry) Stop() error {
	<-r.cron.Stop().Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.store.Remove(ctx, r.workerID); err != nil {
		r.logger.Warn("failed to deregister worker",
			"worker_id", r.workerID,
			"error", err,
		)
	}

	r.logger.Info("worker registry stopped",
		"worker_id", r.workerID,
	)
	return nil
}

// Heartbeat 上报一次心跳
func (r *Registry) Heartbeat(ctx context.Context) error {
	return r.store.UpsertHeartbeat(ctx, &model.WorkerRecord{
		WorkerID:        r.workerID,
		Hostname:        r.hostname,
		PID:             r.pid,
		Status:          model.WorkerStatusActive,
		StartedAt:       r.startedAt,
		LastHeartbeatAt: time.Now(),
	})
}

// Sweep 巡检全部注册记录
// stale 记录改状态，dead 记录直接清除
func (r *Registry) Sweep(ctx context.Context) {
	records, err := r.store.List(ctx)
	if err != nil {
		r.logger.Error("failed to list workers for sweep",
			"error", err,
		)
		return
	}

	now := time.Now()
	for _, record := range records {
		status := record.Classify(now, r.cfg.StaleThreshold, r.cfg.DeadThreshold)
		switch {
		case status == model.WorkerStatusDead:
			r.logger.Warn("removing dead worker",
				"worker_id", record.WorkerID,
				"last_heartbeat_at", record.LastHeartbeatAt,
			)
			if err := r.store.Remove(ctx, record.WorkerID); err != nil {
				r.logger.Error("failed to remove dead worker",
					"worker_id", record.WorkerID,
					"error", err,
				)
			}
		case status != record.Status:
			if err := r.store.UpdateStatus(ctx, record.WorkerID, status); err != nil {
				r.logger.Error("failed to update worker status",
					"worker_id", record.WorkerID,
					"status", status,
					"error", err,
				)
			}
		}
	}
}
