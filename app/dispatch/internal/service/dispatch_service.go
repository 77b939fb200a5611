package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/channel"
	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/dao"
	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/gateway"
	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/metrics"
	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/model"
	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/selector"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/breaker"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/config"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/logger"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/mq/kafka"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/util/conc"
)

// DeadLetterSink 死信下沉接口，由 dlq.Publisher 实现
type DeadLetterSink interface {
	Publish(ctx context.Context, entry *model.DeadLetterEntry) error
}

// DispatchService 告警调度服务
// 消费告警事件，经去重后按通道投递，重试耗尽的事件写入死信。
// 只有发送成功或死信落稳后才向 broker 确认
type DispatchService struct {
	cfg      *Config
	channels *channel.Registry
	dedup    dao.DedupStore
	dlq      DeadLetterSink
	logger   logger.Logger
	metrics  *metrics.DispatchMetrics

	// pools 每个通道一个有界协程池，池满时 Submit 阻塞形成背压
	pools map[string]*conc.Pool[struct{}]
}

// NewDispatchService 创建调度服务
func NewDispatchService(
	cfg *Config,
	channels *channel.Registry,
	dedup dao.DedupStore,
	dlq DeadLetterSink,
	l logger.Logger,
	m *metrics.DispatchMetrics,
) (*DispatchService, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge dispatch config: %w", err)
	}
	if err := newCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dispatch config: %w", err)
	}

	pools := make(map[string]*conc.Pool[struct{}])
	for _, name := range channels.Names() {
		_, chCfg, _ := channels.Get(name)
		pools[name] = conc.NewPool[struct{}](chCfg.MaxConcurrency)
	}

	return &DispatchService{
		cfg:      newCfg,
		channels: channels,
		dedup:    dedup,
		dlq:      dlq,
		logger:   l.Named("service.dispatch"),
		metrics:  m,
		pools:    pools,
	}, nil
}

// Config 返回生效配置
func (s *DispatchService) Config() *Config {
	return s.cfg
}

// HandleMessage Kafka 消费入口
// 返回 nil 表示可以向 broker 确认；返回错误则不确认，等待重投
func (s *DispatchService) HandleMessage(ctx context.Context, msg *kafka.Message) error {
	start := time.Now()

	var event model.AlarmEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		// 坏消息重投也不会变好，立即死信并确认
		return s.deadLetterMalformed(ctx, msg.Value, fmt.Sprintf("malformed payload: %v", err))
	}
	if err := event.Validate(); err != nil {
		return s.deadLetterMalformed(ctx, msg.Value, fmt.Sprintf("invalid event: %v", err))
	}

	first, err := s.dedup.MarkIfFirst(ctx, event.DedupKey(s.cfg.DedupWindow), s.cfg.DedupWindow)
	if err != nil {
		// 去重存储不可用时放行，宁重不丢
		s.logger.Warn("dedup store unavailable, proceeding without dedup",
			"imei", event.IMEI,
			"error", err,
		)
	} else if !first {
		s.metrics.RecordDedupDropped()
		s.metrics.RecordEvent("deduped", event.EventType, 0)
		s.logger.Debug("duplicate event dropped",
			"imei", event.IMEI,
			"event_type", event.EventType,
		)
		return nil
	}

	if err := s.dispatch(ctx, &event); err != nil {
		return err
	}

	s.metrics.RecordEvent("sent", event.EventType, time.Since(start).Seconds())
	return nil
}

// dispatch 将事件分发到所有目标通道
// 任一通道重试耗尽即为该通道死信；死信写入失败时整体不确认
func (s *DispatchService) dispatch(ctx context.Context, event *model.AlarmEvent) error {
	type channelOutcome struct {
		name string
		err  error
	}

	names := event.EffectiveChannels()
	futures := make([]*conc.Future[struct{}], 0, len(names))
	outcomes := make(chan channelOutcome, len(names))

	for _, name := range names {
		ch, chCfg, ok := s.channels.Get(name)
		if !ok {
			// 未注册的通道无法投递也无法重试，直接落死信
			s.logger.Warn("event requests unknown channel",
				"channel", name,
				"imei", event.IMEI,
			)
			if err := s.deadLetter(ctx, event, name, errors.Newf("unknown channel %q", name)); err != nil {
				return errors.Wrap(err, "failed to record dead letter")
			}
			continue
		}

		name := name
		f := s.pools[name].Submit(func() (struct{}, error) {
			err := s.sendWithRetry(ctx, ch, chCfg, event)
			outcomes <- channelOutcome{name: name, err: err}
			return struct{}{}, err
		})
		futures = append(futures, f)
	}

	// 等待所有通道结束（一个事件内各通道并行，单通道内重试串行）
	_ = conc.AwaitAll(futures...)
	close(outcomes)

	for out := range outcomes {
		if out.err == nil {
			continue
		}
		if err := s.deadLetter(ctx, event, out.name, out.err); err != nil {
			// 落死信失败不能确认，等 broker 重投
			return errors.Wrap(err, "failed to record dead letter")
		}
	}

	return nil
}

// sendWithRetry 单通道投递，带指数退避重试
func (s *DispatchService) sendWithRetry(ctx context.Context, ch channel.Channel, cfg *channel.Config, event *model.AlarmEvent) error {
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := Backoff(cfg.BackoffBase, cfg.BackoffMax, attempt-1)
			s.metrics.RecordRetry(ch.Name(), retryReason(lastErr))
			s.logger.Info("retrying channel send",
				"channel", ch.Name(),
				"imei", event.IMEI,
				"attempt", attempt,
				"backoff", wait,
			)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		start := time.Now()
		err := ch.Send(ctx, event)
		duration := time.Since(start).Seconds()
		s.metrics.RecordSend(ch.Name(), err == nil, duration, cfg.SLA.Seconds())

		if err == nil {
			return nil
		}
		lastErr = err

		// 选取器耗尽所有层级属终态，重试无意义
		if errors.Is(err, selector.ErrNoModemAvailable) {
			return err
		}
	}

	return lastErr
}

// retryReason 重试原因分类，用于指标
func retryReason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, breaker.ErrCircuitOpen):
		return "circuit_open"
	case gateway.IsQuotaExhausted(err):
		return "quota"
	case gateway.IsTransport(err):
		return "transport"
	default:
		return "other"
	}
}

// deadLetter 将重试耗尽的事件写入死信
func (s *DispatchService) deadLetter(ctx context.Context, event *model.AlarmEvent, channelName string, cause error) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event for dead letter: %w", err)
	}

	now := time.Now()
	entry := &model.DeadLetterEntry{
		Event:         raw,
		Channel:       channelName,
		FailureReason: cause.Error(),
		AttemptCount:  0,
		NextRetryAt:   now,
		FirstFailedAt: now,
	}

	if err := s.dlq.Publish(ctx, entry); err != nil {
		return err
	}

	s.metrics.RecordEvent("dead_lettered", event.EventType, 0)
	s.logger.Error("event dead-lettered",
		"imei", event.IMEI,
		"event_type", event.EventType,
		"channel", channelName,
		"reason", cause.Error(),
	)
	return nil
}

// deadLetterMalformed 无法解析的消息直接死信，永不重试
func (s *DispatchService) deadLetterMalformed(ctx context.Context, raw []byte, reason string) error {
	// 原始负载未必是合法 JSON，包一层字符串保证可存储
	quoted, _ := json.Marshal(string(raw))

	now := time.Now()
	entry := &model.DeadLetterEntry{
		Event:         quoted,
		Channel:       "none",
		FailureReason: reason,
		AttemptCount:  0,
		// 解析失败的消息重放也无意义，推到远期由人工处理
		NextRetryAt:   now.Add(24 * time.Hour * 365),
		FirstFailedAt: now,
	}

	if err := s.dlq.Publish(ctx, entry); err != nil {
		return errors.Wrap(err, "failed to record malformed dead letter")
	}

	s.metrics.RecordEvent("malformed", "unknown", 0)
	s.logger.Error("malformed event dead-lettered",
		"reason", reason,
	)
	return nil
}

// Replay 死信重放入口：单次投递，不走通道自身的重试
// 由 DLQ 重放器调用，重放失败的退避由重放器按条目维护
func (s *DispatchService) Replay(ctx context.Context, channelName string, event *model.AlarmEvent) error {
	ch, chCfg, ok := s.channels.Get(channelName)
	if !ok {
		return fmt.Errorf("unknown channel %s", channelName)
	}

	start := time.Now()
	err := ch.Send(ctx, event)
	s.metrics.RecordSend(ch.Name(), err == nil, time.Since(start).Seconds(), chCfg.SLA.Seconds())
	return err
}

// Release 释放通道协程池
func (s *DispatchService) Release() {
	for _, p := range s.pools {
		p.Release()
	}
}
