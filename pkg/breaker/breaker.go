// Package breaker 提供面向单个外部依赖的熔断器。
// 每个依赖（数据库、消息队列、短信网关）各持有一个实例，互不共享。
package breaker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/config"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/logger"
)

// State 熔断器状态
type State int32

const (
	StateClosed   State = iota // 正常放行
	StateOpen                  // 熔断，直接拒绝
	StateHalfOpen              // 试探恢复
)

// String 返回状态名
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// StateChangeFunc 状态变更回调（用于指标和日志）
type StateChangeFunc func(name string, from, to State)

// Breaker 熔断器
// 状态迁移：Closed --连续失败达阈值--> Open --超时--> HalfOpen
// HalfOpen --连续成功达阈值--> Closed，HalfOpen 任一失败 --> Open
type Breaker struct {
	name   string
	cfg    *Config
	logger logger.Logger

	mu            sync.Mutex
	state         State
	failures      int       // 连续失败数
	successes     int       // HalfOpen 下连续成功数
	halfOpenCalls int       // HalfOpen 下进行中的试探调用数
	openedAt      time.Time // 进入 Open 的时间

	onStateChange StateChangeFunc
}

// Option 熔断器选项
type Option func(*Breaker)

// WithLogger 设置日志记录器
func WithLogger(l logger.Logger) Option {
	return func(b *Breaker) {
		b.logger = l
	}
}

// WithStateChange 设置状态变更回调
func WithStateChange(fn StateChangeFunc) Option {
	return func(b *Breaker) {
		b.onStateChange = fn
	}
}

// New 创建熔断器
// name 标识被保护的依赖，用于日志和指标
func New(name string, cfg *Config, opts ...Option) (*Breaker, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge breaker config: %w", err)
	}

	if err := newCfg.Validate(); err != nil {
		return nil, err
	}

	b := &Breaker{
		name:   name,
		cfg:    newCfg,
		logger: logger.NewNoop(),
		state:  StateClosed,
	}

	for _, opt := range opts {
		opt(b)
	}

	b.logger = b.logger.Named("breaker." + name)

	return b, nil
}

// Name 返回熔断器名称
func (b *Breaker) Name() string {
	return b.name
}

// State 返回当前状态（会先结算 Open 超时）
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.settle(time.Now())
	return b.state
}

// Execute 执行受保护的调用
// Open 状态下直接返回 ErrCircuitOpen，不触碰依赖
func (b *Breaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	if err := b.beforeCall(); err != nil {
		return err
	}

	err := op(ctx)
	b.afterCall(err == nil)
	return err
}

// beforeCall 进入调用前的状态检查
func (b *Breaker) beforeCall() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.settle(now)

	switch b.state {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if b.halfOpenCalls >= b.cfg.MaxHalfOpenCalls {
			return ErrTooManyCalls
		}
		b.halfOpenCalls++
	}

	return nil
}

// afterCall 调用结束后更新计数和状态
func (b *Breaker) afterCall(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		if success {
			b.failures = 0
			return
		}
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.transition(StateOpen)
		}

	case StateHalfOpen:
		b.halfOpenCalls--
		if !success {
			// 试探失败，立即回到 Open 重新计时
			b.transition(StateOpen)
			return
		}
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.transition(StateClosed)
		}
	}
}

// settle 结算 Open 超时，到期后进入 HalfOpen
// 调用方必须持有 b.mu
func (b *Breaker) settle(now time.Time) {
	if b.state == StateOpen && now.Sub(b.openedAt) >= b.cfg.Timeout {
		b.transition(StateHalfOpen)
	}
}

// transition 执行状态迁移
// 调用方必须持有 b.mu
func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}

	b.state = to

	switch to {
	case StateOpen:
		b.openedAt = time.Now()
		b.successes = 0
		b.halfOpenCalls = 0
	case StateHalfOpen:
		b.successes = 0
		b.halfOpenCalls = 0
	case StateClosed:
		b.failures = 0
		b.successes = 0
		b.halfOpenCalls = 0
	}

	b.logger.Warn("breaker state changed",
		"from", from.String(),
		"to", to.String(),
	)

	if b.onStateChange != nil {
		b.onStateChange(b.name, from, to)
	}
}
