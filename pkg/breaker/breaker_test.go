package breaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

// failN 返回一个先失败 n 次后一直成功的操作
func failN(n int) func(ctx context.Context) error {
	count := 0
	return func(ctx context.Context) error {
		count++
		if count <= n {
			return errBoom
		}
		return nil
	}
}

// TestBreakerOpensAfterThreshold 测试连续失败达到阈值后熔断
func TestBreakerOpensAfterThreshold(t *testing.T) {
	b, err := New("test", &Config{
		FailureThreshold: 3,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	alwaysFail := func(ctx context.Context) error { return errBoom }

	for i := 0; i < 3; i++ {
		if err := b.Execute(ctx, alwaysFail); !errors.Is(err, errBoom) {
			t.Errorf("Execute() #%d error = %v, want errBoom", i, err)
		}
	}

	if got := b.State(); got != StateOpen {
		t.Fatalf("State() = %v, want open", got)
	}

	// Open 状态下操作不应被调用
	invoked := false
	err = b.Execute(ctx, func(ctx context.Context) error {
		invoked = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() error = %v, want ErrCircuitOpen", err)
	}
	if invoked {
		t.Error("operation was invoked while breaker is open")
	}
}

// TestBreakerSuccessResetsFailures 测试成功会重置连续失败计数
func TestBreakerSuccessResetsFailures(t *testing.T) {
	b, err := New("test", &Config{FailureThreshold: 3})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	fail := func(ctx context.Context) error { return errBoom }
	ok := func(ctx context.Context) error { return nil }

	_ = b.Execute(ctx, fail)
	_ = b.Execute(ctx, fail)
	_ = b.Execute(ctx, ok)
	_ = b.Execute(ctx, fail)
	_ = b.Execute(ctx, fail)

	if got := b.State(); got != StateClosed {
		t.Errorf("State() = %v, want closed", got)
	}
}

// TestBreakerHalfOpenRecovery 测试超时后进入 HalfOpen 并最终恢复
func TestBreakerHalfOpenRecovery(t *testing.T) {
	b, err := New("test", &Config{
		FailureThreshold: 2,
		SuccessThreshold: 2,
		Timeout:          20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	fail := func(ctx context.Context) error { return errBoom }
	ok := func(ctx context.Context) error { return nil }

	_ = b.Execute(ctx, fail)
	_ = b.Execute(ctx, fail)

	if got := b.State(); got != StateOpen {
		t.Fatalf("State() = %v, want open", got)
	}

	// 等待超时，进入 HalfOpen
	time.Sleep(30 * time.Millisecond)

	if got := b.State(); got != StateHalfOpen {
		t.Fatalf("State() = %v, want half_open", got)
	}

	// 连续两次成功后恢复
	if err := b.Execute(ctx, ok); err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if err := b.Execute(ctx, ok); err != nil {
		t.Errorf("Execute() error = %v", err)
	}

	if got := b.State(); got != StateClosed {
		t.Errorf("State() = %v, want closed", got)
	}
}

// TestBreakerHalfOpenFailureReopens 测试 HalfOpen 下失败立即重新熔断
func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b, err := New("test", &Config{
		FailureThreshold: 2,
		SuccessThreshold: 2,
		Timeout:          20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	fail := func(ctx context.Context) error { return errBoom }

	_ = b.Execute(ctx, fail)
	_ = b.Execute(ctx, fail)
	time.Sleep(30 * time.Millisecond)

	if got := b.State(); got != StateHalfOpen {
		t.Fatalf("State() = %v, want half_open", got)
	}

	_ = b.Execute(ctx, fail)

	if got := b.State(); got != StateOpen {
		t.Errorf("State() = %v, want open after half-open failure", got)
	}
}

// TestBreakerHalfOpenLimitsCalls 测试 HalfOpen 下只允许有限试探
func TestBreakerHalfOpenLimitsCalls(t *testing.T) {
	b, err := New("test", &Config{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          10 * time.Millisecond,
		MaxHalfOpenCalls: 1,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	_ = b.Execute(ctx, func(ctx context.Context) error { return errBoom })
	time.Sleep(20 * time.Millisecond)

	// 第一个试探调用挂起时，第二个应被拒绝
	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = b.Execute(ctx, func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()

	<-started
	err = b.Execute(ctx, func(ctx context.Context) error { return nil })
	if !errors.Is(err, ErrTooManyCalls) {
		t.Errorf("Execute() error = %v, want ErrTooManyCalls", err)
	}
	close(release)
}

// TestBreakerStateChangeCallback 测试状态变更回调
func TestBreakerStateChangeCallback(t *testing.T) {
	var transitions []string
	b, err := New("dep", &Config{FailureThreshold: 1},
		WithStateChange(func(name string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		}),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_ = b.Execute(context.Background(), func(ctx context.Context) error { return errBoom })

	if len(transitions) != 1 || transitions[0] != "closed->open" {
		t.Errorf("transitions = %v, want [closed->open]", transitions)
	}
}
