package conc

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
)

// TestGo_Wait 测试 Future 等待返回值
func TestGo_Wait(t *testing.T) {
	f := Go(func() (int, error) {
		return 42, nil
	})

	v, err := f.Wait()
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if v != 42 {
		t.Errorf("Wait() = %d, want 42", v)
	}
}

// TestGo_Error 测试任务错误传递
func TestGo_Error(t *testing.T) {
	wantErr := errors.New("task failed")
	f := Go(func() (string, error) {
		return "", wantErr
	})

	if _, err := f.Wait(); !errors.Is(err, wantErr) {
		t.Errorf("Wait() error = %v, want %v", err, wantErr)
	}
}

// TestGo_Inner 测试通过 channel select 消费结果
func TestGo_Inner(t *testing.T) {
	f := Go(func() (int, error) {
		return 7, nil
	})

	select {
	case r := <-f.Inner():
		if r.Err != nil || r.Value != 7 {
			t.Errorf("Inner() = (%d, %v), want (7, nil)", r.Value, r.Err)
		}
	case <-time.After(time.Second):
		t.Fatal("Inner() did not produce a result in time")
	}
}

// TestAwaitAll 测试等待全部任务并返回首个错误
func TestAwaitAll(t *testing.T) {
	okA := Go(func() (int, error) { return 1, nil })
	okB := Go(func() (int, error) { return 2, nil })
	if err := AwaitAll(okA, okB); err != nil {
		t.Errorf("AwaitAll() error = %v, want nil", err)
	}

	wantErr := errors.New("one failed")
	bad := Go(func() (int, error) { return 0, wantErr })
	okC := Go(func() (int, error) { return 3, nil })
	if err := AwaitAll(bad, okC); !errors.Is(err, wantErr) {
		t.Errorf("AwaitAll() error = %v, want %v", err, wantErr)
	}
}

// TestPool_Submit 测试工作池提交与结果回收
func TestPool_Submit(t *testing.T) {
	p := NewPool[int](2)
	defer p.Release()

	if p.Cap() != 2 {
		t.Errorf("Cap() = %d, want 2", p.Cap())
	}

	futures := make([]*Future[int], 0, 5)
	for i := 0; i < 5; i++ {
		n := i
		futures = append(futures, p.Submit(func() (int, error) {
			return n * 2, nil
		}))
	}

	for i, f := range futures {
		v, err := f.Wait()
		if err != nil {
			t.Fatalf("Submit task %d error = %v", i, err)
		}
		if v != i*2 {
			t.Errorf("task %d = %d, want %d", i, v, i*2)
		}
	}
}

// TestPool_Backpressure 测试池满时提交阻塞
func TestPool_Backpressure(t *testing.T) {
	p := NewPool[struct{}](1)
	defer p.Release()

	var running atomic.Int32
	var peak atomic.Int32

	futures := make([]*Future[struct{}], 0, 4)
	for i := 0; i < 4; i++ {
		futures = append(futures, p.Submit(func() (struct{}, error) {
			cur := running.Add(1)
			for {
				old := peak.Load()
				if cur <= old || peak.CompareAndSwap(old, cur) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
			return struct{}{}, nil
		}))
	}

	if err := AwaitAll(futures...); err != nil {
		t.Fatalf("AwaitAll() error = %v", err)
	}
	if peak.Load() != 1 {
		t.Errorf("peak concurrency = %d, want 1", peak.Load())
	}
}
