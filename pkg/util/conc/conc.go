// Package conc 提供基于 ants 协程池的 Future 和泛型工作池。
// 统一协程创建入口，避免散落的裸 go 语句导致泄漏无法追踪。
package conc

import (
	"sync"

	"github.com/panjf2000/ants/v2"
)

// Result 携带任务返回值和错误
type Result[T any] struct {
	Value T
	Err   error
}

// Future 表示一个进行中的异步任务
type Future[T any] struct {
	ch chan Result[T]
}

// Inner 返回底层 channel，可用于 select
func (f *Future[T]) Inner() <-chan Result[T] {
	return f.ch
}

// Wait 阻塞等待任务完成
func (f *Future[T]) Wait() (T, error) {
	r := <-f.ch
	return r.Value, r.Err
}

// Go 在默认协程池中执行 fn，返回 Future
// ants 池不可用时回退到裸协程，保证任务不丢失
func Go[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{ch: make(chan Result[T], 1)}

	run := func() {
		v, err := fn()
		f.ch <- Result[T]{Value: v, Err: err}
		close(f.ch)
	}

	if err := ants.Submit(run); err != nil {
		go run()
	}

	return f
}

// AwaitAll 等待所有 Future 完成，返回首个遇到的错误
func AwaitAll[T any](futures ...*Future[T]) error {
	var (
		firstErr error
		once     sync.Once
		wg       sync.WaitGroup
	)

	for _, f := range futures {
		wg.Add(1)
		fut := f
		go func() {
			defer wg.Done()
			if _, err := fut.Wait(); err != nil {
				once.Do(func() { firstErr = err })
			}
		}()
	}

	wg.Wait()
	return firstErr
}
