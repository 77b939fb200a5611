package conc

import (
	"github.com/panjf2000/ants/v2"
)

// Pool 容量受限的泛型工作池
// 基于 ants.Pool，容量满时 Submit 阻塞，形成天然的背压
type Pool[T any] struct {
	inner *ants.Pool
}

// NewPool 创建工作池，size 为最大并发数
func NewPool[T any](size int) *Pool[T] {
	if size < 1 {
		size = 1
	}

	// ants.WithNonblocking(false)：池满时阻塞提交者
	inner, err := ants.NewPool(size, ants.WithNonblocking(false))
	if err != nil {
		panic(err)
	}

	return &Pool[T]{inner: inner}
}

// Submit 提交任务，返回 Future
// 池已满时阻塞直到有空闲 worker
func (p *Pool[T]) Submit(fn func() (T, error)) *Future[T] {
	f := &Future[T]{ch: make(chan Result[T], 1)}

	err := p.inner.Submit(func() {
		v, err := fn()
		f.ch <- Result[T]{Value: v, Err: err}
		close(f.ch)
	})
	if err != nil {
		var zero T
		f.ch <- Result[T]{Value: zero, Err: err}
		close(f.ch)
	}

	return f
}

// Running 当前运行中的 worker 数
func (p *Pool[T]) Running() int {
	return p.inner.Running()
}

// Cap 池容量
func (p *Pool[T]) Cap() int {
	return p.inner.Cap()
}

// Free 空闲 worker 数
func (p *Pool[T]) Free() int {
	return p.inner.Free()
}

// Release 释放池
func (p *Pool[T]) Release() {
	p.inner.Release()
}
