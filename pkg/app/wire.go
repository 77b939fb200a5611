package app

import (
	"github.com/google/wire"
)

// ProviderSet 框架层依赖注入集合
var ProviderSet = wire.NewSet(
	NewLoggerRegistry,
)

// Components 应用组件集合，由各服务的 wire 注入
type Components struct {
	Servers []Server
	Closers []Closer
}

// InitApp 将组件挂载到应用
func InitApp(a *BaseApp, comps Components) *BaseApp {
	a.AppendServer(comps.Servers...)
	a.AppendCloser(comps.Closers...)
	return a
}

// CloseFunc 将清理函数适配为 Closer
type CloseFunc func() error

func (f CloseFunc) Close() error { return f() }

// ServerFunc 将启动/停止函数对适配为 Server
type ServerFunc struct {
	StartFn func() error
	StopFn  func() error
}

func (s ServerFunc) Start() error { return s.StartFn() }
func (s ServerFunc) Stop() error  { return s.StopFn() }
