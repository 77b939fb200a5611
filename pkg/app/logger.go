package app

import (
	"fmt"
	"sync"

	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/logger"
)

// LoggerRegistry 管理应用内所有命名日志对象，便于统一 Sync
type LoggerRegistry struct {
	mu      sync.RWMutex
	loggers map[string]logger.Logger
}

// NewLoggerRegistry 创建日志注册表
func NewLoggerRegistry() *LoggerRegistry {
	return &LoggerRegistry{
		loggers: make(map[string]logger.Logger),
	}
}

// Register 注册命名日志对象
func (r *LoggerRegistry) Register(name string, l logger.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loggers[name] = l
}

// Get 获取命名日志对象，不存在时返回默认日志对象
func (r *LoggerRegistry) Get(name string) logger.Logger {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if l, ok := r.loggers[name]; ok {
		return l
	}
	return logger.Default()
}

// SyncAll 刷新所有日志缓冲
func (r *LoggerRegistry) SyncAll() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var firstErr error
	for name, l := range r.loggers {
		if err := l.Sync(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("sync logger %s: %w", name, err)
		}
	}
	return firstErr
}

// InitAppLogger 根据配置初始化默认日志对象并注册
func InitAppLogger(cfg *logger.Config, registry *LoggerRegistry) (logger.Logger, error) {
	l, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init app logger: %w", err)
	}

	logger.SetDefault(l)
	registry.Register("app", l)

	return l, nil
}
