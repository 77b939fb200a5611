package logger

import (
	"sync"
)

var (
	defaultLogger Logger
	defaultMu     sync.RWMutex
	defaultOnce   sync.Once
)

// SetDefault 设置默认 logger
func SetDefault(l Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

// Default 获取默认 logger
// 懒加载：首次调用时使用默认配置（仅控制台输出）
func Default() Logger {
	defaultOnce.Do(func() {
		defaultMu.Lock()
		defer defaultMu.Unlock()
		if defaultLogger == nil {
			l, err := New(DefaultConfig())
			if err != nil {
				panic(err)
			}
			defaultLogger = l
		}
	})

	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}
