package app

import (
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/logger"
)

// Options 应用程序选项
type Options struct {
	ID          string
	Name        string
	StopTimeout time.Duration
	Logger      logger.Logger
}

// Option 选项函数
type Option func(*Options)

// DefaultOptions 默认选项
func DefaultOptions() Options {
	id, err := os.Hostname()
	if err != nil || id == "" {
		id = uuid.NewString()
	}
	return Options{
		ID:          id,
		Name:        "dispatch",
		StopTimeout: 30 * time.Second,
		Logger:      logger.Default(),
	}
}

// WithID 设置实例 ID
func WithID(id string) Option {
	return func(o *Options) { o.ID = id }
}

// WithName 设置应用名称
func WithName(name string) Option {
	return func(o *Options) { o.Name = name }
}

// WithStopTimeout 设置优雅停机超时时间
func WithStopTimeout(d time.Duration) Option {
	return func(o *Options) { o.StopTimeout = d }
}

// WithLogger 设置日志对象
func WithLogger(l logger.Logger) Option {
	return func(o *Options) { o.Logger = l }
}
