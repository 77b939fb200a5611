package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/logger"
)

// ServerConfig 运维 HTTP 服务配置
type ServerConfig struct {
	Addr string `mapstructure:"addr" json:"addr" yaml:"addr"`
	Mode string `mapstructure:"mode" json:"mode" yaml:"mode"`
}

// DefaultServerConfig 默认配置
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Addr: ":8080",
		Mode: gin.ReleaseMode,
	}
}

// HTTPServer 运维 HTTP 服务，实现 app.Server
type HTTPServer struct {
	srv    *http.Server
	logger logger.Logger
}

// NewHTTPServer 创建 HTTP 服务并挂载运维路由
func NewHTTPServer(cfg *ServerConfig, ops *OpsHandler, l logger.Logger) *HTTPServer {
	if cfg == nil {
		cfg = DefaultServerConfig()
	}

	gin.SetMode(cfg.Mode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	ops.RegisterRoutes(engine)

	return &HTTPServer{
		srv: &http.Server{
			Addr:    cfg.Addr,
			Handler: engine,
		},
		logger: l.Named("handler.http"),
	}
}

// Start 启动监听
func (s *HTTPServer) Start() error {
	s.logger.Info("ops http server starting",
		"addr", s.srv.Addr,
	)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("ops http server failed",
				"error", err,
			)
		}
	}()

	return nil
}

// Stop 优雅关闭
func (s *HTTPServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown ops http server: %w", err)
	}

	s.logger.Info("ops http server stopped")
	return nil
}
