package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/metrics"
	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/model"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/app"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/logger"
)

// WorkerLister 工作进程读取接口
type WorkerLister interface {
	List(ctx context.Context) ([]*model.WorkerRecord, error)
}

// DLQCounter 死信深度读取接口
type DLQCounter interface {
	Count(ctx context.Context) (int64, error)
}

// BreakerViewer 熔断器状态读取接口
type BreakerViewer interface {
	Breakers() map[string]string
}

// OpsHandler 运维观测接口
type OpsHandler struct {
	workers  WorkerLister
	dlq      DLQCounter
	breakers BreakerViewer
	metrics  *metrics.DispatchMetrics
	registry *prometheus.Registry
	logger   logger.Logger
}

// NewOpsHandler 创建运维接口处理器
func NewOpsHandler(
	workers WorkerLister,
	dlq DLQCounter,
	breakers BreakerViewer,
	m *metrics.DispatchMetrics,
	registry *prometheus.Registry,
	l logger.Logger,
) *OpsHandler {
	return &OpsHandler{
		workers:  workers,
		dlq:      dlq,
		breakers: breakers,
		metrics:  m,
		registry: registry,
		logger:   l.Named("handler.ops"),
	}
}

// RegisterRoutes 注册路由
func (h *OpsHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", h.healthz)
	r.GET("/version", h.version)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{})))

	ops := r.Group("/ops")
	{
		ops.GET("/workers", h.listWorkers)
		ops.GET("/breakers", h.listBreakers)
		ops.GET("/dlq", h.dlqDepth)
		ops.GET("/stats", h.stats)
	}
}

func (h *OpsHandler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *OpsHandler) version(c *gin.Context) {
	c.JSON(http.StatusOK, app.GetInfo())
}

func (h *OpsHandler) listWorkers(c *gin.Context) {
	records, err := h.workers.List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list workers",
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list workers"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"workers": records})
}

func (h *OpsHandler) listBreakers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"breakers": h.breakers.Breakers()})
}

func (h *OpsHandler) dlqDepth(c *gin.Context) {
	depth, err := h.dlq.Count(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to count dead letters",
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count dead letters"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"depth": depth})
}

func (h *OpsHandler) stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.GetStats())
}
