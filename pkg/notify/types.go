package notify

import "time"

// Alert 统一告警结构（平台无关）
type Alert struct {
	Level       AlertLevel // critical/warning/info
	Service     string     // 服务名
	Summary     string     // 一句话摘要
	Description string     // 详细描述

	// Labels 自定义标签
	Labels map[string]string

	// StartsAt 告警开始时间
	StartsAt time.Time

	// DashboardURL 监控大盘链接
	DashboardURL string
}

// AlertLevel 告警级别
type AlertLevel string

const (
	AlertLevelCritical AlertLevel = "critical"
	AlertLevelWarning  AlertLevel = "warning"
	AlertLevelInfo     AlertLevel = "info"
)
