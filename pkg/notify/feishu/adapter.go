package feishu

import (
	"context"
	"fmt"

	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/notify"
)

// Adapter 飞书适配器（实现 notify.Notifier 接口）
type Adapter struct {
	client *Client
}

// NewAdapter 创建飞书适配器
func NewAdapter(cfg *Config) (*Adapter, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	return &Adapter{client: client}, nil
}

// Send 实现 notify.Notifier 接口
func (a *Adapter) Send(ctx context.Context, alert *notify.Alert) error {
	return a.client.Send(a.convertToPost(alert))
}

// Name 实现 notify.Notifier 接口
func (a *Adapter) Name() string {
	return "feishu"
}

// convertToPost 转换为飞书富文本格式
func (a *Adapter) convertToPost(alert *notify.Alert) *PostMessage {
	emoji := a.getLevelEmoji(alert.Level)
	msg := NewPostMessage(fmt.Sprintf("%s %s告警", emoji, alert.Service))

	msg.AddLine(Text(fmt.Sprintf("摘要: %s", alert.Summary)))

	if alert.Description != "" {
		msg.AddLine(Text(fmt.Sprintf("详情: %s", alert.Description)))
	}

	if len(alert.Labels) > 0 {
		msg.AddLine(Text("标签:"))
		for k, v := range alert.Labels {
			msg.AddLine(Text(fmt.Sprintf("  • %s: %s", k, v)))
		}
	}

	if !alert.StartsAt.IsZero() {
		msg.AddLine(Text(fmt.Sprintf("开始时间: %s",
			alert.StartsAt.Format("2006-01-02 15:04:05"))))
	}

	if alert.DashboardURL != "" {
		msg.AddLine(Link("📊 查看监控大盘", alert.DashboardURL))
	}

	return msg
}

func (a *Adapter) getLevelEmoji(level notify.AlertLevel) string {
	switch level {
	case notify.AlertLevelCritical:
		return "🔴"
	case notify.AlertLevelWarning:
		return "🟡"
	case notify.AlertLevelInfo:
		return "🟢"
	default:
		return "ℹ️"
	}
}
