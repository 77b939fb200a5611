package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventState 事件处理状态
type EventState string

const (
	EventStateReceived     EventState = "received"
	EventStateDeduped      EventState = "deduped"
	EventStateProcessing   EventState = "processing"
	EventStateSent         EventState = "sent"
	EventStateRetrying     EventState = "retrying"
	EventStateDeadLettered EventState = "dead_lettered"
)

// AlarmEvent 告警事件，从 Kafka 消费
type AlarmEvent struct {
	// IMEI 设备标识
	IMEI string `json:"imei"`

	// EventType 告警类型（超速、越界、断电等）
	EventType string `json:"event_type"`

	// Service 通知业务类型，决定 modem 选取范围
	Service ServiceKind `json:"service"`

	// ModemID 设备绑定的 modem，0 表示未绑定
	ModemID int64 `json:"modem_id,omitempty"`

	// 通知目标
	PhoneNumber string `json:"phone_number,omitempty"`
	Email       string `json:"email,omitempty"`

	// Channels 需要走的通道列表（sms、email、voice），为空默认 sms
	Channels []string `json:"channels,omitempty"`

	Message string `json:"message"`

	// Payload 原始告警数据
	Payload json.RawMessage `json:"payload,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}

// Validate 校验事件必填字段
func (e *AlarmEvent) Validate() error {
	if e.IMEI == "" {
		return fmt.Errorf("alarm event missing imei")
	}
	if e.EventType == "" {
		return fmt.Errorf("alarm event missing event_type")
	}
	if e.OccurredAt.IsZero() {
		return fmt.Errorf("alarm event missing occurred_at")
	}
	return nil
}

// DedupKey 幂等去重键
// 时间按去重窗口向下取整分桶，同一桶内的同类告警视为重复
func (e *AlarmEvent) DedupKey(window time.Duration) string {
	bucket := e.OccurredAt.Truncate(window).Unix()
	return fmt.Sprintf("dedup:%s:%s:%d", e.IMEI, e.EventType, bucket)
}

// EffectiveChannels 返回事件需要走的通道，默认 sms
func (e *AlarmEvent) EffectiveChannels() []string {
	if len(e.Channels) == 0 {
		return []string{"sms"}
	}
	return e.Channels
}
