package model

import (
	"encoding/json"
	"time"
)

// DeadLetterEntry 死信条目，对应 dead_letters 表
type DeadLetterEntry struct {
	ID int64 `db:"id"`

	// Event 原始事件 JSON，重放时反序列化
	Event json.RawMessage `db:"event"`

	// Channel 失败时所在的通道
	Channel string `db:"channel"`

	FailureReason string `db:"failure_reason"`

	// AttemptCount 重放尝试次数（不含入队前的投递重试）
	AttemptCount int32 `db:"attempt_count"`

	// NextRetryAt 下次允许重放的时间
	NextRetryAt time.Time `db:"next_retry_at"`

	FirstFailedAt time.Time `db:"first_failed_at"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// DecodeEvent 反序列化原始事件
func (d *DeadLetterEntry) DecodeEvent() (*AlarmEvent, error) {
	var event AlarmEvent
	if err := json.Unmarshal(d.Event, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
