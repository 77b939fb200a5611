package model

import (
	"time"
)

// WorkerStatus 工作进程状态
type WorkerStatus string

const (
	WorkerStatusActive WorkerStatus = "active"
	WorkerStatusStale  WorkerStatus = "stale"
	WorkerStatusDead   WorkerStatus = "dead"
)

// WorkerRecord 工作进程注册记录，对应 worker_registry 表
// 仅用于运维观测，不参与任务分配
type WorkerRecord struct {
	WorkerID        string       `db:"worker_id"`
	Hostname        string       `db:"hostname"`
	PID             int32        `db:"pid"`
	Status          WorkerStatus `db:"status"`
	StartedAt       time.Time    `db:"started_at"`
	LastHeartbeatAt time.Time    `db:"last_heartbeat_at"`
}

// Classify 根据心跳时间计算状态
func (w *WorkerRecord) Classify(now time.Time, staleThreshold, deadThreshold time.Duration) WorkerStatus {
	elapsed := now.Sub(w.LastHeartbeatAt)
	switch {
	case elapsed > deadThreshold:
		return WorkerStatusDead
	case elapsed > staleThreshold:
		return WorkerStatusStale
	default:
		return WorkerStatusActive
	}
}
