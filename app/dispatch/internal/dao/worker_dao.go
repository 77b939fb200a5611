package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/metrics"
	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/model"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/database/postgres"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/logger"
)

// WorkerDAO 工作进程注册表数据访问对象
type WorkerDAO struct {
	db      *postgres.Client
	logger  logger.Logger
	metrics *metrics.DispatchMetrics
}

// NewWorkerDAO 创建 worker DAO
func NewWorkerDAO(db *postgres.Client, l logger.Logger, m *metrics.DispatchMetrics) *WorkerDAO {
	return &WorkerDAO{
		db:      db,
		logger:  l.Named("dao.worker"),
		metrics: m,
	}
}

// UpsertHeartbeat 写入或刷新心跳记录
func (d *WorkerDAO) UpsertHeartbeat(ctx context.Context, record *model.WorkerRecord) error {
	start := time.Now()
	defer func() {
		duration := time.Since(start).Seconds()
		d.metrics.RecordDBQuery("upsert", true, duration)
	}()

	query, args, err := squirrel.
		Insert("worker_registry").
		Columns("worker_id", "hostname", "pid", "status", "started_at", "last_heartbeat_at").
		Values(record.WorkerID, record.Hostname, record.PID, record.Status, record.StartedAt, record.LastHeartbeatAt).
		Suffix("ON CONFLICT (worker_id) DO UPDATE SET status = EXCLUDED.status, last_heartbeat_at = EXCLUDED.last_heartbeat_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()

	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	if _, err := d.db.Exec(ctx, query, args...); err != nil {
		d.logger.Error("failed to upsert heartbeat",
			"worker_id", record.WorkerID,
			"error", err,
		)
		return fmt.Errorf("failed to upsert heartbeat: %w", err)
	}

	return nil
}

// List 获取全部注册记录
func (d *WorkerDAO) List(ctx context.Context) ([]*model.WorkerRecord, error) {
	start := time.Now()
	defer func() {
		duration := time.Since(start).Seconds()
		d.metrics.RecordDBQuery("select", true, duration)
	}()

	query, args, err := squirrel.
		Select("worker_id", "hostname", "pid", "status", "started_at", "last_heartbeat_at").
		From("worker_registry").
		OrderBy("last_heartbeat_at DESC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := d.db.Query(ctx, query, args...)
	if err != nil {
		d.logger.Error("failed to list workers",
			"error", err,
		)
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}
	defer rows.Close()

	var records []*model.WorkerRecord
	for rows.Next() {
		var r model.WorkerRecord
		if err := rows.Scan(
			&r.WorkerID,
			&r.Hostname,
			&r.PID,
			&r.Status,
			&r.StartedAt,
			&r.LastHeartbeatAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan worker: %w", err)
		}
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return records, nil
}

// UpdateStatus 更新进程状态
func (d *WorkerDAO) UpdateStatus(ctx context.Context, workerID string, status model.WorkerStatus) error {
	start := time.Now()
	defer func() {
		duration := time.Since(start).Seconds()
		d.metrics.RecordDBQuery("update", true, duration)
	}()

	query, args, err := squirrel.
		Update("worker_registry").
		Set("status", status).
		Where(squirrel.Eq{"worker_id": workerID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()

	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	if _, err := d.db.Exec(ctx, query, args...); err != nil {
		d.logger.Error("failed to update worker status",
			"worker_id", workerID,
			"status", status,
			"error", err,
		)
		return fmt.Errorf("failed to update worker status: %w", err)
	}

	return nil
}

// Remove 删除注册记录（进程判死后清理）
func (d *WorkerDAO) Remove(ctx context.Context, workerID string) error {
	start := time.Now()
	defer func() {
		duration := time.Since(start).Seconds()
		d.metrics.RecordDBQuery("delete", true, duration)
	}()

	query, args, err := squirrel.
		Delete("worker_registry").
		Where(squirrel.Eq{"worker_id": workerID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()

	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	if _, err := d.db.Exec(ctx, query, args...); err != nil {
		d.logger.Error("failed to remove worker",
			"worker_id", workerID,
			"error", err,
		)
		return fmt.Errorf("failed to remove worker: %w", err)
	}

	d.logger.Info("worker removed from registry",
		"worker_id", workerID,
	)

	return nil
}
