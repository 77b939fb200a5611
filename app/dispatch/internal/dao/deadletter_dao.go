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

const deadLetterColumns = "id, event, channel, failure_reason, attempt_count, next_retry_at, first_failed_at, created_at, updated_at"

// DeadLetterDAO 死信数据访问对象
// dead_letters 表在 next_retry_at 上建索引，FetchDue 为热路径
type DeadLetterDAO struct {
	db      *postgres.Client
	logger  logger.Logger
	metrics *metrics.DispatchMetrics
}

// NewDeadLetterDAO 创建死信 DAO
func NewDeadLetterDAO(db *postgres.Client, l logger.Logger, m *metrics.DispatchMetrics) *DeadLetterDAO {
	return &DeadLetterDAO{
		db:      db,
		logger:  l.Named("dao.deadletter"),
		metrics: m,
	}
}

// Insert 写入死信条目
func (d *DeadLetterDAO) Insert(ctx context.Context, entry *model.DeadLetterEntry) error {
	start := time.Now()
	defer func() {
		duration := time.Since(start).Seconds()
		d.metrics.RecordDBQuery("insert", true, duration)
	}()

	query, args, err := squirrel.
		Insert("dead_letters").
		Columns("event", "channel", "failure_reason", "attempt_count", "next_retry_at", "first_failed_at").
		Values(entry.Event, entry.Channel, entry.FailureReason, entry.AttemptCount, entry.NextRetryAt, entry.FirstFailedAt).
		Suffix("RETURNING id, created_at, updated_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()

	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	if err := d.db.QueryRow(ctx, query, args...).Scan(
		&entry.ID,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	); err != nil {
		d.logger.Error("failed to insert dead letter",
			"channel", entry.Channel,
			"reason", entry.FailureReason,
			"error", err,
		)
		return fmt.Errorf("failed to insert dead letter: %w", err)
	}

	d.metrics.RecordDLQIncoming()

	return nil
}

// FetchDue 拉取到期可重放的死信条目，按到期时间排序
func (d *DeadLetterDAO) FetchDue(ctx context.Context, now time.Time, limit int) ([]*model.DeadLetterEntry, error) {
	start := time.Now()
	defer func() {
		duration := time.Since(start).Seconds()
		d.metrics.RecordDBQuery("select", true, duration)
	}()

	query, args, err := squirrel.
		Select(deadLetterColumns).
		From("dead_letters").
		Where(squirrel.LtOrEq{"next_retry_at": now}).
		OrderBy("next_retry_at ASC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := d.db.Query(ctx, query, args...)
	if err != nil {
		d.logger.Error("failed to fetch due dead letters",
			"error", err,
		)
		return nil, fmt.Errorf("failed to fetch dead letters: %w", err)
	}
	defer rows.Close()

	var entries []*model.DeadLetterEntry
	for rows.Next() {
		var e model.DeadLetterEntry
		if err := rows.Scan(
			&e.ID,
			&e.Event,
			&e.Channel,
			&e.FailureReason,
			&e.AttemptCount,
			&e.NextRetryAt,
			&e.FirstFailedAt,
			&e.CreatedAt,
			&e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan dead letter: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return entries, nil
}

// Delete 删除重放成功的死信条目
func (d *DeadLetterDAO) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	defer func() {
		duration := time.Since(start).Seconds()
		d.metrics.RecordDBQuery("delete", true, duration)
	}()

	query, args, err := squirrel.
		Delete("dead_letters").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()

	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	if _, err := d.db.Exec(ctx, query, args...); err != nil {
		d.logger.Error("failed to delete dead letter",
			"id", id,
			"error", err,
		)
		return fmt.Errorf("failed to delete dead letter: %w", err)
	}

	return nil
}

// UpdateRetry 重放失败后更新尝试次数和下次重放时间
func (d *DeadLetterDAO) UpdateRetry(ctx context.Context, id int64, attemptCount int32, nextRetryAt time.Time, reason string) error {
	start := time.Now()
	defer func() {
		duration := time.Since(start).Seconds()
		d.metrics.RecordDBQuery("update", true, duration)
	}()

	query, args, err := squirrel.
		Update("dead_letters").
		Set("attempt_count", attemptCount).
		Set("next_retry_at", nextRetryAt).
		Set("failure_reason", reason).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()

	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	if _, err := d.db.Exec(ctx, query, args...); err != nil {
		d.logger.Error("failed to update dead letter retry",
			"id", id,
			"error", err,
		)
		return fmt.Errorf("failed to update dead letter: %w", err)
	}

	return nil
}

// Count 统计死信队列总深度
func (d *DeadLetterDAO) Count(ctx context.Context) (int64, error) {
	start := time.Now()
	defer func() {
		duration := time.Since(start).Seconds()
		d.metrics.RecordDBQuery("select", true, duration)
	}()

	query, args, err := squirrel.
		Select("COUNT(*)").
		From("dead_letters").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()

	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}

	var count int64
	if err := d.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		d.logger.Error("failed to count dead letters",
			"error", err,
		)
		return 0, fmt.Errorf("failed to count dead letters: %w", err)
	}

	return count, nil
}
