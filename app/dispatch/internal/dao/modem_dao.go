package dao

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/metrics"
	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/model"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/database/postgres"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/logger"
)

const modemColumns = "id, name, base_url, username, password, cert_fingerprint, pin_required, enabled, allowed_services, created_at, updated_at"

// ModemDAO modem 数据访问对象
// 读多写少，带短 TTL 内存缓存；写操作以数据库为准，缓存到期后自然失效
type ModemDAO struct {
	db      *postgres.Client
	logger  logger.Logger
	metrics *metrics.DispatchMetrics

	cacheTTL time.Duration

	mu       sync.RWMutex
	cached   []*model.Modem
	cachedAt time.Time
}

// NewModemDAO 创建 modem DAO
func NewModemDAO(db *postgres.Client, l logger.Logger, m *metrics.DispatchMetrics, cacheTTL time.Duration) *ModemDAO {
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &ModemDAO{
		db:       db,
		logger:   l.Named("dao.modem"),
		metrics:  m,
		cacheTTL: cacheTTL,
	}
}

// ListEnabled 获取所有启用的 modem，优先走缓存
func (d *ModemDAO) ListEnabled(ctx context.Context) ([]*model.Modem, error) {
	d.mu.RLock()
	if d.cached != nil && time.Since(d.cachedAt) < d.cacheTTL {
		modems := d.cached
		d.mu.RUnlock()
		d.metrics.RecordCacheHit("modem")
		return modems, nil
	}
	d.mu.RUnlock()

	d.metrics.RecordCacheMiss("modem")

	modems, err := d.listEnabledFromDB(ctx)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.cached = modems
	d.cachedAt = time.Now()
	d.mu.Unlock()

	return modems, nil
}

// Invalidate 主动失效缓存（写操作之后调用）
func (d *ModemDAO) Invalidate() {
	d.mu.Lock()
	d.cached = nil
	d.mu.Unlock()
}

func (d *ModemDAO) listEnabledFromDB(ctx context.Context) ([]*model.Modem, error) {
	start := time.Now()
	defer func() {
		duration := time.Since(start).Seconds()
		d.metrics.RecordDBQuery("select", true, duration)
	}()

	query, args, err := squirrel.
		Select(modemColumns).
		From("modems").
		Where(squirrel.Eq{"enabled": true}).
		OrderBy("id ASC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := d.db.Query(ctx, query, args...)
	if err != nil {
		d.logger.Error("failed to list enabled modems",
			"error", err,
		)
		return nil, fmt.Errorf("failed to list modems: %w", err)
	}
	defer rows.Close()

	var modems []*model.Modem
	for rows.Next() {
		var m model.Modem
		if err := rows.Scan(
			&m.ID,
			&m.Name,
			&m.BaseURL,
			&m.Username,
			&m.Password,
			&m.CertFingerprint,
			&m.PinRequired,
			&m.Enabled,
			&m.AllowedServices,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			d.logger.Error("failed to scan modem",
				"error", err,
			)
			return nil, fmt.Errorf("failed to scan modem: %w", err)
		}
		modems = append(modems, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return modems, nil
}

// GetByID 根据 ID 获取 modem
func (d *ModemDAO) GetByID(ctx context.Context, id int64) (*model.Modem, error) {
	start := time.Now()
	defer func() {
		duration := time.Since(start).Seconds()
		d.metrics.RecordDBQuery("select", true, duration)
	}()

	query, args, err := squirrel.
		Select(modemColumns).
		From("modems").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var m model.Modem
	if err := d.db.QueryRow(ctx, query, args...).Scan(
		&m.ID,
		&m.Name,
		&m.BaseURL,
		&m.Username,
		&m.Password,
		&m.CertFingerprint,
		&m.PinRequired,
		&m.Enabled,
		&m.AllowedServices,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		d.logger.Error("failed to get modem by id",
			"modem_id", id,
			"error", err,
		)
		return nil, fmt.Errorf("failed to get modem: %w", err)
	}

	return &m, nil
}

// SetEnabled 启用或停用 modem
func (d *ModemDAO) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	start := time.Now()
	defer func() {
		duration := time.Since(start).Seconds()
		d.metrics.RecordDBQuery("update", true, duration)
	}()

	query, args, err := squirrel.
		Update("modems").
		Set("enabled", enabled).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()

	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	if _, err := d.db.Exec(ctx, query, args...); err != nil {
		d.logger.Error("failed to set modem enabled",
			"modem_id", id,
			"enabled", enabled,
			"error", err,
		)
		return fmt.Errorf("failed to update modem: %w", err)
	}

	d.Invalidate()

	d.logger.Info("modem enabled state updated",
		"modem_id", id,
		"enabled", enabled,
	)

	return nil
}
