package selector

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/model"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/logger"
)

// ErrNoModemAvailable 所有回退层级都没有可用 modem
var ErrNoModemAvailable = errors.New("selector: no modem available")

// ModemLister modem 读取接口，由 dao.ModemDAO 实现
type ModemLister interface {
	ListEnabled(ctx context.Context) ([]*model.Modem, error)
}

// Selector modem 选取器，无状态，可并发使用
// 按固定优先级回退：设备绑定 modem → 承载该业务的 modem →
// 任意启用 modem → 无可用
type Selector struct {
	modems ModemLister
	logger logger.Logger
}

// New 创建选取器
func New(modems ModemLister, l logger.Logger) *Selector {
	return &Selector{
		modems: modems,
		logger: l.Named("selector"),
	}
}

// Select 为目标设备选取 modem
// deviceModemID 为设备绑定的 modem（0 表示未绑定）；绑定命中时
// 忽略业务白名单，仅要求 modem 启用。exclude 为本事件内已判定
// 配额耗尽的 modem，重选时跳过
func (s *Selector) Select(ctx context.Context, service model.ServiceKind, deviceModemID int64, exclude ...int64) (*model.Modem, error) {
	enabled, err := s.modems.ListEnabled(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load modem registry")
	}

	excluded := make(map[int64]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	// 第一层：设备绑定的启用 modem
	if deviceModemID > 0 {
		for _, m := range enabled {
			if m.ID == deviceModemID && !excluded[m.ID] {
				s.logger.Debug("selected device-pinned modem",
					"modem_id", m.ID,
				)
				return m, nil
			}
		}
	}

	// 第二层：承载该业务的启用 modem
	for _, m := range enabled {
		if m.AllowsService(service) && !excluded[m.ID] {
			s.logger.Debug("selected service-pool modem",
				"modem_id", m.ID,
				"service", service,
			)
			return m, nil
		}
	}

	// 第三层：任意启用 modem
	for _, m := range enabled {
		if !excluded[m.ID] {
			s.logger.Warn("falling back to any enabled modem",
				"modem_id", m.ID,
				"service", service,
			)
			return m, nil
		}
	}

	s.logger.Error("no modem available after all fallback tiers",
		"service", service,
		"device_modem_id", deviceModemID,
	)
	return nil, ErrNoModemAvailable
}
