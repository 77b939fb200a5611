package model

import (
	"time"
)

// ServiceKind 告警通知业务类型
type ServiceKind string

const (
	ServiceAlarms    ServiceKind = "alarms"
	ServiceCommands  ServiceKind = "commands"
	ServiceOTP       ServiceKind = "otp"
	ServiceMarketing ServiceKind = "marketing"
)

// Modem 短信调制解调器模型，对应 modems 表
// 每台 modem 对应一个独立的短信网关实例
type Modem struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`

	// 网关连接配置
	BaseURL  string `db:"base_url"`
	Username string `db:"username"`
	Password string `db:"password"`

	// 证书固定配置
	// CertFingerprint 为空表示不校验；PinRequired 表示不匹配时拒绝登录
	CertFingerprint string `db:"cert_fingerprint"`
	PinRequired     bool   `db:"pin_required"`

	Enabled bool `db:"enabled"`

	// AllowedServices 允许承载的业务类型（text[] 字段）
	AllowedServices []string `db:"allowed_services"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// AllowsService 判断 modem 是否允许承载指定业务
func (m *Modem) AllowsService(service ServiceKind) bool {
	for _, s := range m.AllowedServices {
		if s == string(service) {
			return true
		}
	}
	return false
}
