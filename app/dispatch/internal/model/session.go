package model

import (
	"time"
)

// Session 网关会话凭证，由 gateway 客户端独占持有
type Session struct {
	Token    string
	IssuedAt time.Time

	// Hostname 进程标识，便于网关侧审计
	Hostname string
}

// Valid 判断会话在给定 TTL 内是否可复用
func (s *Session) Valid(now time.Time, ttl time.Duration) bool {
	if s == nil || s.Token == "" {
		return false
	}
	return now.Sub(s.IssuedAt) < ttl
}
