package gateway

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrAuthenticationFailed 网关拒绝登录凭证
	ErrAuthenticationFailed = errors.New("gateway: authentication failed")

	// ErrSessionExpired 发送时网关返回 401，已缓存的令牌失效
	ErrSessionExpired = errors.New("gateway: session expired")

	// ErrQuotaExhausted 网关侧短信配额耗尽，同一 modem 上不可重试
	ErrQuotaExhausted = errors.New("gateway: sms quota exhausted")

	// ErrTransport 网络类故障（连接拒绝、超时、DNS 失败）
	ErrTransport = errors.New("gateway: transport failure")

	// ErrLoginWaitTimeout 等待在途登录超过时限
	ErrLoginWaitTimeout = errors.New("gateway: login wait timed out")

	// ErrCertMismatch 证书指纹不匹配且校验为强制模式
	ErrCertMismatch = errors.New("gateway: certificate fingerprint mismatch")
)

// IsQuotaExhausted 判断是否为配额耗尽错误
func IsQuotaExhausted(err error) bool {
	return errors.Is(err, ErrQuotaExhausted)
}

// IsTransport 判断是否为网络类故障
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsAuthFailure 判断是否为认证类故障
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrAuthenticationFailed) || errors.Is(err, ErrSessionExpired)
}
