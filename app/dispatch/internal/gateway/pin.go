package gateway

import (
	"crypto/sha256"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// PinResult 证书固定校验结果
type PinResult int

const (
	// PinSkipped 未配置期望指纹，未校验
	PinSkipped PinResult = iota
	// PinVerified 指纹匹配
	PinVerified
	// PinMismatchAllowed 指纹不匹配，但校验为宽松模式，放行并告警
	PinMismatchAllowed
	// PinMismatchRejected 指纹不匹配且校验为强制模式，拒绝登录
	PinMismatchRejected
)

// String 返回结果字符串
func (r PinResult) String() string {
	switch r {
	case PinSkipped:
		return "skipped"
	case PinVerified:
		return "verified"
	case PinMismatchAllowed:
		return "mismatch_allowed"
	case PinMismatchRejected:
		return "mismatch_rejected"
	default:
		return "unknown"
	}
}

// FetchFingerprint 独立建立 TLS 连接并计算服务端叶子证书指纹
// 探测连接跳过链式校验（固定校验本身就是信任锚），带硬超时
func FetchFingerprint(baseURL string, timeout time.Duration) (string, error) {
	addr, err := dialAddr(baseURL)
	if err != nil {
		return "", err
	}

	dialer := &net.Dialer{Timeout: timeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{
		InsecureSkipVerify: true,
	})
	if err != nil {
		return "", errors.Wrapf(ErrTransport, "fingerprint probe dial %s: %v", addr, err)
	}
	defer conn.Close()

	certs := conn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return "", errors.Wrap(ErrTransport, "fingerprint probe: no peer certificate")
	}

	sum := sha256.Sum256(certs[0].Raw)
	return formatFingerprint(sum[:]), nil
}

// VerifyPin 比较期望指纹与实际指纹
// 去分隔符、不区分大小写；required 决定不匹配时是拒绝还是放行
func VerifyPin(expected, actual string, required bool) PinResult {
	if expected == "" {
		return PinSkipped
	}
	if normalizeFingerprint(expected) == normalizeFingerprint(actual) {
		return PinVerified
	}
	if required {
		return PinMismatchRejected
	}
	return PinMismatchAllowed
}

// formatFingerprint 格式化为大写冒号十六进制（AB:CD:...）
func formatFingerprint(sum []byte) string {
	parts := make([]string, len(sum))
	for i, b := range sum {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, ":")
}

// normalizeFingerprint 去掉常见分隔符并统一大写
func normalizeFingerprint(fp string) string {
	fp = strings.ReplaceAll(fp, ":", "")
	fp = strings.ReplaceAll(fp, "-", "")
	fp = strings.ReplaceAll(fp, " ", "")
	return strings.ToUpper(fp)
}

// dialAddr 从基地址中提取 host:port，默认 443
func dialAddr(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url %s: %w", baseURL, err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("invalid base url %s: missing host", baseURL)
	}
	port := u.Port()
	if port == "" {
		port = "443"
	}
	return net.JoinHostPort(host, port), nil
}
