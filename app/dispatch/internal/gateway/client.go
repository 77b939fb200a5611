package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/metrics"
	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/model"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/config"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/logger"
)

// SendResult 发送结果
type SendResult struct {
	Success        bool
	SegmentsUsed   int
	QuotaExhausted bool
	ErrorCode      string
}

// Client modem 会话客户端
// 每个实例独占持有一台 modem 网关的会话，登录走 single-flight
type Client struct {
	modem   *model.Modem
	baseURL string
	cfg     *Config
	http    *http.Client
	logger  logger.Logger
	metrics *metrics.DispatchMetrics
	limiter *rate.Limiter

	mu      sync.Mutex
	session *model.Session

	sf singleflight.Group
}

// NewClient 创建网关客户端
func NewClient(modem *model.Modem, cfg *Config, l logger.Logger, m *metrics.DispatchMetrics) (*Client, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge gateway config: %w", err)
	}
	if err := newCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid gateway config: %w", err)
	}

	var limiter *rate.Limiter
	if newCfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(newCfg.RatePerSecond), newCfg.RateBurst)
	}

	return &Client{
		modem:   modem,
		baseURL: NormalizeBaseURL(modem.BaseURL),
		cfg:     newCfg,
		http:    &http.Client{},
		logger:  l.Named("gateway.client").WithFields("modem_id", modem.ID),
		metrics: m,
		limiter: limiter,
	}, nil
}

// ModemID 返回客户端绑定的 modem ID
func (c *Client) ModemID() int64 {
	return c.modem.ID
}

// EnsureLoggedIn 确保存在有效会话
// 缓存会话在 TTL 内直接复用；否则发起登录，并发调用方等待在途登录
// 的结果，等待超过 LoginWait 按未登录处理
func (c *Client) EnsureLoggedIn(ctx context.Context) bool {
	now := time.Now()
	c.mu.Lock()
	if c.session.Valid(now, c.cfg.TokenTTL) {
		c.mu.Unlock()
		return true
	}
	c.mu.Unlock()

	ch := c.sf.DoChan("login", func() (interface{}, error) {
		return nil, c.login(ctx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			c.logger.Warn("login failed",
				"error", res.Err,
			)
			return false
		}
		return true
	case <-time.After(c.cfg.LoginWait):
		c.logger.Warn("timed out waiting for in-flight login",
			"wait", c.cfg.LoginWait,
		)
		return false
	case <-ctx.Done():
		return false
	}
}

// ClearSession 销毁缓存会话
func (c *Client) ClearSession() {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
}

// login 执行一次完整登录（证书校验 + 凭证提交）
func (c *Client) login(ctx context.Context) error {
	if c.modem.CertFingerprint != "" {
		if err := c.verifyPin(); err != nil {
			c.metrics.RecordGatewayLogin(false)
			return err
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.LoginTimeout)
	defer cancel()

	payload, _ := json.Marshal(map[string]string{
		"username": c.modem.Username,
		"password": c.modem.Password,
	})

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/login", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordGatewayLogin(false)
		return errors.Wrapf(ErrTransport, "login request: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		c.metrics.RecordGatewayLogin(false)
		return errors.Wrapf(ErrAuthenticationFailed, "login rejected with status %d", resp.StatusCode)
	}

	var result struct {
		Success bool `json:"success"`
		Data    struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil || !result.Success || result.Data.Token == "" {
		c.metrics.RecordGatewayLogin(false)
		return errors.Wrap(ErrAuthenticationFailed, "login response missing token")
	}

	hostname, _ := os.Hostname()

	c.mu.Lock()
	c.session = &model.Session{
		Token:    result.Data.Token,
		IssuedAt: time.Now(),
		Hostname: hostname,
	}
	c.mu.Unlock()

	c.metrics.RecordGatewayLogin(true)
	c.logger.Info("gateway login succeeded")

	return nil
}

// verifyPin 登录前的证书固定校验
func (c *Client) verifyPin() error {
	actual, err := FetchFingerprint(c.baseURL, c.cfg.PinDialTimeout)
	if err != nil {
		if c.modem.PinRequired {
			return errors.Wrap(err, "fingerprint probe failed")
		}
		c.logger.Warn("fingerprint probe failed, proceeding without verification",
			"error", err,
		)
		return nil
	}

	result := VerifyPin(c.modem.CertFingerprint, actual, c.modem.PinRequired)
	switch result {
	case PinMismatchRejected:
		c.logger.Error("certificate fingerprint mismatch, login rejected",
			"expected", c.modem.CertFingerprint,
			"actual", actual,
		)
		return errors.Wrapf(ErrCertMismatch, "expected %s got %s", c.modem.CertFingerprint, actual)
	case PinMismatchAllowed:
		c.logger.Warn("certificate fingerprint mismatch, proceeding in insecure-allowed mode",
			"expected", c.modem.CertFingerprint,
			"actual", actual,
		)
	}

	return nil
}

// token 读取当前缓存令牌
func (c *Client) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.Token
}

// Send 通过网关发送短信
// 401 且存在缓存令牌时：清会话、重登录一次、恰好重试一次发送；
// 第二次失败对本次调用是终态
func (c *Client) Send(ctx context.Context, number, message string, modemID int64) (*SendResult, error) {
	if c.limiter != nil && !c.limiter.Allow() {
		c.logger.Warn("send rate exceeded configured limit",
			"rate", c.cfg.RatePerSecond,
		)
	}

	if !c.EnsureLoggedIn(ctx) {
		return nil, errors.Wrap(ErrAuthenticationFailed, "no valid session for send")
	}

	result, status, body, err := c.doSend(ctx, number, message, modemID)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized {
		// 令牌被网关判为失效，清会话重登录后恰好重试一次
		c.logger.Warn("send got 401, clearing session and retrying once")
		c.ClearSession()

		if !c.EnsureLoggedIn(ctx) {
			return nil, errors.Wrap(ErrSessionExpired, "re-login after 401 failed")
		}

		result, status, body, err = c.doSend(ctx, number, message, modemID)
		if err != nil {
			return nil, err
		}
		if status == http.StatusUnauthorized {
			c.ClearSession()
			return nil, errors.Wrap(ErrSessionExpired, "send rejected again after re-login")
		}
	}

	if result.Success {
		return result, nil
	}

	if IsQuotaResponse(body) {
		result.QuotaExhausted = true
		c.metrics.RecordQuotaHit(c.modem.ID)
		return result, errors.Wrapf(ErrQuotaExhausted, "modem %d", c.modem.ID)
	}

	return result, fmt.Errorf("gateway send failed with status %d: %s", status, result.ErrorCode)
}

// doSend 执行一次发送请求
func (c *Client) doSend(ctx context.Context, number, message string, modemID int64) (*SendResult, int, []byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.SendTimeout)
	defer cancel()

	payload, _ := json.Marshal(map[string]any{
		"data": map[string]any{
			"number":  number,
			"message": message,
			"modem":   modemID,
		},
	})

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/messages/actions/send", bytes.NewReader(payload))
	if err != nil {
		return nil, 0, nil, fmt.Errorf("failed to build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, nil, errors.Wrapf(ErrTransport, "send request: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	var raw struct {
		Success bool `json:"success"`
		Data    struct {
			SMSUsed int `json:"sms_used"`
		} `json:"data"`
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &raw)

	result := &SendResult{
		Success:      raw.Success && resp.StatusCode == http.StatusOK,
		SegmentsUsed: raw.Data.SMSUsed,
		ErrorCode:    raw.Error,
	}

	return result, resp.StatusCode, body, nil
}

// HealthCheck 会话健康检查
// 调用轻量状态接口（顺带重置网关侧空闲计时器）；网络类故障视为
// 硬下线信号，401 则清会话并尝试一次全新登录
func (c *Client) HealthCheck(ctx context.Context) bool {
	if !c.EnsureLoggedIn(ctx) {
		return false
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.StatusTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.baseURL+"/session/status", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+c.token())

	resp, err := c.http.Do(req)
	if err != nil {
		if c.cfg.TransportFailureTreatedAsPass {
			c.logger.Warn("status check transport failure treated as pass",
				"error", err,
			)
			return true
		}
		c.logger.Error("status check transport failure, gateway down",
			"error", err,
		)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Warn("status check got 401, clearing session and re-logging in")
		c.ClearSession()
		return c.EnsureLoggedIn(ctx)
	}

	return resp.StatusCode == http.StatusOK
}
