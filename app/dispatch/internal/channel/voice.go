package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/model"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/logger"
)

// VoiceConfig 语音通道配置
type VoiceConfig struct {
	// Endpoint 语音外呼网关地址
	Endpoint string `mapstructure:"endpoint" json:"endpoint" yaml:"endpoint"`

	// APIKey 网关鉴权密钥
	APIKey string `mapstructure:"api_key" json:"api_key" yaml:"api_key"`

	Timeout time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
}

// DefaultVoiceConfig 默认配置
func DefaultVoiceConfig() *VoiceConfig {
	return &VoiceConfig{
		Timeout: 30 * time.Second,
	}
}

// VoiceChannel 语音外呼通道
// 投递即外呼请求受理；呼叫结果由网关异步回调，不在投递范围内
type VoiceChannel struct {
	cfg    *VoiceConfig
	http   *http.Client
	logger logger.Logger
}

// NewVoiceChannel 创建语音通道
func NewVoiceChannel(cfg *VoiceConfig, l logger.Logger) *VoiceChannel {
	if cfg == nil {
		cfg = DefaultVoiceConfig()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultVoiceConfig().Timeout
	}
	return &VoiceChannel{
		cfg:    cfg,
		http:   &http.Client{},
		logger: l.Named("channel.voice"),
	}
}

// Name 通道名称
func (c *VoiceChannel) Name() string {
	return NameVoice
}

// Send 发起语音外呼请求
func (c *VoiceChannel) Send(ctx context.Context, event *model.AlarmEvent) error {
	if event.PhoneNumber == "" {
		return errors.New("voice channel: event has no phone number")
	}
	if c.cfg.Endpoint == "" {
		return errors.New("voice channel: endpoint not configured")
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	payload, _ := json.Marshal(map[string]string{
		"number":  event.PhoneNumber,
		"message": event.Message,
	})

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("voice channel: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("voice call request failed",
			"imei", event.IMEI,
			"error", err,
		)
		return errors.Wrap(err, "voice channel: request")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("voice channel: gateway returned status %d", resp.StatusCode)
	}

	c.logger.Info("voice call accepted",
		"imei", event.IMEI,
		"event_type", event.EventType,
	)
	return nil
}
