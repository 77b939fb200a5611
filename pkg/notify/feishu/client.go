package feishu

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/config"
)

// Client 飞书客户端
type Client struct {
	config *Config
	client *http.Client
}

// NewClient 创建飞书客户端
func NewClient(cfg *Config) (*Client, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}

	if err := newCfg.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		config: newCfg,
		client: &http.Client{
			Timeout: newCfg.Timeout,
		},
	}, nil
}

// Send 发送消息
func (c *Client) Send(msg Message) error {
	payload := map[string]interface{}{
		"msg_type": msg.Type(),
		"content":  msg.Content(),
	}

	// 配置了 Secret 时附加签名
	if c.config.Secret != "" {
		timestamp := time.Now().Unix()
		payload["timestamp"] = fmt.Sprintf("%d", timestamp)
		payload["sign"] = c.genSign(timestamp)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	resp, err := c.client.Post(c.config.WebhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	var result struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}

	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}

	if result.Code != 0 {
		return fmt.Errorf("%w: %s (code=%d)", ErrAPIError, result.Msg, result.Code)
	}

	return nil
}

// genSign 生成签名（符合飞书官方规范）
func (c *Client) genSign(timestamp int64) string {
	stringToSign := fmt.Sprintf("%d\n%s", timestamp, c.config.Secret)

	h := hmac.New(sha256.New, []byte(stringToSign))
	h.Write([]byte{})

	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
