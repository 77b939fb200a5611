package channel

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/model"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/logger"
)

// EmailConfig 邮件通道配置
type EmailConfig struct {
	Host     string `mapstructure:"host" json:"host" yaml:"host"`
	Port     int    `mapstructure:"port" json:"port" yaml:"port"`
	Username string `mapstructure:"username" json:"username" yaml:"username"`
	Password string `mapstructure:"password" json:"password" yaml:"password"`
	From     string `mapstructure:"from" json:"from" yaml:"from"`
}

// DefaultEmailConfig 默认配置
func DefaultEmailConfig() *EmailConfig {
	return &EmailConfig{
		Host: "localhost",
		Port: 587,
		From: "alerts@megatechtrackers.com",
	}
}

// sendMailFunc 便于测试替换 SMTP 发送
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailChannel 邮件通道
type EmailChannel struct {
	cfg      *EmailConfig
	logger   logger.Logger
	sendMail sendMailFunc
}

// NewEmailChannel 创建邮件通道
func NewEmailChannel(cfg *EmailConfig, l logger.Logger) *EmailChannel {
	if cfg == nil {
		cfg = DefaultEmailConfig()
	}
	return &EmailChannel{
		cfg:      cfg,
		logger:   l.Named("channel.email"),
		sendMail: smtp.SendMail,
	}
}

// Name 通道名称
func (c *EmailChannel) Name() string {
	return NameEmail
}

// Send 通过 SMTP 投递告警邮件
func (c *EmailChannel) Send(ctx context.Context, event *model.AlarmEvent) error {
	if event.Email == "" {
		return errors.New("email channel: event has no email address")
	}

	subject := fmt.Sprintf("[Alarm] %s - device %s", event.EventType, event.IMEI)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", c.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", event.Email)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("\r\n")
	b.WriteString(event.Message)
	b.WriteString("\r\n")

	var auth smtp.Auth
	if c.cfg.Username != "" {
		auth = smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, c.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)

	done := make(chan error, 1)
	go func() {
		done <- c.sendMail(addr, auth, c.cfg.From, []string{event.Email}, []byte(b.String()))
	}()

	select {
	case err := <-done:
		if err != nil {
			c.logger.Error("email delivery failed",
				"imei", event.IMEI,
				"to", event.Email,
				"error", err,
			)
			return errors.Wrap(err, "email channel: smtp send")
		}
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "email channel: send cancelled")
	}

	c.logger.Info("email delivered",
		"imei", event.IMEI,
		"event_type", event.EventType,
		"to", event.Email,
	)
	return nil
}
