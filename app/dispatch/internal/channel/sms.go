package channel

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/gateway"
	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/model"
	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/selector"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/breaker"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/logger"
)

// SMSChannel 短信通道
// 配额耗尽不退避：立即排除该 modem 重选，直到选取器耗尽
type SMSChannel struct {
	selector *selector.Selector
	clients  *gateway.ClientPool
	logger   logger.Logger
}

// NewSMSChannel 创建短信通道
func NewSMSChannel(sel *selector.Selector, clients *gateway.ClientPool, l logger.Logger) *SMSChannel {
	return &SMSChannel{
		selector: sel,
		clients:  clients,
		logger:   l.Named("channel.sms"),
	}
}

// Name 通道名称
func (c *SMSChannel) Name() string {
	return NameSMS
}

// Send 选取 modem 并通过网关发送
func (c *SMSChannel) Send(ctx context.Context, event *model.AlarmEvent) error {
	if event.PhoneNumber == "" {
		return errors.New("sms channel: event has no phone number")
	}

	service := event.Service
	if service == "" {
		service = model.ServiceAlarms
	}

	var exhausted []int64
	for {
		modem, err := c.selector.Select(ctx, service, event.ModemID, exhausted...)
		if err != nil {
			return err
		}

		client, brk, err := c.clients.For(modem)
		if err != nil {
			return errors.Wrap(err, "sms channel: client setup")
		}

		sendErr := brk.Execute(ctx, func(ctx context.Context) error {
			_, err := client.Send(ctx, event.PhoneNumber, event.Message, modem.ID)
			return err
		})

		if sendErr == nil {
			c.logger.Info("sms delivered",
				"imei", event.IMEI,
				"event_type", event.EventType,
				"modem_id", modem.ID,
			)
			return nil
		}

		// 配额耗尽只影响当前 modem，立即换一台重试
		if gateway.IsQuotaExhausted(sendErr) {
			c.logger.Warn("modem quota exhausted, reselecting",
				"modem_id", modem.ID,
				"imei", event.IMEI,
			)
			exhausted = append(exhausted, modem.ID)
			continue
		}

		return sendErr
	}
}

// IsCircuitOpen 判断错误是否为熔断短路
func IsCircuitOpen(err error) bool {
	return errors.Is(err, breaker.ErrCircuitOpen)
}
