package gateway

import (
	"sync"

	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/metrics"
	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/model"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/breaker"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/logger"
)

// ClientPool 按 modem 维护客户端与熔断器
// 每台 modem 一个 Client（独占会话）和一个 Breaker（独占统计），
// 熔断器绝不跨 modem 共享
type ClientPool struct {
	cfg        *Config
	breakerCfg *breaker.Config
	logger     logger.Logger
	metrics    *metrics.DispatchMetrics

	mu       sync.Mutex
	clients  map[int64]*Client
	breakers map[int64]*breaker.Breaker
}

// NewClientPool 创建客户端池
func NewClientPool(cfg *Config, breakerCfg *breaker.Config, l logger.Logger, m *metrics.DispatchMetrics) *ClientPool {
	return &ClientPool{
		cfg:        cfg,
		breakerCfg: breakerCfg,
		logger:     l,
		metrics:    m,
		clients:    make(map[int64]*Client),
		breakers:   make(map[int64]*breaker.Breaker),
	}
}

// For 获取指定 modem 的客户端与熔断器，首次访问时创建
func (p *ClientPool) For(modem *model.Modem) (*Client, *breaker.Breaker, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	client, ok := p.clients[modem.ID]
	if !ok {
		var err error
		client, err = NewClient(modem, p.cfg, p.logger, p.metrics)
		if err != nil {
			return nil, nil, err
		}
		p.clients[modem.ID] = client
	}

	brk, ok := p.breakers[modem.ID]
	if !ok {
		name := "modem-" + modem.Name
		var err error
		brk, err = breaker.New(name, p.breakerCfg,
			breaker.WithLogger(p.logger),
			breaker.WithStateChange(func(n string, from, to breaker.State) {
				p.metrics.RecordBreakerState(n, int(to))
			}),
		)
		if err != nil {
			return nil, nil, err
		}
		p.breakers[modem.ID] = brk
	}

	return client, brk, nil
}

// Breakers 返回当前所有熔断器的状态快照，供运维接口使用
func (p *ClientPool) Breakers() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()

	snapshot := make(map[string]string, len(p.breakers))
	for _, b := range p.breakers {
		snapshot[b.Name()] = b.State().String()
	}
	return snapshot
}
