package channel

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/gateway"
	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/metrics"
	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/model"
	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/selector"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/logger"
)

type staticLister struct {
	modems []*model.Modem
}

func (s *staticLister) ListEnabled(ctx context.Context) ([]*model.Modem, error) {
	return s.modems, nil
}

// newGatewayServer 启动一个模拟网关，sendBody 控制发送响应
func newGatewayServer(t *testing.T, sendBody string, sendCount *atomic.Int64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]string{"token": "tok"},
		})
	})
	mux.HandleFunc("/api/messages/actions/send", func(w http.ResponseWriter, r *http.Request) {
		if sendCount != nil {
			sendCount.Add(1)
		}
		_, _ = w.Write([]byte(sendBody))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// TestSMSSendQuotaReselection 测试配额耗尽后立即换 modem 重发
func TestSMSSendQuotaReselection(t *testing.T) {
	var sentA, sentB atomic.Int64
	srvA := newGatewayServer(t, `{"success":false,"error":"SMS limit exceeded"}`, &sentA)
	srvB := newGatewayServer(t, `{"success":true,"data":{"sms_used":1}}`, &sentB)

	lister := &staticLister{modems: []*model.Modem{
		{ID: 1, Name: "a", BaseURL: srvA.URL, Enabled: true, AllowedServices: []string{"alarms"}},
		{ID: 2, Name: "b", BaseURL: srvB.URL, Enabled: true, AllowedServices: []string{"alarms"}},
	}}

	m, err := metrics.New(nil)
	if err != nil {
		t.Fatalf("metrics.New() error = %v", err)
	}

	sel := selector.New(lister, logger.NewNoop())
	pool := gateway.NewClientPool(nil, nil, logger.NewNoop(), m)
	ch := NewSMSChannel(sel, pool, logger.NewNoop())

	event := &model.AlarmEvent{
		IMEI:        "860000000000001",
		EventType:   "overspeed",
		Service:     model.ServiceAlarms,
		PhoneNumber: "+254700000001",
		Message:     "vehicle overspeed",
	}

	if err := ch.Send(context.Background(), event); err != nil {
		t.Fatalf("Send() error = %v, want nil after reselection", err)
	}
	if sentA.Load() != 1 {
		t.Errorf("modem a send requests = %d, want 1", sentA.Load())
	}
	if sentB.Load() != 1 {
		t.Errorf("modem b send requests = %d, want 1", sentB.Load())
	}
}

// TestSMSSendAllQuotaExhausted 测试所有 modem 配额耗尽后返回无可用错误
func TestSMSSendAllQuotaExhausted(t *testing.T) {
	srv := newGatewayServer(t, `{"success":false,"error":"quota exceeded"}`, nil)

	lister := &staticLister{modems: []*model.Modem{
		{ID: 1, Name: "a", BaseURL: srv.URL, Enabled: true, AllowedServices: []string{"alarms"}},
	}}

	m, err := metrics.New(nil)
	if err != nil {
		t.Fatalf("metrics.New() error = %v", err)
	}

	sel := selector.New(lister, logger.NewNoop())
	pool := gateway.NewClientPool(nil, nil, logger.NewNoop(), m)
	ch := NewSMSChannel(sel, pool, logger.NewNoop())

	event := &model.AlarmEvent{
		IMEI:        "860000000000001",
		EventType:   "overspeed",
		Service:     model.ServiceAlarms,
		PhoneNumber: "+254700000001",
		Message:     "vehicle overspeed",
	}

	err = ch.Send(context.Background(), event)
	if !errors.Is(err, selector.ErrNoModemAvailable) {
		t.Errorf("Send() error = %v, want ErrNoModemAvailable", err)
	}
}

// TestSMSSendMissingNumber 测试缺少号码直接失败
func TestSMSSendMissingNumber(t *testing.T) {
	m, err := metrics.New(nil)
	if err != nil {
		t.Fatalf("metrics.New() error = %v", err)
	}

	sel := selector.New(&staticLister{}, logger.NewNoop())
	pool := gateway.NewClientPool(nil, nil, logger.NewNoop(), m)
	ch := NewSMSChannel(sel, pool, logger.NewNoop())

	event := &model.AlarmEvent{IMEI: "860000000000001", EventType: "overspeed"}
	if err := ch.Send(context.Background(), event); err == nil {
		t.Error("Send() error = nil, want missing number error")
	}
}
