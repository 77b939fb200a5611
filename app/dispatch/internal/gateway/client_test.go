package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/metrics"
	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/model"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/logger"
)

// fakeGateway 模拟短信网关
type fakeGateway struct {
	mu          sync.Mutex
	loginCount  atomic.Int64
	sendCount   atomic.Int64
	validTokens map[string]bool
	loginDelay  time.Duration
	sendBody    string
	sendStatus  int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		validTokens: make(map[string]bool),
		sendStatus:  http.StatusOK,
		sendBody:    `{"success":true,"data":{"sms_used":1}}`,
	}
}

func (f *fakeGateway) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		if f.loginDelay > 0 {
			time.Sleep(f.loginDelay)
		}
		n := f.loginCount.Add(1)
		token := fmt.Sprintf("tok-%d", n)
		f.mu.Lock()
		f.validTokens[token] = true
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]string{"token": token},
		})
	})

	mux.HandleFunc("/api/messages/actions/send", func(w http.ResponseWriter, r *http.Request) {
		f.sendCount.Add(1)
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		f.mu.Lock()
		valid := f.validTokens[token]
		status := f.sendStatus
		body := f.sendBody
		f.mu.Unlock()

		if !valid {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})

	mux.HandleFunc("/api/session/status", func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		f.mu.Lock()
		valid := f.validTokens[token]
		f.mu.Unlock()
		if !valid {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	return mux
}

// invalidateAll 使所有已发放令牌失效
func (f *fakeGateway) invalidateAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k := range f.validTokens {
		f.validTokens[k] = false
	}
}

func newTestClient(t *testing.T, baseURL string, cfg *Config) *Client {
	t.Helper()

	m, err := metrics.New(nil)
	if err != nil {
		t.Fatalf("metrics.New() error = %v", err)
	}

	modem := &model.Modem{
		ID:       1,
		Name:     "test-modem",
		BaseURL:  baseURL,
		Username: "admin",
		Password: "secret",
		Enabled:  true,
	}

	c, err := NewClient(modem, cfg, logger.NewNoop(), m)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

// TestSingleFlightLogin 测试并发 EnsureLoggedIn 只发出一次登录请求
func TestSingleFlightLogin(t *testing.T) {
	gw := newFakeGateway()
	gw.loginDelay = 100 * time.Millisecond
	srv := httptest.NewServer(gw.handler())
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)

	var wg sync.WaitGroup
	results := make([]bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx] = c.EnsureLoggedIn(context.Background())
		}(i)
	}
	wg.Wait()

	for i, ok := range results {
		if !ok {
			t.Errorf("EnsureLoggedIn() caller %d = false, want true", i)
		}
	}
	if got := gw.loginCount.Load(); got != 1 {
		t.Errorf("login requests = %d, want 1", got)
	}
}

// TestSessionTTLExpiry 测试超龄会话不被复用
func TestSessionTTLExpiry(t *testing.T) {
	gw := newFakeGateway()
	srv := httptest.NewServer(gw.handler())
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.TokenTTL = 50 * time.Millisecond
	c := newTestClient(t, srv.URL, cfg)

	if !c.EnsureLoggedIn(context.Background()) {
		t.Fatal("first EnsureLoggedIn() = false, want true")
	}
	if got := gw.loginCount.Load(); got != 1 {
		t.Fatalf("login requests = %d, want 1", got)
	}

	// TTL 内复用
	if !c.EnsureLoggedIn(context.Background()) {
		t.Fatal("second EnsureLoggedIn() = false, want true")
	}
	if got := gw.loginCount.Load(); got != 1 {
		t.Errorf("login requests after cached reuse = %d, want 1", got)
	}

	// TTL 过期后必须重新登录
	time.Sleep(80 * time.Millisecond)
	if !c.EnsureLoggedIn(context.Background()) {
		t.Fatal("EnsureLoggedIn() after expiry = false, want true")
	}
	if got := gw.loginCount.Load(); got != 2 {
		t.Errorf("login requests after expiry = %d, want 2", got)
	}
}

// TestSendRetryOnceOn401 测试 401 触发清会话、重登录、恰好重试一次
func TestSendRetryOnceOn401(t *testing.T) {
	gw := newFakeGateway()
	srv := httptest.NewServer(gw.handler())
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)

	if !c.EnsureLoggedIn(context.Background()) {
		t.Fatal("EnsureLoggedIn() = false, want true")
	}

	// 网关侧吊销全部令牌，模拟会话被踢
	gw.invalidateAll()

	result, err := c.Send(context.Background(), "+254700000001", "overspeed alarm", 1)
	if err != nil {
		t.Fatalf("Send() error = %v, want nil", err)
	}
	if !result.Success {
		t.Error("Send() result.Success = false, want true")
	}
	if result.SegmentsUsed != 1 {
		t.Errorf("Send() SegmentsUsed = %d, want 1", result.SegmentsUsed)
	}

	// 首次发送 401 + 重试发送成功 = 2 次发送请求，2 次登录
	if got := gw.sendCount.Load(); got != 2 {
		t.Errorf("send requests = %d, want 2", got)
	}
	if got := gw.loginCount.Load(); got != 2 {
		t.Errorf("login requests = %d, want 2", got)
	}
}

// TestSendSecond401Terminal 测试重登录后再遇 401 为终态失败
func TestSendSecond401Terminal(t *testing.T) {
	gw := newFakeGateway()
	srv := httptest.NewServer(gw.handler())
	defer srv.Close()

	// 网关始终拒绝令牌
	mux := http.NewServeMux()
	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		n := gw.loginCount.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]string{"token": fmt.Sprintf("tok-%d", n)},
		})
	})
	mux.HandleFunc("/api/messages/actions/send", func(w http.ResponseWriter, r *http.Request) {
		gw.sendCount.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv2 := httptest.NewServer(mux)
	defer srv2.Close()

	c := newTestClient(t, srv2.URL, nil)

	_, err := c.Send(context.Background(), "+254700000001", "overspeed alarm", 1)
	if err == nil {
		t.Fatal("Send() error = nil, want terminal session error")
	}
	if !IsAuthFailure(err) {
		t.Errorf("Send() error = %v, want session expired class", err)
	}
	if got := gw.sendCount.Load(); got != 2 {
		t.Errorf("send requests = %d, want exactly 2 (original + one retry)", got)
	}
}

// TestSendQuotaExhausted 测试配额耗尽的分类与错误标记
func TestSendQuotaExhausted(t *testing.T) {
	gw := newFakeGateway()
	gw.sendStatus = http.StatusOK
	gw.sendBody = `{"success":false,"error":"SMS limit exceeded"}`
	srv := httptest.NewServer(gw.handler())
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)

	result, err := c.Send(context.Background(), "+254700000001", "overspeed alarm", 1)
	if err == nil {
		t.Fatal("Send() error = nil, want quota error")
	}
	if !IsQuotaExhausted(err) {
		t.Errorf("Send() error = %v, want quota exhausted class", err)
	}
	if result == nil || !result.QuotaExhausted {
		t.Error("Send() result.QuotaExhausted = false, want true")
	}
}

// TestHealthCheck 测试会话健康检查
func TestHealthCheck(t *testing.T) {
	gw := newFakeGateway()
	srv := httptest.NewServer(gw.handler())
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)

	if !c.HealthCheck(context.Background()) {
		t.Error("HealthCheck() = false, want true")
	}

	// 网关下线后为硬下线信号
	srv.Close()
	c.ClearSession()
	if c.HealthCheck(context.Background()) {
		t.Error("HealthCheck() after server down = true, want false")
	}
}
