package selector

import (
	"context"
	"errors"
	"testing"

	"github.com/megatechtrackers/megatechtrackers-sub006/app/dispatch/internal/model"
	"github.com/megatechtrackers/megatechtrackers-sub006/pkg/logger"
)

// fakeLister 内存 modem 列表
type fakeLister struct {
	modems []*model.Modem
	err    error
}

func (f *fakeLister) ListEnabled(ctx context.Context) ([]*model.Modem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.modems, nil
}

func testModems() []*model.Modem {
	return []*model.Modem{
		{ID: 1, Enabled: true, AllowedServices: []string{"otp"}},
		{ID: 3, Enabled: true, AllowedServices: []string{"alarms"}},
		{ID: 5, Enabled: true, AllowedServices: []string{"marketing"}},
	}
}

// TestSelectPinnedModem 测试设备绑定 modem 优先，且忽略业务白名单
func TestSelectPinnedModem(t *testing.T) {
	s := New(&fakeLister{modems: testModems()}, logger.NewNoop())

	// modem 5 不承载 alarms，但设备绑定时直接命中
	m, err := s.Select(context.Background(), model.ServiceAlarms, 5)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if m.ID != 5 {
		t.Errorf("Select() modem = %d, want pinned 5", m.ID)
	}
}

// TestSelectServicePool 测试第二层按业务白名单选取
func TestSelectServicePool(t *testing.T) {
	s := New(&fakeLister{modems: testModems()}, logger.NewNoop())

	m, err := s.Select(context.Background(), model.ServiceAlarms, 0)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if m.ID != 3 {
		t.Errorf("Select() modem = %d, want service-pool 3", m.ID)
	}
}

// TestSelectPinnedDisabledFallsThrough 测试绑定 modem 不可用时回退
func TestSelectPinnedDisabledFallsThrough(t *testing.T) {
	s := New(&fakeLister{modems: testModems()}, logger.NewNoop())

	// 绑定 modem 99 不存在于启用列表，回退到业务池
	m, err := s.Select(context.Background(), model.ServiceAlarms, 99)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if m.ID != 3 {
		t.Errorf("Select() modem = %d, want fallback 3", m.ID)
	}
}

// TestSelectAnyEnabledFallback 测试第三层任意启用 modem 兜底
func TestSelectAnyEnabledFallback(t *testing.T) {
	lister := &fakeLister{modems: []*model.Modem{
		{ID: 7, Enabled: true, AllowedServices: []string{"otp"}},
	}}
	s := New(lister, logger.NewNoop())

	m, err := s.Select(context.Background(), model.ServiceAlarms, 0)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if m.ID != 7 {
		t.Errorf("Select() modem = %d, want any-enabled 7", m.ID)
	}
}

// TestSelectNoModemAvailable 测试全部层级耗尽后的终态错误
func TestSelectNoModemAvailable(t *testing.T) {
	s := New(&fakeLister{}, logger.NewNoop())

	_, err := s.Select(context.Background(), model.ServiceAlarms, 0)
	if !errors.Is(err, ErrNoModemAvailable) {
		t.Errorf("Select() error = %v, want ErrNoModemAvailable", err)
	}
}

// TestSelectExcludeQuotaExhausted 测试排除配额耗尽的 modem 后重选
func TestSelectExcludeQuotaExhausted(t *testing.T) {
	lister := &fakeLister{modems: []*model.Modem{
		{ID: 3, Enabled: true, AllowedServices: []string{"alarms"}},
		{ID: 4, Enabled: true, AllowedServices: []string{"alarms"}},
	}}
	s := New(lister, logger.NewNoop())

	m, err := s.Select(context.Background(), model.ServiceAlarms, 0, 3)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if m.ID != 4 {
		t.Errorf("Select() modem = %d, want 4 after excluding 3", m.ID)
	}

	// 全部排除后无可用
	_, err = s.Select(context.Background(), model.ServiceAlarms, 0, 3, 4)
	if !errors.Is(err, ErrNoModemAvailable) {
		t.Errorf("Select() error = %v, want ErrNoModemAvailable", err)
	}
}
