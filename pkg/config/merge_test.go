package config

import (
	"testing"
	"time"
)

// 测试用的配置结构
type gatewayTestConfig struct {
	Endpoint endpointTestConfig `mapstructure:"endpoint"`
	Retry    *retryTestConfig   `mapstructure:"retry"`
	Labels   map[string]string  `mapstructure:"labels"`
	Topics   []string           `mapstructure:"topics"`
}

type endpointTestConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Secure  bool          `mapstructure:"secure"`
}

type retryTestConfig struct {
	Max     int           `mapstructure:"max"`
	Backoff time.Duration `mapstructure:"backoff"`
}

// TestMergeConfig_NonZeroOverrides 测试非零值覆盖、零值保留
func TestMergeConfig_NonZeroOverrides(t *testing.T) {
	dst := &gatewayTestConfig{
		Endpoint: endpointTestConfig{
			BaseURL: "http://10.0.0.1",
			Timeout: 15 * time.Second,
		},
	}

	src := &gatewayTestConfig{
		Endpoint: endpointTestConfig{
			Timeout: 5 * time.Second,
			Secure:  true,
		},
	}

	result, err := MergeConfig(dst, src)
	if err != nil {
		t.Fatalf("MergeConfig failed: %v", err)
	}

	if result.Endpoint.Timeout != 5*time.Second {
		t.Errorf("Expected Timeout=5s, got %v", result.Endpoint.Timeout)
	}
	if !result.Endpoint.Secure {
		t.Errorf("Expected Secure=true, got %v", result.Endpoint.Secure)
	}

	// BaseURL 在 src 中是零值，保留 dst
	if result.Endpoint.BaseURL != "http://10.0.0.1" {
		t.Errorf("Expected BaseURL=http://10.0.0.1, got %s", result.Endpoint.BaseURL)
	}
}

// TestMergeConfig_NilHandling 测试 nil 参数处理
func TestMergeConfig_NilHandling(t *testing.T) {
	cfg := &gatewayTestConfig{Topics: []string{"alarms"}}

	result, err := MergeConfig(cfg, nil)
	if err != nil {
		t.Fatalf("MergeConfig(dst, nil) failed: %v", err)
	}
	if result != cfg {
		t.Errorf("Expected dst to be returned when src is nil")
	}

	result, err = MergeConfig(nil, cfg)
	if err != nil {
		t.Fatalf("MergeConfig(nil, src) failed: %v", err)
	}
	if result != cfg {
		t.Errorf("Expected src to be returned when dst is nil")
	}

	if _, err := MergeConfig[gatewayTestConfig](nil, nil); err == nil {
		t.Errorf("Expected error when both dst and src are nil")
	}
}

// TestMergeConfig_Pointer 测试指针字段合并
func TestMergeConfig_Pointer(t *testing.T) {
	dst := &gatewayTestConfig{
		Retry: &retryTestConfig{Max: 3, Backoff: time.Second},
	}
	src := &gatewayTestConfig{
		Retry: &retryTestConfig{Max: 5},
	}

	result, err := MergeConfig(dst, src)
	if err != nil {
		t.Fatalf("MergeConfig failed: %v", err)
	}

	if result.Retry.Max != 5 {
		t.Errorf("Expected Retry.Max=5, got %d", result.Retry.Max)
	}
	if result.Retry.Backoff != time.Second {
		t.Errorf("Expected Retry.Backoff=1s, got %v", result.Retry.Backoff)
	}
}

// TestMergeConfig_MapAndSlice 测试 map 合并与切片覆盖
func TestMergeConfig_MapAndSlice(t *testing.T) {
	dst := &gatewayTestConfig{
		Labels: map[string]string{"env": "dev", "region": "eu"},
		Topics: []string{"alarms"},
	}
	src := &gatewayTestConfig{
		Labels: map[string]string{"env": "prod"},
		Topics: []string{"alarms", "commands"},
	}

	result, err := MergeConfig(dst, src)
	if err != nil {
		t.Fatalf("MergeConfig failed: %v", err)
	}

	if result.Labels["env"] != "prod" {
		t.Errorf("Expected Labels[env]=prod, got %s", result.Labels["env"])
	}
	if result.Labels["region"] != "eu" {
		t.Errorf("Expected Labels[region]=eu, got %s", result.Labels["region"])
	}
	if len(result.Topics) != 2 {
		t.Errorf("Expected Topics to be replaced, got %v", result.Topics)
	}
}
