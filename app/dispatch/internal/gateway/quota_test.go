package gateway

import (
	"testing"
)

// TestIsQuotaResponse 测试配额耗尽关键字分类
func TestIsQuotaResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"配额超限", `{"error":"SMS limit exceeded"}`, true},
		{"额度不足", `{"error":"Insufficient credit balance"}`, true},
		{"发送被禁", `{"error":"number BARRED by operator"}`, true},
		{"月度上限", `{"error":"monthly allowance used up"}`, true},
		{"内部字段", `{"error":"sms_limit reached"}`, true},
		{"网络超时", `{"error":"network timeout"}`, false},
		{"服务内部错误", `{"error":"internal server error"}`, false},
		{"空响应", ``, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsQuotaResponse([]byte(tt.body)); got != tt.want {
				t.Errorf("IsQuotaResponse(%q) = %v, want %v", tt.body, got, tt.want)
			}
		})
	}
}
