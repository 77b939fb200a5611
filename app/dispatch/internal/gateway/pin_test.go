package gateway

import (
	"testing"
)

// TestVerifyPin 测试指纹比较的归一化与模式判定
func TestVerifyPin(t *testing.T) {
	actual := "AB:CD:EF:01:23:45"

	tests := []struct {
		name     string
		expected string
		required bool
		want     PinResult
	}{
		{"完全匹配", "AB:CD:EF:01:23:45", true, PinVerified},
		{"小写无分隔符匹配", "abcdef012345", true, PinVerified},
		{"连字符分隔匹配", "AB-CD-EF-01-23-45", false, PinVerified},
		{"强制模式不匹配", "FF:FF:FF:FF:FF:FF", true, PinMismatchRejected},
		{"宽松模式不匹配", "FF:FF:FF:FF:FF:FF", false, PinMismatchAllowed},
		{"未配置指纹", "", true, PinSkipped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifyPin(tt.expected, actual, tt.required); got != tt.want {
				t.Errorf("VerifyPin(%q, %q, %v) = %v, want %v", tt.expected, actual, tt.required, got, tt.want)
			}
		})
	}
}

// TestNormalizeBaseURL 测试基地址规范化
func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"裸地址", "https://gw.example.com", "https://gw.example.com/api"},
		{"尾部斜杠", "https://gw.example.com/", "https://gw.example.com/api"},
		{"已带 api", "https://gw.example.com/api", "https://gw.example.com/api"},
		{"api 加斜杠", "https://gw.example.com/api/", "https://gw.example.com/api"},
		{"多重斜杠", "https://gw.example.com//", "https://gw.example.com/api"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeBaseURL(tt.raw); got != tt.want {
				t.Errorf("NormalizeBaseURL(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
