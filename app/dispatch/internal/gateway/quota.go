package gateway

import (
	"strings"
)

// quotaKeywords 配额耗尽关键字集合
// 网关型号繁杂，错误文案没有统一结构，只能按关键字分类
var quotaKeywords = []string{
	"quota",
	"limit",
	"credit",
	"insufficient",
	"exceeded",
	"exhausted",
	"barred",
	"blocked",
	"maximum",
	"allowance",
	"sms_limit",
}

// IsQuotaResponse 根据响应体内容判断是否为配额耗尽
// 全文小写后做子串匹配
func IsQuotaResponse(body []byte) bool {
	if len(body) == 0 {
		return false
	}
	text := strings.ToLower(string(body))
	for _, kw := range quotaKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
