package service

import (
	"time"
)

// Backoff 计算第 attempt 次重试前的指数退避等待
// 返回 min(base * 2^attempt, max)
func Backoff(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}

	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		// 溢出或越过上限后不再翻倍
		if d <= 0 || d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
