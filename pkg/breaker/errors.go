package breaker

import "errors"

var (
	// ErrCircuitOpen 熔断器处于 Open 状态，调用被直接拒绝
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrTooManyCalls HalfOpen 状态下试探调用数已达上限
	ErrTooManyCalls = errors.New("too many calls in half-open state")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("invalid breaker config")
)
