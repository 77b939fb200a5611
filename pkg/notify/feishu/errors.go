package feishu

import "errors"

var (
	// ErrRequestFailed HTTP 请求失败
	ErrRequestFailed = errors.New("feishu: request failed")

	// ErrResponseInvalid 响应解析失败
	ErrResponseInvalid = errors.New("feishu: invalid response")

	// ErrAPIError 飞书接口返回错误
	ErrAPIError = errors.New("feishu: api error")
)
