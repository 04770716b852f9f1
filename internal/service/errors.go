package service

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gen-gallery/pkg/redis_limiter"
)

var (
	// ErrUnauthorized 未认证
	ErrUnauthorized = errors.New("未认证")
	// ErrForbidden 无权访问
	ErrForbidden = errors.New("无权访问")
	// ErrNotFound 资源不存在
	ErrNotFound = errors.New("资源不存在")
	// ErrValidation 参数错误
	ErrValidation = errors.New("参数错误")
	// ErrRateLimited 请求过于频繁
	ErrRateLimited = errors.New("请求过于频繁")
	// ErrUpstream 推理服务调用失败
	ErrUpstream = errors.New("图片生成失败")
	// ErrStoreUnavailable 暂存服务不可用
	ErrStoreUnavailable = errors.New("暂存服务不可用")
	// ErrPromptNotFound 提示词不存在或已过期
	ErrPromptNotFound = errors.New("提示词不存在或已过期")
)

// RateLimitError 携带限流结果
type RateLimitError struct {
	Result *redis_limiter.Result
	now    time.Time
}

// NewRateLimitError 根据限流结果创建错误
func NewRateLimitError(result *redis_limiter.Result, now time.Time) *RateLimitError {
	return &RateLimitError{Result: result, now: now}
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("请求过于频繁，请在 %d 分钟后重试", e.RetryMinutes())
}

// Unwrap 使 errors.Is(err, ErrRateLimited) 成立
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// RetryMinutes 距离窗口重置的分钟数（向上取整）
func (e *RateLimitError) RetryMinutes() int {
	wait := e.Result.RetryAfter(e.now)
	if wait <= 0 {
		return 0
	}
	return int(math.Ceil(wait.Minutes()))
}

// validationError 包装参数错误
func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
