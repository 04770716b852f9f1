package redis_limiter

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// slidingWindowScript 滑动窗口计数脚本
// 当前窗口计数 + 上一窗口计数 * 上一窗口剩余占比，超过上限返回 -1，否则返回剩余配额
var slidingWindowScript = redis.NewScript(`
local currentKey = KEYS[1]
local previousKey = KEYS[2]
local limit = tonumber(ARGV[1])
local now = tonumber(ARGV[2])
local window = tonumber(ARGV[3])

local current = tonumber(redis.call('GET', currentKey) or '0')
local previous = tonumber(redis.call('GET', previousKey) or '0')

local elapsed = (now % window) / window
local weighted = math.floor((1 - elapsed) * previous)

if weighted + current >= limit then
	return -1
end

local newValue = redis.call('INCR', currentKey)
if newValue == 1 then
	redis.call('PEXPIRE', currentKey, window * 2 + 1000)
end

return limit - (newValue + weighted)
`)

// Result 限流结果
type Result struct {
	Success   bool
	Limit     int
	Remaining int
	// Reset 当前窗口结束时间（Unix 毫秒）
	Reset int64
}

// RetryAfter 距离窗口重置的时长
func (r *Result) RetryAfter(now time.Time) time.Duration {
	d := time.UnixMilli(r.Reset).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// RedisLimiter 基于Redis的滑动窗口限流器
type RedisLimiter struct {
	client    *redis.Client
	limit     int
	window    time.Duration
	keyPrefix string
	now       func() time.Time
}

// NewRedisLimiter 创建滑动窗口限流器
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration, keyPrefix string) *RedisLimiter {
	return &RedisLimiter{
		client:    client,
		limit:     limit,
		window:    window,
		keyPrefix: keyPrefix,
		now:       time.Now,
	}
}

// WithClock 替换时钟（测试用）
func (rl *RedisLimiter) WithClock(now func() time.Time) *RedisLimiter {
	rl.now = now
	return rl
}

// Limit 为指定标识消耗一次配额
func (rl *RedisLimiter) Limit(ctx context.Context, identifier string) (*Result, error) {
	nowMs := rl.now().UnixMilli()
	windowMs := rl.window.Milliseconds()
	currentWindow := nowMs / windowMs

	currentKey := rl.keyPrefix + identifier + ":" + strconv.FormatInt(currentWindow, 10)
	previousKey := rl.keyPrefix + identifier + ":" + strconv.FormatInt(currentWindow-1, 10)

	remaining, err := slidingWindowScript.Run(ctx, rl.client,
		[]string{currentKey, previousKey},
		rl.limit, nowMs, windowMs,
	).Int64()
	if err != nil {
		return nil, fmt.Errorf("执行限流脚本失败: %w", err)
	}

	result := &Result{
		Success:   remaining >= 0,
		Limit:     rl.limit,
		Remaining: int(remaining),
		Reset:     (currentWindow + 1) * windowMs,
	}
	if result.Remaining < 0 {
		result.Remaining = 0
	}

	return result, nil
}

// GetLimit 获取窗口内最大请求数
func (rl *RedisLimiter) GetLimit() int {
	return rl.limit
}

// GetWindow 获取窗口长度
func (rl *RedisLimiter) GetWindow() time.Duration {
	return rl.window
}
