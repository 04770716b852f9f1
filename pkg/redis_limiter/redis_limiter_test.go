package redis_limiter_test

import (
	"context"
	"testing"
	"time"

	"gen-gallery/pkg/redis_limiter"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func setupLimiter(t *testing.T, limit int, window time.Duration) (*redis_limiter.RedisLimiter, *fakeClock) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clock := &fakeClock{now: time.Date(2024, 1, 1, 10, 0, 1, 0, time.UTC)}
	limiter := redis_limiter.NewRedisLimiter(client, limit, window, "ratelimit:test:").WithClock(clock.Now)
	return limiter, clock
}

func TestLimit_RejectsAfterQuota(t *testing.T) {
	limiter, clock := setupLimiter(t, 3, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := limiter.Limit(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, 3, res.Limit)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := limiter.Limit(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 0, res.Remaining)

	expectedReset := time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC).UnixMilli()
	assert.Equal(t, expectedReset, res.Reset)
	assert.Equal(t, time.Hour-time.Second, res.RetryAfter(clock.now))
}

func TestLimit_RecoversAfterWindowRollsOver(t *testing.T) {
	limiter, clock := setupLimiter(t, 2, time.Hour)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := limiter.Limit(ctx, "user")
		require.NoError(t, err)
		require.True(t, res.Success)
	}
	res, err := limiter.Limit(ctx, "user")
	require.NoError(t, err)
	require.False(t, res.Success)

	clock.now = clock.now.Add(2 * time.Hour)

	res, err = limiter.Limit(ctx, "user")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Remaining)
}

func TestLimit_PreviousWindowIsWeighted(t *testing.T) {
	limiter, clock := setupLimiter(t, 4, time.Hour)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := limiter.Limit(ctx, "user")
		require.NoError(t, err)
	}

	// 下一窗口开始不久，上一窗口计入 floor(0.99*4)=3
	clock.now = time.Date(2024, 1, 1, 11, 0, 30, 0, time.UTC)
	res, err := limiter.Limit(ctx, "user")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 0, res.Remaining)

	res, err = limiter.Limit(ctx, "user")
	require.NoError(t, err)
	assert.False(t, res.Success)

	// 窗口过去90%，上一窗口仅计入 floor(0.1*4)=0
	clock.now = time.Date(2024, 1, 1, 11, 54, 0, 0, time.UTC)
	res, err = limiter.Limit(ctx, "user")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.Remaining)
}

func TestLimit_IdentitiesAreIndependent(t *testing.T) {
	limiter, _ := setupLimiter(t, 1, time.Minute)
	ctx := context.Background()

	res, err := limiter.Limit(ctx, "a")
	require.NoError(t, err)
	assert.True(t, res.Success)

	res, err = limiter.Limit(ctx, "a")
	require.NoError(t, err)
	assert.False(t, res.Success)

	res, err = limiter.Limit(ctx, "b")
	require.NoError(t, err)
	assert.True(t, res.Success)
}
