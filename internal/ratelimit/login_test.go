package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/invest-platform/internal/common"
)

func newTestLimiter(t *testing.T) (*LoginLimiter, *miniredis.Miniredis, *time.Time) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := NewLoginLimiter(rdb, DefaultPolicy)
	l.now = func() time.Time { return now }
	return l, mr, &now
}

func TestPolicy_Delay(t *testing.T) {
	p := DefaultPolicy
	assert.Zero(t, p.Delay(0))
	assert.Zero(t, p.Delay(2))
	assert.Equal(t, time.Second, p.Delay(3))
	assert.Equal(t, 2*time.Second, p.Delay(4))
	assert.Equal(t, 4*time.Second, p.Delay(5))
}

func TestLoginLimiter_FreeAttemptsThenBackoff(t *testing.T) {
	l, _, now := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Check(ctx, "user@example.com"))
		l.Failure(ctx, "user@example.com")
		*now = now.Add(100 * time.Millisecond)
	}

	err := l.Check(ctx, "USER@example.com ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrTooManyAttempts))

	var te *ThrottledError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, time.Second, te.RetryAfter())

	*now = now.Add(time.Second)
	assert.NoError(t, l.Check(ctx, "user@example.com"))
}

func TestLoginLimiter_BlocksAfterMaxAttempts(t *testing.T) {
	l, _, now := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		l.Failure(ctx, "a@b.co")
		*now = now.Add(time.Minute)
	}

	err := l.Check(ctx, "a@b.co")
	var te *ThrottledError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 25*time.Minute, te.Wait)

	*now = now.Add(26 * time.Minute)
	assert.NoError(t, l.Check(ctx, "a@b.co"), "oldest failure left the window")
}

func TestLoginLimiter_ResetClearsFailures(t *testing.T) {
	l, mr, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		l.Failure(ctx, "a@b.co")
	}
	require.Error(t, l.Check(ctx, "a@b.co"))

	l.Reset(ctx, "a@b.co")
	assert.False(t, mr.Exists(keyPrefix+"a@b.co"))
	assert.NoError(t, l.Check(ctx, "a@b.co"))
}

func TestLoginLimiter_KeyHasTTL(t *testing.T) {
	l, mr, _ := newTestLimiter(t)
	l.Failure(context.Background(), "a@b.co")

	assert.Equal(t, 30*time.Minute, mr.TTL(keyPrefix+"a@b.co"))
}

func TestLoginLimiter_FailsOpenWhenRedisIsDown(t *testing.T) {
	l, mr, _ := newTestLimiter(t)
	mr.Close()

	assert.NoError(t, l.Check(context.Background(), "a@b.co"))
	assert.NotPanics(t, func() { l.Failure(context.Background(), "a@b.co") })
}
