package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryLimiterCeiling(t *testing.T) {
	l := NewMemoryLimiter(5, time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res, err := l.Allow(ctx, "uid-1")
		assert.NoError(t, err)
		assert.True(t, res.Allowed, "request %d should pass", i+1)
	}

	res, err := l.Allow(ctx, "uid-1")
	assert.NoError(t, err)
	assert.False(t, res.Allowed, "sixth request within the window must be refused")
	assert.Greater(t, res.RetryAfter, time.Duration(0))
}

func TestMemoryLimiterWindowReset(t *testing.T) {
	l := NewMemoryLimiter(2, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, _ := l.Allow(ctx, "uid-1")
		assert.True(t, res.Allowed)
	}
	res, _ := l.Allow(ctx, "uid-1")
	assert.False(t, res.Allowed)

	// Once the window elapses the counter resets to 1.
	now = now.Add(61 * time.Second)
	res, _ = l.Allow(ctx, "uid-1")
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining)
}

func TestMemoryLimiterIsolatesActors(t *testing.T) {
	l := NewMemoryLimiter(1, time.Minute)
	ctx := context.Background()

	res, _ := l.Allow(ctx, "uid-1")
	assert.True(t, res.Allowed)
	res, _ = l.Allow(ctx, "uid-1")
	assert.False(t, res.Allowed)

	// A different actor has an untouched budget.
	res, _ = l.Allow(ctx, "uid-2")
	assert.True(t, res.Allowed)
}

func TestWindowSeconds(t *testing.T) {
	assert.Equal(t, "60", WindowSeconds(time.Minute))
	assert.Equal(t, "1", WindowSeconds(200*time.Millisecond))
}
