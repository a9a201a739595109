package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(t *testing.T, limit int, window time.Duration) (*Limiter, *time.Time) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	l := New(ctx, limit, window)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }
	return l, &clock
}

func TestAllowConsumesAndRefills(t *testing.T) {
	l, clock := newTestLimiter(t, 2, time.Minute)

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))

	*clock = clock.Add(30 * time.Second)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	l.Reset("a")
	assert.True(t, l.Allow("a"))
}

func TestSweepDropsStaleKeys(t *testing.T) {
	l, clock := newTestLimiter(t, 1, time.Second)
	l.Allow("old")
	*clock = clock.Add(10 * time.Second)
	l.sweep()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.entries)
}

func TestRetryAfter(t *testing.T) {
	l, _ := newTestLimiter(t, 60, time.Minute)
	assert.Equal(t, time.Second, l.RetryAfter())
}
