package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter(t *testing.T) {
	l := NewLimiter(1.0, 5)
	assert.Equal(t, time.Duration(0), round(l.Count(1000, 1)))
	assert.Equal(t, time.Duration(0), round(l.Count(1000, 5)))
	assert.Equal(t, 5000*time.Millisecond, round(l.Count(1000, 5)))
	assert.Equal(t, 10000*time.Millisecond, round(l.Count(1000, 5)))
	assert.Equal(t, 10000*time.Millisecond, round(l.Count(1001, 0)))
	assert.Equal(t, 10000*time.Millisecond, round(l.Count(1002, 0)))
	assert.Equal(t, 10000*time.Millisecond, round(l.Count(1003, 0)))
	assert.Equal(t, 10000*time.Millisecond, round(l.Count(1004, 0)))
	assert.Equal(t, 10000*time.Millisecond, round(l.Count(1005, 0)))
	assert.Equal(t, 7000*time.Millisecond, round(l.Count(1006, 0)))
	assert.Equal(t, 3999*time.Millisecond, round(l.Count(1007, 0)))
	assert.Equal(t, 3999*time.Millisecond, round(l.Count(1008, 3)))
	assert.Equal(t, 1000*time.Millisecond, round(l.Count(1009, 0)))
	assert.Equal(t, 0*time.Millisecond, round(l.Count(1010, 0)))
}

func TestTake(t *testing.T) {
	// Under the target, Take returns without pausing.
	l := NewLimiter(1e6, 5)
	require.NoError(t, l.Take(context.Background(), 1))
	// Over the target, a canceled context cuts the pause short.
	slow := NewLimiter(0.1, 5)
	slow.Count(time.Now().Unix(), 1000)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := slow.Take(ctx, 1000)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func round(dur time.Duration) time.Duration {
	return dur - (dur % time.Millisecond)
}
