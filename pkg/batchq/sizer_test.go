package batchq

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextBatchSize(t *testing.T) {
	opts := Options{
		MinBatchSize:  4,
		MaxBatchSize:  256,
		GrowthFactor:  1.5,
		IdleThreshold: 10 * time.Second,
	}
	now := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
	fresh := now.Add(-time.Second)
	stale := now.Add(-time.Minute)
	// A busy queue grows the target multiplicatively.
	assert.Equal(t, uint(15), NextBatchSize(10, now, fresh, &opts))
	assert.Equal(t, uint(7), NextBatchSize(5, now, fresh, &opts))
	// Small and empty queues stay at the lower bound.
	assert.Equal(t, uint(4), NextBatchSize(1, now, fresh, &opts))
	assert.Equal(t, uint(4), NextBatchSize(0, now, time.Time{}, &opts))
	// Growth is capped, 100*1.5 lands on the ceiling instead of 150.
	capped := opts
	capped.MaxBatchSize = 120
	assert.Equal(t, uint(120), NextBatchSize(100, now, fresh, &capped))
	// An idle queue flushes whole, bounded below but not above.
	idle := opts
	idle.MinBatchSize = 5
	assert.Equal(t, uint(5), NextBatchSize(2, now, stale, &idle))
	assert.Equal(t, uint(1000), NextBatchSize(1000, now, stale, &opts))
	// Exactly at the threshold still counts as busy.
	assert.Equal(t, uint(6), NextBatchSize(4, now, now.Add(-10*time.Second), &opts))
}
