package batchq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsValidate(t *testing.T) {
	opts := DefaultOptions
	require.NoError(t, opts.Validate())

	bad := DefaultOptions
	bad.MinBatchSize = 0
	assert.Error(t, bad.Validate())

	bad = DefaultOptions
	bad.MaxBatchSize = 0
	assert.Error(t, bad.Validate())

	bad = DefaultOptions
	bad.MinBatchSize = 16
	bad.MaxBatchSize = 8
	assert.Error(t, bad.Validate())

	bad = DefaultOptions
	bad.GrowthFactor = 0
	assert.Error(t, bad.Validate())

	bad = DefaultOptions
	bad.IdleThreshold = 0
	assert.Error(t, bad.Validate())

	bad = DefaultOptions
	bad.LockTTL = 0
	assert.Error(t, bad.Validate())

	bad = DefaultOptions
	bad.MaxRetries = 0
	assert.Error(t, bad.Validate())
}

func TestKeysForPrefix(t *testing.T) {
	keys := KeysForPrefix("Q1")
	assert.Equal(t, "Q1_Q", keys.Queue)
	assert.Equal(t, "Q1_L", keys.Lock)
}
