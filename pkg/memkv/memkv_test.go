package memkv

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gantryq/gantry/pkg/kv"
)

func TestGetAbsent(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, _, err := s.Get(ctx, "missing")
	assert.True(t, errors.Is(err, kv.ErrNotFound))
}

func TestCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	s := New()

	// Create through CAS with the absent token.
	v1, err := s.CompareAndSwap(ctx, "k", kv.NoVersion, []byte("a"))
	require.NoError(t, err)
	assert.NotEqual(t, kv.NoVersion, v1)

	// Creating again must conflict.
	_, err = s.CompareAndSwap(ctx, "k", kv.NoVersion, []byte("b"))
	assert.True(t, errors.Is(err, kv.ErrConflict))

	// Read back value and version.
	value, ver, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), value)
	assert.Equal(t, v1, ver)

	// Swap on the current version.
	v2, err := s.CompareAndSwap(ctx, "k", v1, []byte("b"))
	require.NoError(t, err)
	assert.NotEqual(t, v1, v2)

	// The stale token must not work anymore.
	_, err = s.CompareAndSwap(ctx, "k", v1, []byte("c"))
	assert.True(t, errors.Is(err, kv.ErrConflict))
	value, _, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), value, "conflicting write must not change the value")
}

func TestVersionsNeverRepeat(t *testing.T) {
	ctx := context.Background()
	s := New()

	v1, err := s.CompareAndSwap(ctx, "k", kv.NoVersion, []byte("a"))
	require.NoError(t, err)
	existed, err := s.Delete(ctx, "k")
	require.NoError(t, err)
	assert.True(t, existed)

	// Recreate: the old token must not match the new incarnation.
	v2, err := s.CompareAndSwap(ctx, "k", kv.NoVersion, []byte("b"))
	require.NoError(t, err)
	assert.NotEqual(t, v1, v2)
	_, err = s.CompareAndSwap(ctx, "k", v1, []byte("c"))
	assert.True(t, errors.Is(err, kv.ErrConflict))
}

func TestAddIfAbsent(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
	s := New()
	s.Now = func() time.Time { return now }

	ok, err := s.AddIfAbsent(ctx, "lock", []byte("h1"), 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second add bounces while the first is live.
	ok, err = s.AddIfAbsent(ctx, "lock", []byte("h2"), 5*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	// Advance past the TTL: key is gone, add succeeds again.
	now = now.Add(6 * time.Second)
	_, _, err = s.Get(ctx, "lock")
	assert.True(t, errors.Is(err, kv.ErrNotFound))
	ok, err = s.AddIfAbsent(ctx, "lock", []byte("h2"), 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	value, _, err := s.Get(ctx, "lock")
	require.NoError(t, err)
	assert.Equal(t, []byte("h2"), value)
}

func TestDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.CompareAndSwap(ctx, "k", kv.NoVersion, []byte("a"))
	require.NoError(t, err)

	existed, err := s.Delete(ctx, "k")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = s.Delete(ctx, "k")
	require.NoError(t, err)
	assert.False(t, existed, "double delete must not fail")
}

func TestSwapKeepsTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
	s := New()
	s.Now = func() time.Time { return now }

	ok, err := s.AddIfAbsent(ctx, "k", []byte("a"), 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	_, ver, err := s.Get(ctx, "k")
	require.NoError(t, err)

	_, err = s.CompareAndSwap(ctx, "k", ver, []byte("b"))
	require.NoError(t, err)

	now = now.Add(11 * time.Second)
	_, _, err = s.Get(ctx, "k")
	assert.True(t, errors.Is(err, kv.ErrNotFound), "swap must not clear the expiry")
}
