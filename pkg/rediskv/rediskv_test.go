package rediskv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gantryq/gantry/pkg/kv"
	"github.com/gantryq/gantry/pkg/redistest"
)

func TestStore(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Redis integration test in short mode")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := redistest.NewRedis(ctx, t)
	defer r.Close(t)
	store, err := NewStore(ctx, r.Client)
	require.NoError(t, err)

	t.Log("Read an absent key")
	_, _, err = store.Get(ctx, "q1")
	require.ErrorIs(t, err, kv.ErrNotFound)

	t.Log("Create the key through CAS against the absent version")
	v1, err := store.CompareAndSwap(ctx, "q1", kv.NoVersion, []byte("one"))
	require.NoError(t, err)
	require.NotEqual(t, kv.NoVersion, v1)
	data, ver, err := store.Get(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), data)
	assert.Equal(t, v1, ver)

	t.Log("A second create attempt conflicts")
	_, err = store.CompareAndSwap(ctx, "q1", kv.NoVersion, []byte("dupe"))
	require.ErrorIs(t, err, kv.ErrConflict)

	t.Log("Swap with the current version")
	v2, err := store.CompareAndSwap(ctx, "q1", v1, []byte("two"))
	require.NoError(t, err)
	require.Greater(t, uint64(v2), uint64(v1))

	t.Log("Swap with a stale version leaves the entry untouched")
	_, err = store.CompareAndSwap(ctx, "q1", v1, []byte("stale"))
	require.ErrorIs(t, err, kv.ErrConflict)
	data, ver, err = store.Get(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), data)
	assert.Equal(t, v2, ver)

	t.Log("Delete is idempotent")
	existed, err := store.Delete(ctx, "q1")
	require.NoError(t, err)
	assert.True(t, existed)
	existed, err = store.Delete(ctx, "q1")
	require.NoError(t, err)
	assert.False(t, existed)
	_, _, err = store.Get(ctx, "q1")
	require.ErrorIs(t, err, kv.ErrNotFound)

	t.Log("Versions keep increasing after a delete")
	v3, err := store.CompareAndSwap(ctx, "q1", kv.NoVersion, []byte("three"))
	require.NoError(t, err)
	require.Greater(t, uint64(v3), uint64(v2))
}

func TestStore_AddIfAbsent(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Redis integration test in short mode")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := redistest.NewRedis(ctx, t)
	defer r.Close(t)
	store, err := NewStore(ctx, r.Client)
	require.NoError(t, err)

	t.Log("First add wins, second loses")
	created, err := store.AddIfAbsent(ctx, "lock1", []byte("w1"), time.Hour)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = store.AddIfAbsent(ctx, "lock1", []byte("w2"), time.Hour)
	require.NoError(t, err)
	assert.False(t, created)
	data, _, err := store.Get(ctx, "lock1")
	require.NoError(t, err)
	assert.Equal(t, []byte("w1"), data)

	t.Log("The entry carries the requested TTL")
	pttl, err := r.Client.PTTL(ctx, "lock1").Result()
	require.NoError(t, err)
	assert.Greater(t, pttl, time.Duration(0))
	assert.LessOrEqual(t, pttl, time.Hour)

	t.Log("CAS on the entry keeps the running TTL")
	_, ver, err := store.Get(ctx, "lock1")
	require.NoError(t, err)
	_, err = store.CompareAndSwap(ctx, "lock1", ver, []byte("w1-renewed"))
	require.NoError(t, err)
	pttl, err = r.Client.PTTL(ctx, "lock1").Result()
	require.NoError(t, err)
	assert.Greater(t, pttl, time.Duration(0))

	t.Log("Zero TTL means no expiry")
	created, err = store.AddIfAbsent(ctx, "lock2", []byte("w3"), 0)
	require.NoError(t, err)
	assert.True(t, created)
	pttl, err = r.Client.PTTL(ctx, "lock2").Result()
	require.NoError(t, err)
	assert.Less(t, pttl, time.Duration(0))

	t.Log("An expired entry can be claimed again")
	created, err = store.AddIfAbsent(ctx, "lock3", []byte("w4"), 50*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, created)
	time.Sleep(150 * time.Millisecond)
	_, _, err = store.Get(ctx, "lock3")
	require.ErrorIs(t, err, kv.ErrNotFound)
	created, err = store.AddIfAbsent(ctx, "lock3", []byte("w5"), time.Hour)
	require.NoError(t, err)
	assert.True(t, created)
}
