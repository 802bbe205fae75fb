package batchq

import (
	"context"
	"errors"
	"time"

	"github.com/gantryq/gantry/pkg/kv"
)

// QueueInfo is a read-only snapshot of a queue.
type QueueInfo struct {
	Jobs       uint       // pending jobs
	Oldest     time.Time  // enqueue time of the head job, zero when empty
	Newest     time.Time  // enqueue time of the tail job, zero when empty
	Version    kv.Version // queue entry version, kv.NoVersion before first push
	LockHolder string     // pass holding the lock right now, empty when free
}

// Inspect reads the current state of a queue without taking the lock.
//
// The snapshot is advisory: by the time it returns, a concurrent pass may
// already have committed a different state.
func Inspect(ctx context.Context, store kv.Store, keys Keys) (*QueueInfo, error) {
	state, version, err := readQueue(ctx, store, keys.Queue)
	if err != nil {
		return nil, err
	}
	info := &QueueInfo{
		Jobs:    state.Count(),
		Newest:  state.LastEnqueuedAt(),
		Version: version,
	}
	if len(state.Jobs) > 0 {
		info.Oldest = state.Jobs[0].EnqueuedAt
	}
	holder, _, err := store.Get(ctx, keys.Lock)
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return nil, err
	}
	info.LockHolder = string(holder)
	return info, nil
}
