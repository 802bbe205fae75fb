package batchq

import (
	"context"
	"fmt"
	"time"

	"github.com/gantryq/gantry/pkg/kv"
)

// PassLock is the short-TTL token that serializes processing passes.
//
// The store's atomic add-if-absent is the only arbiter: at most one holder
// exists at any instant, with no client-side coordination. Producers never
// touch the lock. There is no renewal, a pass that outlives the TTL loses
// exclusivity, and a crashed holder self-heals after at most one TTL.
type PassLock struct {
	// Required components
	Store kv.Store
	// Required config
	Key    string
	TTL    time.Duration
	Holder string // marker stored under the lock key, identifies the pass
}

// TryAcquire takes the lock without blocking.
// False means another holder exists, which is a normal outcome, not an error.
func (l *PassLock) TryAcquire(ctx context.Context) (bool, error) {
	acquired, err := l.Store.AddIfAbsent(ctx, l.Key, []byte(l.Holder), l.TTL)
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	return acquired, nil
}

// Release drops the lock unconditionally.
// Releasing a lock that already expired is a no-op.
func (l *PassLock) Release(ctx context.Context) error {
	if _, err := l.Store.Delete(ctx, l.Key); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
