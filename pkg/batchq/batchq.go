// Package batchq runs a batch-oriented job queue on top of a versioned key-value store.
//
// Queue layout
//
// All pending jobs of a queue live in a single versioned store entry, ordered by arrival.
// A second short-TTL entry acts as the processing lock.
// Any store that offers get-with-version, compare-and-swap, add-if-absent with expiry
// and delete can host a queue; see the kv package for the contract.
//
// Concurrency
//
// Producers append jobs through bounded compare-and-swap retry loops and never block
// each other or the processor. A processing pass takes the lock, drains a bounded batch,
// runs it through an Executor, and commits the residual queue. Jobs that producers
// appended while the batch was executing are merged into the commit, so a concurrent
// enqueue is never lost, though it may have to wait for the next pass.
//
// The lock serializes passes, not producers. A crashed pass holds it for at most the
// lock TTL, after which processing resumes on its own.
//
// Delivery semantics
//
// Delivery is at-least-once. A pass removes its batch from the queue when the final
// commit lands, not when each job finishes, so a job whose execution fails is still
// consumed. The reverse failure is the dangerous one: when the commit itself cannot
// be retried any further, the pass reports a partial failure and the already executed
// jobs stay visible in the queue, to be executed again by the next pass.
package batchq

import (
	"fmt"
	"time"
)

// Options stores the tunables of a single queue.
type Options struct {
	// Batch sizing
	MinBatchSize  uint          // lower bound on the batch target
	MaxBatchSize  uint          // hard cap on jobs executed per pass
	GrowthFactor  float64       // batch target multiplier on queue depth
	IdleThreshold time.Duration // queue age after which a pass flushes everything
	// Concurrency control
	LockTTL    time.Duration // processing lock expiry, bounds the damage of a crashed pass
	MaxRetries uint          // compare-and-swap attempts before reporting failure
}

// DefaultOptions returns the default queue options.
// Only pass by value, not reference, to avoid modifying this globally.
var DefaultOptions = Options{
	// Batch sizing
	MinBatchSize:  4,
	MaxBatchSize:  256,
	GrowthFactor:  1.5,
	IdleThreshold: 10 * time.Second,
	// Concurrency control
	LockTTL:    5 * time.Second,
	MaxRetries: 5,
}

// Validate checks the options at startup.
// Bad values are a configuration error, never a runtime surprise.
func (o *Options) Validate() error {
	if o.MinBatchSize == 0 {
		return fmt.Errorf("batchq: MinBatchSize must be positive")
	}
	if o.MaxBatchSize == 0 {
		return fmt.Errorf("batchq: MaxBatchSize must be positive")
	}
	if o.MinBatchSize > o.MaxBatchSize {
		return fmt.Errorf("batchq: MinBatchSize (%d) exceeds MaxBatchSize (%d)",
			o.MinBatchSize, o.MaxBatchSize)
	}
	if o.GrowthFactor <= 0 {
		return fmt.Errorf("batchq: GrowthFactor must be positive")
	}
	if o.IdleThreshold <= 0 {
		return fmt.Errorf("batchq: IdleThreshold must be positive")
	}
	if o.LockTTL <= 0 {
		return fmt.Errorf("batchq: LockTTL must be positive")
	}
	if o.MaxRetries == 0 {
		return fmt.Errorf("batchq: MaxRetries must be positive")
	}
	return nil
}

// Keys holds the store keys used by one queue.
type Keys struct {
	Queue string // versioned queue state
	Lock  string // processing lock
}

// KeysForPrefix creates Keys with a common prefix.
func KeysForPrefix(prefix string) Keys {
	return Keys{
		Queue: prefix + "_Q",
		Lock:  prefix + "_L",
	}
}
