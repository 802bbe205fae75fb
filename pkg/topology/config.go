// Package topology describes the set of queues a deployment serves.
//
// The topology file is TOML, one [[Queues]] table per queue. Unset tunables
// fall back to the batchq defaults, so a minimal queue is just a name.
package topology

import (
	"fmt"
	"time"

	"github.com/gantryq/gantry/pkg/batchq"
)

// Config holds the full queue topology of a deployment.
type Config struct {
	Queues []*Queue
}

// GetQueue finds a queue by name.
// Returns nil if the queue does not exist.
func (c *Config) GetQueue(name string) *Queue {
	for _, q := range c.Queues {
		if q.Name == name {
			return q
		}
	}
	return nil
}

// Single returns the sole queue of the topology,
// or nil if more than one queue is declared.
func (c *Config) Single() *Queue {
	if len(c.Queues) != 1 {
		return nil
	}
	return c.Queues[0]
}

// Validate checks the topology at startup.
func (c *Config) Validate() error {
	if len(c.Queues) == 0 {
		return fmt.Errorf("no queues defined")
	}
	names := make(map[string]bool)
	prefixes := make(map[string]bool)
	for _, q := range c.Queues {
		if q.Name == "" {
			return fmt.Errorf("queue without a name")
		}
		if names[q.Name] {
			return fmt.Errorf("duplicate queue %q", q.Name)
		}
		names[q.Name] = true
		prefix := q.KeyPrefix()
		if prefixes[prefix] {
			return fmt.Errorf("queue %q: key prefix %q already in use", q.Name, prefix)
		}
		prefixes[prefix] = true
		opts := q.QueueOptions()
		if err := opts.Validate(); err != nil {
			return fmt.Errorf("queue %q: %w", q.Name, err)
		}
	}
	return nil
}

// Queue holds the configuration specific to one job queue.
type Queue struct {
	Name   string
	Prefix string // store key prefix, defaults to the name

	// Batch sizing
	MinBatchSize  uint
	MaxBatchSize  uint
	GrowthFactor  float64
	IdleThreshold time.Duration
	// Concurrency control
	LockTTL    time.Duration
	MaxRetries uint
	// Job handler command, consumed by the daemon
	ExecPath    string
	ExecArgs    []string
	ExecTimeout time.Duration
}

// KeyPrefix returns the store key prefix of the queue.
func (q *Queue) KeyPrefix() string {
	if q.Prefix != "" {
		return q.Prefix
	}
	return q.Name
}

// Keys returns the store keys of the queue.
func (q *Queue) Keys() batchq.Keys {
	return batchq.KeysForPrefix(q.KeyPrefix())
}

// QueueOptions builds the batchq options of the queue,
// falling back to the defaults for unset fields.
func (q *Queue) QueueOptions() batchq.Options {
	opts := batchq.DefaultOptions
	if q.MinBatchSize != 0 {
		opts.MinBatchSize = q.MinBatchSize
	}
	if q.MaxBatchSize != 0 {
		opts.MaxBatchSize = q.MaxBatchSize
	}
	if q.GrowthFactor != 0 {
		opts.GrowthFactor = q.GrowthFactor
	}
	if q.IdleThreshold != 0 {
		opts.IdleThreshold = q.IdleThreshold
	}
	if q.LockTTL != 0 {
		opts.LockTTL = q.LockTTL
	}
	if q.MaxRetries != 0 {
		opts.MaxRetries = q.MaxRetries
	}
	return opts
}
